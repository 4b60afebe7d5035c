// Package publish delivers roster views to a chat service. Client edits the
// roster message through the service's REST API; Log writes the view to the
// application log when no API is configured.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/shiftr/internal/log"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/roster"
)

// embedColor is the accent of the roster card.
const embedColor = 0x00ffff

// Client is an authenticated chat API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client that authenticates every request with a bot
// token ("Authorization: Bot <token>").
func NewClient(ctx context.Context, baseURL, botToken string, timeout time.Duration) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: botToken, TokenType: "Bot"})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = timeout
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type messageBody struct {
	Embeds []embed `json:"embeds"`
}

type messageResponse struct {
	ID string `json:"id"`
}

// Render formats a view as chat markdown. Start times use relative
// timestamp markup so clients show "2 hours ago".
func Render(view *roster.View) string {
	var b strings.Builder
	b.WriteString("### Active Employees\n")
	if len(view.Entries) == 0 {
		b.WriteString("No active employees")
	}
	for i, e := range view.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- <@%s>: <t:%d:R>", e.WorkerID, e.ShiftStart.Unix())
	}
	fmt.Fprintf(&b, "\n\n-# Last Updated: <t:%d:R>", view.GeneratedAt.Unix())
	return b.String()
}

func body(view *roster.View) messageBody {
	return messageBody{Embeds: []embed{{
		Title:       "Employee Time Tracker",
		Description: Render(view),
		Color:       embedColor,
	}}}
}

// Publish edits the organization's roster message in place.
func (c *Client) Publish(ctx context.Context, settings *model.Settings, view *roster.View) error {
	endpoint := fmt.Sprintf("%s/channels/%s/messages/%s", c.baseURL,
		url.PathEscape(settings.ChannelID), url.PathEscape(settings.RosterMessageID))
	_, err := c.do(ctx, http.MethodPatch, endpoint, body(view))
	return err
}

// CreateMessage posts a new roster message into channelID and returns its id.
func (c *Client) CreateMessage(ctx context.Context, channelID string, view *roster.View) (string, error) {
	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, url.PathEscape(channelID))
	data, err := c.do(ctx, http.MethodPost, endpoint, body(view))
	if err != nil {
		return "", err
	}
	var msg messageResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("decoding message response: %w", err)
	}
	if msg.ID == "" {
		return "", fmt.Errorf("message response without id")
	}
	return msg.ID, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat API request failed: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("chat API error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// Log publishes views to the application log.
type Log struct{}

func (Log) Publish(_ context.Context, settings *model.Settings, view *roster.View) error {
	l := log.WithOrg(log.WithComponent("publish"), view.OrganizationID)
	l.Info().
		Str("channel_id", settings.ChannelID).
		Str("message_id", settings.RosterMessageID).
		Str("render_id", view.RenderID).
		Int("active", len(view.Entries)).
		Msg("roster updated")
	return nil
}
