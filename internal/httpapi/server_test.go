package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/shiftr/internal/confirm"
	"github.com/Tiliavir/shiftr/internal/httpapi"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/report"
	"github.com/Tiliavir/shiftr/internal/roster"
	"github.com/Tiliavir/shiftr/internal/shift"
	"github.com/Tiliavir/shiftr/internal/storage"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type nopPublisher struct {
	mu    sync.Mutex
	views int
}

func (p *nopPublisher) Publish(context.Context, *model.Settings, *roster.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views++
	return nil
}

type env struct {
	clock *clock
	store *storage.BoltStore
	pub   *nopPublisher
	srv   *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := &clock{now: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)}
	pub := &nopPublisher{}
	refresher := roster.NewRefresher(store, pub, roster.WithClock(c.Now))
	machine := shift.New(store, shift.WithClock(c.Now), shift.WithLocation(time.UTC))
	api := httpapi.NewServer(machine, store, refresher, confirm.NewManager())

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &env{clock: c, store: store, pub: pub, srv: srv}
}

func (e *env) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestShiftLifecycle(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/orgs/acme/workers/42/start", `{"display_name":"Ada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["on_duty"])

	resp, body = e.do(t, http.MethodPost, "/orgs/acme/workers/42/start", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_active", body["reason"])

	e.clock.Advance(2 * time.Hour)
	resp, body = e.do(t, http.MethodPost, "/orgs/acme/workers/42/end", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2*time.Hour/time.Millisecond), body["elapsed_ms"])
	assert.Equal(t, "2024-03-14", body["day"])

	resp, body = e.do(t, http.MethodPost, "/orgs/acme/workers/42/end", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_active", body["reason"])
}

func TestLeaderboard(t *testing.T) {
	e := newEnv(t)
	for _, w := range []struct {
		id    string
		hours time.Duration
	}{{"a", 1}, {"b", 3}} {
		e.do(t, http.MethodPost, "/orgs/acme/workers/"+w.id+"/start", "")
		e.clock.Advance(w.hours * time.Hour)
		e.do(t, http.MethodPost, "/orgs/acme/workers/"+w.id+"/end", "")
	}

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/orgs/acme/leaderboard?window=week", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res report.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "b", res.Ranked[0].WorkerID)
	assert.Equal(t, int64(3), res.Ranked[0].Hours)
}

func TestLeaderboardBadWindow(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, http.MethodGet, "/orgs/acme/leaderboard?window=year", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownWorker(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/orgs/acme/workers/ghost/remove", "/orgs/acme/workers/ghost/reset"} {
		resp, _ := e.do(t, http.MethodPost, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp, _ := e.do(t, http.MethodGet, "/orgs/acme/workers/ghost/stats", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/orgs/acme/workers/42/start", "")
	e.clock.Advance(90 * time.Minute)
	e.do(t, http.MethodPost, "/orgs/acme/workers/42/end", "")

	resp, body := e.do(t, http.MethodGet, "/orgs/acme/workers/42/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["shifts"])
	assert.Equal(t, float64(30), body["display_minutes"])
}

func TestRosterRefreshNeedsBinding(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, http.MethodPost, "/orgs/acme/roster/refresh", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := e.do(t, http.MethodPut, "/orgs/acme/settings", `{"channel_id":"c","roster_message_id":"m"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c", body["channel_id"])

	e.do(t, http.MethodPost, "/orgs/acme/workers/42/start", "")
	resp, body = e.do(t, http.MethodPost, "/orgs/acme/roster/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 1)
}

func TestRosterView(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/orgs/acme/workers/42/start", "")
	resp, body := e.do(t, http.MethodGet, "/orgs/acme/roster", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["entries"], 1)
}

func TestResetAllNeedsConfirmation(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/orgs/acme/workers/42/start", "")

	resp, body := e.do(t, http.MethodPost, "/orgs/acme/reset-all", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "pending", body["state"])
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	_, err := e.store.GetWorker(context.Background(), "acme", "42")
	require.NoError(t, err, "nothing is deleted before confirmation")

	resp, body = e.do(t, http.MethodPost, "/confirmations/"+id, `{"accept":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "confirmed", body["state"])

	_, err = e.store.GetWorker(context.Background(), "acme", "42")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	resp, _ = e.do(t, http.MethodPost, "/confirmations/"+id, `{"accept":true}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnknownConfirmation(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, http.MethodPost, "/confirmations/nope", `{"accept":false}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodGet, "/health", "")
	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
