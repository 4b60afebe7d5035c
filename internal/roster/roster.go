// Package roster maintains the live view of on-duty workers. Views are
// derived from storage on every render and pushed to a Publisher after each
// transition.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/shiftr/internal/log"
	"github.com/Tiliavir/shiftr/internal/metrics"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/report"
	"github.com/Tiliavir/shiftr/internal/storage"
)

// ErrUnbound means the organization has no channel or roster message to
// render into.
var ErrUnbound = errors.New("roster is not bound to a channel message")

// View is one rendered snapshot of the roster.
type View struct {
	RenderID       string               `json:"render_id"`
	OrganizationID string               `json:"organization_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Entries        []report.RosterEntry `json:"entries"`
}

// Publisher delivers a view to wherever the roster is displayed.
type Publisher interface {
	Publish(ctx context.Context, settings *model.Settings, view *View) error
}

// Build computes the current view of an organization.
func Build(ctx context.Context, store storage.Store, orgID string, now time.Time) (*View, error) {
	workers, err := store.ListWorkers(ctx, orgID, storage.Filter{OnDutyOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing on-duty workers: %w", err)
	}
	return &View{
		RenderID:       uuid.NewString(),
		OrganizationID: orgID,
		GeneratedAt:    now,
		Entries:        report.ActiveRoster(workers, now),
	}, nil
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// WithTimeout bounds a single render.
func WithTimeout(d time.Duration) Option {
	return func(r *Refresher) { r.timeout = d }
}

// WithConcurrency limits how many organizations render at once.
func WithConcurrency(n int) Option {
	return func(r *Refresher) { r.concurrency = n }
}

// Refresher renders rosters in the background. Trigger marks an
// organization dirty; a render started after the last Trigger always
// follows, so the published view converges on the stored state.
type Refresher struct {
	store       storage.Store
	publisher   Publisher
	now         func() time.Time
	timeout     time.Duration
	concurrency int
	logger      zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	stopped bool

	signal    chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRefresher creates a Refresher. Call Start to begin rendering.
func NewRefresher(store storage.Store, publisher Publisher, opts ...Option) *Refresher {
	r := &Refresher{
		store:       store,
		publisher:   publisher,
		now:         time.Now,
		timeout:     10 * time.Second,
		concurrency: 4,
		logger:      log.WithComponent("roster"),
		pending:     make(map[string]struct{}),
		signal:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the render loop.
func (r *Refresher) Start() {
	r.startOnce.Do(func() { go r.run() })
}

// Trigger schedules a render of orgID and returns immediately.
func (r *Refresher) Trigger(orgID string) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.pending[orgID] = struct{}{}
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Refresh renders orgID synchronously and returns the published view.
func (r *Refresher) Refresh(ctx context.Context, orgID string) (*View, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RosterRenderDuration)

	settings, err := r.store.GetSettings(ctx, orgID)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.RosterRenders.WithLabelValues("skipped").Inc()
		return nil, fmt.Errorf("organization %s: %w", orgID, ErrUnbound)
	}
	if err != nil {
		metrics.RosterRenders.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if settings.ChannelID == "" || settings.RosterMessageID == "" {
		metrics.RosterRenders.WithLabelValues("skipped").Inc()
		return nil, fmt.Errorf("organization %s: %w", orgID, ErrUnbound)
	}

	view, err := Build(ctx, r.store, orgID, r.now())
	if err != nil {
		metrics.RosterRenders.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := r.publisher.Publish(ctx, settings, view); err != nil {
		metrics.RosterRenders.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("publishing roster: %w", err)
	}
	metrics.RosterRenders.WithLabelValues("ok").Inc()
	return view, nil
}

// Close stops accepting triggers, renders what is still pending and waits
// for the loop to exit or ctx to end.
func (r *Refresher) Close(ctx context.Context) error {
	r.Start()
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.stopCh)
	})
	select {
	case <-r.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) run() {
	defer close(r.doneCh)
	for {
		select {
		case <-r.signal:
			r.drain()
		case <-r.stopCh:
			r.drain()
			return
		}
	}
}

// drain renders dirty organizations until none are left.
func (r *Refresher) drain() {
	for {
		r.mu.Lock()
		orgs := make([]string, 0, len(r.pending))
		for org := range r.pending {
			orgs = append(orgs, org)
		}
		clear(r.pending)
		r.mu.Unlock()

		if len(orgs) == 0 {
			return
		}

		var g errgroup.Group
		g.SetLimit(r.concurrency)
		for _, org := range orgs {
			g.Go(func() error {
				r.render(org)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (r *Refresher) render(orgID string) {
	l := log.WithOrg(r.logger, orgID)
	view, err := r.Refresh(context.Background(), orgID)
	switch {
	case errors.Is(err, ErrUnbound):
		l.Debug().Msg("roster not bound, skipping render")
	case err != nil:
		l.Warn().Err(err).Msg("roster render failed")
	default:
		l.Debug().Str("render_id", view.RenderID).Int("active", len(view.Entries)).Msg("roster rendered")
	}
}
