// Package confirm holds time-boxed confirmations for destructive actions.
//
// A prompt starts pending and leaves that state exactly once: confirmed when
// accepted (its action runs), cancelled when declined, or expired when no
// decision arrives before its deadline.
package confirm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tiliavir/shiftr/internal/log"
)

// DefaultTTL is how long a prompt waits for a decision.
const DefaultTTL = 15 * time.Second

var (
	ErrUnknown  = errors.New("unknown confirmation")
	ErrExpired  = errors.New("confirmation expired")
	ErrResolved = errors.New("confirmation already resolved")
)

type State int

const (
	Pending State = iota
	Confirmed
	Cancelled
	Expired
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Action runs when a prompt is accepted.
type Action func(ctx context.Context) error

// Prompt is a snapshot of a confirmation.
type Prompt struct {
	ID          string
	Description string
	State       State
	ExpiresAt   time.Time
}

type entry struct {
	Prompt
	action Action
	done   chan struct{}
	timer  *time.Timer
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL changes how long prompts stay pending.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithRetention changes how long a finished prompt is remembered.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) { m.retain = d }
}

// Manager tracks open prompts.
type Manager struct {
	ttl    time.Duration
	retain time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		ttl:     DefaultTTL,
		retain:  DefaultTTL,
		logger:  log.WithComponent("confirm"),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Offer registers a pending prompt for action.
func (m *Manager) Offer(description string, action Action) Prompt {
	e := &entry{
		Prompt: Prompt{
			ID:          uuid.NewString(),
			Description: description,
			State:       Pending,
			ExpiresAt:   time.Now().Add(m.ttl),
		},
		action: action,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.entries[e.ID] = e
	e.timer = time.AfterFunc(m.ttl, func() { m.expire(e.ID) })
	m.mu.Unlock()

	m.logger.Debug().
		Str("prompt_id", e.ID).
		Str("description", description).
		Msg("confirmation offered")
	return e.Prompt
}

// Get returns the current snapshot of a prompt.
func (m *Manager) Get(id string) (Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return Prompt{}, ErrUnknown
	}
	return e.Prompt, nil
}

// Resolve accepts or declines a pending prompt. On accept the action runs
// and its error is returned.
func (m *Manager) Resolve(ctx context.Context, id string, accept bool) (Prompt, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return Prompt{}, ErrUnknown
	}
	switch e.State {
	case Expired:
		m.mu.Unlock()
		return e.Prompt, ErrExpired
	case Confirmed, Cancelled:
		m.mu.Unlock()
		return e.Prompt, ErrResolved
	}
	e.timer.Stop()
	action := e.action
	if accept {
		e.State = Confirmed
	} else {
		e.State = Cancelled
	}
	m.finish(e)
	snapshot := e.Prompt
	m.mu.Unlock()

	m.logger.Info().
		Str("prompt_id", id).
		Str("state", snapshot.State.String()).
		Msg("confirmation resolved")

	if accept && action != nil {
		return snapshot, action(ctx)
	}
	return snapshot, nil
}

// Wait blocks until the prompt leaves the pending state or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) (Prompt, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return Prompt{}, ErrUnknown
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return Prompt{}, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return e.Prompt, nil
}

func (m *Manager) expire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.State != Pending {
		return
	}
	e.State = Expired
	m.finish(e)
	m.logger.Info().Str("prompt_id", id).Msg("confirmation expired")
}

// finish releases the action and schedules removal. Callers hold m.mu.
func (m *Manager) finish(e *entry) {
	e.action = nil
	close(e.done)
	id := e.ID
	time.AfterFunc(m.retain, func() {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
	})
}
