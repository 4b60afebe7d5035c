// Package shift implements the on-duty/off-duty state machine of a worker
// and commits closed shifts into the worker's ledger.
package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/shiftr/internal/ledger"
	"github.com/Tiliavir/shiftr/internal/log"
	"github.com/Tiliavir/shiftr/internal/metrics"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/storage"
)

// DefaultRetries is how often a transition re-reads the record after losing
// a compare-and-swap race.
const DefaultRetries = 3

// Hook is called with the organization id after every successful
// transition. It must not block.
type Hook func(orgID string)

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLocation sets the zone used to derive day keys.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) { m.loc = loc }
}

// WithHook registers the post-transition hook.
func WithHook(h Hook) Option {
	return func(m *Machine) { m.onChange = h }
}

// WithRetries overrides DefaultRetries.
func WithRetries(n int) Option {
	return func(m *Machine) { m.retries = n }
}

// Machine drives shift transitions against a Store.
type Machine struct {
	store    storage.Store
	now      func() time.Time
	loc      *time.Location
	onChange Hook
	retries  int
	logger   zerolog.Logger
}

// New creates a Machine.
func New(store storage.Store, opts ...Option) *Machine {
	m := &Machine{
		store:   store,
		now:     time.Now,
		loc:     time.Local,
		retries: DefaultRetries,
		logger:  log.WithComponent("shift"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the machine's current time in its configured zone. Reports
// use it so they agree with the day keys the machine writes.
func (m *Machine) Now() time.Time {
	return m.now().In(m.loc)
}

// Closed describes a shift that was folded into the ledger.
type Closed struct {
	Record  *model.WorkerRecord
	Elapsed time.Duration
	DayKey  string
}

// StartShift puts the worker on duty, creating the record on first use.
func (m *Machine) StartShift(ctx context.Context, orgID, workerID, displayName string) (*model.WorkerRecord, error) {
	rec, err := m.update(ctx, "start shift", orgID, workerID, true, func(rec *model.WorkerRecord, now time.Time) error {
		if rec.OnDuty {
			return ErrAlreadyActive
		}
		rec.OnDuty = true
		rec.ShiftStart = &now
		if displayName != "" {
			rec.DisplayName = displayName
		}
		return nil
	})
	if err != nil {
		m.reject(orgID, workerID, "start", err)
		return nil, err
	}

	metrics.ShiftsStarted.Inc()
	l := log.WithWorker(m.logger, orgID, workerID)
	l.Info().
		Time("shift_start", *rec.ShiftStart).
		Msg("shift started")
	m.changed(orgID)
	return rec, nil
}

// EndShift closes the worker's open shift and merges its duration into the
// ledger under the day the shift ends.
func (m *Machine) EndShift(ctx context.Context, orgID, workerID, displayName string) (*Closed, error) {
	return m.close(ctx, "end shift", "self", orgID, workerID, displayName, true)
}

// RemoveWorker closes another worker's open shift on behalf of an
// administrator. Unlike EndShift it does not create missing records.
func (m *Machine) RemoveWorker(ctx context.Context, orgID, workerID string) (*Closed, error) {
	return m.close(ctx, "remove worker", "admin", orgID, workerID, "", false)
}

func (m *Machine) close(ctx context.Context, op, via, orgID, workerID, displayName string, create bool) (*Closed, error) {
	closed := &Closed{}
	rec, err := m.update(ctx, op, orgID, workerID, create, func(rec *model.WorkerRecord, now time.Time) error {
		if !rec.OnDuty {
			return ErrNotActive
		}
		if rec.ShiftStart == nil {
			return fmt.Errorf("%w: on duty without shift start", ErrCorruptState)
		}
		elapsed := now.Sub(*rec.ShiftStart)
		if elapsed < 0 {
			return fmt.Errorf("%w: shift start %s is after %s", ErrCorruptState,
				rec.ShiftStart.Format(time.RFC3339), now.Format(time.RFC3339))
		}

		key := ledger.DayKey(now)
		history, err := ledger.Merge(rec.History, key, elapsed.Milliseconds())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		if err := ledger.Validate(history); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptState, err)
		}

		rec.History = history
		rec.OnDuty = false
		rec.ShiftStart = nil
		rec.ShiftEnd = &now
		if displayName != "" {
			rec.DisplayName = displayName
		}
		closed.Elapsed = elapsed
		closed.DayKey = key
		return nil
	})
	if err != nil {
		m.reject(orgID, workerID, "end", err)
		return nil, err
	}
	closed.Record = rec

	metrics.ShiftsEnded.WithLabelValues(via).Inc()
	metrics.ShiftDuration.Observe(closed.Elapsed.Seconds())
	l := log.WithWorker(m.logger, orgID, workerID)
	l.Info().
		Str("via", via).
		Str("day", closed.DayKey).
		Dur("elapsed", closed.Elapsed).
		Msg("shift ended")
	m.changed(orgID)
	return closed, nil
}

// ResetWorker clears the worker's ledger and duty fields regardless of the
// current state.
func (m *Machine) ResetWorker(ctx context.Context, orgID, workerID string) (*model.WorkerRecord, error) {
	rec, err := m.update(ctx, "reset worker", orgID, workerID, false, func(rec *model.WorkerRecord, _ time.Time) error {
		rec.History = []model.DayEntry{}
		rec.OnDuty = false
		rec.ShiftStart = nil
		rec.ShiftEnd = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	l := log.WithWorker(m.logger, orgID, workerID)
	l.Info().Msg("worker reset")
	m.changed(orgID)
	return rec, nil
}

// ResetAll deletes every worker and the settings of an organization and
// returns the number of workers removed.
func (m *Machine) ResetAll(ctx context.Context, orgID string) (int, error) {
	n, err := m.store.DeleteOrganization(ctx, orgID)
	if err != nil {
		return 0, &StorageError{Op: "reset all", Err: err}
	}
	l := log.WithOrg(m.logger, orgID)
	l.Warn().Int("workers", n).Msg("organization data reset")
	m.changed(orgID)
	return n, nil
}

// update runs a read-validate-compare-and-swap cycle. mutate receives a
// private copy of the record; returning an error aborts without writing.
func (m *Machine) update(ctx context.Context, op, orgID, workerID string, create bool,
	mutate func(rec *model.WorkerRecord, now time.Time) error) (*model.WorkerRecord, error) {

	for attempt := 0; ; attempt++ {
		var (
			current *model.WorkerRecord
			err     error
		)
		if create {
			current, err = m.store.GetOrCreateWorker(ctx, orgID, workerID)
		} else {
			current, err = m.store.GetWorker(ctx, orgID, workerID)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err != nil {
			return nil, &StorageError{Op: op, Err: err}
		}

		next := current.Clone()
		if err := mutate(next, m.now().In(m.loc)); err != nil {
			return nil, err
		}

		err = m.store.CompareAndSwap(ctx, next, current.Revision)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, storage.ErrConflict) {
			metrics.CASConflicts.Inc()
			if attempt < m.retries {
				continue
			}
		}
		return nil, &StorageError{Op: op, Err: err}
	}
}

func (m *Machine) reject(orgID, workerID, transition string, err error) {
	reason := Reason(err)
	metrics.TransitionsRejected.WithLabelValues(reason).Inc()
	l := log.WithWorker(m.logger, orgID, workerID)
	switch {
	case errors.Is(err, ErrCorruptState):
		l.Error().Err(err).Str("transition", transition).Msg("refusing to commit corrupt worker state")
	case errors.Is(err, ErrStorage):
		l.Error().Err(err).Str("transition", transition).Msg("transition failed")
	default:
		l.Debug().Err(err).Str("transition", transition).Msg("transition rejected")
	}
}

func (m *Machine) changed(orgID string) {
	if m.onChange != nil {
		m.onChange(orgID)
	}
}
