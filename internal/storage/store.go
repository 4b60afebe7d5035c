package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tiliavir/shiftr/internal/model"
)

var (
	// ErrNotFound is returned when a worker or settings row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by CompareAndSwap when the stored revision no
	// longer matches the caller's copy.
	ErrConflict = errors.New("record was modified concurrently")
)

// Filter narrows ListWorkers.
type Filter struct {
	OnDutyOnly bool
}

// Store is the document store consumed by the shift engine.
type Store interface {
	// GetOrCreateWorker returns the worker, inserting an empty off-duty
	// record on first access.
	GetOrCreateWorker(ctx context.Context, orgID, workerID string) (*model.WorkerRecord, error)
	GetWorker(ctx context.Context, orgID, workerID string) (*model.WorkerRecord, error)
	// CompareAndSwap writes rec if the stored revision equals expected.
	// On success rec.Revision is advanced to the stored value.
	CompareAndSwap(ctx context.Context, rec *model.WorkerRecord, expected uint64) error
	// SaveWorker writes rec unconditionally.
	SaveWorker(ctx context.Context, rec *model.WorkerRecord) error
	ListWorkers(ctx context.Context, orgID string, filter Filter) ([]*model.WorkerRecord, error)
	DeleteAllWorkers(ctx context.Context, orgID string) (int, error)
	// DeleteOrganization removes all workers and the settings of orgID
	// atomically and returns the number of workers removed.
	DeleteOrganization(ctx context.Context, orgID string) (int, error)

	GetSettings(ctx context.Context, orgID string) (*model.Settings, error)
	UpsertSettings(ctx context.Context, orgID string, update model.SettingsUpdate) (*model.Settings, error)
	DeleteSettings(ctx context.Context, orgID string) error

	Close() error
}

// BaseDir returns the root data directory (~/.shiftr).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".shiftr"), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
