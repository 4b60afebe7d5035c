package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Tiliavir/shiftr/internal/model"
)

var (
	bucketWorkers  = []byte("workers")
	bucketSettings = []byte("settings")
)

const keySep = "\x00"

// openTimeout bounds how long Open waits for the file lock held by another process.
const openTimeout = 5 * time.Second

// BoltStore implements Store on a single bbolt file. Worker documents are
// keyed "<org>\x00<worker>" so an organization is one contiguous key range.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (or creates) shiftr.db inside dataDir.
func Open(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	dbPath := filepath.Join(dataDir, "shiftr.db")

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketWorkers, bucketSettings} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func orgPrefix(orgID string) []byte {
	return []byte(orgID + keySep)
}

func workerKey(orgID, workerID string) []byte {
	return []byte(orgID + keySep + workerID)
}

func getWorker(b *bolt.Bucket, orgID, workerID string) (*model.WorkerRecord, error) {
	data := b.Get(workerKey(orgID, workerID))
	if data == nil {
		return nil, fmt.Errorf("worker %s/%s: %w", orgID, workerID, ErrNotFound)
	}
	var rec model.WorkerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt worker document %s/%s: %w", orgID, workerID, err)
	}
	return &rec, nil
}

func putWorker(b *bolt.Bucket, rec *model.WorkerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage error marshalling worker: %w", err)
	}
	return b.Put(workerKey(rec.OrganizationID, rec.WorkerID), data)
}

func (s *BoltStore) GetOrCreateWorker(ctx context.Context, orgID, workerID string) (*model.WorkerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *model.WorkerRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		existing, err := getWorker(b, orgID, workerID)
		if err == nil {
			rec = existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}
		rec = &model.WorkerRecord{
			OrganizationID: orgID,
			WorkerID:       workerID,
			History:        []model.DayEntry{},
			Revision:       1,
		}
		return putWorker(b, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) GetWorker(ctx context.Context, orgID, workerID string) (*model.WorkerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *model.WorkerRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = getWorker(tx.Bucket(bucketWorkers), orgID, workerID)
		return err
	})
	return rec, err
}

func (s *BoltStore) CompareAndSwap(ctx context.Context, rec *model.WorkerRecord, expected uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		current, err := getWorker(b, rec.OrganizationID, rec.WorkerID)
		switch {
		case isNotFound(err):
			if expected != 0 {
				return ErrConflict
			}
		case err != nil:
			return err
		case current.Revision != expected:
			return ErrConflict
		}
		next := *rec
		next.Revision = expected + 1
		if err := putWorker(b, &next); err != nil {
			return err
		}
		rec.Revision = next.Revision
		return nil
	})
}

func (s *BoltStore) SaveWorker(ctx context.Context, rec *model.WorkerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		next := *rec
		next.Revision = 1
		if current, err := getWorker(b, rec.OrganizationID, rec.WorkerID); err == nil {
			next.Revision = current.Revision + 1
		}
		if err := putWorker(b, &next); err != nil {
			return err
		}
		rec.Revision = next.Revision
		return nil
	})
}

func (s *BoltStore) ListWorkers(ctx context.Context, orgID string, filter Filter) ([]*model.WorkerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var workers []*model.WorkerRecord
	prefix := orgPrefix(orgID)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketWorkers).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec model.WorkerRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt worker document %s: %w", k, err)
			}
			if filter.OnDutyOnly && !rec.OnDuty {
				continue
			}
			workers = append(workers, &rec)
		}
		return nil
	})
	return workers, err
}

func (s *BoltStore) DeleteAllWorkers(ctx context.Context, orgID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		n, err = deleteWorkers(tx, orgID)
		return err
	})
	return n, err
}

// DeleteOrganization removes every worker and the settings of orgID in a
// single transaction.
func (s *BoltStore) DeleteOrganization(ctx context.Context, orgID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		if n, err = deleteWorkers(tx, orgID); err != nil {
			return err
		}
		return tx.Bucket(bucketSettings).Delete([]byte(orgID))
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func deleteWorkers(tx *bolt.Tx, orgID string) (int, error) {
	b := tx.Bucket(bucketWorkers)
	prefix := orgPrefix(orgID)
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func (s *BoltStore) GetSettings(ctx context.Context, orgID string) (*model.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var settings model.Settings
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSettings).Get([]byte(orgID))
		if data == nil {
			return fmt.Errorf("settings %s: %w", orgID, ErrNotFound)
		}
		return json.Unmarshal(data, &settings)
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *BoltStore) UpsertSettings(ctx context.Context, orgID string, update model.SettingsUpdate) (*model.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	settings := model.Settings{OrganizationID: orgID}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if data := b.Get([]byte(orgID)); data != nil {
			if err := json.Unmarshal(data, &settings); err != nil {
				return fmt.Errorf("corrupt settings document %s: %w", orgID, err)
			}
		}
		update.Apply(&settings)
		data, err := json.Marshal(&settings)
		if err != nil {
			return err
		}
		return b.Put([]byte(orgID), data)
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *BoltStore) DeleteSettings(ctx context.Context, orgID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Delete([]byte(orgID))
	})
}
