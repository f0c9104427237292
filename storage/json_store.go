package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"review-monitor/models"
)

const (
	businessesFile = "businesses.json"
	reviewsFile    = "reviews_data.json"
	lockFile       = ".review-monitor.lock"
)

// businessesDoc is the businesses.json layout; settings ride along on
// every rewrite.
type businessesDoc struct {
	Businesses []models.BusinessConfig `json:"businesses"`
	Settings   models.Settings         `json:"settings"`
}

// JSONStore keeps businesses and the latest snapshot as JSON files in one
// directory. Writes go through a temp file and rename; a file lock keeps
// other processes sharing the directory from interleaving.
type JSONStore struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewJSONStore creates dir if needed and returns a store rooted there.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("json: create data dir: %w", err)
	}
	return &JSONStore{dir: dir, lock: flock.New(filepath.Join(dir, lockFile))}, nil
}

func (s *JSONStore) ListBusinesses(ctx context.Context) ([]models.BusinessConfig, error) {
	var doc businessesDoc
	err := s.withLock(ctx, func() error {
		return s.read(businessesFile, &doc)
	})
	if err != nil {
		return nil, err
	}
	if doc.Businesses == nil {
		doc.Businesses = []models.BusinessConfig{}
	}
	return doc.Businesses, nil
}

func (s *JSONStore) AddBusiness(ctx context.Context, b models.BusinessConfig) (models.BusinessConfig, error) {
	b, err := validateBusiness(b)
	if err != nil {
		return b, err
	}

	err = s.withLock(ctx, func() error {
		var doc businessesDoc
		if err := s.read(businessesFile, &doc); err != nil {
			return err
		}
		var maxID int64
		for _, existing := range doc.Businesses {
			if existing.ID > maxID {
				maxID = existing.ID
			}
		}
		b.ID = maxID + 1
		doc.Businesses = append(doc.Businesses, b)
		return s.write(businessesFile, doc)
	})
	return b, err
}

func (s *JSONStore) DeleteBusiness(ctx context.Context, id int64) error {
	return s.withLock(ctx, func() error {
		var doc businessesDoc
		if err := s.read(businessesFile, &doc); err != nil {
			return err
		}
		kept := doc.Businesses[:0]
		for _, b := range doc.Businesses {
			if b.ID != id {
				kept = append(kept, b)
			}
		}
		if len(kept) == len(doc.Businesses) {
			return ErrBusinessNotFound
		}
		doc.Businesses = kept
		return s.write(businessesFile, doc)
	})
}

func (s *JSONStore) ReplaceBusinesses(ctx context.Context, dir models.Directory) (models.Directory, error) {
	dir, err := normalizeDirectory(dir)
	if err != nil {
		return dir, err
	}
	err = s.withLock(ctx, func() error {
		return s.write(businessesFile, businessesDoc{Businesses: dir.Businesses, Settings: dir.Settings})
	})
	return dir, err
}

func (s *JSONStore) Settings(ctx context.Context) (models.Settings, error) {
	var doc businessesDoc
	err := s.withLock(ctx, func() error {
		return s.read(businessesFile, &doc)
	})
	return doc.Settings, err
}

func (s *JSONStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	return s.withLock(ctx, func() error {
		return s.write(reviewsFile, snap)
	})
}

func (s *JSONStore) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := s.withLock(ctx, func() error {
		return s.read(reviewsFile, &snap)
	})
	return snap, err
}

func (s *JSONStore) Close() error {
	return s.lock.Close()
}

func (s *JSONStore) withLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("json: lock data dir: %w", err)
	}
	defer s.lock.Unlock()

	return fn()
}

// read decodes name into v; a missing file leaves v untouched.
func (s *JSONStore) read(name string, v any) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("json: read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("json: decode %s: %w", name, err)
	}
	return nil
}

func (s *JSONStore) write(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("json: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json: write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("json: replace %s: %w", name, err)
	}
	return nil
}
