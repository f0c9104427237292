package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"review-monitor/models"
)

var (
	ErrBusinessNotFound  = errors.New("business not found")
	ErrInvalidBusiness   = errors.New("business name is required")
	ErrInvalidBusinessID = errors.New("invalid business id")
	ErrInvalidSettings   = errors.New("check_interval_hours must not be negative")
)

// BusinessLister is the read side of the configuration, all a scrape run
// needs.
type BusinessLister interface {
	ListBusinesses(ctx context.Context) ([]models.BusinessConfig, error)
}

// BusinessStore is the configuration source: the ordered list of monitored
// businesses and the settings kept with it.
type BusinessStore interface {
	BusinessLister
	// AddBusiness assigns the next free id (max + 1) and stores b.
	AddBusiness(ctx context.Context, b models.BusinessConfig) (models.BusinessConfig, error)
	DeleteBusiness(ctx context.Context, id int64) error
	// ReplaceBusinesses overwrites the whole directory and returns it as
	// stored. Businesses without an id are numbered after the highest given
	// id, in list order.
	ReplaceBusinesses(ctx context.Context, dir models.Directory) (models.Directory, error)
	// Settings returns the stored settings; zero values mean unset.
	Settings(ctx context.Context) (models.Settings, error)
}

// SnapshotStore keeps scrape results. SaveSnapshot overwrites any earlier
// save of the same run; LatestSnapshot returns nil when nothing was saved.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	LatestSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// Store is a full storage backend.
type Store interface {
	BusinessStore
	SnapshotStore
	Close() error
}

func validateBusiness(b models.BusinessConfig) (models.BusinessConfig, error) {
	b.Name = strings.TrimSpace(b.Name)
	b.TargetURL = strings.TrimSpace(b.TargetURL)
	if b.Name == "" {
		return b, ErrInvalidBusiness
	}
	if b.Address != nil && strings.TrimSpace(*b.Address) == "" {
		b.Address = nil
	}
	return b, nil
}

// IsInvalid reports whether err rejects caller input rather than failing the
// store.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidBusiness) || errors.Is(err, ErrInvalidBusinessID) || errors.Is(err, ErrInvalidSettings)
}

// normalizeDirectory validates every entry and assigns ids to new ones.
func normalizeDirectory(dir models.Directory) (models.Directory, error) {
	if dir.Settings.CheckIntervalHours < 0 {
		return dir, ErrInvalidSettings
	}

	out := models.Directory{
		Businesses: make([]models.BusinessConfig, 0, len(dir.Businesses)),
		Settings:   dir.Settings,
	}
	seen := make(map[int64]bool, len(dir.Businesses))
	var maxID int64
	for i, b := range dir.Businesses {
		b, err := validateBusiness(b)
		if err != nil {
			return dir, fmt.Errorf("business #%d: %w", i+1, err)
		}
		switch {
		case b.ID < 0:
			return dir, fmt.Errorf("business #%d: %w: %d", i+1, ErrInvalidBusinessID, b.ID)
		case b.ID > 0 && seen[b.ID]:
			return dir, fmt.Errorf("business #%d: %w: %d is used twice", i+1, ErrInvalidBusinessID, b.ID)
		}
		seen[b.ID] = true
		if b.ID > maxID {
			maxID = b.ID
		}
		out.Businesses = append(out.Businesses, b)
	}

	for i := range out.Businesses {
		if out.Businesses[i].ID == 0 {
			maxID++
			out.Businesses[i].ID = maxID
		}
	}
	return out, nil
}
