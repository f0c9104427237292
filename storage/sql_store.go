package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"review-monitor/models"
)

const settingCheckInterval = "check_interval_hours"

// dialect captures what differs between the SQL backends.
type dialect struct {
	name   string
	schema []string
	// positional turns ? placeholders into $1, $2, ...
	positional bool
}

// SQLStore implements Store on database/sql. Queries are written with ?
// placeholders and rebound for the dialect.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, d: d}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) q(query string) string {
	if !s.d.positional {
		return query
	}
	return rebind(query)
}

// rebind rewrites ? placeholders into $n form.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) ListBusinesses(ctx context.Context) ([]models.BusinessConfig, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, name, target_url, address
		FROM businesses
		ORDER BY id
	`))
	if err != nil {
		return nil, fmt.Errorf("%s: list businesses: %w", s.d.name, err)
	}
	defer rows.Close()

	out := []models.BusinessConfig{}
	for rows.Next() {
		var b models.BusinessConfig
		var addr sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &b.TargetURL, &addr); err != nil {
			return nil, fmt.Errorf("%s: scan business: %w", s.d.name, err)
		}
		if addr.Valid {
			b.Address = &addr.String
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddBusiness(ctx context.Context, b models.BusinessConfig) (models.BusinessConfig, error) {
	b, err := validateBusiness(b)
	if err != nil {
		return b, err
	}

	err = s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO businesses (id, name, target_url, address)
		SELECT COALESCE(MAX(id), 0) + 1, ?, ?, ?
		FROM businesses
		RETURNING id
	`), b.Name, b.TargetURL, nullString(b.Address)).Scan(&b.ID)
	if err != nil {
		return b, fmt.Errorf("%s: add business: %w", s.d.name, err)
	}
	return b, nil
}

func (s *SQLStore) DeleteBusiness(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM businesses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("%s: delete business: %w", s.d.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: delete business: %w", s.d.name, err)
	}
	if n == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// ReplaceBusinesses rewrites the businesses table and the settings in one
// transaction.
func (s *SQLStore) ReplaceBusinesses(ctx context.Context, dir models.Directory) (models.Directory, error) {
	dir, err := normalizeDirectory(dir)
	if err != nil {
		return dir, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dir, fmt.Errorf("%s: replace businesses: %w", s.d.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM businesses`); err != nil {
		return dir, fmt.Errorf("%s: clear businesses: %w", s.d.name, err)
	}
	for _, b := range dir.Businesses {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO businesses (id, name, target_url, address)
			VALUES (?, ?, ?, ?)
		`), b.ID, b.Name, b.TargetURL, nullString(b.Address))
		if err != nil {
			return dir, fmt.Errorf("%s: insert business %d: %w", s.d.name, b.ID, err)
		}
	}
	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO settings (name, value)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE
		SET value = excluded.value
	`), settingCheckInterval, strconv.Itoa(dir.Settings.CheckIntervalHours))
	if err != nil {
		return dir, fmt.Errorf("%s: save settings: %w", s.d.name, err)
	}

	if err := tx.Commit(); err != nil {
		return dir, fmt.Errorf("%s: replace businesses: %w", s.d.name, err)
	}
	return dir, nil
}

func (s *SQLStore) Settings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	var value string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT value FROM settings WHERE name = ?`), settingCheckInterval).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("%s: read settings: %w", s.d.name, err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return settings, fmt.Errorf("%s: setting %s: %w", s.d.name, settingCheckInterval, err)
	}
	settings.CheckIntervalHours = n
	return settings, nil
}

func (s *SQLStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%s: encode snapshot: %w", s.d.name, err)
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO snapshots (run_id, scraped_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE
		SET scraped_at = excluded.scraped_at, payload = excluded.payload
	`), snap.RunID, snap.ScrapedAt.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("%s: save snapshot: %w", s.d.name, err)
	}
	return nil
}

func (s *SQLStore) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT payload
		FROM snapshots
		ORDER BY scraped_at DESC
		LIMIT 1
	`)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: latest snapshot: %w", s.d.name, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("%s: decode snapshot: %w", s.d.name, err)
	}
	return &snap, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
