package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name:       "postgres",
	positional: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id         BIGINT PRIMARY KEY,
			name       TEXT NOT NULL,
			target_url TEXT NOT NULL DEFAULT '',
			address    TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id     TEXT PRIMARY KEY,
			scraped_at BIGINT NOT NULL,
			payload    JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_scraped_at ON snapshots(scraped_at)`,
		`CREATE TABLE IF NOT EXISTS settings (
			name  TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	},
}

// NewPostgresStore connects to PostgreSQL, waiting for the server to come
// up, and runs schema migrations.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return newSQLStore(ctx, db, postgresDialect)
}
