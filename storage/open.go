package storage

import (
	"fmt"
	"path/filepath"
)

const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend     string
	DataDir     string
	SQLitePath  string
	PostgresDSN string
	MongoURI    string
	MongoDB     string
}

// Open returns the configured backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendJSON:
		return asStore(NewJSONStore(opts.DataDir))
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "reviews.db")
		}
		return asStore(NewSQLiteStore(path))
	case BackendPostgres:
		return asStore(NewPostgresStore(opts.PostgresDSN))
	case BackendMongo:
		return asStore(NewMongoStore(opts.MongoURI, opts.MongoDB))
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}

// asStore avoids handing back a non-nil interface around a nil pointer.
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
