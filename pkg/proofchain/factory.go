package proofchain

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // embedded SQLite driver, pure Go
)

// Backend selects the persistence backend an EnvelopeStore is opened
// against.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// OpenStore opens an EnvelopeStore against the given backend and DSN,
// creating the envelope table if it doesn't already exist: a single
// entrypoint dispatching on a backend identifier to the matching store
// constructor.
func OpenStore(ctx context.Context, backend Backend, dsn string) (EnvelopeStore, error) {
	var (
		driverName string
		store      *SQLStore
	)

	switch backend {
	case BackendSQLite:
		driverName = "sqlite"
	case BackendPostgres:
		driverName = "postgres"
	default:
		return nil, fmt.Errorf("unsupported proof chain storage backend: %s", backend)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}

	if backend == BackendPostgres {
		store = NewPostgresStore(db)
	} else {
		store = NewSQLiteStore(db)
	}

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init envelope table: %w", err)
	}

	return store, nil
}
