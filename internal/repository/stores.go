package repository

import (
	"context"
	"fmt"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/database"
	"github.com/rs/zerolog"
)

// Stores bundles the persistence ports for the configured driver.
type Stores struct {
	Questions QuestionStore
	Attempts  AttemptStore
	Integrity IntegrityStore

	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStores connects to Postgres or SQLite according to cfg.StoreDriver.
func OpenStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		store := NewSQLiteStore(db)
		return &Stores{
			Questions: store,
			Attempts:  store,
			Integrity: store,
			Ping:      db.PingContext,
			Close:     func() { _ = db.Close() },
		}, nil

	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Questions: NewQuestionRepository(pool),
			Attempts:  NewAttemptRepository(pool),
			Integrity: NewIntegrityRepository(pool),
			Ping:      pool.Ping,
			Close:     pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
