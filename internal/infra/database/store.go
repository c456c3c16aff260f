package database

import (
	"context"
	"fmt"

	"prayer_notification_bot/internal/domain/subscriber"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// StoreConfig selects and locates the subscriber store.
type StoreConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// OpenSubscriberRepository connects to the configured store, runs its migrations and returns
// the repository with a close function.
func OpenSubscriberRepository(ctx context.Context, cfg StoreConfig) (subscriber.Repository, func() error, error) {
	switch cfg.Driver {
	case DriverPostgres:
		db, err := NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := RunMigrations(ctx, db, DialectPostgres); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewPostgresSubscriberRepository(db), db.Close, nil

	case DriverSQLite:
		db, err := NewSQLiteConnection(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := RunMigrations(ctx, db, DialectSQLite); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewSQLiteSubscriberRepository(db), db.Close, nil

	case DriverMemory:
		return NewMemorySubscriberRepository(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
