// Package store opens the repositories for the configured database driver.
package store

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/docgate/internal/health"
	"github.com/ErlanBelekov/docgate/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/docgate/internal/infrastructure/sqlite"
	"github.com/ErlanBelekov/docgate/internal/repository"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Store struct {
	Driver string
	// DB is the underlying handle, exposed for health checks.
	DB health.Pinger

	Users   repository.UserRepository
	Tokens  repository.TokenRepository
	Domains repository.DomainRepository
	Stats   repository.StatsRepository

	migrate func(ctx context.Context) error
	close   func()
}

// Open connects to the database. For sqlite, url is a file path and the
// schema is applied on open; for postgres call Migrate explicitly.
func Open(ctx context.Context, driver, url, schema string) (*Store, error) {
	switch driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, url, schema)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:  driver,
			DB:      pool,
			Users:   postgres.NewUserRepository(pool),
			Tokens:  postgres.NewTokenRepository(pool),
			Domains: postgres.NewDomainRepository(pool),
			Stats:   postgres.NewStatsRepository(pool),
			migrate: func(ctx context.Context) error { return postgres.Migrate(ctx, pool, schema) },
			close:   pool.Close,
		}, nil

	case DriverSQLite:
		db, err := sqlite.Open(url)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:  driver,
			DB:      db,
			Users:   sqlite.NewUserRepository(db),
			Tokens:  sqlite.NewTokenRepository(db),
			Domains: sqlite.NewDomainRepository(db),
			Stats:   sqlite.NewStatsRepository(db),
			migrate: db.Migrate,
			close:   func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

func (s *Store) Close() {
	s.close()
}
