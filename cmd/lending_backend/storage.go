package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/SscSPs/book_lending_app/internal/platform/config"
	rediscache "github.com/SscSPs/book_lending_app/internal/repositories/cache/redis"
	"github.com/SscSPs/book_lending_app/internal/repositories/database/pgsql"
	"github.com/SscSPs/book_lending_app/internal/repositories/database/readmodel"
	"github.com/SscSPs/book_lending_app/internal/repositories/memory"
	"github.com/SscSPs/book_lending_app/pkg/database"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// storage bundles what the service container and the router need from the
// chosen storage driver.
type storage struct {
	repos       portsrepo.RepositoryProvider
	idempotency portsrepo.IdempotencyStore
	closers     []func()
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		memory.SeedFixture(store)
		logger.Info("Using in-memory storage seeded with the demo catalog")
		return &storage{
			repos:       memory.NewRepositoryProvider(store),
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		}, nil
	case config.StorageDriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *storage, err error) {
	s := &storage{}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	if err = runMigrations(cfg.DatabaseURL, cfg.MigrationsURL, logger); err != nil {
		return nil, err
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return nil, fmt.Errorf("initializing database pool: %w", err)
	}
	s.closers = append(s.closers, func() { database.ClosePgxPool(dbPool) })

	readDB, err := readmodel.Open(ctx, cfg.ReadModelURL)
	if err != nil {
		return nil, fmt.Errorf("opening read model: %w", err)
	}
	s.closers = append(s.closers, func() {
		if cerr := readDB.Close(); cerr != nil {
			logger.Error("Error closing read model connection", slog.String("error", cerr.Error()))
		}
	})

	s.repos = pgsql.NewRepositoryProvider(dbPool, readmodel.NewDirectoryRepository(readDB))

	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, Idempotency-Key headers are kept in process memory")
		s.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		return s, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	s.closers = append(s.closers, func() {
		if cerr := client.Close(); cerr != nil {
			logger.Error("Error closing redis client", slog.String("error", cerr.Error()))
		}
	})
	if err = client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s.idempotency = rediscache.NewIdempotencyStore(client, cfg.IdempotencyTTL)
	return s, nil
}

// runMigrations applies every pending "up" migration over a temporary
// database/sql connection.
func runMigrations(databaseURL, migrationsURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("opening database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("pinging database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres driver instance for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", upErr)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database: %w", dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
