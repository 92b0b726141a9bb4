package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/growth-crm/internal/persistence"
	"github.com/example/growth-crm/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Store bundles the SQLite repositories over one connection pool.
type Store struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Leads    *LeadRepository
	Posts    *PostRepository
	Bookings *BookingRepository
}

var (
	_ persistence.LeadRepository    = (*LeadRepository)(nil)
	_ persistence.PostRepository    = (*PostRepository)(nil)
	_ persistence.BookingRepository = (*BookingRepository)(nil)
)

// Open connects using config and applies pending migrations.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	store, err := OpenWithoutMigrations(config, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// OpenWithoutMigrations connects using config and leaves the schema alone.
func OpenWithoutMigrations(config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	retry := NewRetryHelper(DefaultRetryConfig())
	return &Store{
		pool:     pool,
		logger:   logger,
		Leads:    NewLeadRepository(pool, retry),
		Posts:    NewPostRepository(pool, retry),
		Bookings: NewBookingRepository(pool, retry),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrator().RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Store) MigrationStatus(ctx context.Context) (*migration.MigrationStatus, error) {
	return s.migrator().GetMigrationStatus(ctx)
}

func (s *Store) migrator() migration.MigrationManager {
	return migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationDir,
		s.logger,
	)
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
