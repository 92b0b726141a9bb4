package migration

import (
	"context"
	"time"
)

// Migration is one versioned SQL file.
type Migration struct {
	Version     string // numeric prefix of the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of SQL
}

// MigrationManager orchestrates scanning and applying migrations.
type MigrationManager interface {
	RunMigrations(ctx context.Context) error
	GetAppliedVersions(ctx context.Context) ([]string, error)
	GetPendingMigrations(ctx context.Context) ([]Migration, error)
	GetMigrationStatus(ctx context.Context) (*MigrationStatus, error)
}

// FileScanner discovers migration files.
type FileScanner interface {
	ScanMigrations(migrationDir string) ([]Migration, error)
	ValidateFileName(filename string) error
	ParseMigrationFile(filePath string) (*Migration, error)
}

// Executor applies migrations and maintains the version table.
type Executor interface {
	ExecuteMigration(ctx context.Context, migration Migration) error
	InitializeVersionTable(ctx context.Context) error
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error
	IsVersionApplied(ctx context.Context, version string) (bool, error)
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

// MigrationStatus summarises applied and pending migrations.
type MigrationStatus struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
