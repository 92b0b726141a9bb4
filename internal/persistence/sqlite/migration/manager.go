package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
)

type migrationManager struct {
	scanner      FileScanner
	executor     Executor
	migrationDir string
	logger       *slog.Logger
}

// NewMigrationManager wires a scanner and an executor. A nil logger discards
// progress output.
func NewMigrationManager(scanner FileScanner, executor Executor, migrationDir string, logger *slog.Logger) MigrationManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &migrationManager{
		scanner:      scanner,
		executor:     executor,
		migrationDir: migrationDir,
		logger:       logger.With("component", "migration"),
	}
}

// RunMigrations applies every pending migration in version order and stops
// at the first failure.
func (m *migrationManager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to resolve pending migrations", "dir", m.migrationDir, "error", err)
		return err
	}
	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "schema is up to date", "dir", m.migrationDir)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "count", len(pending))
	for i, migration := range pending {
		migrationStarted := time.Now()
		logger := m.logger.With("version", migration.Version, "file", migration.FilePath)
		logger.InfoContext(ctx, "executing migration",
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(pending)),
		)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStarted)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		logger.InfoContext(ctx, "migration applied", "elapsed", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations complete", "count", len(pending), "elapsed", time.Since(started))
	return nil
}

// GetAppliedVersions returns the versions recorded in schema_migrations.
func (m *migrationManager) GetAppliedVersions(ctx context.Context) ([]string, error) {
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, len(applied))
	for i, record := range applied {
		versions[i] = record.Version
	}
	return versions, nil
}

// GetPendingMigrations returns the files not yet applied after checking that
// the sequence has no gaps and that applied files are unchanged.
func (m *migrationManager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations(m.migrationDir)
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, record := range applied {
		appliedByVersion[normalizeVersion(record.Version)] = record
	}

	var pending []Migration
	for _, migration := range available {
		record, ok := appliedByVersion[normalizeVersion(migration.Version)]
		if !ok {
			pending = append(pending, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file has %s", ErrChecksumMismatch, record.Checksum, migration.Checksum))
		}
	}
	return pending, nil
}

// GetMigrationStatus reports the current version and the pending files.
func (m *migrationManager) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	highest := -1
	for _, record := range applied {
		if v, err := strconv.Atoi(record.Version); err == nil && v > highest {
			highest = v
			status.CurrentVersion = record.Version
		}
	}
	return status, nil
}

func (m *migrationManager) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get applied versions: %w", err)
	}
	return applied, nil
}

// validateSequence rejects gaps between the lowest and highest available
// version and applied versions that no longer have a file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	present := make(map[int]bool, len(available))
	lowest, highest := 0, 0
	for i, migration := range available {
		v, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: %q is not numeric", ErrInvalidVersion, migration.Version))
		}
		present[v] = true
		if i == 0 || v < lowest {
			lowest = v
		}
		if v > highest {
			highest = v
		}
	}
	if len(available) > 0 {
		for v := lowest; v <= highest; v++ {
			if !present[v] {
				return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, v)
			}
		}
	}

	for _, record := range applied {
		v, err := strconv.Atoi(record.Version)
		if err != nil {
			return NewDatabaseError(record.Version, "", "validate sequence",
				fmt.Errorf("%w: applied version %q is not numeric", ErrVersionTableCorrupt, record.Version))
		}
		if !present[v] {
			return fmt.Errorf("%w: applied migration %03d has no file", ErrVersionConflict, v)
		}
	}
	return nil
}
