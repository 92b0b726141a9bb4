package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed indicates that a migration execution failed.
	ErrMigrationFailed = errors.New("migration: execution failed")
	// ErrInvalidMigrationFile indicates a malformed file name or body.
	ErrInvalidMigrationFile = errors.New("migration: invalid migration file")
	// ErrVersionConflict indicates gaps or applied versions without a file.
	ErrVersionConflict = errors.New("migration: version conflict")
	// ErrInvalidVersion indicates a non-numeric version.
	ErrInvalidVersion = errors.New("migration: invalid version")
	// ErrDuplicateVersion indicates two files share a version.
	ErrDuplicateVersion = errors.New("migration: duplicate version")
	// ErrChecksumMismatch indicates an applied file changed after it ran.
	ErrChecksumMismatch = errors.New("migration: checksum mismatch")
	// ErrVersionTableCorrupt indicates unreadable schema_migrations rows.
	ErrVersionTableCorrupt = errors.New("migration: schema_migrations table is corrupted")
)

// MigrationError adds the version, file and step to an underlying error.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.FilePath, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.FilePath, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError wraps err with migration context.
func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

// DatabaseError wraps a failed statement.
type DatabaseError struct {
	Version   string
	Query     string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("database error in migration %s during %s: %v", e.Version, e.Operation, e.Err)
	}
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError wraps err with the statement that produced it.
func NewDatabaseError(version, query, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Query: query, Operation: operation, Err: err}
}
