// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files are named {version}_{description}.sql (for example
// "001_create_leads.sql") and are read from an fs.FS, usually an embedded
// directory. Applied versions are tracked in the schema_migrations table
// together with the checksum of the file that was executed, and each file
// runs inside its own transaction.
//
// Example usage:
//
//	scanner := migration.NewFileScanner(migrationsFS)
//	executor := migration.NewSQLiteExecutor(db)
//	manager := migration.NewMigrationManager(scanner, executor, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
