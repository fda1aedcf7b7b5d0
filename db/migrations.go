package db

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_diagnoses_table",
		Up: `
			CREATE TABLE IF NOT EXISTS diagnoses (
				id TEXT PRIMARY KEY,
				url TEXT NOT NULL,
				status TEXT NOT NULL,
				overall_score DOUBLE PRECISION NOT NULL DEFAULT 0,
				grade TEXT NOT NULL DEFAULT '',
				payload JSONB NOT NULL,
				created_at TIMESTAMPTZ DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_diagnoses_url ON diagnoses(url);
			CREATE INDEX IF NOT EXISTS idx_diagnoses_created_at ON diagnoses(created_at);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_diagnoses_created_at;
			DROP INDEX IF EXISTS idx_diagnoses_url;
			DROP TABLE IF EXISTS diagnoses;
		`,
	},
	{
		Version: 2,
		Name:    "create_diagnosis_progress_table",
		Up: `
			CREATE TABLE IF NOT EXISTS diagnosis_progress (
				diagnosis_id TEXT PRIMARY KEY,
				stage TEXT NOT NULL,
				percent INTEGER NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ DEFAULT NOW()
			);
		`,
		Down: `
			DROP TABLE IF EXISTS diagnosis_progress;
		`,
	},
	{
		Version: 3,
		Name:    "add_url_created_at_index",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_diagnoses_url_created_at ON diagnoses(url, created_at DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_diagnoses_url_created_at;
		`,
	},
}

// Migrate runs all pending migrations.
func Migrate(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	for _, m := range sorted {
		if m.Version <= currentVersion {
			continue
		}
		if err := runMigration(db, m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func runMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// Rollback rolls back the most recent migration.
func Rollback(db *sql.DB) error {
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if currentVersion == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	var target *Migration
	for i := range migrations {
		if migrations[i].Version == currentVersion {
			target = &migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %d not found", currentVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(target.Down); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = $1", currentVersion); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}

	return tx.Commit()
}
