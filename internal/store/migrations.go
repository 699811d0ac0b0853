package store

import (
	"database/sql"
	"fmt"

	"cerno/internal/logging"
)

// CurrentSchemaVersion is bumped whenever a migration is appended below.
const CurrentSchemaVersion = 1

// columnMigration describes one `ALTER TABLE ... ADD COLUMN` applied only
// if the column doesn't already exist, the same additive-only migration
// shape the teacher's store package uses for schema evolution.
type columnMigration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists additive schema changes beyond the base
// CREATE TABLE statements in schema.go. Empty for Cerno's initial schema;
// future fields get appended here rather than editing schema.go, so
// existing databases upgrade in place.
var pendingMigrations = []columnMigration{}

// RunMigrations creates the schema_versions bookkeeping table, applies any
// pending column migrations not yet present, and records the current
// schema version.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("migrations: schema_versions table: %w", err)
	}

	for _, m := range pendingMigrations {
		exists, err := tableExists(db, m.Table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		has, err := columnExists(db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrations: add column %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("migration: added column %s.%s", m.Table, m.Column)
	}

	version, err := getSchemaVersion(db)
	if err != nil {
		return err
	}
	if version < CurrentSchemaVersion {
		if _, err := db.Exec("INSERT INTO schema_versions(version) VALUES (?)", CurrentSchemaVersion); err != nil {
			return fmt.Errorf("migrations: record version: %w", err)
		}
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("migrations: read version: %w", err)
	}
	return version, nil
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migrations: tableExists(%s): %w", table, err)
	}
	return true, nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("migrations: columnExists(%s,%s): %w", table, column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
