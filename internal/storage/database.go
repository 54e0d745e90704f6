package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// the schema. ":memory:" is accepted for tests.
func NewDatabase(dbPath string) (*Database, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=10000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every writer goes through one connection; SQLite serializes writes anyway
	// and a private ":memory:" database only exists on its own connection.
	db.SetMaxOpenConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	database := &Database{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return database, nil
}

func (d *Database) initSchema() error {
	if _, err := d.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Reset removes every row of every table. A full indexing run starts from an
// empty database.
func (d *Database) Reset(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"search_index", "lemma", "page", "site", "field"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// SaveFields upserts fields by name.
func (d *Database) SaveFields(ctx context.Context, fields []Field) error {
	if len(fields) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO field (name, selector, weight) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			selector = excluded.selector,
			weight = excluded.weight
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range fields {
		if _, err := stmt.ExecContext(ctx, f.Name, f.Selector, f.Weight); err != nil {
			return fmt.Errorf("failed to save field %q: %w", f.Name, err)
		}
	}
	return tx.Commit()
}

func (d *Database) ListFields(ctx context.Context) ([]Field, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, name, selector, weight FROM field ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.ID, &f.Name, &f.Selector, &f.Weight); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
