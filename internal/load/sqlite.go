package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dfarias/escrow-etl/internal/table"
)

// SQLiteLoader writes the star schema to a local SQLite database file. It is
// the default backend: no credentials, and the output is a single artifact
// that can be handed over or queried directly.
type SQLiteLoader struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteLoader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	return &SQLiteLoader{db: db}, nil
}

func (l *SQLiteLoader) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}

// Replace rewrites the destination table inside one transaction, so a failed
// load never leaves a half-written table behind.
func (l *SQLiteLoader) Replace(ctx context.Context, tableName string, t *table.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("replace %s: table has no columns", tableName)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s: begin: %w", tableName, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(tableName))); err != nil {
		return fmt.Errorf("replace %s: drop: %w", tableName, err)
	}
	if _, err := tx.ExecContext(ctx, createStatement(tableName, t)); err != nil {
		return fmt.Errorf("replace %s: create: %w", tableName, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(tableName, t.Columns))
	if err != nil {
		return fmt.Errorf("replace %s: prepare: %w", tableName, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		args := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			args[j] = sqlValue(row.Get(c))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("replace %s: insert row %d: %w", tableName, i, err)
		}
	}

	// Verify the row count before committing.
	var n int
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(tableName))).Scan(&n); err != nil {
		return fmt.Errorf("replace %s: count: %w", tableName, err)
	}
	if n != t.Len() {
		return fmt.Errorf("replace %s: wrote %d rows, expected %d", tableName, n, t.Len())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s: commit: %w", tableName, err)
	}
	return nil
}

// Stats counts rows in each destination table present in the database.
func (l *SQLiteLoader) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)
	for _, name := range DestinationTables {
		var exists int
		err := l.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("stats: sqlite_master: %w", err)
		}
		if exists == 0 {
			continue
		}
		var n int
		if err := l.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(name))).Scan(&n); err != nil {
			return nil, fmt.Errorf("stats: count %s: %w", name, err)
		}
		stats[name] = n
	}
	return stats, nil
}

// createStatement derives column affinities from the first non-absent value
// in each column. Columns that never carry a value default to TEXT.
func createStatement(tableName string, t *table.Table) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = quoteIdent(c) + " " + columnAffinity(t, c)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName), strings.Join(defs, ", "))
}

func columnAffinity(t *table.Table, column string) string {
	for _, row := range t.Rows {
		switch row.Get(column).Kind() {
		case table.KindNumber:
			return "NUMERIC"
		case table.KindString, table.KindDate:
			return "TEXT"
		}
	}
	return "TEXT"
}

func insertStatement(tableName string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(tableName), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlValue converts a cell to its driver value. Decimals travel as their
// exact string form so SQLite's NUMERIC affinity keeps integer values
// integral.
func sqlValue(v table.Value) any {
	switch v.Kind() {
	case table.KindString:
		return v.Str()
	case table.KindNumber:
		d, _ := v.Decimal()
		return d.String()
	case table.KindDate:
		d, _ := v.CivilDate()
		return d.String()
	default:
		return nil
	}
}
