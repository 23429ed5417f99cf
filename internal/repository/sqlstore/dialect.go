package sqlstore

import (
	"strconv"
	"strings"
)

// dialect isolates the engine differences: driver registration name,
// placeholder syntax and DDL. Queries in this package are written with `?`
// placeholders and rebound per engine, so callers never see the difference.
type dialect interface {
	Name() string
	Driver() string
	Rebind(q string) string
	Schema() []string
	IsUniqueViolation(err error) bool
	// SupportsReturning reports whether INSERT ... RETURNING is available for
	// reading back generated ids; otherwise the store falls back to
	// LastInsertId.
	SupportsReturning() bool
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string            { return "sqlite" }
func (sqliteDialect) Driver() string          { return "sqlite" }
func (sqliteDialect) Rebind(q string) string  { return q }
func (sqliteDialect) SupportsReturning() bool { return false }

func (sqliteDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			from_branch TEXT NOT NULL,
			to_branch TEXT NOT NULL,
			note_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'sent',
			note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			received_at TEXT,
			received_by TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS delivery_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			delivery_id TEXT NOT NULL REFERENCES deliveries(id) ON DELETE CASCADE,
			item_name TEXT NOT NULL,
			quantity INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS day_counters (
			day TEXT PRIMARY KEY,
			last_seq INTEGER NOT NULL
		)`,
	}
}

func (sqliteDialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type postgresDialect struct{}

func (postgresDialect) Name() string            { return "postgres" }
func (postgresDialect) Driver() string          { return "pgx" }
func (postgresDialect) SupportsReturning() bool { return true }

// Rebind converts `?` placeholders to `$1..$n`.
func (postgresDialect) Rebind(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			from_branch TEXT NOT NULL,
			to_branch TEXT NOT NULL,
			note_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'sent',
			note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			received_at TEXT,
			received_by TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS delivery_items (
			id BIGSERIAL PRIMARY KEY,
			delivery_id TEXT NOT NULL REFERENCES deliveries(id) ON DELETE CASCADE,
			item_name TEXT NOT NULL,
			quantity INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS day_counters (
			day TEXT PRIMARY KEY,
			last_seq INTEGER NOT NULL
		)`,
	}
}

func (postgresDialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// 23505 = unique_violation
	return strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key")
}
