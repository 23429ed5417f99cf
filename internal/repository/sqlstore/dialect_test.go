package sqlstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresRebind(t *testing.T) {
	d := postgresDialect{}
	require.Equal(t,
		`INSERT INTO deliveries (id, date) VALUES ($1, $2)`,
		d.Rebind(`INSERT INTO deliveries (id, date) VALUES (?, ?)`))
	require.Equal(t, `SELECT 1`, d.Rebind(`SELECT 1`))

	// Indexes past nine need more than one digit.
	got := d.Rebind(`? ? ? ? ? ? ? ? ? ? ?`)
	require.Equal(t, `$1 $2 $3 $4 $5 $6 $7 $8 $9 $10 $11`, got)
}

func TestSQLiteRebindIsIdentity(t *testing.T) {
	d := sqliteDialect{}
	q := `SELECT id FROM deliveries WHERE id LIKE ? ORDER BY id DESC LIMIT 1`
	require.Equal(t, q, d.Rebind(q))
}

func TestSupportsReturning(t *testing.T) {
	require.False(t, sqliteDialect{}.SupportsReturning())
	require.True(t, postgresDialect{}.SupportsReturning())
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, sqliteDialect{}.IsUniqueViolation(
		errors.New("constraint failed: UNIQUE constraint failed: deliveries.id (1555)")))
	require.False(t, sqliteDialect{}.IsUniqueViolation(errors.New("no such table")))
	require.False(t, sqliteDialect{}.IsUniqueViolation(nil))

	require.True(t, postgresDialect{}.IsUniqueViolation(
		errors.New(`ERROR: duplicate key value violates unique constraint "deliveries_pkey" (SQLSTATE 23505)`)))
	require.False(t, postgresDialect{}.IsUniqueViolation(errors.New("connection refused")))
}
