package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenAndMigrate(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "homes", "home_members", "expenses", "expense_debtors", "events"} {
		var count int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		require.NoError(t, err, "table %s should exist", table)
		assert.Zero(t, count)
	}

	// running again is a no-op
	assert.NoError(t, Migrate(ctx, db))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "nosuchdriver", "")
	assert.Error(t, err)
}
