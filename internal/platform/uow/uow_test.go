//go:build integration
// +build integration

package uow_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE outbox RESTART IDENTITY")
	require.NoError(t, err)
	return pool
}

func TestRun_CommitsOnSuccess(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	err := uow.Run(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO outbox (event_type, payload) VALUES ('t', '{}'::jsonb)")
		return err
	})
	require.NoError(t, err)

	var count int
	pool.QueryRow(ctx, "SELECT count(*) FROM outbox").Scan(&count)
	assert.Equal(t, 1, count)
}

func TestRun_RollsBackOnError(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	boom := errors.New("boom")
	err := uow.Run(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, "INSERT INTO outbox (event_type, payload) VALUES ('t', '{}'::jsonb)")
		if execErr != nil {
			return execErr
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	pool.QueryRow(ctx, "SELECT count(*) FROM outbox").Scan(&count)
	assert.Equal(t, 0, count)
}
