//go:build integration
// +build integration

package outbox

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestPut_EnqueuesUnpublishedRow(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	require.NoError(t, Put(ctx, pool, "order.created", []byte(`{"order_id":"o1"}`)))

	var count int
	pool.QueryRow(ctx, "SELECT count(*) FROM outbox WHERE published_at IS NULL AND dlq_at IS NULL").Scan(&count)
	require.Equal(t, 1, count)
}

func TestClaimBatch_RespectsLimitAndOrder(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	require.NoError(t, Put(ctx, pool, "order.created", []byte(`{"order_id":"o1"}`)))
	require.NoError(t, Put(ctx, pool, "order.created", []byte(`{"order_id":"o2"}`)))
	require.NoError(t, Put(ctx, pool, "order.created", []byte(`{"order_id":"o3"}`)))

	var batch []Row
	err := pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		b, err := claimBatch(ctx, tx, 2)
		batch = b
		return err
	})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.True(t, batch[0].ID < batch[1].ID)
}

func TestMarkFailed_MovesToDLQAtMaxRetries(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	require.NoError(t, Put(ctx, pool, "order.created", []byte(`{}`)))
	var id int64
	pool.QueryRow(ctx, "SELECT id FROM outbox LIMIT 1").Scan(&id)

	var dlq bool
	err := pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var err error
		dlq, err = markFailed(ctx, tx, id, 3, 3)
		return err
	})
	require.NoError(t, err)
	assert.True(t, dlq)

	var dlqAtSet bool
	pool.QueryRow(ctx, "SELECT dlq_at IS NOT NULL FROM outbox WHERE id = $1", id).Scan(&dlqAtSet)
	assert.True(t, dlqAtSet)
}

func TestMarkPublished_SetsTimestamp(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	require.NoError(t, Put(ctx, pool, "order.created", []byte(`{}`)))
	var id int64
	pool.QueryRow(ctx, "SELECT id FROM outbox LIMIT 1").Scan(&id)

	require.NoError(t, markPublished(ctx, pool, id))

	var publishedAtSet bool
	pool.QueryRow(ctx, "SELECT published_at IS NOT NULL FROM outbox WHERE id = $1", id).Scan(&publishedAtSet)
	assert.True(t, publishedAtSet)
}
