//go:build integration
// +build integration

package application_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepangreenberg/order-processor/internal/orderservice/application"
	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	"github.com/stepangreenberg/order-processor/internal/orderservice/infrastructure/postgres"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE orders, outbox, processed_inbox")
	require.NoError(t, err)

	return pool
}

func TestCreateOrderUseCase_CreatesAndEnqueuesEvent(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	uc := &application.CreateOrderUseCase{Pool: pool, Repo: postgres.New()}

	o, err := uc.Execute(ctx, application.CreateOrderInput{
		OrderID:    "order-1",
		CustomerID: "cust-1",
		Items:      []domain.Item{{SKU: "widget", Quantity: 2, Price: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, o.Total)
	assert.Equal(t, domain.StatusPending, o.Status)

	var outboxCount int
	pool.QueryRow(ctx, "SELECT count(*) FROM outbox WHERE event_type = 'order.created'").Scan(&outboxCount)
	assert.Equal(t, 1, outboxCount)
}

func TestCreateOrderUseCase_IdempotentOnRepeat(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	uc := &application.CreateOrderUseCase{Pool: pool, Repo: postgres.New()}
	in := application.CreateOrderInput{
		OrderID:    "order-2",
		CustomerID: "cust-1",
		Items:      []domain.Item{{SKU: "widget", Quantity: 1, Price: 5}},
	}

	_, err := uc.Execute(ctx, in)
	require.NoError(t, err)
	_, err = uc.Execute(ctx, in)
	require.NoError(t, err)

	var outboxCount int
	pool.QueryRow(ctx, "SELECT count(*) FROM outbox WHERE event_type = 'order.created'").Scan(&outboxCount)
	assert.Equal(t, 1, outboxCount, "repeat create must not enqueue a second event")
}

func TestCreateOrderUseCase_RejectsInvalidItems(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	uc := &application.CreateOrderUseCase{Pool: pool, Repo: postgres.New()}
	_, err := uc.Execute(ctx, application.CreateOrderInput{OrderID: "order-3", CustomerID: "cust-1"})

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeValidation, appErr.Code)
}
