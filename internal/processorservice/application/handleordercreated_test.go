//go:build integration
// +build integration

package application_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepangreenberg/order-processor/internal/platform/events"
	"github.com/stepangreenberg/order-processor/internal/processorservice/application"
	"github.com/stepangreenberg/order-processor/internal/processorservice/domain"
	"github.com/stepangreenberg/order-processor/internal/processorservice/infrastructure/postgres"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE processing_states, outbox, processed_inbox")
	require.NoError(t, err)

	return pool
}

type stubPolicy struct {
	result domain.Status
	reason string
}

func (s stubPolicy) Evaluate(string, []application.Item) (domain.Status, string) {
	return s.result, s.reason
}

func TestHandleOrderCreatedHandler_RecordsOutcomeAndEnqueuesProcessed(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	repo := postgres.New()
	handler := &application.HandleOrderCreatedHandler{Repo: repo, Policy: stubPolicy{result: domain.StatusSuccess}}

	payload, err := json.Marshal(events.OrderCreated{
		OrderID:    "order-1",
		CustomerID: "cust-1",
		Items:      []events.Item{{SKU: "widget", Quantity: 1, Price: 5}},
		Amount:     5,
		Version:    0,
	})
	require.NoError(t, err)

	err = pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		return handler.Handle(ctx, tx, payload)
	})
	require.NoError(t, err)

	state, found, err := repo.GetByID(ctx, pool, "order-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.StatusSuccess, state.Status)
	assert.Equal(t, 1, state.AttemptCount)

	var count int
	pool.QueryRow(ctx, "SELECT count(*) FROM outbox WHERE event_type = 'order.processed'").Scan(&count)
	assert.Equal(t, 1, count)

	var payloadJSON []byte
	pool.QueryRow(ctx, "SELECT payload FROM outbox WHERE event_type = 'order.processed'").Scan(&payloadJSON)
	var out events.OrderProcessed
	require.NoError(t, json.Unmarshal(payloadJSON, &out))
	assert.Equal(t, 1, out.Version)
	assert.Equal(t, "success", out.Status)
}

func TestHandleOrderCreatedHandler_EmbargoFails(t *testing.T) {
	pool := setupPool(t)
	defer pool.Close()
	ctx := context.Background()

	repo := postgres.New()
	handler := &application.HandleOrderCreatedHandler{
		Repo:   repo,
		Policy: application.DefaultPolicy{EmbargoSKUs: []string{"teapot"}, SuccessProb: 1},
	}

	payload, err := json.Marshal(events.OrderCreated{
		OrderID: "order-2",
		Items:   []events.Item{{SKU: "teapot", Quantity: 1, Price: 1}},
		Version: 0,
	})
	require.NoError(t, err)

	err = pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		return handler.Handle(ctx, tx, payload)
	})
	require.NoError(t, err)

	state, found, err := repo.GetByID(ctx, pool, "order-2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.StatusFailed, state.Status)
	assert.Equal(t, "embargo:teapot", state.LastError)
}
