// Package postgres is the Order service's storage adapter: the orders
// table plus the Unit-of-Work pool it runs transactions against.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

type Repository struct{}

func New() *Repository { return &Repository{} }

func (r *Repository) GetByID(ctx context.Context, q uow.Querier, orderID string) (*domain.Order, bool, error) {
	var o domain.Order
	var itemsJSON []byte
	err := q.QueryRow(ctx, `
		SELECT order_id, customer_id, items, total_amount, status, fail_reason, version
		FROM orders WHERE order_id = $1
	`, orderID).Scan(&o.OrderID, &o.CustomerID, &itemsJSON, &o.Total, &o.Status, &o.FailReason, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, false, err
	}
	return &o, true, nil
}

// Upsert inserts a new order or updates an existing one by primary key
// (order_id), per spec.md §4.1's "repositories.add(entity) upserts the
// entity by primary key".
func (r *Repository) Upsert(ctx context.Context, q uow.Querier, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO orders (order_id, customer_id, items, total_amount, status, fail_reason, version)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO UPDATE SET
			customer_id  = EXCLUDED.customer_id,
			items        = EXCLUDED.items,
			total_amount = EXCLUDED.total_amount,
			status       = EXCLUDED.status,
			fail_reason  = EXCLUDED.fail_reason,
			version      = EXCLUDED.version
	`, o.OrderID, o.CustomerID, itemsJSON, o.Total, string(o.Status), o.FailReason, o.Version)
	return err
}
