package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	"github.com/stepangreenberg/order-processor/internal/platform/events"
	"github.com/stepangreenberg/order-processor/internal/platform/metrics"
	"github.com/stepangreenberg/order-processor/internal/platform/outbox"
	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

type CreateOrderInput struct {
	OrderID    string
	CustomerID string
	Items      []domain.Item
}

type CreateOrderUseCase struct {
	Pool  *pgxpool.Pool
	Repo  Repository
	Cache Cache // optional
}

// Execute is spec.md §4.4's create-order use case: idempotent create —
// an existing order_id returns the stored order's view rather than an
// error or a duplicate event.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := domain.ValidateItems(in.Items); err != nil {
		return nil, err
	}

	var result *domain.Order
	var created bool
	err := uow.Run(ctx, uc.Pool, func(ctx context.Context, tx pgx.Tx) error {
		existing, found, err := uc.Repo.GetByID(ctx, tx, in.OrderID)
		if err != nil {
			return domain.ErrInfrastructure(err.Error())
		}
		if found {
			result = existing
			return nil
		}
		created = true

		o := domain.NewOrder(in.OrderID, in.CustomerID, in.Items)
		if err := uc.Repo.Upsert(ctx, tx, o); err != nil {
			return domain.ErrInfrastructure(err.Error())
		}

		payload, err := json.Marshal(events.OrderCreated{
			OrderID:    o.OrderID,
			CustomerID: o.CustomerID,
			Items:      toWireItems(o.Items),
			Amount:     o.Total,
			Version:    o.Version,
		})
		if err != nil {
			return fmt.Errorf("marshal order.created payload: %w", err)
		}
		if err := outbox.Put(ctx, tx, events.OrderCreatedType, payload); err != nil {
			return domain.ErrInfrastructure(err.Error())
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		metrics.OrdersCreatedTotal.Inc()
	}
	if uc.Cache != nil {
		uc.Cache.Invalidate(ctx, in.OrderID)
	}
	return result, nil
}

func toWireItems(items []domain.Item) []events.Item {
	out := make([]events.Item, len(items))
	for i, it := range items {
		out[i] = events.Item{SKU: it.SKU, Quantity: it.Quantity, Price: it.Price}
	}
	return out
}
