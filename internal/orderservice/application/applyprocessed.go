package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	"github.com/stepangreenberg/order-processor/internal/platform/events"
	"github.com/stepangreenberg/order-processor/internal/platform/metrics"
)

// ApplyProcessedHandler implements consumer.Handler for the
// order.processed routing key (spec.md §4.4). It is invoked inside the
// consumer pipeline's Unit-of-Work; event_key dedup and commit are the
// pipeline's responsibility, not this handler's.
type ApplyProcessedHandler struct {
	Repo  Repository
	Cache Cache // optional; invalidated right after Upsert, before the pipeline's UoW commits
}

func (h *ApplyProcessedHandler) Handle(ctx context.Context, tx pgx.Tx, payload json.RawMessage) error {
	var env events.OrderProcessed
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode order.processed: %w", err)
	}

	o, found, err := h.Repo.GetByID(ctx, tx, env.OrderID)
	if err != nil {
		return domain.ErrInfrastructure(err.Error())
	}
	if !found {
		// orphan order.processed for an order this service never saw:
		// tolerated as a no-op (spec.md §4.4, boundary behaviors).
		return nil
	}

	failReason := ""
	if env.FailReason != nil {
		failReason = *env.FailReason
	}

	applied := o.ApplyProcessed(env.Status, failReason, env.Version)
	if !applied {
		// stale update: version gate rejects it, the pipeline still
		// records the inbox key so it is never reprocessed.
		return nil
	}

	if err := h.Repo.Upsert(ctx, tx, o); err != nil {
		return domain.ErrInfrastructure(err.Error())
	}

	metrics.OrdersProcessedTotal.Inc()
	if h.Cache != nil {
		h.Cache.Invalidate(ctx, o.OrderID)
	}
	return nil
}
