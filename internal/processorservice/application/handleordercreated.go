package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stepangreenberg/order-processor/internal/platform/events"
	"github.com/stepangreenberg/order-processor/internal/platform/outbox"
	"github.com/stepangreenberg/order-processor/internal/processorservice/domain"
)

// HandleOrderCreatedHandler implements consumer.Handler for the
// order.created routing key, per spec.md §4.5. It is invoked inside
// the consumer pipeline's Unit-of-Work; event_key dedup and commit are
// the pipeline's responsibility.
type HandleOrderCreatedHandler struct {
	Repo   Repository
	Policy Policy
}

func (h *HandleOrderCreatedHandler) Handle(ctx context.Context, tx pgx.Tx, payload json.RawMessage) error {
	var env events.OrderCreated
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode order.created: %w", err)
	}

	state, found, err := h.Repo.GetByID(ctx, tx, env.OrderID)
	if err != nil {
		return domain.ErrInfrastructure(err.Error())
	}
	if !found {
		state = domain.NewProcessingState(env.OrderID)
	}

	items := make([]Item, len(env.Items))
	for i, it := range env.Items {
		items[i] = Item{SKU: it.SKU, Quantity: it.Quantity, Price: it.Price}
	}
	result, reason := h.Policy.Evaluate(env.OrderID, items)
	state.RecordAttempt(result, reason)

	if err := h.Repo.Upsert(ctx, tx, state); err != nil {
		return domain.ErrInfrastructure(err.Error())
	}

	var failReason *string
	if reason != "" {
		failReason = &reason
	}
	status := "success"
	if result == domain.StatusFailed {
		status = "failed"
	}

	outPayload, err := json.Marshal(events.OrderProcessed{
		OrderID:    env.OrderID,
		Status:     status,
		FailReason: failReason,
		Version:    env.Version + 1,
	})
	if err != nil {
		return fmt.Errorf("marshal order.processed payload: %w", err)
	}
	if err := outbox.Put(ctx, tx, events.OrderProcessedType, outPayload); err != nil {
		return domain.ErrInfrastructure(err.Error())
	}

	return nil
}
