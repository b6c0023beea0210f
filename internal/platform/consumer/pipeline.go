// Package consumer implements the single-handler consumer pipeline of
// spec.md §4.3: decode, dedupe via Inbox, invoke the bound handler,
// ack/nack. Deliveries are handled one at a time on Run's goroutine;
// Prefetch only bounds how many unacknowledged deliveries the broker
// sends ahead of that loop, not how many are processed concurrently.
// The pipeline is generic over Handler so each service only supplies
// the use case that applies one event type.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stepangreenberg/order-processor/internal/platform/inbox"
	"github.com/stepangreenberg/order-processor/internal/platform/logging"
	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

// Handler applies one event type's effects inside the pipeline's
// Unit-of-Work. It must not touch the Inbox — the pipeline records
// event_key itself once Handle returns nil.
type Handler interface {
	Handle(ctx context.Context, tx pgx.Tx, payload json.RawMessage) error
}

// envelopeKey is the subset of every event payload needed to compute
// event_key, per spec.md §3/glossary: every envelope carries order_id
// and version at the top level.
type envelopeKey struct {
	OrderID string `json:"order_id"`
	Version int    `json:"version"`
}

type Pipeline struct {
	Pool       *pgxpool.Pool
	Ch         *amqp.Channel
	Queue      string
	RoutingKey string
	Prefetch   int
	Handler    Handler
	MaxRetries int
}

// Run sets Qos(Prefetch) and consumes from Queue (declared and bound by
// broker.Connect) until ctx is cancelled. A message whose handler or commit fails is retried via a
// bounded, header-tracked republish; once the bound is exceeded the
// broker's DLX binding on the queue routes it to the DLQ.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Ch.Qos(p.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := p.Ch.Consume(p.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", p.Queue, err)
	}

	log := logging.Logger.With().Str("component", "consumer").Str("queue", p.Queue).Logger()
	log.Info().Msg("started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			p.handleDelivery(ctx, d)
		}
	}
}

func (p *Pipeline) handleDelivery(ctx context.Context, d amqp.Delivery) {
	log := logging.Logger.With().Str("component", "consumer").Str("queue", p.Queue).Logger()

	var key envelopeKey
	if err := json.Unmarshal(d.Body, &key); err != nil || key.OrderID == "" {
		log.Warn().Err(err).Msg("undecodable envelope; routing to DLQ")
		_ = d.Nack(false, false)
		return
	}

	eventKey := fmt.Sprintf("%s:%s:%d", p.RoutingKey, key.OrderID, key.Version)

	err := uow.Run(ctx, p.Pool, func(ctx context.Context, tx pgx.Tx) error {
		exists, err := inbox.Exists(ctx, tx, eventKey)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := p.Handler.Handle(ctx, tx, json.RawMessage(d.Body)); err != nil {
			return err
		}
		return inbox.Add(ctx, tx, eventKey)
	})

	if err != nil {
		log.Warn().Err(err).Str("event_key", eventKey).Msg("handler/commit failed")
		handleRetry(p.Ch, &d, p.MaxRetries)
		return
	}

	log.Info().Str("event_key", eventKey).Msg("applied")
	_ = d.Ack(false)
}

// handleRetry tracks attempts in an "x-retry-count" header and
// republishes to the same exchange/routing key so the count survives
// across redeliveries; once it reaches maxRetries it nacks without
// requeue so the queue's DLX binding routes the message to its DLQ.
func handleRetry(ch *amqp.Channel, d *amqp.Delivery, maxRetries int) {
	log := logging.Logger.With().Str("component", "consumer").Logger()

	if d.Headers == nil {
		d.Headers = amqp.Table{}
	}
	retryCount, _ := d.Headers["x-retry-count"].(int64)
	retryCount++
	d.Headers["x-retry-count"] = retryCount

	if int(retryCount) >= maxRetries {
		log.Warn().Int64("retry_count", retryCount).Msg("max retries reached; routing to DLQ")
		_ = d.Nack(false, false)
		return
	}

	time.Sleep(time.Duration(retryCount) * time.Second)

	err := ch.PublishWithContext(context.Background(), d.Exchange, d.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Headers:      d.Headers,
		Body:         d.Body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		log.Error().Err(err).Msg("retry republish failed; requeueing instead")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false) // original delivery replaced by the republished copy
}
