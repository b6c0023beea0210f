package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/stepangreenberg/order-processor/internal/platform/broker"
	"github.com/stepangreenberg/order-processor/internal/platform/logging"
	"github.com/stepangreenberg/order-processor/internal/platform/metrics"
	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

// Publisher is the background pump of spec.md §4.2: one logical pump
// per service, reading unpublished rows in id order, publishing them
// to the topic exchange, and routing to the DLQ once a row's
// retry_count reaches MaxRetries. Retry policy is fixed-interval
// polling with a per-row bounded counter, per the Open Question
// resolution in spec.md §9 — no exponential backoff here, unlike the
// pack's own outbox workers.
type Publisher struct {
	Pool *pgxpool.Pool
	Ch   *amqp.Channel

	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int

	confirmWait time.Duration

	// confirmCh/returnCh are registered once, for the lifetime of Ch,
	// not per publish: NotifyPublish/NotifyReturn append a listener
	// that is never removed, so re-registering on every publish leaks
	// listeners and eventually wedges the confirms dispatcher once an
	// earlier listener's buffer fills. publish drains both of stale
	// entries before sending, mirroring the teacher's outbox worker.
	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(pool *pgxpool.Pool, ch *amqp.Channel, pollInterval time.Duration, batchSize, maxRetries int) (*Publisher, error) {
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return &Publisher{
		Pool:         pool,
		Ch:           ch,
		PollInterval: pollInterval,
		BatchSize:    batchSize,
		MaxRetries:   maxRetries,
		confirmWait:  5 * time.Second,
		confirmCh:    ch.NotifyPublish(make(chan amqp.Confirmation, 100)),
		returnCh:     ch.NotifyReturn(make(chan amqp.Return, 100)),
	}, nil
}

// Run drives the pump until ctx is cancelled. It never returns an
// error: transient broker/DB failures are logged and retried on the
// next cycle, per spec.md §4.2's failure semantics.
func (p *Publisher) Run(ctx context.Context) {
	log := logging.Logger.With().Str("component", "outbox_publisher").Logger()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopped")
			return
		default:
		}

		n, err := p.runOnce(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("batch failed")
		}

		if n == 0 || err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.PollInterval):
			}
		}
		// a completed non-empty batch loops immediately (spec.md §4.2 step 5)
	}
}

// runOnce claims and publishes a single batch, returning the number of
// rows it attempted.
func (p *Publisher) runOnce(ctx context.Context) (int, error) {
	var batch []Row
	err := uow.Run(ctx, p.Pool, func(ctx context.Context, tx pgx.Tx) error {
		b, err := claimBatch(ctx, tx, p.BatchSize)
		batch = b
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}

	for _, row := range batch {
		p.publish(ctx, row)
	}
	return len(batch), nil
}

func (p *Publisher) publish(ctx context.Context, row Row) {
	log := logging.Logger.With().
		Str("component", "outbox_publisher").
		Int64("outbox_id", row.ID).
		Str("event_type", row.EventType).
		Logger()

	// Drain notifications left over from a previous publish (e.g. a
	// confirm that arrived after we'd already given up waiting on it)
	// so they can't be mistaken for this message's confirmation.
drainLoop:
	for {
		select {
		case <-p.returnCh:
			continue
		case <-p.confirmCh:
			continue
		default:
			break drainLoop
		}
	}

	messageID := fmt.Sprintf("outbox-%d", row.ID)
	err := p.Ch.PublishWithContext(ctx, broker.EventsExchange, row.EventType, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Body:         row.Payload,
	})

	var ackErr error
	if err != nil {
		ackErr = err
	} else {
		deadline := time.After(p.confirmWait)
	waitLoop:
		for {
			select {
			case ret := <-p.returnCh:
				ackErr = fmt.Errorf("broker returned message_id=%s: code=%d text=%s", messageID, ret.ReplyCode, ret.ReplyText)
				break waitLoop
			case conf, ok := <-p.confirmCh:
				if !ok || !conf.Ack {
					ackErr = fmt.Errorf("broker did not ack message_id=%s", messageID)
				}
				break waitLoop
			case <-deadline:
				ackErr = fmt.Errorf("timed out waiting for broker confirm")
				break waitLoop
			}
		}
	}

	if ackErr == nil {
		p.onAcked(ctx, row, log)
		return
	}
	p.onFailed(ctx, row, ackErr, log)
}

func (p *Publisher) onAcked(ctx context.Context, row Row, log zerolog.Logger) {
	if err := uow.Run(ctx, p.Pool, func(ctx context.Context, tx pgx.Tx) error {
		return markPublished(ctx, tx, row.ID)
	}); err != nil {
		log.Warn().Err(err).Msg("publish acked but mark-published failed; row will be republished")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(row.EventType).Inc()
	log.Info().Msg("published")
}

func (p *Publisher) onFailed(ctx context.Context, row Row, cause error, log zerolog.Logger) {
	metrics.EventsFailedTotal.WithLabelValues(row.EventType).Inc()
	newRetryCount := row.RetryCount + 1

	var dlq bool
	err := uow.Run(ctx, p.Pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		dlq, err = markFailed(ctx, tx, row.ID, newRetryCount, p.MaxRetries)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("mark-failed update failed")
		return
	}

	log.Warn().Err(cause).Int("retry_count", newRetryCount).Bool("dlq", dlq).Msg("publish failed")
	if dlq {
		p.publishToDLQ(ctx, row, cause, log)
	}
}

func (p *Publisher) publishToDLQ(ctx context.Context, row Row, cause error, log zerolog.Logger) {
	dlqRoutingKey := row.EventType + ".dlq"
	err := p.Ch.PublishWithContext(ctx, broker.EventsDLXExchange, dlqRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("outbox-%d-dlq", row.ID),
		Headers: amqp.Table{
			"x-death-reason": cause.Error(),
		},
		Body: row.Payload,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to publish outbox row to DLQ exchange")
		return
	}
	metrics.EventsMovedToDLQTotal.WithLabelValues(row.EventType).Inc()
	log.Error().Str("cause", cause.Error()).Msg("outbox row moved to DLQ")
}
