// Package outbox implements the durable outbox described in spec.md
// §3/§4.1/§4.2: Put enqueues rows inside a Unit-of-Work; the rest of
// this package is the background pump that drains them to the broker.
package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

// Row holds the outbox columns the publisher needs. claimBatch only
// returns rows whose published_at and dlq_at are both NULL, so a row is
// never touched again once published_at is set.
type Row struct {
	ID         int64
	EventType  string
	Payload    []byte
	RetryCount int
}

// Put appends a durable, unpublished row. It must be called inside a
// uow.Run transaction so the write lands atomically with the state
// change that produced it.
func Put(ctx context.Context, tx uow.Querier, eventType string, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (event_type, payload, published_at, retry_count, dlq_at)
		VALUES ($1, $2::jsonb, NULL, 0, NULL)
	`, eventType, payload)
	return err
}

// claimBatch reads up to limit unpublished, non-DLQ'd rows in id order,
// locking them for the duration of the read with SKIP LOCKED so that
// more than one pump replica can run against the same table safely
// (spec.md §4.2 step 1, §5). The lock is released as soon as this
// transaction commits — publishing itself happens outside of it, per
// the "no DB tx held across network I/O" rule in spec.md §5. Two
// replicas racing between that commit and their own claim can still
// select the same row; that duplicate publish is absorbed by the
// consumer's Inbox, exactly like a broker-redelivery duplicate.
func claimBatch(ctx context.Context, tx pgx.Tx, limit int) ([]Row, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_type, payload, retry_count
		FROM outbox
		WHERE published_at IS NULL AND dlq_at IS NULL
		ORDER BY id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batch []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.EventType, &r.Payload, &r.RetryCount); err != nil {
			return nil, err
		}
		batch = append(batch, r)
	}
	return batch, rows.Err()
}

func markPublished(ctx context.Context, q uow.Querier, id int64) error {
	_, err := q.Exec(ctx, `UPDATE outbox SET published_at = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

// markFailed increments retry_count and, once it reaches maxRetries,
// also sets dlq_at — spec.md §4.2 step 4.
func markFailed(ctx context.Context, q uow.Querier, id int64, newRetryCount, maxRetries int) (dlq bool, err error) {
	if newRetryCount >= maxRetries {
		_, err = q.Exec(ctx, `
			UPDATE outbox SET retry_count = $2, dlq_at = $3 WHERE id = $1
		`, id, newRetryCount, time.Now().UTC())
		return true, err
	}
	_, err = q.Exec(ctx, `UPDATE outbox SET retry_count = $2 WHERE id = $1`, id, newRetryCount)
	return false, err
}
