// Package inbox implements the idempotency primitive described in
// spec.md §3/§4.1: a durable set of event keys already applied by a
// service, keyed "<event_type>:<order_id>:<version>".
package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

// ErrDuplicate is returned by Add when event_key already exists —
// spec.md's ConflictError, recovered by the caller re-checking Exists
// and no-oping.
var ErrDuplicate = errors.New("inbox: duplicate event key")

func Exists(ctx context.Context, q uow.Querier, eventKey string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM processed_inbox WHERE event_key = $1)`, eventKey).Scan(&exists)
	return exists, err
}

// Add records eventKey as durably processed. Must be called inside the
// same Unit-of-Work that committed the effects of the event.
func Add(ctx context.Context, q uow.Querier, eventKey string) error {
	_, err := q.Exec(ctx, `INSERT INTO processed_inbox (event_key) VALUES ($1)`, eventKey)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
