// Package postgres is the Processor service's storage adapter: the
// processing_states table.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/stepangreenberg/order-processor/internal/platform/uow"
	"github.com/stepangreenberg/order-processor/internal/processorservice/domain"
)

type Repository struct{}

func New() *Repository { return &Repository{} }

func (r *Repository) GetByID(ctx context.Context, q uow.Querier, orderID string) (*domain.ProcessingState, bool, error) {
	var s domain.ProcessingState
	err := q.QueryRow(ctx, `
		SELECT order_id, version, status, attempt_count, last_error
		FROM processing_states WHERE order_id = $1
	`, orderID).Scan(&s.OrderID, &s.Version, &s.Status, &s.AttemptCount, &s.LastError)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

func (r *Repository) Upsert(ctx context.Context, q uow.Querier, s *domain.ProcessingState) error {
	_, err := q.Exec(ctx, `
		INSERT INTO processing_states (order_id, version, status, attempt_count, last_error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO UPDATE SET
			version       = EXCLUDED.version,
			status        = EXCLUDED.status,
			attempt_count = EXCLUDED.attempt_count,
			last_error    = EXCLUDED.last_error
	`, s.OrderID, s.Version, string(s.Status), s.AttemptCount, s.LastError)
	return err
}
