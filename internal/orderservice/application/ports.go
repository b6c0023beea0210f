package application

import (
	"context"

	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	"github.com/stepangreenberg/order-processor/internal/platform/uow"
)

// Repository is the order aggregate's collaborator inside a Unit of
// Work, per spec.md §4.1's "repositories.add(entity) upserts the
// entity by primary key". It takes a uow.Querier rather than a
// concrete transaction so the same implementation also serves plain,
// non-transactional reads (e.g. the HTTP GET handler) against the pool.
type Repository interface {
	GetByID(ctx context.Context, q uow.Querier, orderID string) (*domain.Order, bool, error)
	Upsert(ctx context.Context, q uow.Querier, o *domain.Order) error
}

// Cache invalidates the read-through cache (SPEC_FULL.md §4.13) on
// every mutating use case. It is optional — a nil Cache means the
// feature is disabled.
type Cache interface {
	Invalidate(ctx context.Context, orderID string)
}
