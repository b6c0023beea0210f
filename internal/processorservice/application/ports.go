package application

import (
	"context"

	"github.com/stepangreenberg/order-processor/internal/platform/uow"
	"github.com/stepangreenberg/order-processor/internal/processorservice/domain"
)

// Repository is the processing-state aggregate's collaborator inside a
// Unit of Work, per spec.md §4.1.
type Repository interface {
	GetByID(ctx context.Context, q uow.Querier, orderID string) (*domain.ProcessingState, bool, error)
	Upsert(ctx context.Context, q uow.Querier, s *domain.ProcessingState) error
}
