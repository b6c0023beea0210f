// Package uow implements the Unit-of-Work primitive described in
// spec.md §4.1: a scoped transaction that bundles a state mutation and
// an outbox write into one atomic commit. Outbox rows written inside
// Run become visible to the publisher iff Run returns nil.
package uow

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting
// repository/outbox/inbox code run identically whether it is handed a
// bare pool (read paths, outside a UoW) or a transaction (inside one).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Run opens a transaction, invokes fn with it, and commits iff fn
// returns nil. Any failure — fn's own error, or the commit — rolls the
// transaction back. A scope that panics also rolls back, since the
// deferred Rollback always runs and Commit is never reached.
func Run(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("uow: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("uow: commit: %w", err)
	}
	return nil
}
