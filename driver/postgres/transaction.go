// This file adapts pgx.Tx to the core.Transaction interface so the
// session provider can manage transaction outcomes in a driver-agnostic
// way.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type transaction struct {
	tx pgx.Tx
}

// Commit finalizes the transaction, making all changes permanent.
func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction, discarding all changes made during it.
func (t *transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
