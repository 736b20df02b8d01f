// This file adapts MongoDB sessions to the core.Transaction interface.
// Commit or Rollback ends the session after the operation completes.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type transaction struct {
	session mongo.Session
}

// Commit finalizes the transaction and ends the session.
func (t *transaction) Commit(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	return t.session.CommitTransaction(ctx)
}

// Rollback aborts the transaction and ends the session. Changes made
// during the session are discarded.
func (t *transaction) Rollback(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	return t.session.AbortTransaction(ctx)
}
