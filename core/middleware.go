// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the middleware system, which allows
// cross-cutting concerns (logging, tracing, metrics) to be applied around
// every dispatched repository operation.
package core

import (
	"context"
	"log/slog"
	"time"
)

// Operation represents the kind of operation flowing through the
// execution pipeline.
type Operation string

const (
	// OperationQuery corresponds to a select-, count- or exists-shaped
	// compiled query.
	OperationQuery Operation = "query"
	// OperationInsert corresponds to persisting a new entity.
	OperationInsert Operation = "insert"
	// OperationUpdate corresponds to merging changes into an entity.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to a delete-shaped or modifying query.
	OperationDelete Operation = "delete"
)

// Handler is the function signature executed by the pipeline. It receives
// a context, the operation kind, and the query text (empty for entity
// persistence operations).
type Handler func(ctx context.Context, op Operation, query string) error

// Middleware wraps a Handler with additional logic. Middlewares are
// registered per provider and follow the decorator pattern; the first
// registered one is outermost.
type Middleware func(next Handler) Handler

// dispatch executes an operation through the provider's middleware chain.
func (p *Provider) dispatch(ctx context.Context, op Operation, query string, exec func() error) error {
	handler := func(ctx context.Context, op Operation, query string) error {
		return exec()
	}
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		handler = p.middlewares[i](handler)
	}
	return handler(ctx, op, query)
}

// LogMiddleware logs every operation with its duration and outcome.
//
// Example:
//
//	provider.Use(core.LogMiddleware(slog.Default()))
func LogMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, op Operation, query string) error {
			start := time.Now()
			err := next(ctx, op, query)
			elapsed := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "operation failed",
					"op", op, "query", query, "elapsed", elapsed, "error", err)
				return err
			}
			logger.DebugContext(ctx, "operation executed",
				"op", op, "query", query, "elapsed", elapsed)
			return nil
		}
	}
}
