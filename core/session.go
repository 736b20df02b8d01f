// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the boundary to the underlying
// persistence engine: sessions, transactions, drivers, and the statement
// handed across that boundary.
package core

import "context"

// Row is one materialized result row, keyed by entity property name.
type Row = map[string]any

// Param is one bound query parameter. Compiled output always uses names
// of the form p<index>; annotated queries carry their declared names, or
// 1-based positions rendered as decimal strings.
type Param struct {
	Name  string
	Value any
}

// Changes is a set of property updates applied by a merge.
type Changes map[string]any

// Statement is the lowered artifact submitted to a session. Text is the
// canonical wire format; the structured fields carry the same query so a
// driver can render its own dialect without parsing the text back.
type Statement struct {
	Text      string
	Shape     QueryShape
	Entity    *SchemaCore
	Predicate *Predicate
	Sort      Sort
	Distinct  bool
	Limit     int // 0 means unlimited
	Offset    int
	Annotated bool // externally authored text; Predicate is nil
	Native    bool // annotated text in the store's native language
}

// Session represents the engine-side view of one unit of work. All
// operations are suspension points: they may block on driver I/O and they
// honor context cancellation.
//
// Errors returned by a session come from the underlying engine and cross
// this layer unchanged.
type Session interface {
	// Query executes a select- or count-shaped statement and materializes
	// all rows. Count shapes yield a single row with a "count" key.
	Query(ctx context.Context, stmt *Statement, params []Param) ([]Row, error)
	// Execute runs a modifying statement and reports affected rows.
	Execute(ctx context.Context, stmt *Statement, params []Param) (int64, error)
	// Insert persists a new entity.
	Insert(ctx context.Context, schema *SchemaCore, doc any) error
	// Update merges property changes into entities matched by the
	// predicate, with params carrying the predicate's bound values.
	Update(ctx context.Context, schema *SchemaCore, predicate *Predicate, params []Param, changes Changes) error
}

// Transaction controls the outcome of a writable unit of work.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Driver is the connection-level interface a persistence engine
// implements.
type Driver interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	// Session returns the auto-commit session backed by the driver's
	// pool, used for implicit short-lived read units.
	Session() Session
	// Begin opens a transactional session for a new writable unit.
	Begin(ctx context.Context) (Session, Transaction, error)
}
