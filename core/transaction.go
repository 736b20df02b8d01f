// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the unit of work and the utilities
// for injecting it into context and discovering it from an enclosing
// caller.
package core

import (
	"context"

	"github.com/google/uuid"
)

// Unit represents an active unit of work: the session it owns, the
// transaction controlling its outcome (nil for read-only and implicit
// read units), and whether writes are permitted.
//
// A unit is never shared across concurrently executing logical call
// trees. Nested calls within the same call tree reuse the same unit by
// ambient lookup, never by passing a reference explicitly.
type Unit struct {
	id       uuid.UUID
	session  Session
	tx       Transaction
	readOnly bool
}

func newUnit(session Session, tx Transaction, readOnly bool) *Unit {
	return &Unit{id: uuid.New(), session: session, tx: tx, readOnly: readOnly}
}

// ID identifies the unit; two calls observe the same unit exactly when
// they observe the same ID.
func (u *Unit) ID() uuid.UUID { return u.id }

// Session returns the engine session bound to this unit.
func (u *Unit) Session() Session { return u.session }

// ReadOnly reports whether writes are rejected inside this unit.
func (u *Unit) ReadOnly() bool { return u.readOnly }

// unitKey is an unexported type used as the key for storing a Unit in a
// context.Context. Using a private type prevents collisions with other
// context values.
type unitKey struct{}

// WithUnit injects a unit of work into the given context. Operations
// executed under the returned context join the unit instead of opening
// their own.
func WithUnit(ctx context.Context, unit *Unit) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

// UnitFrom extracts the ambient unit of work from the given context, if
// any. Returns nil if the context does not carry one.
func UnitFrom(ctx context.Context) *Unit {
	if u, ok := ctx.Value(unitKey{}).(*Unit); ok {
		return u
	}
	return nil
}

// UnitResolver is one ambient-unit discovery mechanism. Resolvers are
// tried in order; the first non-nil result wins. The context-carried unit
// is always the last resolver, so an externally managed transaction
// boundary can take precedence over the library-managed scope.
type UnitResolver func(ctx context.Context) *Unit
