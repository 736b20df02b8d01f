// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the transactional session provider:
// the component that resolves the unit of work for the current logical
// call, opens implicit units when none is ambient, and enforces the
// read-only invariant.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
)

// Provider resolves sessions for repository operations.
//
// Per logical unit of work the provider moves through three states: no
// active unit, unit open (read-only or writable), closed. Reads join any
// open unit; writes join a writable one, are rejected by a read-only one,
// and otherwise run inside an implicit transactional unit that commits on
// success and rolls back on failure or cancellation.
type Provider struct {
	driver      Driver
	resolvers   []UnitResolver
	middlewares []Middleware
	logger      *slog.Logger
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the structured logger used for unit lifecycle events.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) { p.logger = logger }
}

// WithAmbientResolver registers an externally managed ambient-unit
// resolver (a framework-controlled transaction boundary). Registered
// resolvers run before the library-managed context lookup.
func WithAmbientResolver(resolver UnitResolver) ProviderOption {
	return func(p *Provider) {
		p.resolvers = append([]UnitResolver{resolver}, p.resolvers...)
	}
}

// NewProvider creates a session provider over the given driver.
func NewProvider(driver Driver, options ...ProviderOption) *Provider {
	provider := &Provider{
		driver:    driver,
		resolvers: []UnitResolver{UnitFrom},
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(provider)
	}
	return provider
}

// Use appends a middleware applied around every session operation
// dispatched through this provider.
func (p *Provider) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
}

// resolve finds the ambient unit for the current logical call, trying
// each resolver in order and taking the first hit.
func (p *Provider) resolve(ctx context.Context) *Unit {
	for _, resolver := range p.resolvers {
		if unit := resolver(ctx); unit != nil {
			return unit
		}
	}
	return nil
}

// Read executes op against the ambient unit's session, or an implicit
// short-lived read unit when none is open. A read-only ambient unit still
// serves reads.
func (p *Provider) Read(ctx context.Context, op func(context.Context, Session) error) error {
	if unit := p.resolve(ctx); unit != nil {
		return op(ctx, unit.Session())
	}
	return op(ctx, p.driver.Session())
}

// Write executes op inside a writable unit. A read-only ambient unit
// rejects the write with ErrReadOnly before op runs; a writable ambient
// unit is reused, its eventual commit or rollback covering the write.
// With no ambient unit, an implicit transactional unit wraps op: commit
// on success, rollback on failure or cancellation.
func (p *Provider) Write(ctx context.Context, op func(context.Context, Session) error) error {
	if unit := p.resolve(ctx); unit != nil {
		if unit.ReadOnly() {
			return ErrReadOnly
		}
		return op(ctx, unit.Session())
	}

	session, tx, err := p.driver.Begin(ctx)
	if err != nil {
		return err
	}
	unit := newUnit(session, tx, false)
	unitCtx := WithUnit(ctx, unit)
	p.logger.Debug("implicit unit opened", "unit", unit.ID())

	if err := op(unitCtx, session); err != nil {
		// Rollback must still reach the engine when op failed because the
		// caller cancelled, so it runs on an uncancellable context.
		p.rollback(context.WithoutCancel(ctx), unit)
		return err
	}
	if err := unitCtx.Err(); err != nil {
		// The caller abandoned the operation mid-unit: roll back so no
		// orphaned transaction stays open.
		p.rollback(context.WithoutCancel(ctx), unit)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.logger.Debug("implicit unit committed", "unit", unit.ID())
	return nil
}

// Transactional executes fn inside a writable unit of work. If a unit is
// already ambient the outer unit is reused, so all nested writes share
// the outer session and ride on the outer commit or rollback. Otherwise a
// new unit opens, commits when fn succeeds, and rolls back when fn fails
// or the context is cancelled.
func (p *Provider) Transactional(ctx context.Context, fn func(context.Context) error) error {
	if unit := p.resolve(ctx); unit != nil {
		return fn(ctx)
	}

	session, tx, err := p.driver.Begin(ctx)
	if err != nil {
		return err
	}
	unit := newUnit(session, tx, false)
	unitCtx := WithUnit(ctx, unit)
	p.logger.Debug("unit opened", "unit", unit.ID())

	if err := fn(unitCtx); err != nil {
		p.rollback(context.WithoutCancel(ctx), unit)
		return err
	}
	if err := unitCtx.Err(); err != nil {
		p.rollback(context.WithoutCancel(ctx), unit)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.logger.Debug("unit committed", "unit", unit.ID())
	return nil
}

// ReadOnly executes fn inside a read-only unit of work. Any write
// dispatched under it fails with ErrReadOnly; writes are never silently
// allowed or escalated. An ambient unit, read-only or not, is reused
// unchanged.
func (p *Provider) ReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if unit := p.resolve(ctx); unit != nil {
		return fn(ctx)
	}
	unit := newUnit(p.driver.Session(), nil, true)
	return fn(WithUnit(ctx, unit))
}

func (p *Provider) rollback(ctx context.Context, unit *Unit) {
	if unit.tx == nil {
		return
	}
	if err := unit.tx.Rollback(ctx); err != nil {
		p.logger.Warn("unit rollback failed", "unit", unit.ID(), "error", err)
		return
	}
	p.logger.Debug("unit rolled back", "unit", unit.ID())
}

// Fetch loads one lazy association of entity into its struct field. The
// association must have been registered on the schema; the lookup runs in
// the ambient unit so a fetched association observes the unit's own
// pending writes.
func (p *Provider) Fetch(ctx context.Context, schema *SchemaCore, entity any, field string) error {
	relation := schema.findRelation(field)
	if relation == nil {
		return fmt.Errorf("%s has no association %q", schema.Entity, field)
	}

	localField, ok := schema.PropertyFor(relation.LocalProperty)
	if !ok {
		return fmt.Errorf("%w: %s has no property %q", ErrUnknownProperty, schema.Entity, relation.LocalProperty)
	}
	localValue := fieldValue(localField, entity)

	predicate := &Predicate{Groups: []Group{{Clauses: []Clause{
		{Path: relation.ForeignProperty, Operator: OpEquals, Slot: 0},
	}}}}
	text, _, err := NewBuilder(relation.Ref.Entity).Build(predicate, Unsorted())
	if err != nil {
		return err
	}
	stmt := &Statement{
		Text:      text,
		Shape:     ShapeSelect,
		Entity:    relation.Ref,
		Predicate: predicate,
	}
	if relation.Kind == OneToOne {
		stmt.Limit = 1
	}
	params := []Param{{Name: "p0", Value: localValue}}

	var rows []Row
	err = p.Read(ctx, func(ctx context.Context, session Session) error {
		var queryErr error
		rows, queryErr = session.Query(ctx, stmt, params)
		return queryErr
	})
	if err != nil {
		return err
	}
	return assignAssociation(relation, entity, rows)
}

// FetchAll loads several lazy associations in sequence. Loading is
// deliberately ordered, not concurrent, so access to the unit's session
// stays serialized.
func (p *Provider) FetchAll(ctx context.Context, schema *SchemaCore, entity any, fields ...string) error {
	for _, field := range fields {
		if err := p.Fetch(ctx, schema, entity, field); err != nil {
			return err
		}
	}
	return nil
}

// Attach re-associates a detached entity with the active unit by
// reloading its state by identifier, so its lazy associations can then be
// fetched against the unit's session.
func (p *Provider) Attach(ctx context.Context, schema *SchemaCore, entity any) error {
	idField := schema.IDField()
	if idField == nil {
		return fmt.Errorf("%s has no identifier field", schema.Entity)
	}
	idValue := fieldValue(idField, entity)

	predicate := &Predicate{Groups: []Group{{Clauses: []Clause{
		{Path: idField.Property, Operator: OpEquals, Slot: 0},
	}}}}
	text, _, err := NewBuilder(schema.Entity).Build(predicate, Unsorted())
	if err != nil {
		return err
	}
	stmt := &Statement{Text: text, Shape: ShapeSelect, Entity: schema, Predicate: predicate, Limit: 1}
	params := []Param{{Name: "p0", Value: idValue}}

	var rows []Row
	err = p.Read(ctx, func(ctx context.Context, session Session) error {
		var queryErr error
		rows, queryErr = session.Query(ctx, stmt, params)
		return queryErr
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return mapRowToStruct(schema, rows[0], entity)
}

// assignAssociation materializes fetched rows into the association field.
func assignAssociation(relation *Relation, entity any, rows []Row) error {
	target := reflect.ValueOf(entity).Elem().FieldByName(relation.Field)
	if !target.IsValid() || !target.CanSet() {
		return fmt.Errorf("association field %q is not settable", relation.Field)
	}

	switch relation.Kind {
	case OneToOne:
		if len(rows) == 0 {
			return nil
		}
		elemType := target.Type()
		pointer := elemType.Kind() == reflect.Pointer
		if pointer {
			elemType = elemType.Elem()
		}
		value := reflect.New(elemType)
		if err := mapRowToStruct(relation.Ref, rows[0], value.Interface()); err != nil {
			return err
		}
		if pointer {
			target.Set(value)
		} else {
			target.Set(value.Elem())
		}
	case OneToMany:
		sliceType := target.Type()
		result := reflect.MakeSlice(sliceType, 0, len(rows))
		for _, row := range rows {
			value := reflect.New(sliceType.Elem())
			if err := mapRowToStruct(relation.Ref, row, value.Interface()); err != nil {
				return err
			}
			result = reflect.Append(result, value.Elem())
		}
		target.Set(result)
	}
	return nil
}
