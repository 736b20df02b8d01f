// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the error taxonomy: compile-time
// method-shape errors, runtime transactional errors, and the wrapper that
// ties a compile failure to its method identity.
package core

import (
	"errors"
	"fmt"
)

// Compile-time method-shape errors. These are permanent for a given method
// declaration: the compiled-method cache raises them once, at first
// compilation, and every later invocation of the method sees the same
// error until the declaration is fixed.
var (
	// ErrUnknownOperator reports an operator outside the closed enumeration.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrUnsupportedOperator reports an operator the target query language
	// cannot express (the geospatial tags).
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrUnknownProperty reports a method-name part that does not resolve
	// to any property of the entity.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrMixedParameterStyle reports a query text mixing named (:name) and
	// positional (?1) placeholders.
	ErrMixedParameterStyle = errors.New("mixed named and positional parameters")
	// ErrModifyingSelect reports a method marked as modifying whose query
	// text is SELECT-shaped.
	ErrModifyingSelect = errors.New("modifying method bound to a select query")
	// ErrMissingModifying reports an UPDATE/DELETE query text on a method
	// not marked as modifying.
	ErrMissingModifying = errors.New("update or delete query requires a modifying method")
	// ErrMissingCountQuery reports a paged annotated method without an
	// explicit count query text.
	ErrMissingCountQuery = errors.New("paged query requires an explicit count query")
	// ErrModifyingReturn reports a modifying method declared with a paged
	// or sliced return shape.
	ErrModifyingReturn = errors.New("modifying method cannot return a page or slice")
	// ErrSuperfluousCountQuery reports a count query text declared on a
	// method that does not return a page.
	ErrSuperfluousCountQuery = errors.New("count query declared on an unpaged method")
	// ErrInvalidMethodName reports a method name the subject parser cannot
	// classify.
	ErrInvalidMethodName = errors.New("invalid query method name")
)

// Runtime errors raised per call by this layer. Errors coming from the
// underlying persistence engine are never wrapped into these; they cross
// this layer unchanged.
var (
	// ErrReadOnly reports a write attempted while a read-only unit of work
	// is ambient. It is raised before the operation runs.
	ErrReadOnly = errors.New("write attempted in a read-only unit of work")
	// ErrUnknownMethod reports an invocation of a method the repository
	// never declared.
	ErrUnknownMethod = errors.New("unknown repository method")
	// ErrNotFound reports a single-entity lookup that matched no row.
	ErrNotFound = errors.New("entity not found")
	// ErrArgumentCount reports an invocation whose arguments do not fill
	// the compiled parameter slots.
	ErrArgumentCount = errors.New("argument count does not match parameter slots")
)

// CompileError wraps a compile-time failure with the identity of the
// method whose declaration caused it.
type CompileError struct {
	Method string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Method, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
