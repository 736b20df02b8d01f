// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines parameter binders, the value
// transforms applied to raw call arguments before they are bound into a
// statement.
package core

import "fmt"

// Binder is a stateless transform applied to a raw argument before it is
// submitted as a query parameter. The set is closed; which binder a clause
// uses is decided by its operator when the clause is lowered.
type Binder string

const (
	// BindDirect passes the argument through unchanged.
	BindDirect Binder = "DIRECT"
	// BindContaining wraps the argument in wildcards: "x" becomes "%x%".
	BindContaining Binder = "CONTAINING"
	// BindStartingWith appends a trailing wildcard: "x" becomes "x%".
	BindStartingWith Binder = "STARTING_WITH"
	// BindEndingWith prepends a leading wildcard: "x" becomes "%x".
	BindEndingWith Binder = "ENDING_WITH"
)

// Bind applies the transform to value. Nil is always passed through
// untouched so NULL semantics are preserved end to end. Non-string values
// are formatted with %v before wrapping, matching how LIKE patterns are
// built from non-text arguments.
func (b Binder) Bind(value any) any {
	if value == nil {
		return nil
	}
	switch b {
	case BindContaining:
		return "%" + stringify(value) + "%"
	case BindStartingWith:
		return stringify(value) + "%"
	case BindEndingWith:
		return "%" + stringify(value)
	default:
		return value
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// binderFor selects the binder a lowered clause uses for each of its
// parameter slots.
func binderFor(op Operator) Binder {
	switch op {
	case OpContaining, OpNotContaining:
		return BindContaining
	case OpStartingWith:
		return BindStartingWith
	case OpEndingWith:
		return BindEndingWith
	default:
		return BindDirect
	}
}
