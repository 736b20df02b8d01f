// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the condition lowering registry: the
// rules that turn one (operator, property) clause into a query-language
// fragment plus its parameter binders.
package core

import "fmt"

// Fragment is the result of lowering a single clause: the condition text,
// the binders for each parameter slot the clause consumes (in slot order),
// and the number of slots consumed.
type Fragment struct {
	Text    string
	Binders []Binder
	Slots   int
}

// Lower produces the condition fragment for one clause. It is a pure
// function of its inputs: the operator tag, the property path, and the
// index of the next free parameter slot.
//
// Geospatial operators fail with ErrUnsupportedOperator: the target query
// language has no distance or shape predicates. Any tag outside the closed
// enumeration fails with ErrUnknownOperator; both are compile-time errors,
// raised once per method and never retried.
func Lower(op Operator, path string, next int) (Fragment, error) {
	property := "e." + path

	switch op {
	case OpEquals:
		return oneSlot(property+" = :p%d", next, BindDirect), nil
	case OpNotEquals:
		return oneSlot(property+" <> :p%d", next, BindDirect), nil
	case OpLike:
		return oneSlot(property+" LIKE :p%d", next, BindDirect), nil
	case OpNotLike:
		return oneSlot(property+" NOT LIKE :p%d", next, BindDirect), nil
	case OpStartingWith:
		return oneSlot(property+" LIKE :p%d", next, BindStartingWith), nil
	case OpEndingWith:
		return oneSlot(property+" LIKE :p%d", next, BindEndingWith), nil
	case OpContaining:
		return oneSlot(property+" LIKE :p%d", next, BindContaining), nil
	case OpNotContaining:
		return oneSlot(property+" NOT LIKE :p%d", next, BindContaining), nil
	case OpLessThan, OpBefore:
		return oneSlot(property+" < :p%d", next, BindDirect), nil
	case OpLessOrEqual:
		return oneSlot(property+" <= :p%d", next, BindDirect), nil
	case OpGreaterThan, OpAfter:
		return oneSlot(property+" > :p%d", next, BindDirect), nil
	case OpGreaterOrEqual:
		return oneSlot(property+" >= :p%d", next, BindDirect), nil
	case OpBetween:
		return Fragment{
			Text:    fmt.Sprintf("%s BETWEEN :p%d AND :p%d", property, next, next+1),
			Binders: []Binder{BindDirect, BindDirect},
			Slots:   2,
		}, nil
	case OpIn:
		return oneSlot(property+" IN (:p%d)", next, BindDirect), nil
	case OpNotIn:
		return oneSlot(property+" NOT IN (:p%d)", next, BindDirect), nil
	case OpIsNull:
		return Fragment{Text: property + " IS NULL"}, nil
	case OpIsNotNull:
		return Fragment{Text: property + " IS NOT NULL"}, nil
	case OpTrue:
		return Fragment{Text: property + " = TRUE"}, nil
	case OpFalse:
		return Fragment{Text: property + " = FALSE"}, nil
	case OpIsEmpty:
		return Fragment{Text: property + " IS EMPTY"}, nil
	case OpIsNotEmpty:
		return Fragment{Text: property + " IS NOT EMPTY"}, nil
	case OpRegex:
		// The dialect has no regex operator. The pattern is reused as a
		// LIKE pattern without escaping, which is a best-effort
		// approximation, not a faithful regex match.
		return oneSlot(property+" LIKE :p%d", next, BindDirect), nil
	case OpExists:
		// No property-level EXISTS in the dialect; the closest equivalent
		// is a null check.
		return Fragment{Text: property + " IS NOT NULL"}, nil
	case OpNear, OpWithin:
		return Fragment{}, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	default:
		return Fragment{}, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
	}
}

func oneSlot(format string, next int, binder Binder) Fragment {
	return Fragment{
		Text:    fmt.Sprintf(format, next),
		Binders: []Binder{binder},
		Slots:   1,
	}
}
