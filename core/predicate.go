// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the predicate tree produced by the
// method-name parser, together with sorting and pagination types.
package core

// Clause is one leaf condition of a derived query: a property path, the
// operator applied to it, and the index of the first parameter slot the
// clause consumes. Clauses are immutable once produced by the parser.
type Clause struct {
	Path     string
	Operator Operator
	Slot     int
}

// Group is an ordered list of clauses combined by logical AND. Clause
// order is preserved exactly as written in the method name.
type Group struct {
	Clauses []Clause
}

// Predicate is the full OR-of-ANDs tree: groups are combined by logical
// OR. A nil or empty predicate means the query is unconditional.
//
// Example: findByNameAndEmailOrAge parses into two groups,
// [name AND email] OR [age].
type Predicate struct {
	Groups []Group
}

// Empty reports whether the predicate carries no condition at all.
func (p *Predicate) Empty() bool {
	return p == nil || len(p.Groups) == 0
}

// Slots returns the total number of parameter slots the predicate consumes.
func (p *Predicate) Slots() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, group := range p.Groups {
		for _, clause := range group.Clauses {
			total += clause.Operator.Slots()
		}
	}
	return total
}

// Direction is the ordering direction of one sort entry.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// Order is a single (property, direction) pair of a sort directive.
type Order struct {
	Path      string
	Direction Direction
}

// Sort is an ordered sort directive. It may originate from an OrderBy
// method-name suffix or be supplied dynamically at call time; a sorted
// dynamic directive replaces the name-derived one wholesale, the two are
// never merged field by field.
type Sort struct {
	Orders []Order
}

// Unsorted returns the empty sort directive.
func Unsorted() Sort { return Sort{} }

// SortBy builds a sort directive from (property, direction) pairs.
func SortBy(orders ...Order) Sort { return Sort{Orders: orders} }

// Sorted reports whether the directive carries at least one order.
func (s Sort) Sorted() bool { return len(s.Orders) > 0 }

// Pageable describes one requested page: a zero-based page number, a page
// size, and an optional dynamic sort.
type Pageable struct {
	Page int
	Size int
	Sort Sort
}

// Offset returns the row offset of the requested page.
func (p Pageable) Offset() int { return p.Page * p.Size }

// Page is a fully counted page of results. TotalElements comes from a
// companion COUNT query, never from counting the returned rows.
type Page[T any] struct {
	Content       []T
	Number        int
	Size          int
	TotalElements int64
}

// TotalPages returns the number of pages needed for TotalElements.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	pages := p.TotalElements / int64(p.Size)
	if p.TotalElements%int64(p.Size) != 0 {
		pages++
	}
	return int(pages)
}

// Slice is a page of results that only knows whether a next page exists.
// It is produced by fetching one row beyond the requested size, so no
// count query runs.
type Slice[T any] struct {
	Content []T
	Number  int
	Size    int
	HasNext bool
}
