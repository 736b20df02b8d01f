// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the query lowering engine, which
// walks a predicate tree and produces the query-language text for each of
// the four query shapes.
package core

import "strings"

// QueryShape is the closed set of shapes the lowering engine can produce.
// The exists shape reuses the count text verbatim; existence is decided by
// the caller checking count > 0.
type QueryShape int

const (
	ShapeSelect QueryShape = iota
	ShapeCount
	ShapeExists
	ShapeDelete
)

func (s QueryShape) String() string {
	switch s {
	case ShapeCount:
		return "count"
	case ShapeExists:
		return "exists"
	case ShapeDelete:
		return "delete"
	default:
		return "select"
	}
}

// Builder lowers predicate trees into query text for one entity. The
// parameter index counter resets to zero at the start of every build, so
// repeated builds (primary then count) produce independently indexed but
// structurally parallel placeholder sequences.
type Builder struct {
	entity     string
	paramIndex int
}

// NewBuilder creates a lowering engine for the given entity name.
func NewBuilder(entity string) *Builder {
	return &Builder{entity: entity}
}

// Build lowers the select shape:
//
//	FROM <Entity> e [WHERE <predicate>] [ORDER BY <sort>]
//
// An empty sort directive omits the ORDER BY clause entirely.
func (b *Builder) Build(predicate *Predicate, sort Sort) (string, []Binder, error) {
	b.paramIndex = 0
	text := "FROM " + b.entity + " e"
	where, binders, err := b.where(predicate)
	if err != nil {
		return "", nil, err
	}
	text += where
	if sort.Sorted() {
		text += " ORDER BY " + orderBy(sort)
	}
	return text, binders, nil
}

// BuildCount lowers the count shape:
//
//	SELECT COUNT(e) FROM <Entity> e [WHERE <predicate>]
func (b *Builder) BuildCount(predicate *Predicate) (string, []Binder, error) {
	b.paramIndex = 0
	text := "SELECT COUNT(e) FROM " + b.entity + " e"
	where, binders, err := b.where(predicate)
	if err != nil {
		return "", nil, err
	}
	return text + where, binders, nil
}

// BuildExists lowers the exists shape, which reuses the count text.
func (b *Builder) BuildExists(predicate *Predicate) (string, []Binder, error) {
	return b.BuildCount(predicate)
}

// BuildDelete lowers the delete shape:
//
//	DELETE FROM <Entity> e [WHERE <predicate>]
func (b *Builder) BuildDelete(predicate *Predicate) (string, []Binder, error) {
	b.paramIndex = 0
	text := "DELETE FROM " + b.entity + " e"
	where, binders, err := b.where(predicate)
	if err != nil {
		return "", nil, err
	}
	return text + where, binders, nil
}

// where assembles the WHERE clause. Each AND group's clauses join with
// " AND "; a group with more than one clause is parenthesized. Groups join
// with " OR " without outer parentheses: the AND level already injected
// the only nesting a name-derived method can express.
func (b *Builder) where(predicate *Predicate) (string, []Binder, error) {
	if predicate.Empty() {
		return "", nil, nil
	}

	var binders []Binder
	groupTexts := make([]string, 0, len(predicate.Groups))
	for _, group := range predicate.Groups {
		clauseTexts := make([]string, 0, len(group.Clauses))
		for _, clause := range group.Clauses {
			fragment, err := Lower(clause.Operator, clause.Path, b.paramIndex)
			if err != nil {
				return "", nil, err
			}
			b.paramIndex += fragment.Slots
			binders = append(binders, fragment.Binders...)
			clauseTexts = append(clauseTexts, fragment.Text)
		}
		text := strings.Join(clauseTexts, " AND ")
		if len(group.Clauses) > 1 {
			text = "(" + text + ")"
		}
		groupTexts = append(groupTexts, text)
	}
	return " WHERE " + strings.Join(groupTexts, " OR "), binders, nil
}

// orderBy assembles the ORDER BY clause from a non-empty sort directive.
func orderBy(sort Sort) string {
	parts := make([]string, 0, len(sort.Orders))
	for _, order := range sort.Orders {
		parts = append(parts, "e."+order.Path+" "+order.Direction.String())
	}
	return strings.Join(parts, ", ")
}
