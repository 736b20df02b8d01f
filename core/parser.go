// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the predicate tree parser, which
// turns a repository method name into an OR-of-ANDs predicate tree plus a
// name-derived sort directive.
package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Verb classifies the subject of a derived query method.
type Verb int

const (
	VerbFind Verb = iota
	VerbCount
	VerbExists
	VerbDelete
)

// ParsedMethod is the structured form of a method name.
//
// A nil Predicate means the method is unconditional (findAll, count,
// deleteAll); the dispatcher handles that as a distinct branch before the
// lowering engine ever sees it.
type ParsedMethod struct {
	Verb      Verb
	Distinct  bool
	Limit     int // from First/Top, 0 when absent
	Predicate *Predicate
	Sort      Sort
}

var subjectVerbs = []struct {
	prefix string
	verb   Verb
}{
	{"findBy", VerbFind}, {"readBy", VerbFind}, {"getBy", VerbFind},
	{"queryBy", VerbFind}, {"searchBy", VerbFind}, {"streamBy", VerbFind},
	{"countBy", VerbCount}, {"existsBy", VerbExists},
	{"deleteBy", VerbDelete}, {"removeBy", VerbDelete},
}

// ParseMethodName parses a derived-query method name against an entity
// schema. Condition parts are split on an "Or" boundary first, then each
// group on an "And" boundary; clause order within a group is preserved as
// written. A boundary only counts when followed by an upper-case letter,
// so properties like "organization" never split.
func ParseMethodName(name string, schema *SchemaCore) (*ParsedMethod, error) {
	parsed := &ParsedMethod{}

	rest, ok := parseSubject(name, parsed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMethodName, name)
	}
	if rest == "" {
		// Unconditional: findAll, count, deleteAll.
		return parsed, nil
	}

	condition := rest
	if at := strings.Index(rest, "OrderBy"); at >= 0 {
		condition = rest[:at]
		orders, err := parseOrderClause(rest[at+len("OrderBy"):], schema)
		if err != nil {
			return nil, err
		}
		parsed.Sort = Sort{Orders: orders}
	}

	if condition != "" {
		predicate, err := parseCondition(condition, schema)
		if err != nil {
			return nil, err
		}
		parsed.Predicate = predicate
	}
	return parsed, nil
}

// parseSubject consumes the verb, the optional Distinct marker, and the
// optional First/Top limit. It returns the remaining condition suffix and
// whether the subject was recognized.
func parseSubject(name string, parsed *ParsedMethod) (string, bool) {
	// Unconditional forms first: the verb with no By separator.
	for _, bare := range []struct {
		name string
		verb Verb
	}{
		{"findAll", VerbFind}, {"count", VerbCount}, {"deleteAll", VerbDelete},
	} {
		if name == bare.name {
			parsed.Verb = bare.verb
			return "", true
		}
	}

	for _, sv := range subjectVerbs {
		verb := strings.TrimSuffix(sv.prefix, "By")
		if !strings.HasPrefix(name, verb) {
			continue
		}
		rest := name[len(verb):]
		if strings.HasPrefix(rest, "Distinct") {
			parsed.Distinct = true
			rest = rest[len("Distinct"):]
		}
		for _, limiter := range []string{"First", "Top"} {
			if strings.HasPrefix(rest, limiter) {
				rest = rest[len(limiter):]
				digits := ""
				for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
					digits += string(rest[0])
					rest = rest[1:]
				}
				parsed.Limit = 1
				if digits != "" {
					parsed.Limit, _ = strconv.Atoi(digits)
				}
				break
			}
		}
		if strings.HasPrefix(rest, "By") {
			parsed.Verb = sv.verb
			return rest[len("By"):], true
		}
	}
	return "", false
}

// parseCondition builds the OR-of-ANDs tree and assigns contiguous,
// zero-based parameter slots in clause order.
func parseCondition(condition string, schema *SchemaCore) (*Predicate, error) {
	predicate := &Predicate{}
	slot := 0

	for _, orPart := range splitBoundary(condition, "Or") {
		group := Group{}
		for _, andPart := range splitBoundary(orPart, "And") {
			clause, err := parsePart(andPart, schema)
			if err != nil {
				return nil, err
			}
			clause.Slot = slot
			slot += clause.Operator.Slots()
			group.Clauses = append(group.Clauses, clause)
		}
		predicate.Groups = append(predicate.Groups, group)
	}
	return predicate, nil
}

// parsePart resolves one condition part ("NameContaining", "AgeBetween")
// into a clause. Keyword suffixes are tried longest-first; a split is only
// accepted when the remaining prefix resolves to an entity property, so a
// property like "loggedIn" is not misread as an In keyword. A part with no
// keyword is an equality check.
func parsePart(part string, schema *SchemaCore) (Clause, error) {
	for _, kw := range keywordTable {
		if !strings.HasSuffix(part, kw.text) || len(part) == len(kw.text) {
			continue
		}
		property := part[:len(part)-len(kw.text)]
		if field, ok := schema.PropertyFor(property); ok {
			return Clause{Path: field.Property, Operator: kw.operator}, nil
		}
	}
	if field, ok := schema.PropertyFor(part); ok {
		return Clause{Path: field.Property, Operator: OpEquals}, nil
	}
	return Clause{}, fmt.Errorf("%w: %s has no property matching %q", ErrUnknownProperty, schema.Entity, part)
}

// parseOrderClause parses the OrderBy suffix: a run of property names each
// followed by an optional Asc or Desc marker.
func parseOrderClause(clause string, schema *SchemaCore) ([]Order, error) {
	// Longest property first so "accountName" wins over "account".
	names := make([]*Field, len(schema.Fields))
	copy(names, schema.Fields)
	sort.Slice(names, func(i, j int) bool {
		return len(names[i].StructFieldName) > len(names[j].StructFieldName)
	})

	var orders []Order
	rest := clause
	for rest != "" {
		var matched *Field
		for _, field := range names {
			if strings.HasPrefix(rest, capitalize(field.StructFieldName)) {
				matched = field
				break
			}
		}
		if matched == nil {
			return nil, fmt.Errorf("%w: %s has no property matching order clause %q", ErrUnknownProperty, schema.Entity, rest)
		}
		rest = rest[len(matched.StructFieldName):]

		direction := Ascending
		if strings.HasPrefix(rest, "Desc") {
			direction = Descending
			rest = rest[len("Desc"):]
		} else if strings.HasPrefix(rest, "Asc") {
			rest = rest[len("Asc"):]
		}
		orders = append(orders, Order{Path: matched.Property, Direction: direction})
	}
	return orders, nil
}

// splitBoundary splits s on the given token, but only where the token is
// followed by an upper-case letter and preceded by at least one character.
func splitBoundary(s, token string) []string {
	var parts []string
	start := 0
	for i := 1; i+len(token) < len(s); i++ {
		if s[i:i+len(token)] == token && unicode.IsUpper(rune(s[i+len(token)])) {
			parts = append(parts, s[start:i])
			start = i + len(token)
			i = start - 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
