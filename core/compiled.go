// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the compiled query method artifact
// and the process-wide cache that guarantees each method is lowered at
// most once.
package core

import (
	"fmt"
	"sync"
)

// ReturnShape classifies how the dispatcher reshapes raw driver rows into
// the method's declared result.
type ReturnShape int

const (
	ReturnList ReturnShape = iota
	ReturnEntity
	ReturnOptionalEntity
	ReturnPage
	ReturnSlice
	ReturnBool
	ReturnCount
	ReturnUnit
)

// MethodDescriptor declares one repository query method: its name, its
// return shape, and, for annotated methods, the query options. It is the
// configuration surface the repository factory consumes.
type MethodDescriptor struct {
	Name    string
	Returns ReturnShape
	Query   *QueryOptions // nil for name-derived methods
}

// CompiledMethod is the cached compilation artifact of one repository
// method. It is created once per distinct method, immutable thereafter,
// and owned exclusively by the method cache.
type CompiledMethod struct {
	Name       string
	Predicate  *Predicate // nil for annotated and unconditional methods
	NameSort   Sort       // sort derived from the OrderBy name suffix
	Text       string     // primary query text (with the name-derived sort)
	CountText  string     // present iff Returns == ReturnPage
	Binders    []Binder   // ordered, one per positional parameter slot
	Returns    ReturnShape
	Shape      QueryShape
	Entity     string
	Limit      int // from First/Top, 0 when absent
	Distinct   bool
	Annotated  bool
	Native     bool
	Modifying  bool
	Style      ParameterStyle
	ParamNames []string // named-style placeholder names, in order
}

// TextFor returns the primary query text for one invocation. A sorted
// dynamic directive wins over the name-derived sort and forces a rebuild
// of the ORDER BY clause; the predicate lowering is identical, so the
// placeholder sequence of the cached text is preserved.
func (m *CompiledMethod) TextFor(dynamic Sort) string {
	if m.Annotated || !dynamic.Sorted() || m.Shape != ShapeSelect {
		return m.Text
	}
	text, _, _ := NewBuilder(m.Entity).Build(m.Predicate, dynamic)
	return text
}

// EffectiveSort resolves the sort directive for one invocation: the
// dynamic directive when sorted, otherwise the name-derived one. The two
// are never merged field by field.
func (m *CompiledMethod) EffectiveSort(dynamic Sort) Sort {
	if dynamic.Sorted() {
		return dynamic
	}
	return m.NameSort
}

// compileMethod lowers one method declaration into its compiled artifact.
// Annotated declarations skip tree construction entirely; name-derived
// ones parse the method name against the entity schema and lower the tree
// for the shape the subject verb selects.
func compileMethod(schema *SchemaCore, desc MethodDescriptor) (*CompiledMethod, error) {
	if desc.Query != nil {
		compiled, err := compileAnnotated(desc.Name, desc.Query, desc.Returns)
		if err != nil {
			return nil, &CompileError{Method: desc.Name, Err: err}
		}
		compiled.Entity = schema.Entity
		return compiled, nil
	}

	parsed, err := ParseMethodName(desc.Name, schema)
	if err != nil {
		return nil, &CompileError{Method: desc.Name, Err: err}
	}

	compiled := &CompiledMethod{
		Name:      desc.Name,
		Predicate: parsed.Predicate,
		NameSort:  parsed.Sort,
		Entity:    schema.Entity,
		Limit:     parsed.Limit,
		Distinct:  parsed.Distinct,
	}

	builder := NewBuilder(schema.Entity)
	switch parsed.Verb {
	case VerbCount:
		compiled.Shape = ShapeCount
		compiled.Returns = ReturnCount
		compiled.Text, compiled.Binders, err = builder.BuildCount(parsed.Predicate)
	case VerbExists:
		compiled.Shape = ShapeExists
		compiled.Returns = ReturnBool
		compiled.Text, compiled.Binders, err = builder.BuildExists(parsed.Predicate)
	case VerbDelete:
		compiled.Shape = ShapeDelete
		compiled.Modifying = true
		compiled.Returns = ReturnCount
		if desc.Returns == ReturnUnit {
			compiled.Returns = ReturnUnit
		}
		compiled.Text, compiled.Binders, err = builder.BuildDelete(parsed.Predicate)
	default:
		compiled.Shape = ShapeSelect
		compiled.Returns = desc.Returns
		compiled.Text, compiled.Binders, err = builder.Build(parsed.Predicate, parsed.Sort)
		if err == nil && compiled.Returns == ReturnPage {
			compiled.CountText, _, err = builder.BuildCount(parsed.Predicate)
		}
	}
	if err != nil {
		return nil, &CompileError{Method: desc.Name, Err: err}
	}

	if compiled.Modifying && (compiled.Returns == ReturnPage || compiled.Returns == ReturnSlice) {
		return nil, &CompileError{Method: desc.Name, Err: ErrModifyingReturn}
	}
	return compiled, nil
}

// cacheEntry pins either the artifact or the permanent compile error.
type cacheEntry struct {
	compiled *CompiledMethod
	err      error
}

// MethodCache maps method identity to its compiled artifact. It is
// append-only per key: the first compilation wins and lives for the
// process lifetime. Redundant concurrent compiles are wasted work but not
// incorrect, since compilation is a pure function of the declaration.
type MethodCache struct {
	entries sync.Map // string -> *cacheEntry
}

// NewMethodCache creates an empty method cache.
func NewMethodCache() *MethodCache { return &MethodCache{} }

// GetOrCompile returns the compiled artifact for the given method
// identity, compiling it with compile on first use. A compile failure is
// pinned as well: the method stays permanently unusable until the
// declaration is fixed, and the error is not re-raised by recompiling.
func (c *MethodCache) GetOrCompile(identity string, compile func() (*CompiledMethod, error)) (*CompiledMethod, error) {
	if hit, ok := c.entries.Load(identity); ok {
		entry := hit.(*cacheEntry)
		return entry.compiled, entry.err
	}
	compiled, err := compile()
	actual, _ := c.entries.LoadOrStore(identity, &cacheEntry{compiled: compiled, err: err})
	entry := actual.(*cacheEntry)
	return entry.compiled, entry.err
}

// identityFor builds the cache key for a repository method. The key space
// is bounded by the number of declared methods, so entries are never
// evicted.
func identityFor(entity, method string) string {
	return fmt.Sprintf("%s.%s", entity, method)
}
