package core

import (
	"context"
	"fmt"
	"strconv"
)

// Repository dispatches name-derived and annotated query methods for a single
// entity, plus the usual typed CRUD surface. Method descriptors are compiled
// lazily on first invocation and cached for the lifetime of the process.
type Repository[T any] struct {
	schema   *SchemaMeta[T]
	provider *Provider
	cache    *MethodCache
	methods  map[string]MethodDescriptor
	auditor  Auditor
}

type RepositoryOption[T any] func(*Repository[T])

// WithAuditor replaces the default timestamp auditor.
func WithAuditor[T any](a Auditor) RepositoryOption[T] {
	return func(r *Repository[T]) { r.auditor = a }
}

// WithMethodCache shares a compiled-method cache across repositories.
func WithMethodCache[T any](c *MethodCache) RepositoryOption[T] {
	return func(r *Repository[T]) { r.cache = c }
}

// NewRepository builds the execution proxy for a repository interface: the
// descriptor set enumerates every declared query method, and each one is
// compiled against the entity schema on first use.
func NewRepository[T any](schema *SchemaMeta[T], provider *Provider, descriptors []MethodDescriptor, opts ...RepositoryOption[T]) *Repository[T] {
	r := &Repository[T]{
		schema:   schema,
		provider: provider,
		cache:    NewMethodCache(),
		methods:  make(map[string]MethodDescriptor, len(descriptors)),
		auditor:  NewTimestampAuditor(NewFieldCache(), provider.logger),
	}
	for _, desc := range descriptors {
		r.methods[desc.Name] = desc
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schema exposes the entity metadata the repository was built with.
func (r *Repository[T]) Schema() *SchemaMeta[T] { return r.schema }

// Invoke executes a declared query method by name. Trailing Pageable or Sort
// arguments are dynamic directives, not query parameters. The concrete type of
// the result follows the method's declared return shape: []T, *T, Page[T],
// Slice[T], bool, int64, or nil for unit-returning modifying methods.
func (r *Repository[T]) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	desc, ok := r.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	compiled, err := r.cache.GetOrCompile(identityFor(r.schema.Entity, method), func() (*CompiledMethod, error) {
		return compileMethod(&r.schema.SchemaCore, desc)
	})
	if err != nil {
		return nil, err
	}

	dynamic := Unsorted()
	var pageable *Pageable
	if len(args) > 0 {
		switch last := args[len(args)-1].(type) {
		case Pageable:
			pageable = &last
			args = args[:len(args)-1]
			if last.Sort.Sorted() {
				dynamic = last.Sort
			}
		case Sort:
			dynamic = last
			args = args[:len(args)-1]
		}
	}

	params, err := r.bind(compiled, args)
	if err != nil {
		return nil, err
	}
	if compiled.Modifying {
		return r.invokeModifying(ctx, compiled, params)
	}
	return r.invokeQuery(ctx, compiled, params, dynamic, pageable)
}

// bind pairs positional arguments with the compiled parameter slots. Derived
// methods run each value through its operator binder; annotated methods pass
// values through untouched under their declared names.
func (r *Repository[T]) bind(compiled *CompiledMethod, args []any) ([]Param, error) {
	if compiled.Annotated {
		switch compiled.Style {
		case StyleNamed:
			if len(args) != len(compiled.ParamNames) {
				return nil, fmt.Errorf("%w: %s wants %d arguments, got %d",
					ErrArgumentCount, compiled.Name, len(compiled.ParamNames), len(args))
			}
			params := make([]Param, len(args))
			for i, name := range compiled.ParamNames {
				params[i] = Param{Name: name, Value: args[i]}
			}
			return params, nil
		case StylePositional:
			params := make([]Param, len(args))
			for i, value := range args {
				params[i] = Param{Name: strconv.Itoa(i + 1), Value: value}
			}
			return params, nil
		default:
			if len(args) != 0 {
				return nil, fmt.Errorf("%w: %s takes no arguments, got %d",
					ErrArgumentCount, compiled.Name, len(args))
			}
			return nil, nil
		}
	}
	if len(args) != len(compiled.Binders) {
		return nil, fmt.Errorf("%w: %s wants %d arguments, got %d",
			ErrArgumentCount, compiled.Name, len(compiled.Binders), len(args))
	}
	params := make([]Param, len(args))
	for i, value := range args {
		params[i] = Param{
			Name:  fmt.Sprintf("p%d", i),
			Value: compiled.Binders[i].Bind(value),
		}
	}
	return params, nil
}

func (r *Repository[T]) statement(compiled *CompiledMethod, dynamic Sort) *Statement {
	return &Statement{
		Text:      compiled.TextFor(dynamic),
		Shape:     compiled.Shape,
		Entity:    &r.schema.SchemaCore,
		Predicate: compiled.Predicate,
		Sort:      compiled.EffectiveSort(dynamic),
		Distinct:  compiled.Distinct,
		Limit:     compiled.Limit,
		Annotated: compiled.Annotated,
		Native:    compiled.Native,
	}
}

func (r *Repository[T]) invokeModifying(ctx context.Context, compiled *CompiledMethod, params []Param) (any, error) {
	stmt := r.statement(compiled, Unsorted())
	var affected int64
	err := r.provider.Write(ctx, func(ctx context.Context, session Session) error {
		return r.provider.dispatch(ctx, OperationDelete, stmt.Text, func() error {
			var execErr error
			affected, execErr = session.Execute(ctx, stmt, params)
			return execErr
		})
	})
	if err != nil {
		return nil, err
	}
	if compiled.Returns == ReturnUnit {
		return nil, nil
	}
	return affected, nil
}

func (r *Repository[T]) invokeQuery(ctx context.Context, compiled *CompiledMethod, params []Param, dynamic Sort, pageable *Pageable) (any, error) {
	switch compiled.Returns {
	case ReturnCount:
		return r.queryCount(ctx, r.statement(compiled, Unsorted()), params)
	case ReturnBool:
		count, err := r.queryCount(ctx, r.statement(compiled, Unsorted()), params)
		if err != nil {
			return nil, err
		}
		return count > 0, nil
	case ReturnPage:
		if pageable == nil {
			return nil, fmt.Errorf("%s: page-shaped method requires a Pageable argument", compiled.Name)
		}
		return r.queryPage(ctx, compiled, params, dynamic, *pageable)
	case ReturnSlice:
		if pageable == nil {
			return nil, fmt.Errorf("%s: slice-shaped method requires a Pageable argument", compiled.Name)
		}
		return r.querySlice(ctx, compiled, params, dynamic, *pageable)
	case ReturnEntity:
		rows, err := r.queryRows(ctx, r.statement(compiled, dynamic), params)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrNotFound
		}
		entities, err := r.mapRows(rows[:1])
		if err != nil {
			return nil, err
		}
		return &entities[0], nil
	case ReturnOptionalEntity:
		rows, err := r.queryRows(ctx, r.statement(compiled, dynamic), params)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return (*T)(nil), nil
		}
		entities, err := r.mapRows(rows[:1])
		if err != nil {
			return nil, err
		}
		return &entities[0], nil
	default:
		rows, err := r.queryRows(ctx, r.statement(compiled, dynamic), params)
		if err != nil {
			return nil, err
		}
		return r.mapRows(rows)
	}
}

func (r *Repository[T]) queryPage(ctx context.Context, compiled *CompiledMethod, params []Param, dynamic Sort, pageable Pageable) (Page[T], error) {
	stmt := r.statement(compiled, dynamic)
	stmt.Limit = pageable.Size
	stmt.Offset = pageable.Offset()
	countStmt := &Statement{
		Text:      compiled.CountText,
		Shape:     ShapeCount,
		Entity:    &r.schema.SchemaCore,
		Predicate: compiled.Predicate,
		Annotated: compiled.Annotated,
		Native:    compiled.Native,
	}
	var rows, countRows []Row
	err := r.provider.Read(ctx, func(ctx context.Context, session Session) error {
		return r.provider.dispatch(ctx, OperationQuery, stmt.Text, func() error {
			var queryErr error
			if rows, queryErr = session.Query(ctx, stmt, params); queryErr != nil {
				return queryErr
			}
			countRows, queryErr = session.Query(ctx, countStmt, params)
			return queryErr
		})
	})
	if err != nil {
		return Page[T]{}, err
	}
	content, err := r.mapRows(rows)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{
		Content:       content,
		Number:        pageable.Page,
		Size:          pageable.Size,
		TotalElements: scalarCount(countRows),
	}, nil
}

func (r *Repository[T]) querySlice(ctx context.Context, compiled *CompiledMethod, params []Param, dynamic Sort, pageable Pageable) (Slice[T], error) {
	stmt := r.statement(compiled, dynamic)
	// one extra row decides HasNext without a count query
	stmt.Limit = pageable.Size + 1
	stmt.Offset = pageable.Offset()
	rows, err := r.queryRows(ctx, stmt, params)
	if err != nil {
		return Slice[T]{}, err
	}
	hasNext := len(rows) > pageable.Size
	if hasNext {
		rows = rows[:pageable.Size]
	}
	content, err := r.mapRows(rows)
	if err != nil {
		return Slice[T]{}, err
	}
	return Slice[T]{
		Content: content,
		Number:  pageable.Page,
		Size:    pageable.Size,
		HasNext: hasNext,
	}, nil
}

func (r *Repository[T]) queryRows(ctx context.Context, stmt *Statement, params []Param) ([]Row, error) {
	var rows []Row
	err := r.provider.Read(ctx, func(ctx context.Context, session Session) error {
		return r.provider.dispatch(ctx, OperationQuery, stmt.Text, func() error {
			var queryErr error
			rows, queryErr = session.Query(ctx, stmt, params)
			return queryErr
		})
	})
	return rows, err
}

func (r *Repository[T]) queryCount(ctx context.Context, stmt *Statement, params []Param) (int64, error) {
	rows, err := r.queryRows(ctx, stmt, params)
	if err != nil {
		return 0, err
	}
	return scalarCount(rows), nil
}

func (r *Repository[T]) mapRows(rows []Row) ([]T, error) {
	entities := make([]T, len(rows))
	for i, row := range rows {
		if err := mapRowToStruct(&r.schema.SchemaCore, row, &entities[i]); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// scalarCount pulls the single numeric value out of a count-shaped result set.
func scalarCount(rows []Row) int64 {
	if len(rows) == 0 {
		return 0
	}
	value, ok := rows[0]["count"]
	if !ok {
		for _, v := range rows[0] {
			value = v
			break
		}
	}
	switch n := value.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// Save inserts the entity when the auditor considers it new, otherwise updates
// every column except the identifier and the creation stamp, keyed by the
// identifier. Persist hooks run only around inserts.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	schema := &r.schema.SchemaCore
	return r.provider.Write(ctx, func(ctx context.Context, session Session) error {
		if r.auditor.IsNew(schema, entity) {
			r.auditor.MarkCreated(schema, entity)
			for _, hook := range r.schema.PrePersistHooks {
				if err := hook(entity); err != nil {
					return err
				}
			}
			if err := r.provider.dispatch(ctx, OperationInsert, "", func() error {
				return session.Insert(ctx, schema, entity)
			}); err != nil {
				return err
			}
			for _, hook := range r.schema.PostPersistHooks {
				if err := hook(entity); err != nil {
					return err
				}
			}
			return nil
		}

		r.auditor.MarkModified(schema, entity)
		idField := schema.IDField()
		if idField == nil {
			return fmt.Errorf("%s: entity has no identifier field", schema.Entity)
		}
		values, properties := StructValues(schema, entity)
		changes := Changes{}
		var idValue any
		for i, property := range properties {
			if property == idField.Property {
				idValue = values[i]
				continue
			}
			// The creation stamp is written once at insert; updates of a
			// detached entity must not clobber it.
			if schema.createdAtField != nil && property == schema.createdAtField.Property {
				continue
			}
			changes[property] = values[i]
		}
		predicate, params := r.identifierPredicate(idValue)
		return r.provider.dispatch(ctx, OperationUpdate, "", func() error {
			return session.Update(ctx, schema, predicate, params, changes)
		})
	})
}

// SaveAll persists every entity inside a single transactional scope.
func (r *Repository[T]) SaveAll(ctx context.Context, entities []*T) error {
	return r.provider.Transactional(ctx, func(ctx context.Context) error {
		for _, entity := range entities {
			if err := r.Save(ctx, entity); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID loads a single entity by its identifier, ErrNotFound when absent.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	predicate, params := r.identifierPredicate(id)
	text, _, err := NewBuilder(r.schema.Entity).Build(predicate, Unsorted())
	if err != nil {
		return nil, err
	}
	stmt := &Statement{
		Text:      text,
		Shape:     ShapeSelect,
		Entity:    &r.schema.SchemaCore,
		Predicate: predicate,
		Limit:     1,
	}
	rows, err := r.queryRows(ctx, stmt, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	entities, err := r.mapRows(rows[:1])
	if err != nil {
		return nil, err
	}
	return &entities[0], nil
}

// FindAll returns every entity, ordered by the given sort when present.
func (r *Repository[T]) FindAll(ctx context.Context, sort Sort) ([]T, error) {
	text, _, err := NewBuilder(r.schema.Entity).Build(nil, sort)
	if err != nil {
		return nil, err
	}
	stmt := &Statement{
		Text:   text,
		Shape:  ShapeSelect,
		Entity: &r.schema.SchemaCore,
		Sort:   sort,
	}
	rows, err := r.queryRows(ctx, stmt, nil)
	if err != nil {
		return nil, err
	}
	return r.mapRows(rows)
}

// Count returns the total number of entities.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	text, _, err := NewBuilder(r.schema.Entity).BuildCount(nil)
	if err != nil {
		return 0, err
	}
	stmt := &Statement{
		Text:   text,
		Shape:  ShapeCount,
		Entity: &r.schema.SchemaCore,
	}
	return r.queryCount(ctx, stmt, nil)
}

// ExistsByID reports whether an entity with the identifier exists.
func (r *Repository[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	predicate, params := r.identifierPredicate(id)
	text, _, err := NewBuilder(r.schema.Entity).BuildExists(predicate)
	if err != nil {
		return false, err
	}
	stmt := &Statement{
		Text:      text,
		Shape:     ShapeExists,
		Entity:    &r.schema.SchemaCore,
		Predicate: predicate,
	}
	count, err := r.queryCount(ctx, stmt, params)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteByID removes the entity with the identifier; absent rows are not an
// error.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) error {
	predicate, params := r.identifierPredicate(id)
	text, _, err := NewBuilder(r.schema.Entity).BuildDelete(predicate)
	if err != nil {
		return err
	}
	stmt := &Statement{
		Text:      text,
		Shape:     ShapeDelete,
		Entity:    &r.schema.SchemaCore,
		Predicate: predicate,
	}
	return r.provider.Write(ctx, func(ctx context.Context, session Session) error {
		return r.provider.dispatch(ctx, OperationDelete, stmt.Text, func() error {
			_, err := session.Execute(ctx, stmt, params)
			return err
		})
	})
}

// DeleteAll removes every entity.
func (r *Repository[T]) DeleteAll(ctx context.Context) error {
	text, _, err := NewBuilder(r.schema.Entity).BuildDelete(nil)
	if err != nil {
		return err
	}
	stmt := &Statement{
		Text:   text,
		Shape:  ShapeDelete,
		Entity: &r.schema.SchemaCore,
	}
	return r.provider.Write(ctx, func(ctx context.Context, session Session) error {
		return r.provider.dispatch(ctx, OperationDelete, stmt.Text, func() error {
			_, err := session.Execute(ctx, stmt, nil)
			return err
		})
	})
}

func (r *Repository[T]) identifierPredicate(id any) (*Predicate, []Param) {
	idField := r.schema.IDField()
	path := "id"
	if idField != nil {
		path = idField.Property
	}
	predicate := &Predicate{Groups: []Group{{Clauses: []Clause{
		{Path: path, Operator: OpEquals, Slot: 0},
	}}}}
	return predicate, []Param{{Name: "p0", Value: id}}
}
