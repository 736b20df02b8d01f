// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the entity schema system, which maps
// Go structs to entities of the query language, describes properties and
// lazy associations, and supports schema building.
package core

import (
	"reflect"
	"strings"
)

// Field represents a struct field mapped to an entity property.
//
// Property is the name used in lowered query text (e.<property>) and by
// drivers when they address the underlying column or document key.
type Field struct {
	StructFieldName string       // Name of the field in the Go struct
	Property        string       // Property path in the query language
	Type            reflect.Type // Go type of the field
	MemoryOffset    uintptr      // Memory offset within the struct

	IsID        bool // Whether this field is the entity identifier
	IsCreatedAt bool // Creation timestamp marker, stamped by the auditor
	IsUpdatedAt bool // Modification timestamp marker, stamped by the auditor
}

// FieldOption is a function used to configure a Field.
type FieldOption func(*Field)

// ID marks the field as the entity identifier.
func ID() FieldOption {
	return func(f *Field) { f.IsID = true }
}

// CreatedAt marks the field as the creation timestamp.
func CreatedAt() FieldOption {
	return func(f *Field) { f.IsCreatedAt = true }
}

// UpdatedAt marks the field as the modification timestamp.
func UpdatedAt() FieldOption {
	return func(f *Field) { f.IsUpdatedAt = true }
}

// Property overrides the property name derived from the struct tag.
func Property(name string) FieldOption {
	return func(f *Field) { f.Property = name }
}

// SchemaCore contains the schema information required at runtime by the
// lowering engine, the dispatcher, and the drivers.
type SchemaCore struct {
	Entity     string // Entity name used in lowered query text (FROM <Entity> e)
	Collection string // Backing table or collection name
	Fields     []*Field

	fieldsByOffset map[uintptr]*Field
	relations      []Relation

	idField        *Field
	createdAtField *Field
	updatedAtField *Field
}

// PropertyFor resolves one condition part of a method name ("Name",
// "Email") to the entity property it addresses. Matching is
// case-insensitive against both the Go field name and the property name.
func (s *SchemaCore) PropertyFor(part string) (*Field, bool) {
	for _, field := range s.Fields {
		if strings.EqualFold(part, field.StructFieldName) || strings.EqualFold(part, field.Property) {
			return field, true
		}
	}
	return nil, false
}

// IDField returns the identifier field, or nil if none was marked.
func (s *SchemaCore) IDField() *Field { return s.idField }

// RelationKind defines the shape of a lazy association.
type RelationKind int

const (
	OneToOne  RelationKind = 1
	OneToMany RelationKind = 2
)

// Relation describes a lazy association between two entities. The
// association is not loaded by derived queries; the session provider
// fetches it on demand.
type Relation struct {
	Kind            RelationKind
	Field           string      // Go struct field that receives the association
	Ref             *SchemaCore // Schema of the associated entity
	LocalProperty   string      // Key property on the owning entity
	ForeignProperty string      // Key property on the associated entity
}

// AddRelation registers a lazy association on the schema.
func AddRelation[T any](schema *SchemaMeta[T], relation Relation) {
	schema.relations = append(schema.relations, relation)
}

// findRelation finds a registered association by Go field name.
func (s *SchemaCore) findRelation(name string) *Relation {
	for i := range s.relations {
		if s.relations[i].Field == name {
			return &s.relations[i]
		}
	}
	return nil
}

// PersistHook is the callback signature invoked around entity persistence.
type PersistHook[T any] func(*T) error

// SchemaMeta extends SchemaCore with typed metadata: hooks registered for
// the entity's Go type.
type SchemaMeta[T any] struct {
	SchemaCore
	PrePersistHooks  []PersistHook[T]
	PostPersistHooks []PersistHook[T]
}

// RegisterPrePersist registers a hook executed before an entity is saved.
func (s *SchemaMeta[T]) RegisterPrePersist(fn PersistHook[T]) {
	s.PrePersistHooks = append(s.PrePersistHooks, fn)
}

// RegisterPostPersist registers a hook executed after an entity is saved.
func (s *SchemaMeta[T]) RegisterPostPersist(fn PersistHook[T]) {
	s.PostPersistHooks = append(s.PostPersistHooks, fn)
}

// SchemaBuilder is used to construct a schema definition from a Go struct.
//
// It collects property metadata using reflection and applies customization
// through SchemaOptions.
type SchemaBuilder[T any] struct {
	entity         string
	collection     string
	tagKey         string
	structType     reflect.Type
	fields         []*Field
	fieldsByOffset map[uintptr]*Field
}

// SchemaOption represents a function that customizes the schema builder.
type SchemaOption[T any] func(*SchemaBuilder[T])

// TagKey sets the struct tag key used for property mapping (default "db").
func TagKey[T any](key string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.tagKey = key }
}

// Entity sets the entity name used in lowered query text. It defaults to
// the Go type name.
func Entity[T any](name string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.entity = name }
}

// Table sets the backing table/collection name. It defaults to the entity
// name.
func Table[T any](name string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.collection = name }
}

// OverrideField modifies the metadata of a specific field, selected by a
// pointer-returning selector (e.g. marking it as the identifier or as a
// timestamp field).
func OverrideField[T any, F any](selector func(*T) *F, opts ...FieldOption) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) {
		if len(schemaBuilder.fields) == 0 {
			// Options run twice: fields only exist on the second pass.
			return
		}
		offset := offsetOf(selector)
		if field, ok := schemaBuilder.fieldsByOffset[offset]; ok {
			for _, opt := range opts {
				opt(field)
			}
		} else {
			panic("core: OverrideField — field not found by selector")
		}
	}
}

// Schema builds a SchemaMeta[T] by reflecting on struct fields and
// applying the given SchemaOptions.
//
// Property names come from the configured struct tag when present,
// otherwise from the lower-camel form of the Go field name. A field named
// ID with no explicit identifier marker is treated as the identifier.
func Schema[T any](options ...SchemaOption[T]) *SchemaMeta[T] {
	var zero T
	structType := reflect.TypeOf(zero)
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	builder := &SchemaBuilder[T]{
		structType:     structType,
		fieldsByOffset: make(map[uintptr]*Field),
	}

	// Apply options before building fields (Entity/Table/TagKey).
	for _, option := range options {
		option(builder)
	}

	for _, sf := range reflect.VisibleFields(structType) {
		property := ""
		if builder.tagKey != "" {
			property = sf.Tag.Get(builder.tagKey)
		} else {
			property = sf.Tag.Get("db")
		}
		if property == "" {
			property = decapitalize(sf.Name)
		}

		field := &Field{
			StructFieldName: sf.Name,
			Property:        property,
			Type:            sf.Type,
			MemoryOffset:    sf.Offset,
		}
		builder.fields = append(builder.fields, field)
		builder.fieldsByOffset[sf.Offset] = field
	}

	// Re-apply options so that OverrideField can work after fields exist.
	for _, option := range options {
		option(builder)
	}

	entity := builder.entity
	if entity == "" {
		entity = structType.Name()
	}
	collection := builder.collection
	if collection == "" {
		collection = entity
	}

	meta := &SchemaMeta[T]{
		SchemaCore: SchemaCore{
			Entity:         entity,
			Collection:     collection,
			Fields:         builder.fields,
			fieldsByOffset: builder.fieldsByOffset,
		},
	}

	// Detect special fields once.
	for _, f := range builder.fields {
		if f.IsID {
			meta.idField = f
		}
		if f.IsCreatedAt {
			meta.createdAtField = f
		}
		if f.IsUpdatedAt {
			meta.updatedAtField = f
		}
	}
	if meta.idField == nil {
		for _, f := range builder.fields {
			if f.StructFieldName == "ID" {
				f.IsID = true
				meta.idField = f
				break
			}
		}
	}

	return meta
}
