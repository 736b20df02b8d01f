// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the auditing collaborator boundary:
// the is-new decision and the timestamp stamping hooks invoked at save
// time, backed by an explicit, injectable per-type field cache.
package core

import (
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Auditor decides whether an entity is new and stamps its audit markers
// before the session merge/persist primitive runs. The repository only
// consumes the decision; it never derives is-new itself for auditing
// purposes.
type Auditor interface {
	IsNew(schema *SchemaCore, entity any) bool
	MarkCreated(schema *SchemaCore, entity any)
	MarkModified(schema *SchemaCore, entity any)
}

// auditFields caches the reflective field indices of one entity type.
type auditFields struct {
	id      []int
	created []int
	updated []int
}

// FieldCache memoizes audit field lookups per runtime type. It is an
// explicit dependency: callers construct one at startup and hand it to
// the auditor, instead of relying on an implicit process-wide cache.
type FieldCache struct {
	mu      sync.RWMutex
	entries map[reflect.Type]auditFields
}

// NewFieldCache creates an empty audit field cache.
func NewFieldCache() *FieldCache {
	return &FieldCache{entries: make(map[reflect.Type]auditFields)}
}

func (c *FieldCache) fieldsFor(t reflect.Type, schema *SchemaCore) auditFields {
	c.mu.RLock()
	fields, ok := c.entries[t]
	c.mu.RUnlock()
	if ok {
		return fields
	}

	for _, sf := range reflect.VisibleFields(t) {
		field, known := schema.PropertyFor(sf.Name)
		if !known {
			continue
		}
		switch {
		case field.IsID:
			fields.id = sf.Index
		case field.IsCreatedAt:
			fields.created = sf.Index
		case field.IsUpdatedAt:
			fields.updated = sf.Index
		}
	}

	c.mu.Lock()
	c.entries[t] = fields
	c.mu.Unlock()
	return fields
}

// TimestampAuditor is the default auditor: an entity is new when its
// identifier field holds the zero value, and audit markers are time.Time
// stamps. Reflective access failures are logged and treated as "field not
// available"; they never fail the surrounding save.
type TimestampAuditor struct {
	cache  *FieldCache
	logger *slog.Logger
	now    func() time.Time
}

// NewTimestampAuditor creates an auditor over the given field cache.
func NewTimestampAuditor(cache *FieldCache, logger *slog.Logger) *TimestampAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimestampAuditor{cache: cache, logger: logger, now: time.Now}
}

func (a *TimestampAuditor) value(entity any) (reflect.Value, bool) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		a.logger.Warn("auditor needs a non-nil entity pointer", "type", reflect.TypeOf(entity))
		return reflect.Value{}, false
	}
	return v.Elem(), true
}

// IsNew reports whether the entity's identifier holds its zero value.
// Entities without an identifier field are treated as new.
func (a *TimestampAuditor) IsNew(schema *SchemaCore, entity any) bool {
	v, ok := a.value(entity)
	if !ok {
		return false
	}
	fields := a.cache.fieldsFor(v.Type(), schema)
	if fields.id == nil {
		return true
	}
	id := v.FieldByIndex(fields.id)
	return id.IsZero()
}

// MarkCreated stamps both the creation and modification markers.
func (a *TimestampAuditor) MarkCreated(schema *SchemaCore, entity any) {
	v, ok := a.value(entity)
	if !ok {
		return
	}
	now := a.now()
	fields := a.cache.fieldsFor(v.Type(), schema)
	if fields.created != nil {
		setTimeField(v.FieldByIndex(fields.created), now)
	}
	if fields.updated != nil {
		setTimeField(v.FieldByIndex(fields.updated), now)
	}
}

// MarkModified stamps only the modification marker.
func (a *TimestampAuditor) MarkModified(schema *SchemaCore, entity any) {
	v, ok := a.value(entity)
	if !ok {
		return
	}
	if fields := a.cache.fieldsFor(v.Type(), schema); fields.updated != nil {
		setTimeField(v.FieldByIndex(fields.updated), a.now())
	}
}
