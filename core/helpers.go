// Package core provides the fundamental building blocks of the seance
// repository layer. This file contains helper functions for reflection,
// row-to-struct mapping, and common value transformations.
package core

import (
	"reflect"
	"strings"
	"time"
	"unicode"
	"unsafe"
)

// offsetOf returns the memory offset of a struct field selected by the given
// selector function.
//
// Example:
//
//	type User struct {
//	    ID   int
//	    Name string
//	}
//
//	offset := offsetOf(func(u *User) *string { return &u.Name })
func offsetOf[T any, F any](selector func(*T) *F) uintptr {
	var zero T
	base := uintptr(unsafe.Pointer(&zero))
	ptr := selector(&zero)
	return uintptr(unsafe.Pointer(ptr)) - base
}

// decapitalize lowers the first rune of a name: "Name" becomes "name",
// "ID" becomes "iD" only when forced, so fully-upper names stay as-is.
func decapitalize(name string) string {
	if name == "" {
		return name
	}
	if name == strings.ToUpper(name) {
		return strings.ToLower(name)
	}
	runes := []rune(name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// capitalize raises the first rune of a property name back to its
// method-name form: "name" becomes "Name".
func capitalize(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// mapRowToStruct maps one driver row into a struct instance of type T.
//
// Row keys are entity property names. Each key is resolved through the
// schema first and by case-insensitive field-name match as a fallback.
// Value assignment supports:
//  1. Exact type matching
//  2. Value → pointer conversions (e.g. time.Time → *time.Time)
//  3. Pointer → value conversions (e.g. *time.Time → time.Time)
//  4. Convertible types (e.g. int → float64)
func mapRowToStruct(schema *SchemaCore, row map[string]any, out any) error {
	value := reflect.ValueOf(out).Elem()
	for rowKey, rowValue := range row {
		fieldName := rowKey
		if field, ok := schema.PropertyFor(rowKey); ok {
			fieldName = field.StructFieldName
		}
		field := value.FieldByNameFunc(func(name string) bool { return strings.EqualFold(name, fieldName) })
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if rowValue == nil {
			// If the field is a pointer, set to nil; otherwise skip.
			if field.Kind() == reflect.Pointer {
				field.Set(reflect.Zero(field.Type()))
			}
			continue
		}

		rv := reflect.ValueOf(rowValue)

		// 1) exact type match
		if rv.Type().AssignableTo(field.Type()) {
			field.Set(rv)
			continue
		}

		// 2) value → pointer
		if field.Kind() == reflect.Pointer && rv.Type().AssignableTo(field.Type().Elem()) {
			ptr := reflect.New(field.Type().Elem())
			ptr.Elem().Set(rv)
			field.Set(ptr)
			continue
		}

		// 3) pointer → value
		if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Type().Elem().AssignableTo(field.Type()) {
			field.Set(rv.Elem())
			continue
		}

		// 4) convertible types
		if rv.Type().ConvertibleTo(field.Type()) {
			field.Set(rv.Convert(field.Type()))
			continue
		}
		if field.Kind() == reflect.Pointer && rv.Type().ConvertibleTo(field.Type().Elem()) {
			ptr := reflect.New(field.Type().Elem())
			ptr.Elem().Set(rv.Convert(field.Type().Elem()))
			field.Set(ptr)
			continue
		}
	}
	return nil
}

// StructValues extracts property values from an entity according to its
// schema.
//
// It returns two parallel slices: the values in schema field order and the
// property names they belong to. Drivers turn these into INSERT column and
// placeholder lists.
func StructValues(schema *SchemaCore, doc any) ([]any, []string) {
	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	valueList := []any{}
	propertyList := []string{}

	for _, field := range schema.Fields {
		fv := value.FieldByName(field.StructFieldName)

		var v any
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				v = nil
			} else {
				v = fv.Elem().Interface()
			}
		} else {
			v = fv.Interface()
		}

		valueList = append(valueList, v)
		propertyList = append(propertyList, field.Property)
	}

	return valueList, propertyList
}

// fieldValue reads the value of a schema field from an entity, unwrapping
// pointer fields.
func fieldValue(field *Field, doc any) any {
	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	fv := value.FieldByName(field.StructFieldName)
	if !fv.IsValid() {
		return nil
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		return fv.Elem().Interface()
	}
	return fv.Interface()
}

// setTimeField sets a time.Time value into a struct field, supporting both
// value and pointer kinds.
//
// If the field is a struct time.Time, it sets the value directly.
// If the field is a *time.Time, it sets or allocates as needed.
func setTimeField(field reflect.Value, t time.Time) {
	if !field.IsValid() || !field.CanSet() {
		return
	}
	timeType := reflect.TypeOf(time.Time{})

	switch field.Kind() {
	case reflect.Struct:
		if field.Type() == timeType {
			field.Set(reflect.ValueOf(t))
		}
	case reflect.Pointer:
		if field.Type().Elem() == timeType {
			if field.IsNil() {
				ptr := reflect.New(timeType)
				ptr.Elem().Set(reflect.ValueOf(t))
				field.Set(ptr)
			} else {
				field.Elem().Set(reflect.ValueOf(t))
			}
		}
	}
}
