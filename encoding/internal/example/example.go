// Package example builds sample values of a type for format instructions.
package example

import (
	"reflect"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/toolloop/pkg/schema"
)

// New returns a pointer to a fake instance of the struct type,
// or nil if t is not a struct.
func New(t reflect.Type) any {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	val := reflect.New(t)
	if f, ok := val.Elem().Interface().(schema.Faker); ok {
		return f.Fake()
	}
	_ = gofakeit.Struct(val.Interface())
	return val.Interface()
}

// IsStruct returns true if v is a struct or a pointer to a struct.
func IsStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
