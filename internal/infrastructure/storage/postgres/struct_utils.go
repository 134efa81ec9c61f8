package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the "db" tag names of T, flattening embedded structs
// (entity.CatalogBase) in field order. Catalog repositories call it once at construction.
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := typeMetadataOf(reflect.TypeOf(zero))
	cols := make([]string, 0, len(meta.fields))
	for _, f := range meta.fields {
		cols = append(cols, f.column)
	}
	return cols
}

// StructToMap converts a struct to column -> value using "db" tags.
// Fields tagged "-" or untagged are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := typeMetadataOf(rv.Type())
	out := make(map[string]any, len(meta.fields))
	for _, f := range meta.fields {
		out[f.column] = rv.FieldByIndex(f.index).Interface()
	}
	return out
}

type columnField struct {
	index  []int
	column string
}

type typeMetadata struct {
	fields []columnField
}

// metadata per reflect.Type; computed once, read lock-free afterwards
var typeCache sync.Map

func typeMetadataOf(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, meta)
	}
	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

func collectFields(t reflect.Type, prefix []int, meta *typeMetadata) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int{}, prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, meta)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, columnField{index: index, column: tag})
	}
}
