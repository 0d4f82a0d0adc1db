package executor

import (
	"fmt"
	"reflect"

	language "github.com/hanpama/bookgraph/internal/language"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

// completeValue shapes a resolved value according to typ. boundary is the
// nearest nullable position above path; it moves to path whenever typ is
// nullable.
func (s *executionState) completeValue(typ *schema.TypeRef, fields []*language.Field, value any, path, boundary Path) any {
	if typ.IsNonNull() {
		if isNullish(value) {
			if !s.hasErrorAt(path) {
				s.addError(nonNullMessage(path), path)
			}
			return nil
		}
		return s.completeInner(typ.OfType, fields, value, path, boundary)
	}
	if isNullish(value) {
		return nil
	}
	completed := s.completeInner(typ, fields, value, path, path)
	if isNullish(completed) {
		// Queued work below a value that turned null is discarded.
		s.nullified = append(s.nullified, path)
		return nil
	}
	return completed
}

// completeInner completes a non-null value of a list or named type.
func (s *executionState) completeInner(typ *schema.TypeRef, fields []*language.Field, value any, path, boundary Path) any {
	if typ.Kind == schema.TypeRefKindList {
		return s.completeList(typ.OfType, fields, value, path, boundary)
	}
	named := s.schema.Types[typ.Named]
	if named == nil {
		s.addError(fmt.Sprintf("Unknown type: %s", typ.Named), path)
		return nil
	}
	switch named.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := s.runtime.SerializeLeafValue(s.ctx, named.Name, value)
		if err != nil {
			s.addError(err.Error(), path)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return s.completeObject(named, fields, value, path, boundary)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return s.completeAbstract(named, fields, value, path, boundary)
	}
	s.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", named.Kind), path)
	return nil
}

// completeList accepts any Go slice. A null item of a Non-Null item type
// nulls the whole list.
func (s *executionState) completeList(itemType *schema.TypeRef, fields []*language.Field, value any, path, boundary Path) any {
	items, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			s.addError(fmt.Sprintf("Expected list value, got %T", value), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}
	out := make([]any, len(items))
	for i, item := range items {
		v := s.completeValue(itemType, fields, item, path.with(i), boundary)
		if isNullish(v) {
			if itemType.IsNonNull() {
				return nil
			}
			v = nil
		}
		out[i] = v
	}
	return out
}

func (s *executionState) completeObject(objectType *schema.Type, fields []*language.Field, value any, path, boundary Path) any {
	var selection language.SelectionSet
	for _, f := range fields {
		selection = append(selection, f.SelectionSet...)
	}
	return s.executeSelectionSet(objectType, selection, value, path, boundary)
}

func (s *executionState) completeAbstract(abstract *schema.Type, fields []*language.Field, value any, path, boundary Path) any {
	typeName, err := s.runtime.ResolveType(s.ctx, abstract.Name, value)
	if err != nil {
		s.addError(err.Error(), path)
		return nil
	}
	objectType := s.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		s.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstract.Name, typeName), path)
		return nil
	}
	var concrete any
	if abstract.Kind == schema.TypeKindUnion {
		concrete, err = s.runtime.ResolveUnionConcreteValue(s.ctx, abstract.Name, value)
	} else {
		concrete, err = s.runtime.ResolveInterfaceConcreteValue(s.ctx, abstract.Name, value)
	}
	if err != nil {
		s.addError(err.Error(), path)
		return nil
	}
	return s.completeObject(objectType, fields, concrete, path, boundary)
}

func nonNullMessage(path Path) string {
	return "Cannot return null for non-nullable field " + path.String()
}

// isNullish reports nil and typed nil pointers, maps, slices and interfaces.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
