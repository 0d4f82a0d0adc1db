package introspection

import (
	"cmp"
	"slices"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	schema "github.com/hanpama/bookgraph/internal/schema"
)

// resolveMeta resolves a field of one of the meta types. ok is false when
// objectType is not a meta type or source does not match it.
func resolveMeta(sch *schema.Schema, objectType, field string, source any, args map[string]any) (any, bool) {
	switch objectType {
	case "__Schema":
		s, ok := source.(*schema.Schema)
		if !ok {
			return nil, false
		}
		return schemaField(s, field), true
	case "__Type":
		switch src := source.(type) {
		case *schema.Type:
			return typeField(sch, src, field, args), true
		case *schema.TypeRef:
			return typeRefField(sch, src, field, args), true
		}
	case "__Field":
		if f, ok := source.(*schema.Field); ok {
			return fieldField(f, field, args), true
		}
	case "__InputValue":
		if v, ok := source.(*schema.InputValue); ok {
			return inputValueField(v, field), true
		}
	case "__EnumValue":
		if v, ok := source.(*schema.EnumValue); ok {
			return enumValueField(v, field), true
		}
	case "__Directive":
		if d, ok := source.(*schema.Directive); ok {
			return directiveField(d, field, args), true
		}
	}
	return nil, false
}

func schemaField(s *schema.Schema, field string) any {
	switch field {
	case "description":
		return optional(s.Description)
	case "types":
		return byName(lo.Values(s.Types), func(t *schema.Type) string { return t.Name })
	case "queryType":
		return s.GetQueryType()
	case "mutationType":
		return s.GetMutationType()
	case "subscriptionType":
		return s.GetSubscriptionType()
	case "directives":
		return byName(lo.Values(s.Directives), func(d *schema.Directive) string { return d.Name })
	}
	return nil
}

func typeField(sch *schema.Schema, t *schema.Type, field string, args map[string]any) any {
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optional(t.Description)
	case "specifiedByURL":
		return t.SpecifiedByURL
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return visible(t.Fields, args, func(f *schema.Field) bool { return f.IsDeprecated })
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return lookupTypes(sch, t.Interfaces)
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil
		}
		return lookupTypes(sch, t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) bool { return v.IsDeprecated })
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return visible(t.InputFields, args, func(v *schema.InputValue) bool { return v.IsDeprecated })
	}
	// ofType of a named type is always null.
	return nil
}

// typeRefField describes a possibly wrapped type. Named references are
// answered from the named type definition.
func typeRefField(sch *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) any {
	if tr.Kind == schema.TypeRefKindNamed {
		t := sch.Types[tr.Named]
		if t == nil {
			return nil
		}
		return typeField(sch, t, field, args)
	}
	switch field {
	case "kind":
		return string(tr.Kind)
	case "ofType":
		return tr.OfType
	}
	return nil
}

func fieldField(f *schema.Field, field string, args map[string]any) any {
	switch field {
	case "name":
		return f.Name
	case "description":
		return optional(f.Description)
	case "args":
		return visible(f.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated })
	case "type":
		return f.Type
	case "isDeprecated":
		return f.IsDeprecated
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason)
	}
	return nil
}

func inputValueField(v *schema.InputValue, field string) any {
	switch field {
	case "name":
		return v.Name
	case "description":
		return optional(v.Description)
	case "type":
		return v.Type
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil
		}
		return defaultValueLiteral(v.DefaultValue)
	case "isDeprecated":
		return v.IsDeprecated
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason)
	}
	return nil
}

func enumValueField(v *schema.EnumValue, field string) any {
	switch field {
	case "name":
		return v.Name
	case "description":
		return optional(v.Description)
	case "isDeprecated":
		return v.IsDeprecated
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason)
	}
	return nil
}

func directiveField(d *schema.Directive, field string, args map[string]any) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return optional(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		return d.Locations
	case "args":
		return visible(d.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated })
	}
	return nil
}

// visible drops deprecated members unless includeDeprecated is set. Members
// keep their declaration order.
func visible[T any](items []T, args map[string]any, deprecated func(T) bool) []T {
	if include, _ := args["includeDeprecated"].(bool); include {
		return append([]T{}, items...)
	}
	return lo.Reject(items, func(item T, _ int) bool { return deprecated(item) })
}

func byName[T any](items []T, name func(T) string) []T {
	slices.SortFunc(items, func(a, b T) int { return cmp.Compare(name(a), name(b)) })
	return items
}

func lookupTypes(sch *schema.Schema, names []string) []*schema.Type {
	return lo.FilterMap(names, func(name string, _ int) (*schema.Type, bool) {
		t := sch.Types[name]
		return t, t != nil
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deprecationReason(deprecated bool, reason string) *string {
	if !deprecated {
		return nil
	}
	return &reason
}

// defaultValueLiteral renders a coerced default the way it would be written
// in SDL. Enum values come back from the builder as strings and are therefore
// rendered quoted.
func defaultValueLiteral(v any) string {
	switch val := v.(type) {
	case map[string]any:
		keys := lo.Keys(val)
		slices.Sort(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ", "
			}
			out += k + ": " + defaultValueLiteral(val[k])
		}
		return out + "}"
	case []any:
		return "[" + joinLiterals(val) + "]"
	}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func joinLiterals(items []any) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += defaultValueLiteral(item)
	}
	return out
}
