package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Render prints s as SDL. Types and directives appear in name order; the
// built-in scalars and the include and skip directives are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var p printer
	for _, name := range sortedKeys(s.Types) {
		if t := s.Types[name]; !isBuiltinScalar(t) {
			p.typ(t)
		}
	}
	for _, name := range sortedKeys(s.Directives) {
		if d := s.Directives[name]; d != includeDirective && d != skipDirective {
			p.directive(d)
		}
	}
	return strings.TrimRight(p.String(), "\n") + "\n"
}

func isBuiltinScalar(t *Type) bool {
	return t == stringType || t == intType || t == floatType || t == booleanType || t == idType
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

type printer struct{ strings.Builder }

func (p *printer) typ(t *Type) {
	p.description(t.Description, "")
	switch t.Kind {
	case TypeKindScalar:
		p.WriteString("scalar " + t.Name)
		if t.SpecifiedByURL != nil {
			fmt.Fprintf(p, " @specifiedBy(url: %s)", strconv.Quote(*t.SpecifiedByURL))
		}
		p.WriteString("\n\n")
	case TypeKindUnion:
		fmt.Fprintf(p, "union %s = %s\n\n", t.Name, strings.Join(t.PossibleTypes, " | "))
	case TypeKindEnum:
		p.open("enum", t.Name, nil)
		for _, v := range t.EnumValues {
			p.description(v.Description, "  ")
			p.WriteString("  " + v.Name)
			p.deprecated(v.IsDeprecated, v.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n\n")
	case TypeKindInputObject:
		head := t.Name
		if t.OneOf {
			head += " @oneOf"
		}
		p.open("input", head, nil)
		for _, f := range t.InputFields {
			p.description(f.Description, "  ")
			p.WriteString("  " + inputValue(f))
			p.deprecated(f.IsDeprecated, f.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type"
		if t.Kind == TypeKindInterface {
			keyword = "interface"
		}
		p.open(keyword, t.Name, t.Interfaces)
		for _, f := range t.Fields {
			p.field(f)
		}
		p.WriteString("}\n\n")
	}
}

func (p *printer) open(keyword, head string, implements []string) {
	p.WriteString(keyword + " " + head)
	if len(implements) > 0 {
		p.WriteString(" implements " + strings.Join(implements, " & "))
	}
	p.WriteString(" {\n")
}

func (p *printer) field(f *Field) {
	p.description(f.Description, "  ")
	p.WriteString("  " + f.Name + arguments(f.Arguments) + ": " + renderTypeRef(f.Type))
	p.deprecated(f.IsDeprecated, f.DeprecationReason)
	p.WriteString("\n")
}

func (p *printer) directive(d *Directive) {
	p.description(d.Description, "")
	p.WriteString("directive @" + d.Name + arguments(d.Arguments))
	if d.IsRepeatable {
		p.WriteString(" repeatable")
	}
	p.WriteString(" on " + strings.Join(d.Locations, " | ") + "\n\n")
}

// description writes a block string. Embedded quotes are escaped.
func (p *printer) description(desc, indent string) {
	if desc == "" {
		return
	}
	p.WriteString(indent + `"""` + "\n")
	p.WriteString(indent + strings.ReplaceAll(desc, `"`, `\"`) + "\n")
	p.WriteString(indent + `"""` + "\n")
}

func (p *printer) deprecated(is bool, reason string) {
	switch {
	case !is:
	case reason == "":
		p.WriteString(" @deprecated")
	default:
		fmt.Fprintf(p, " @deprecated(reason: %s)", strconv.Quote(reason))
	}
}

func arguments(args []*InputValue) string {
	if len(args) == 0 {
		return ""
	}
	return "(" + strings.Join(lo.Map(args, func(a *InputValue, _ int) string { return inputValue(a) }), ", ") + ")"
}

func inputValue(v *InputValue) string {
	s := v.Name + ": " + renderTypeRef(v.Type)
	if v.DefaultValue != nil {
		s += " = " + renderValue(v.DefaultValue)
	}
	return s
}

func renderTypeRef(t *TypeRef) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + renderTypeRef(t.OfType) + "]"
	case TypeRefKindNonNull:
		return renderTypeRef(t.OfType) + "!"
	}
	return ""
}

// renderValue prints a default value as a GraphQL literal. Values of other
// types, such as enum values, are printed bare.
func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case int, int32, int64, bool:
		return fmt.Sprint(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		return "[" + strings.Join(lo.Map(v, func(item any, _ int) string { return renderValue(item) }), ", ") + "]"
	case map[string]any:
		fields := lo.Map(sortedKeys(v), func(k string, _ int) string { return k + ": " + renderValue(v[k]) })
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return fmt.Sprint(value)
}
