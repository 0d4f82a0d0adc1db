package schema

import (
	"fmt"
	"sort"

	language "github.com/hanpama/bookgraph/internal/language"
)

func NewSchema(description string) *Schema {
	return &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	s.Directives[d.Name] = d
	return s
}

// SetFieldAsync marks typeName.fieldName as resolved through the batched
// async path of the executor.
func (s *Schema) SetFieldAsync(typeName, fieldName string) error {
	f := s.Field(typeName, fieldName)
	if f == nil {
		return fmt.Errorf("schema has no field %s.%s", typeName, fieldName)
	}
	f.SetAsync(true)
	return nil
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type        { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}
func (t *Type) AddEnumValue(v *EnumValue) *Type      { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type    { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type            { t.OneOf = oneOf; return t }
func (t *Type) SetSpecifiedByURL(url string) *Type   { t.SpecifiedByURL = &url; return t }
func (t *Type) GetOrderedFields() []*Field           { return t.Fields }
func (t *Type) GetOrderedInputFields() []*InputValue { return t.InputFields }

// NewFieldMap returns the fields in declaration order.
func NewFieldMap(fields ...*Field) []*Field { return fields }

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field         { f.Async = async; return f }
func (f *Field) AddArgument(a *InputValue) *Field   { f.Arguments = append(f.Arguments, a); return f }
func (f *Field) GetOrderedArguments() []*InputValue { return f.Arguments }
func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue { v.DefaultValue = value; return v }
func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(r bool) *Directive { d.IsRepeatable = r; return d }
func (d *Directive) AddArgument(a *InputValue) *Directive {
	d.Arguments = append(d.Arguments, a)
	return d
}

// BuildFromSDL parses and validates sdl and returns the executable Schema.
// Built-in scalars and directives of the GraphQL prelude are replaced by the
// package's own definitions; all fields start out synchronous.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromNamedSDL("schema.graphql", sdl)
}

// BuildFromNamedSDL is BuildFromSDL with a source name used in error locations.
func BuildFromNamedSDL(name, sdl string) (*Schema, error) {
	doc, err := language.LoadSchema(name, sdl)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	return BuildFromAST(doc)
}

// BuildFromAST converts a validated gqlparser schema.
func BuildFromAST(doc *language.SchemaAST) (*Schema, error) {
	if doc.Query == nil {
		return nil, fmt.Errorf("schema has no query type")
	}
	s := NewSchema(doc.Description)
	s.AST = doc
	s.SetQueryType(doc.Query.Name)
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective)

	names := make([]string, 0, len(doc.Types))
	for name := range doc.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := doc.Types[name]
		if def.BuiltIn {
			continue
		}
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for name, impls := range doc.PossibleTypes {
		t := s.Types[name]
		if t == nil || t.Kind != TypeKindInterface {
			continue
		}
		for _, impl := range impls {
			t.AddPossibleType(impl.Name)
		}
		sort.Strings(t.PossibleTypes)
	}
	for _, dir := range doc.Directives {
		if isPreludeDirective(dir) {
			continue
		}
		d, err := buildDirective(dir)
		if err != nil {
			return nil, err
		}
		s.AddDirective(d)
	}
	return s, nil
}

// BuildDefinition converts one gqlparser type definition. It also accepts the
// built-in introspection types of the prelude.
func BuildDefinition(def *language.Definition) (*Type, error) { return buildDefinition(def) }

func buildDefinition(def *language.Definition) (*Type, error) {
	t := NewType(def.Name, TypeKind(def.Kind), def.Description)
	switch def.Kind {
	case language.Object, language.Interface:
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			if len(fd.Name) > 1 && fd.Name[:2] == "__" {
				continue
			}
			f, err := buildField(fd)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
			}
			t.AddField(f)
		}
	case language.Union:
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
	case language.Enum:
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
	case language.InputObject:
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
		for _, fd := range def.Fields {
			in, err := buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
			}
			t.AddInputField(in)
		}
	case language.Scalar:
		if sb := def.Directives.ForName("specifiedBy"); sb != nil {
			if arg := sb.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				t.SetSpecifiedByURL(arg.Value.Raw)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported definition kind %q for %s", def.Kind, def.Name)
	}
	return t, nil
}

func buildField(fd *language.FieldDefinition) (*Field, error) {
	f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, a := range fd.Arguments {
		in, err := buildInputValue(a.Name, a.Description, a.Type, a.DefaultValue, a.Directives)
		if err != nil {
			return nil, err
		}
		f.AddArgument(in)
	}
	return f, nil
}

func buildInputValue(name, description string, typ *language.Type, def *language.Value, dirs language.DirectiveList) (*InputValue, error) {
	in := NewInputValue(name, description, buildTypeRef(typ))
	if def != nil {
		v, err := def.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("default value of %s: %w", name, err)
		}
		in.SetDefault(v)
	}
	if reason, ok := deprecation(dirs); ok {
		in.Deprecate(reason)
	}
	return in, nil
}

func buildDirective(dir *language.DirectiveDefinition) (*Directive, error) {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, a := range dir.Arguments {
		in, err := buildInputValue(a.Name, a.Description, a.Type, a.DefaultValue, a.Directives)
		if err != nil {
			return nil, fmt.Errorf("@%s: %w", dir.Name, err)
		}
		d.AddArgument(in)
	}
	return d, nil
}

func buildTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "No longer supported", true
}

// isPreludeDirective reports whether dir comes from the gqlparser prelude.
func isPreludeDirective(dir *language.DirectiveDefinition) bool {
	return dir.Position != nil && dir.Position.Src != nil && dir.Position.Src.BuiltIn
}
