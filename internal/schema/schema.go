package schema

import (
	"slices"

	language "github.com/hanpama/bookgraph/internal/language"
)

// Schema is the executable form of a GraphQL schema. Root operation types
// are referenced by name and resolved through Types.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type
	Directives       map[string]*Directive
	Description      string

	// AST is the validated source schema when built from SDL. Query
	// documents are validated against it; nil disables validation.
	AST *language.SchemaAST `json:"-"`
}

func (s *Schema) GetQueryType() *Type        { return s.Types[s.QueryType] }
func (s *Schema) GetMutationType() *Type     { return s.Types[s.MutationType] }
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// IsRootType reports whether name is one of the root operation types.
func (s *Schema) IsRootType(name string) bool {
	return name != "" && (name == s.QueryType || name == s.MutationType || name == s.SubscriptionType)
}

// Field returns the named field of typeName, or nil.
func (s *Schema) Field(typeName, fieldName string) *Field {
	t := s.Types[typeName]
	if t == nil {
		return nil
	}
	return t.Field(fieldName)
}

// AsyncFields lists the fields resolved in per-depth batches as
// "Type.field", sorted.
func (s *Schema) AsyncFields() []string {
	var out []string
	for name, t := range s.Types {
		for _, f := range t.Fields {
			if f.Async {
				out = append(out, name+"."+f.Name)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Type is a named type of any kind. Which slices are populated depends on
// Kind: Fields and Interfaces for objects and interfaces, PossibleTypes for
// interfaces and unions, EnumValues for enums, InputFields for inputs.
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field
	Interfaces     []string
	PossibleTypes  []string
	EnumValues     []*EnumValue
	InputFields    []*InputValue
	SpecifiedByURL *string
	OneOf          bool
}

// Field returns the field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Field is an output field. Async fields are not resolved inline but queued
// and handed to the runtime once per depth.
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
}

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef is a possibly wrapped type reference. Named is set only on the
// innermost element; List and NonNull wrap OfType.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

// ListOf returns the element type name of a list of a named type, looking
// through Non-Null on both the list and its items. Nested lists report false.
func (t *TypeRef) ListOf() (string, bool) {
	if t.IsNonNull() {
		t = t.OfType
	}
	if t == nil || t.Kind != TypeRefKindList {
		return "", false
	}
	elem := t.OfType
	if elem.IsNonNull() {
		elem = elem.OfType
	}
	if elem == nil || elem.Kind != TypeRefKindNamed {
		return "", false
	}
	return elem.Named, true
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether t is wrapped with Non-Null. A nil t is nullable.
func IsNonNull(t *TypeRef) bool { return t.IsNonNull() }
