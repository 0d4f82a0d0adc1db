// Package introspection answers the __schema and __type meta fields. It wraps
// a Runtime and extends the served Schema with the meta types of the GraphQL
// prelude.
package introspection

import (
	"context"
	"fmt"
	"maps"

	executor "github.com/hanpama/bookgraph/internal/executor"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

var metaTypes = []string{
	"__Schema",
	"__Type",
	"__Field",
	"__InputValue",
	"__EnumValue",
	"__Directive",
	"__TypeKind",
	"__DirectiveLocation",
}

// IntrospectionWrapper holds the wrapping runtime and the extended schema.
// Both must be used together.
type IntrospectionWrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends sch with the introspection types and returns a runtime that
// resolves them, delegating every other field to base. sch must have been
// built from SDL so the prelude definitions are available.
//
// __schema lists the meta types alongside the served ones, but the query
// type it describes has no __schema or __type fields.
func Wrap(base executor.Runtime, sch *schema.Schema) (*IntrospectionWrapper, error) {
	described, err := withMetaTypes(sch)
	if err != nil {
		return nil, err
	}
	query := sch.GetQueryType()
	if query == nil {
		return nil, fmt.Errorf("introspection: schema has no query type")
	}

	extended := *described
	extended.Types = maps.Clone(described.Types)
	q := *query
	q.Fields = append(append([]*schema.Field(nil), query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	)
	extended.Types[q.Name] = &q

	return &IntrospectionWrapper{
		Runtime: &runtime{base: base, described: described, queryType: sch.QueryType},
		Schema:  &extended,
	}, nil
}

// withMetaTypes returns a shallow copy of sch with the meta types built from
// the prelude. sch itself is not modified.
func withMetaTypes(sch *schema.Schema) (*schema.Schema, error) {
	if sch.AST == nil {
		return nil, fmt.Errorf("introspection: schema has no source AST")
	}
	out := *sch
	out.Types = maps.Clone(sch.Types)
	for _, name := range metaTypes {
		def := sch.AST.Types[name]
		if def == nil {
			return nil, fmt.Errorf("introspection: prelude lacks %s", name)
		}
		t, err := schema.BuildDefinition(def)
		if err != nil {
			return nil, fmt.Errorf("introspection: %w", err)
		}
		out.Types[name] = t
	}
	return &out, nil
}

type runtime struct {
	base      executor.Runtime
	described *schema.Schema
	queryType string
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if objectType == r.queryType {
		switch field {
		case "__schema":
			return r.described, nil
		case "__type":
			name, _ := args["name"].(string)
			return r.described.Types[name], nil
		}
	}
	if v, ok := resolveMeta(r.described, objectType, field, source, args); ok {
		return v, nil
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return r.base.ResolveUnionConcreteValue(ctx, unionTypeName, value)
}

func (r *runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return r.base.ResolveInterfaceConcreteValue(ctx, interfaceTypeName, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	switch typ {
	case "__TypeKind", "__DirectiveLocation":
		return fmt.Sprint(value), nil
	}
	if s, ok := value.(*string); ok {
		return *s, nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}
