package executor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	executor "github.com/hanpama/bookgraph/internal/executor"
	language "github.com/hanpama/bookgraph/internal/language"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("")
	sch.SetQueryType(query.Name)
	sch.AddType(query)
	sch.AddType(schema.NewType("String", schema.TypeKindScalar, ""))
	sch.AddType(schema.NewType("Int", schema.TypeKindScalar, ""))
	sch.AddType(schema.NewType("Boolean", schema.TypeKindScalar, ""))
	for _, t := range additional {
		sch.AddType(t)
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}

// key projects a map source value.
func key(k string) executor.MockResolver {
	return func(_ context.Context, src any, _ map[string]any) (any, error) {
		return src.(map[string]any)[k], nil
	}
}

// callTrace renders calls as "kind:Type.field#batch" for compact comparison.
func callTrace(calls []executor.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = fmt.Sprintf("%s:%s.%s#%d", c.Kind, c.ObjectType, c.Field, c.BatchID)
	}
	return out
}

func TestSyncAndAsyncRouting(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("a", "", schema.NamedType("String")),
		schema.NewField("b", "", schema.NamedType("String")).SetAsync(true),
	))
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.a": executor.NewMockValueResolver("A"),
		"Query.b": executor.NewMockValueResolver("B"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ a b }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"a": "A", "b": "B"},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	wantCalls := []executor.Call{
		{Kind: "sync", ObjectType: "Query", Field: "a", Args: map[string]any{}},
		{Kind: "async", ObjectType: "Query", Field: "b", Args: map[string]any{}, BatchID: 1},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestAsyncFieldsBatchedPerDepth(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("items", "", schema.ListType(schema.NamedType("Item"))),
		),
		newObjectType("Item",
			schema.NewField("name", "", schema.NamedType("String")),
			schema.NewField("detail", "", schema.NamedType("Detail")).SetAsync(true),
			schema.NewField("extra", "", schema.NamedType("String")).SetAsync(true),
		),
		newObjectType("Detail",
			schema.NewField("more", "", schema.NamedType("String")).SetAsync(true),
		),
	)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.items": executor.NewMockValueResolver([]any{
			map[string]any{"name": "x"},
			map[string]any{"name": "y"},
		}),
		"Item.name": key("name"),
		"Item.detail": func(_ context.Context, src any, _ map[string]any) (any, error) {
			return map[string]any{"of": src.(map[string]any)["name"]}, nil
		},
		"Item.extra": executor.NewMockValueResolver("e"),
		"Detail.more": func(_ context.Context, src any, _ map[string]any) (any, error) {
			return "more-" + src.(map[string]any)["of"].(string), nil
		},
	})

	doc := mustParseQuery(t, "{ items { name detail { more } extra } }")
	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &executor.ExecutionResult{
		Data: map[string]any{
			"items": []any{
				map[string]any{"name": "x", "detail": map[string]any{"more": "more-x"}, "extra": "e"},
				map[string]any{"name": "y", "detail": map[string]any{"more": "more-y"}, "extra": "e"},
			},
		},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantTrace := []string{
		"sync:Query.items#0",
		"sync:Item.name#0",
		"sync:Item.name#0",
		"async:Item.detail#1",
		"async:Item.extra#1",
		"async:Item.detail#1",
		"async:Item.extra#1",
		"async:Detail.more#2",
		"async:Detail.more#2",
	}
	if diff := cmp.Diff(wantTrace, callTrace(rt.GetCalls())); diff != "" {
		t.Fatalf("call trace mismatch (-want +got):\n%s", diff)
	}
}

func TestNullableAsyncErrorIsLocal(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("a", "", schema.NamedType("String")).SetAsync(true),
		schema.NewField("b", "", schema.NamedType("String")).SetAsync(true),
	))
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.a": executor.NewMockErrorResolver(errors.New("boom")),
		"Query.b": executor.NewMockValueResolver("B"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ a b }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"a": nil, "b": "B"},
		Errors: []executor.GraphQLError{{Message: "boom", Path: executor.Path{"a"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestNonNullAsyncErrorPropagates(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("item", "", schema.NamedType("Item")),
			schema.NewField("ok", "", schema.NamedType("String")),
		),
		newObjectType("Item",
			schema.NewField("req", "", schema.NonNullType(schema.NamedType("String"))).SetAsync(true),
		),
	)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.item": executor.NewMockValueResolver(map[string]any{}),
		"Query.ok":   executor.NewMockValueResolver("yes"),
		"Item.req":   executor.NewMockErrorResolver(errors.New("unavailable")),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ item { req } ok }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"item": nil, "ok": "yes"},
		Errors: []executor.GraphQLError{{Message: "unavailable", Path: executor.Path{"item", "req"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownFieldAndUnboundResolver(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("bound", "", schema.NamedType("String")),
		schema.NewField("unbound", "", schema.ListType(schema.NamedType("String"))),
	))
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.bound": executor.NewMockValueResolver("v"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ bound unbound nope }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"bound": "v", "unbound": nil},
		Errors: []executor.GraphQLError{{Message: "Cannot query field 'nope' on type 'Query'", Path: executor.Path{"nope"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestFragmentsOnAbstractTypes(t *testing.T) {
	sch, err := schema.BuildFromSDL(`
interface Named { name: String }
type Person implements Named { name: String age: Int }
type Robot implements Named { name: String model: String }
union Thing = Person | Robot
type Query { who: Named things: [Thing] }
`)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.who": executor.NewMockValueResolver(map[string]any{"__typename": "Person", "name": "Ann", "age": 3}),
		"Query.things": executor.NewMockValueResolver([]any{
			map[string]any{"__typename": "Robot", "name": "R2", "model": "astromech"},
			map[string]any{"__typename": "Person", "name": "Bo", "age": 40},
		}),
		"Person.name": key("name"),
		"Person.age":  key("age"),
		"Robot.name":  key("name"),
		"Robot.model": key("model"),
	})

	doc := mustParseQuery(t, `
{
  who { ... on Named { name } ... on Person { age } ... on Robot { model } }
  things { __typename ...thingName ... on Robot { model } }
}
fragment thingName on Named { name }
`)
	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &executor.ExecutionResult{
		Data: map[string]any{
			"who": map[string]any{"name": "Ann", "age": 3},
			"things": []any{
				map[string]any{"__typename": "Robot", "name": "R2", "model": "astromech"},
				map[string]any{"__typename": "Person", "name": "Bo"},
			},
		},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestVariablesAndDirectives(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("greet", "", schema.NamedType("String")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	))
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.greet": func(_ context.Context, _ any, args map[string]any) (any, error) {
			return "hi " + args["name"].(string), nil
		},
	})
	exec := executor.NewExecutor(rt, sch)
	doc := mustParseQuery(t, `query Q($n: String!, $s: Boolean!) { greet(name: $n) hidden: greet(name: "x") @skip(if: $s) }`)

	got := exec.ExecuteRequest(context.Background(), doc, "Q", map[string]any{"n": "Bo", "s": true}, nil)
	want := &executor.ExecutionResult{
		Data:   map[string]any{"greet": "hi Bo"},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	got = exec.ExecuteRequest(context.Background(), doc, "Q", map[string]any{"s": false}, nil)
	want = &executor.ExecutionResult{
		Errors: []executor.GraphQLError{{Message: "variable $n of required type String! was not provided"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	got = exec.ExecuteRequest(context.Background(), doc, "Other", nil, nil)
	if len(got.Errors) != 1 || got.Errors[0].Message != "operation not found" {
		t.Fatalf("expected operation not found, got %+v", got.Errors)
	}
}

func TestCancelledContextStopsBatches(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("a", "", schema.NamedType("String")),
		schema.NewField("b", "", schema.NamedType("String")).SetAsync(true),
	))
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.a": executor.NewMockValueResolver("A"),
		"Query.b": executor.NewMockValueResolver("B"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := executor.NewExecutor(rt, sch).ExecuteRequest(ctx, mustParseQuery(t, "{ a b }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"a": "A", "b": nil},
		Errors: []executor.GraphQLError{{Message: context.Canceled.Error(), Path: executor.Path{"b"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sync:Query.a#0"}, callTrace(rt.GetCalls())); diff != "" {
		t.Fatalf("call trace mismatch (-want +got):\n%s", diff)
	}
}

type shortBatchRuntime struct{ *executor.MockRuntime }

func (shortBatchRuntime) BatchResolveAsync(context.Context, []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return nil
}

func TestShortBatchFailsEveryTask(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("b", "", schema.NamedType("String")).SetAsync(true),
	))
	rt := shortBatchRuntime{executor.NewMockRuntime(nil)}

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ b }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"b": nil},
		Errors: []executor.GraphQLError{{Message: "runtime returned 0 results for 1 tasks", Path: executor.Path{"b"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestNonNullListItemNullsNearestNullableAncestor(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("shelf", "", schema.NamedType("Shelf")),
		),
		newObjectType("Shelf",
			schema.NewField("label", "", schema.NamedType("String")),
			schema.NewField("books", "", schema.ListType(schema.NonNullType(schema.NamedType("Book")))),
		),
		newObjectType("Book",
			schema.NewField("title", "", schema.NonNullType(schema.NamedType("String"))).SetAsync(true),
		),
	)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.shelf": executor.NewMockValueResolver(map[string]any{"label": "new"}),
		"Shelf.label": key("label"),
		"Shelf.books": executor.NewMockValueResolver([]any{map[string]any{"t": ""}, map[string]any{"t": "B"}}),
		"Book.title": func(_ context.Context, src any, _ map[string]any) (any, error) {
			if t := src.(map[string]any)["t"].(string); t != "" {
				return t, nil
			}
			return nil, errors.New("no title")
		},
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ shelf { label books { title } } }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"shelf": map[string]any{"label": "new", "books": nil}},
		Errors: []executor.GraphQLError{{Message: "no title", Path: executor.Path{"shelf", "books", 0, "title"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestNonNullRootFieldNullsData(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("must", "", schema.NonNullType(schema.NamedType("String"))),
		schema.NewField("later", "", schema.NamedType("String")).SetAsync(true),
	))
	rt := executor.NewMockRuntime(nil)

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ later must }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Errors: []executor.GraphQLError{{Message: "Cannot return null for non-nullable field must", Path: executor.Path{"must"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sync:Query.must#0"}, callTrace(rt.GetCalls())); diff != "" {
		t.Fatalf("call trace mismatch (-want +got):\n%s", diff)
	}
}
