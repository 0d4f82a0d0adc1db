package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testSDL = `
"""A writer."""
type Author {
  id: ID!
  name: String
  alias: String @deprecated(reason: "use name")
}

enum Genre { FICTION ESSAY }

input BookFilter {
  genre: Genre
  limit: Int = 10
}

union Creator = Author

type Query {
  authors(filter: BookFilter): [Author]
  creators: [Creator!]!
}
`

func TestBuildFromSDL(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)
	require.NotNil(t, sch.AST)

	require.Equal(t, "Query", sch.QueryType)
	require.Empty(t, sch.MutationType)
	require.Same(t, stringType, sch.Types["String"])
	require.Nil(t, sch.Types["__Schema"], "introspection types are added by the introspection wrapper")

	q := sch.GetQueryType()
	require.NotNil(t, q)
	var names []string
	for _, f := range q.Fields {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"authors", "creators"}, names)

	authors := sch.Field("Query", "authors")
	require.False(t, authors.Async)
	require.Equal(t, "[Author]", renderTypeRef(authors.Type))
	require.Len(t, authors.Arguments, 1)
	require.Equal(t, "[Creator!]!", renderTypeRef(sch.Field("Query", "creators").Type))

	alias := sch.Field("Author", "alias")
	require.True(t, alias.IsDeprecated)
	require.Equal(t, "use name", alias.DeprecationReason)

	filter := sch.Types["BookFilter"]
	require.Equal(t, TypeKindInputObject, filter.Kind)
	require.Nil(t, filter.InputFields[0].DefaultValue)
	require.Equal(t, int64(10), filter.InputFields[1].DefaultValue)

	require.Equal(t, []string{"Author"}, sch.Types["Creator"].PossibleTypes)
	require.Len(t, sch.Types["Genre"].EnumValues, 2)

	require.Contains(t, sch.Directives, "include")
	require.Contains(t, sch.Directives, "skip")
	require.NotContains(t, sch.Directives, "deprecated")
}

func TestBuildFromSDLInvalid(t *testing.T) {
	_, err := BuildFromSDL(`type Query { a: Missing }`)
	require.Error(t, err)

	_, err = BuildFromSDL(`type Author { id: ID }`)
	require.Error(t, err)
}

func TestSetFieldAsync(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)

	require.Empty(t, sch.AsyncFields())
	require.NoError(t, sch.SetFieldAsync("Query", "authors"))
	require.NoError(t, sch.SetFieldAsync("Author", "name"))
	require.True(t, sch.Field("Query", "authors").Async)
	require.False(t, sch.Field("Query", "creators").Async)
	require.Equal(t, []string{"Author.name", "Query.authors"}, sch.AsyncFields())

	require.Error(t, sch.SetFieldAsync("Query", "books"))
	require.Error(t, sch.SetFieldAsync("Book", "author"))
}

func TestRootTypesAndListElements(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)

	require.True(t, sch.IsRootType("Query"))
	require.False(t, sch.IsRootType("Author"))
	require.False(t, sch.IsRootType(""))

	cases := []struct {
		ref  *TypeRef
		elem string
		ok   bool
	}{
		{sch.Field("Query", "authors").Type, "Author", true},
		{sch.Field("Query", "creators").Type, "Creator", true},
		{sch.Field("Author", "name").Type, "", false},
		{ListType(ListType(NamedType("Int"))), "", false},
	}
	for _, tc := range cases {
		elem, ok := tc.ref.ListOf()
		require.Equal(t, tc.ok, ok, renderTypeRef(tc.ref))
		require.Equal(t, tc.elem, elem)
	}
}

func TestRender(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)

	want := `"""
A writer.
"""
type Author {
  id: ID!
  name: String
  alias: String @deprecated(reason: "use name")
}

input BookFilter {
  genre: Genre
  limit: Int = 10
}

union Creator = Author

enum Genre {
  FICTION
  ESSAY
}

type Query {
  authors(filter: BookFilter): [Author]
  creators: [Creator!]!
}
`
	if diff := cmp.Diff(want, Render(sch)); diff != "" {
		t.Errorf("rendered SDL mismatch (-want +got):\n%s", diff)
	}
}
