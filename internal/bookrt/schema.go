// Package bookrt binds the library resolvers to the GraphQL executor.
package bookrt

import (
	_ "embed"
	"fmt"

	schema "github.com/hanpama/bookgraph/internal/schema"
)

// SDL is the served schema. The publisers root field is spelled as clients
// know it and has no resolver.
//
//go:embed schema.graphql
var SDL string

// asyncFields are resolved in depth-wise batches because they wait on the
// injected latency.
var asyncFields = [][2]string{
	{"Book", "author"},
	{"Book", "publisher"},
}

// NewSchema builds the executable schema from SDL.
func NewSchema() (*schema.Schema, error) {
	sch, err := schema.BuildFromNamedSDL("schema.graphql", SDL)
	if err != nil {
		return nil, err
	}
	for _, f := range asyncFields {
		if err := sch.SetFieldAsync(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("mark %s.%s async: %w", f[0], f[1], err)
		}
	}
	return sch, nil
}
