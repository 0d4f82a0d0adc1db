package bookrt

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	executor "github.com/hanpama/bookgraph/internal/executor"
	library "github.com/hanpama/bookgraph/internal/library"
)

// ErrUnexpectedSource is returned when a field is resolved against a parent
// value of the wrong Go type.
var ErrUnexpectedSource = errors.New("unexpected source value")

// Runtime implements executor.Runtime over a library.Resolver.
type Runtime struct {
	resolver       *library.Resolver
	maxConcurrency int
}

type Option func(*Runtime)

// WithMaxConcurrency bounds the async tasks of one batch running at once.
// Zero or less means unbounded.
func WithMaxConcurrency(n int) Option { return func(r *Runtime) { r.maxConcurrency = n } }

func NewRuntime(resolver *library.Resolver, opts ...Option) *Runtime {
	r := &Runtime{resolver: resolver}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ executor.Runtime = (*Runtime)(nil)

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	switch objectType {
	case "Query":
		switch field {
		case "books":
			return r.resolver.ResolveBooks(ctx), nil
		case "authors":
			return r.resolver.ResolveAuthors(ctx), nil
		case "publisers":
			return nil, nil
		}
	case "Book":
		b, err := asBook(source)
		if err != nil {
			return nil, err
		}
		switch field {
		case "id":
			return b.ID, nil
		case "title":
			return b.Title, nil
		}
	case "Author":
		a, err := asAuthor(source)
		if err != nil {
			return nil, err
		}
		switch field {
		case "id":
			return a.ID, nil
		case "name":
			return a.Name, nil
		}
	case "Publisher":
		p, err := asPublisher(source)
		if err != nil {
			return nil, err
		}
		switch field {
		case "id":
			return p.ID, nil
		case "name":
			return p.Name, nil
		}
	}
	return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
}

// BatchResolveAsync runs every task of the batch concurrently and waits for
// all of them, so a depth costs about as long as its slowest task.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	var g errgroup.Group
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	for i, task := range tasks {
		g.Go(func() error {
			v, err := r.resolveAsync(ctx, task)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) resolveAsync(ctx context.Context, task executor.AsyncResolveTask) (any, error) {
	if task.ObjectType != "Book" {
		return nil, fmt.Errorf("no async resolver for %s.%s", task.ObjectType, task.Field)
	}
	b, err := asBook(task.Source)
	if err != nil {
		return nil, err
	}
	switch task.Field {
	case "author":
		return r.resolver.ResolveBookAuthor(ctx, b), nil
	case "publisher":
		return r.resolver.ResolveBookPublisher(ctx, b), nil
	}
	return nil, fmt.Errorf("no async resolver for Book.%s", task.Field)
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return "", fmt.Errorf("schema declares no abstract type %s", abstractType)
}

func (r *Runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "ID", "String":
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case "Int":
		switch v := value.(type) {
		case int:
			return int32(v), nil
		case int32:
			return v, nil
		case int64:
			return int32(v), nil
		}
	case "Float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		}
	default:
		return value, nil
	}
	return nil, fmt.Errorf("cannot serialize %T as %s", value, typeName)
}

// Parents arrive as list elements (values) or relation results (pointers).

func asBook(source any) (library.Book, error) {
	return as[library.Book]("Book", source)
}

func asAuthor(source any) (library.Author, error) {
	return as[library.Author]("Author", source)
}

func asPublisher(source any) (library.Publisher, error) {
	return as[library.Publisher]("Publisher", source)
}

func as[T any](typeName string, source any) (T, error) {
	switch v := source.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s from %T", ErrUnexpectedSource, typeName, source)
}
