package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/bookgraph/internal/eventbus"
	events "github.com/hanpama/bookgraph/internal/events"
	reqid "github.com/hanpama/bookgraph/internal/reqid"
)

func attr(span sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestSpansFollowRequestNesting(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := eventbus.New()
	detach := Attach(bus, tp)
	defer detach()

	ctx, _ := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Emit(ctx, bus, events.HTTPStart{Request: req})
	eventbus.Emit(ctx, bus, events.GraphQLRejected{Query: "{ publishers }", Errors: []error{errors.New("Cannot query field")}})
	eventbus.Emit(ctx, bus, events.GraphQLStart{OperationName: "Books", OperationType: "query", RootFields: []string{"books"}})
	eventbus.Emit(ctx, bus, events.ResolverStart{CallID: 7, ParentType: "Book", Field: "author", ReturnType: "Author"})
	eventbus.Emit(ctx, bus, events.ResolverStart{CallID: 8, ParentType: "Book", Field: "publisher", ReturnType: "Publisher"})
	eventbus.Emit(ctx, bus, events.ResolverFinish{CallID: 8, Found: true})
	eventbus.Emit(ctx, bus, events.ResolverFinish{CallID: 7, Found: false})
	eventbus.Emit(ctx, bus, events.GraphQLFinish{Errors: []error{errors.New("boom")}, DataNull: true})
	eventbus.Emit(ctx, bus, events.HTTPFinish{Request: req, Status: 200, Operations: 2})

	spans := rec.Ended()
	require.Len(t, spans, 4)
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = s
	}

	httpSpan := byName["http.request"]
	gqlSpan := byName["graphql.operation"]
	author := byName["graphql.resolve Book.author"]
	publisher := byName["graphql.resolve Book.publisher"]
	require.NotNil(t, httpSpan)
	require.NotNil(t, gqlSpan)
	require.NotNil(t, author)
	require.NotNil(t, publisher)

	assert.Equal(t, httpSpan.SpanContext().SpanID(), gqlSpan.Parent().SpanID())
	assert.Equal(t, gqlSpan.SpanContext().SpanID(), author.Parent().SpanID())
	assert.Equal(t, gqlSpan.SpanContext().SpanID(), publisher.Parent().SpanID())
	assert.Equal(t, httpSpan.SpanContext().TraceID(), author.SpanContext().TraceID())

	assert.Equal(t, "Author", attr(author, FieldTypeKey).AsString())
	assert.Equal(t, "Book", attr(author, FieldParentTypeKey).AsString())
	assert.False(t, attr(author, "graphql.field.found").AsBool())
	assert.True(t, attr(publisher, "graphql.field.found").AsBool())
	assert.Equal(t, int64(1), attr(gqlSpan, "graphql.error_count").AsInt64())
	assert.Equal(t, []string{"books"}, attr(gqlSpan, "graphql.root_fields").AsStringSlice())
	assert.True(t, attr(gqlSpan, "graphql.data_null").AsBool())
	assert.Equal(t, int64(200), attr(httpSpan, "http.status_code").AsInt64())
	assert.Equal(t, int64(2), attr(httpSpan, "graphql.operation_count").AsInt64())
	require.Len(t, httpSpan.Events(), 1)
	assert.Equal(t, "graphql.rejected", httpSpan.Events()[0].Name)
}

func TestRequestsDoNotShareSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := eventbus.New()
	defer Attach(bus, tp)()

	a, _ := reqid.NewContext(context.Background())
	b, _ := reqid.NewContext(context.Background())

	eventbus.Emit(a, bus, events.GraphQLStart{OperationName: "A"})
	eventbus.Emit(b, bus, events.GraphQLStart{OperationName: "B"})
	eventbus.Emit(b, bus, events.GraphQLFinish{})
	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "B", attr(rec.Ended()[0], "graphql.operation.name").AsString())

	eventbus.Emit(a, bus, events.GraphQLFinish{})
	require.Len(t, rec.Ended(), 2)
}

func TestDetachStopsRecording(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := eventbus.New()
	Attach(bus, tp)()

	ctx, _ := reqid.NewContext(context.Background())
	eventbus.Emit(ctx, bus, events.ResolverStart{CallID: 1})
	eventbus.Emit(ctx, bus, events.ResolverFinish{CallID: 1})
	assert.Empty(t, rec.Started())
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupRejectsUnknownProtocol(t *testing.T) {
	_, err := Setup(context.Background(), Config{Endpoint: "localhost:4317", Protocol: "carrier-pigeon"})
	require.Error(t, err)
}
