package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/bookgraph/internal/eventbus"
	events "github.com/hanpama/bookgraph/internal/events"
)

func TestCollectorCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	bus := eventbus.New()
	detach := c.Attach(bus)

	ctx := context.Background()
	req := httptest.NewRequest("POST", "/graphql", nil)
	eventbus.Emit(ctx, bus, events.HTTPFinish{Request: req, Status: 200, Duration: 30 * time.Millisecond})
	eventbus.Emit(ctx, bus, events.HTTPFinish{Request: req, Status: 200, Duration: 10 * time.Millisecond})
	eventbus.Emit(ctx, bus, events.GraphQLFinish{OperationType: "query", RootFields: []string{"books", "authors"}, Errors: []error{errors.New("a"), errors.New("b")}})
	eventbus.Emit(ctx, bus, events.GraphQLFinish{OperationType: "query", RootFields: []string{"books"}})
	eventbus.Emit(ctx, bus, events.GraphQLRejected{Query: "{ publishers }"})
	eventbus.Emit(ctx, bus, events.ResolverFinish{ParentType: "Book", Field: "author", Found: true, Duration: time.Second})
	eventbus.Emit(ctx, bus, events.ResolverFinish{ParentType: "Book", Field: "author", Found: false, Duration: time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Operations.WithLabelValues("query")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.RootFields.WithLabelValues("books")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RootFields.WithLabelValues("authors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Rejected))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.OperationErrors.WithLabelValues("query")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.ResolverDuration))

	detach()
	eventbus.Emit(ctx, bus, events.HTTPFinish{Request: req, Status: 200})
	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "200")))
}

func TestNewCollectorRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	require.Error(t, err)
}
