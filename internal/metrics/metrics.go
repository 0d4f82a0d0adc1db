// Package metrics exports Prometheus metrics derived from bus events.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	eventbus "github.com/hanpama/bookgraph/internal/eventbus"
	events "github.com/hanpama/bookgraph/internal/events"
)

const namespace = "bookgraph"

// Collector holds the metrics of one registry.
type Collector struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Operations       *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
	RootFields       *prometheus.CounterVec
	Rejected         prometheus.Counter
	ResolverDuration *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method and status.",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphql_operations_total",
				Help:      "Executed GraphQL operations by type.",
			},
			[]string{"type"},
		),
		OperationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphql_errors_total",
				Help:      "Located errors returned by executed operations.",
			},
			[]string{"type"},
		),
		RootFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphql_root_fields_total",
				Help:      "Root fields selected by executed operations.",
			},
			[]string{"field"},
		),
		Rejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphql_rejected_total",
				Help:      "Documents that failed to parse or validate.",
			},
		),
		// Buckets reach past the slowest injected resolver delay.
		ResolverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolver_duration_seconds",
				Help:      "Field resolver latency.",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 1.5, 2.5, 5, 10},
			},
			[]string{"parent_type", "field", "found"},
		),
	}
	for _, col := range []prometheus.Collector{c.HTTPRequests, c.HTTPDuration, c.Operations, c.OperationErrors, c.RootFields, c.Rejected, c.ResolverDuration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Attach updates c from events published on bus and returns a function
// removing the subscriptions.
func (c *Collector) Attach(bus *eventbus.Bus) (detach func()) {
	unsubs := []func(){
		eventbus.On(bus, func(_ context.Context, e events.HTTPFinish) {
			c.HTTPRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			c.HTTPDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.On(bus, func(_ context.Context, e events.GraphQLFinish) {
			c.Operations.WithLabelValues(e.OperationType).Inc()
			if n := len(e.Errors); n > 0 {
				c.OperationErrors.WithLabelValues(e.OperationType).Add(float64(n))
			}
			for _, f := range e.RootFields {
				c.RootFields.WithLabelValues(f).Inc()
			}
		}),
		eventbus.On(bus, func(context.Context, events.GraphQLRejected) {
			c.Rejected.Inc()
		}),
		eventbus.On(bus, func(_ context.Context, e events.ResolverFinish) {
			c.ResolverDuration.
				WithLabelValues(e.ParentType, e.Field, strconv.FormatBool(e.Found)).
				Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
