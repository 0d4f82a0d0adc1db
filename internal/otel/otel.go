// Package otel turns bus events into OpenTelemetry spans: one per HTTP
// request, one per GraphQL operation and one per resolver invocation.
package otel

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	eventbus "github.com/hanpama/bookgraph/internal/eventbus"
	events "github.com/hanpama/bookgraph/internal/events"
	reqid "github.com/hanpama/bookgraph/internal/reqid"
)

const instrumentationName = "github.com/hanpama/bookgraph"

// Span attribute keys shared with the alert rules generated by the alerts
// package.
const (
	FieldNameKey       = attribute.Key("graphql.field.name")
	FieldParentTypeKey = attribute.Key("graphql.field.parent_type")
	FieldTypeKey       = attribute.Key("graphql.field.type")
)

type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolGRPC Protocol = "grpc"
)

type Config struct {
	// Endpoint is the collector URL, e.g. http://localhost:4318/v1/traces
	// for HTTP or localhost:4317 for gRPC. Empty disables tracing.
	Endpoint string
	Protocol Protocol
	Service  string
	Insecure bool
}

// Setup installs a global tracer provider exporting over OTLP and attaches
// span subscribers to the global event bus. The returned function flushes
// and stops the exporter. With no endpoint configured nothing is installed.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.Service),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	detach := Attach(eventbus.Current(), tp)
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case ProtocolGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		}
		return otlptracegrpc.New(ctx, opts...)
	case ProtocolHTTP, "":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown protocol %q", cfg.Protocol)
	}
}

// Attach subscribes span recording to bus using tp and returns a function
// removing the subscriptions.
func Attach(bus *eventbus.Bus, tp trace.TracerProvider) (detach func()) {
	s := &subscriber{tracer: tp.Tracer(instrumentationName)}
	return s.register(bus)
}

type subscriber struct {
	tracer        trace.Tracer
	httpSpans     sync.Map // request id -> trace.Span
	gqlSpans      sync.Map // request id -> trace.Span
	resolverSpans sync.Map // call id -> trace.Span
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context) context.Context {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.gqlSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func end(m *sync.Map, key any, f func(trace.Span)) {
	v, ok := m.LoadAndDelete(key)
	if !ok {
		return
	}
	span := v.(trace.Span)
	f(span)
	span.End()
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	unsubs := []func(){
		eventbus.On(bus, func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(e.Request.Header))
			_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				semconv.HTTPTargetKey.String(e.Request.URL.Path),
				attribute.String("http.request_id", reqid.String(rid)),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			end(&s.httpSpans, rid, func(span trace.Span) {
				span.SetAttributes(
					semconv.HTTPStatusCodeKey.Int(e.Status),
					attribute.Int("graphql.operation_count", e.Operations),
				)
				if e.Status >= 500 {
					span.SetStatus(codes.Error, "")
				}
			})
		}),

		eventbus.On(bus, func(ctx context.Context, e events.GraphQLStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
				attribute.String("graphql.document", e.Query),
				attribute.StringSlice("graphql.root_fields", e.RootFields),
			)
			s.gqlSpans.Store(rid, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.GraphQLRejected) {
			rid, _ := reqid.FromContext(ctx)
			if v, ok := s.httpSpans.Load(rid); ok {
				msgs := make([]string, len(e.Errors))
				for i, err := range e.Errors {
					msgs[i] = err.Error()
				}
				v.(trace.Span).AddEvent("graphql.rejected", trace.WithAttributes(
					attribute.String("graphql.document", e.Query),
					attribute.StringSlice("graphql.errors", msgs),
				))
			}
		}),

		eventbus.On(bus, func(ctx context.Context, e events.GraphQLFinish) {
			rid, _ := reqid.FromContext(ctx)
			end(&s.gqlSpans, rid, func(span trace.Span) {
				span.SetAttributes(
					attribute.Int("graphql.error_count", len(e.Errors)),
					attribute.Bool("graphql.data_null", e.DataNull),
				)
				for _, err := range e.Errors {
					span.RecordError(err)
				}
				if len(e.Errors) > 0 {
					span.SetStatus(codes.Error, e.Errors[0].Error())
				}
			})
		}),

		eventbus.On(bus, func(ctx context.Context, e events.ResolverStart) {
			_, span := s.tracer.Start(s.parent(ctx), "graphql.resolve "+e.ParentType+"."+e.Field)
			span.SetAttributes(
				FieldNameKey.String(e.Field),
				FieldParentTypeKey.String(e.ParentType),
				FieldTypeKey.String(e.ReturnType),
			)
			s.resolverSpans.Store(e.CallID, span)
		}),

		eventbus.On(bus, func(_ context.Context, e events.ResolverFinish) {
			end(&s.resolverSpans, e.CallID, func(span trace.Span) {
				span.SetAttributes(attribute.Bool("graphql.field.found", e.Found))
			})
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
