package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bookrt "github.com/hanpama/bookgraph/internal/bookrt"
	config "github.com/hanpama/bookgraph/internal/config"
	eventbus "github.com/hanpama/bookgraph/internal/eventbus"
	executor "github.com/hanpama/bookgraph/internal/executor"
	introspection "github.com/hanpama/bookgraph/internal/introspection"
	library "github.com/hanpama/bookgraph/internal/library"
	logging "github.com/hanpama/bookgraph/internal/logging"
	metrics "github.com/hanpama/bookgraph/internal/metrics"
	otel "github.com/hanpama/bookgraph/internal/otel"
	reqid "github.com/hanpama/bookgraph/internal/reqid"
	server "github.com/hanpama/bookgraph/internal/server"
)

// serveFlags holds command-line overrides. A flag only replaces the file
// value when it was set explicitly.
type serveFlags struct {
	configPath     string
	addr           string
	pretty         bool
	timeout        time.Duration
	graphiql       bool
	introspection  bool
	seed           string
	authorDelay    time.Duration
	publisherDelay time.Duration
	maxConcurrency int
	otelEndpoint   string
	otelProtocol   string
	otelService    string
	logLevel       string
	logFormat      string
}

func newServeCmd(run func(context.Context, config.Config) error) *cobra.Command {
	var f serveFlags
	def := config.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			f.apply(&cfg, cmd.Flags().Changed)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.addr, "addr", def.Server.Addr, "HTTP listen address")
	fs.BoolVar(&f.pretty, "pretty", def.Server.Pretty, "pretty-print JSON responses")
	fs.DurationVar(&f.timeout, "timeout", def.Server.Timeout, "per-operation timeout, 0 disables")
	fs.BoolVar(&f.graphiql, "graphiql", def.Server.GraphiQL, "serve GraphiQL to browsers on GET /graphql")
	fs.BoolVar(&f.introspection, "introspection", def.Server.Introspection, "enable GraphQL introspection")
	fs.StringVar(&f.seed, "seed", "", "YAML file replacing the built-in records")
	fs.DurationVar(&f.authorDelay, "resolver.author-delay", def.Resolver.AuthorDelay, "simulated latency of Book.author")
	fs.DurationVar(&f.publisherDelay, "resolver.publisher-delay", def.Resolver.PublisherDelay, "simulated latency of Book.publisher")
	fs.IntVar(&f.maxConcurrency, "resolver.max-concurrency", def.Resolver.MaxConcurrency, "max concurrent relation lookups per batch, 0 for unbounded")
	fs.StringVar(&f.otelEndpoint, "otel.endpoint", def.OTel.Endpoint, "OTLP collector endpoint, empty disables tracing")
	fs.StringVar(&f.otelProtocol, "otel.protocol", def.OTel.Protocol, "OTLP protocol: http or grpc")
	fs.StringVar(&f.otelService, "otel.service", def.OTel.Service, "OpenTelemetry service name")
	fs.StringVar(&f.logLevel, "log.level", def.Log.Level, "log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log.format", def.Log.Format, "log format: console or json")
	return cmd
}

func (f *serveFlags) apply(cfg *config.Config, changed func(string) bool) {
	if changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if changed("pretty") {
		cfg.Server.Pretty = f.pretty
	}
	if changed("timeout") {
		cfg.Server.Timeout = f.timeout
	}
	if changed("graphiql") {
		cfg.Server.GraphiQL = f.graphiql
	}
	if changed("introspection") {
		cfg.Server.Introspection = f.introspection
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("resolver.author-delay") {
		cfg.Resolver.AuthorDelay = f.authorDelay
	}
	if changed("resolver.publisher-delay") {
		cfg.Resolver.PublisherDelay = f.publisherDelay
	}
	if changed("resolver.max-concurrency") {
		cfg.Resolver.MaxConcurrency = f.maxConcurrency
	}
	if changed("otel.endpoint") {
		cfg.OTel.Endpoint = f.otelEndpoint
	}
	if changed("otel.protocol") {
		cfg.OTel.Protocol = f.otelProtocol
	}
	if changed("otel.service") {
		cfg.OTel.Service = f.otelService
	}
	if changed("log.level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log.format") {
		cfg.Log.Format = f.logFormat
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("GraphQL server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.Duration("author_delay", cfg.Resolver.AuthorDelay),
		zap.Duration("publisher_delay", cfg.Resolver.PublisherDelay),
		zap.String("otel_endpoint", cfg.OTel.Endpoint))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type app struct {
	handler http.Handler
	close   func(context.Context) error
}

// newApp wires the store, runtime, telemetry and HTTP routes. It installs a
// fresh global event bus; close detaches the subscribers and flushes traces.
func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	seed := library.DefaultSeed()
	if cfg.Seed != "" {
		var err error
		if seed, err = library.LoadSeed(cfg.Seed); err != nil {
			return nil, err
		}
	}
	store, err := library.NewStore(seed)
	if err != nil {
		return nil, err
	}
	resolver := library.NewResolver(store,
		library.WithDelays(cfg.Delays()),
		library.WithHook(bookrt.EventHook()))

	var runtime executor.Runtime = bookrt.NewRuntime(resolver, bookrt.WithMaxConcurrency(cfg.Resolver.MaxConcurrency))
	sch, err := bookrt.NewSchema()
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	log.Debug("schema built", zap.Strings("batched_fields", sch.AsyncFields()))
	if cfg.Server.Introspection {
		w, err := introspection.Wrap(runtime, sch)
		if err != nil {
			return nil, fmt.Errorf("introspection: %w", err)
		}
		runtime, sch = w.Runtime, w.Schema
	}

	bus := eventbus.New()
	eventbus.Use(bus)
	shutdownTracing, err := otel.Setup(ctx, otel.Config{
		Endpoint: cfg.OTel.Endpoint,
		Protocol: otel.Protocol(cfg.OTel.Protocol),
		Service:  cfg.OTel.Service,
		Insecure: cfg.OTel.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc, err := metrics.NewCollector(reg)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}
	detachMetrics := mc.Attach(bus)

	gql := server.New(runtime, sch,
		server.WithTimeout(cfg.Server.Timeout),
		server.WithPretty(cfg.Server.Pretty),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Traceparent", "Tracestate", "Baggage"},
		ExposedHeaders: []string{reqid.Header},
		MaxAge:         300,
	}))
	r.Handle("/graphql", gql)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})

	return &app{
		handler: r,
		close: func(ctx context.Context) error {
			detachMetrics()
			err := shutdownTracing(ctx)
			eventbus.Use(nil)
			return err
		},
	}, nil
}
