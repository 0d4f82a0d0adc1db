// Package server exposes the executor over HTTP following the GraphQL over
// HTTP conventions: POST with a JSON body (single or batched) and GET with
// query string parameters.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	eventbus "github.com/hanpama/bookgraph/internal/eventbus"
	events "github.com/hanpama/bookgraph/internal/events"
	executor "github.com/hanpama/bookgraph/internal/executor"
	language "github.com/hanpama/bookgraph/internal/language"
	reqid "github.com/hanpama/bookgraph/internal/reqid"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
type Handler struct {
	exec   *executor.Executor
	schema *schema.Schema
	opt    Options
}

type Options struct {
	// Timeout bounds each operation, including every entry of a batch, when
	// the incoming request context has no deadline. 0 means no timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses.
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// GraphiQL serves the in-browser IDE to GET requests accepting HTML.
	GraphiQL bool

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option   { return func(o *Options) { o.Timeout = d } }
func WithPretty(pretty bool) Option        { return func(o *Options) { o.Pretty = pretty } }
func WithMaxBodyBytes(n int64) Option      { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGraphiQL(enable bool) Option      { return func(o *Options) { o.GraphiQL = enable } }
func WithLogger(logger *zap.Logger) Option { return func(o *Options) { o.Logger = logger } }

// New creates a handler executing against runtime and sch. Queries are
// validated against sch.AST when it is set.
func New(runtime executor.Runtime, sch *schema.Schema, opts ...Option) *Handler {
	op := Options{GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	return &Handler{exec: executor.NewExecutor(runtime, sch), schema: sch, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, rid := reqid.NewContext(r.Context())
	w.Header().Set(reqid.Header, reqid.String(rid))
	log := h.opt.Logger.With(zap.String("request_id", reqid.String(rid)))

	status := http.StatusOK
	operations := 0
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Operations: operations, Duration: d})
		log.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", d))
	}()

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, POST")
		h.writeJSON(w, status, errorResult(&language.Error{Message: "method not allowed"}))
		return
	}

	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeJSON(w, status, errorResult(berr))
		return
	}

	if batch != nil {
		operations = len(batch)
		out := make([]result, len(batch))
		for i := range batch {
			out[i], _ = h.executeOne(ctx, log, batch[i])
		}
		h.writeJSON(w, status, out)
		return
	}
	operations = 1
	res, ok := h.executeOne(ctx, log, req)
	if !ok {
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, res)
}

// executeOne runs a single operation. ok is false when the document failed
// to parse or validate; a lone request then answers 400, a batch entry
// keeps the batch status.
func (h *Handler) executeOne(ctx context.Context, log *zap.Logger, req Request) (res result, ok bool) {
	doc, errs := h.load(req.Query)
	if len(errs) > 0 {
		log.Debug("rejected query", zap.Int("errors", len(errs)), zap.String("first", errs[0].Message))
		eventbus.Publish(ctx, events.GraphQLRejected{Query: req.Query, Errors: lo.Map(errs, func(e *language.Error, _ int) error { return e })})
		return errorResult(errs...), false
	}

	opType := ""
	var roots []string
	op := doc.Operations.ForName(req.OperationName)
	if op == nil && len(doc.Operations) == 1 && req.OperationName == "" {
		op = doc.Operations[0]
	}
	if op != nil {
		opType = string(op.Operation)
		roots = rootFields(doc, op.SelectionSet, map[string]bool{})
	}

	if _, bounded := ctx.Deadline(); !bounded && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType, RootFields: roots})
	exec := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	eventbus.Publish(ctx, events.GraphQLFinish{
		OperationName: req.OperationName,
		OperationType: opType,
		RootFields:    roots,
		Errors:        lo.Map(exec.Errors, func(e executor.GraphQLError, _ int) error { return e }),
		DataNull:      exec.Data == nil,
		Duration:      time.Since(start),
	})
	for _, e := range exec.Errors {
		log.Error("field error", zap.String("message", e.Message), zap.Any("path", e.Path))
	}
	return toResult(exec), true
}

// load parses the query and, when the schema carries its source AST,
// validates it. Invalid documents never reach the runtime.
func (h *Handler) load(query string) (*language.QueryDocument, language.ErrorList) {
	if h.schema.AST != nil {
		return language.LoadQuery(h.schema.AST, query)
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		if ge, ok := err.(*language.Error); ok {
			return nil, language.ErrorList{ge}
		}
		return nil, language.ErrorList{{Message: err.Error()}}
	}
	return doc, nil
}

// rootFields lists the distinct root field names a selection set reaches,
// following fragments. seen guards against fragment cycles in documents that
// were not validated.
func rootFields(doc *language.QueryDocument, set language.SelectionSet, seen map[string]bool) []string {
	var names []string
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			names = append(names, s.Name)
		case *language.InlineFragment:
			names = append(names, rootFields(doc, s.SelectionSet, seen)...)
		case *language.FragmentSpread:
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			if def := doc.Fragments.ForName(s.Name); def != nil {
				names = append(names, rootFields(doc, def.SelectionSet, seen)...)
			}
		}
	}
	return lo.Uniq(names)
}

func acceptsHTML(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") {
			return true
		}
	}
	return false
}
