package library

import (
	"context"
	"time"
)

// Reference latencies injected before relation lookups.
const (
	DefaultAuthorDelay    = 1000 * time.Millisecond
	DefaultPublisherDelay = 2500 * time.Millisecond
)

// Delays configures the latency injected by the relation resolvers. Zero
// disables the wait.
type Delays struct {
	Author    time.Duration
	Publisher time.Duration
}

// DefaultDelays returns the reference latencies.
func DefaultDelays() Delays {
	return Delays{Author: DefaultAuthorDelay, Publisher: DefaultPublisherDelay}
}

// Field identifies a resolver for observers.
type Field struct {
	ParentType string // GraphQL parent type, e.g. "Book"
	Name       string // field name, e.g. "author"
	ReturnType string // GraphQL return type, e.g. "Author" or "[Book]"
}

var (
	FieldBooks         = Field{ParentType: "Query", Name: "books", ReturnType: "[Book]"}
	FieldAuthors       = Field{ParentType: "Query", Name: "authors", ReturnType: "[Author]"}
	FieldBookAuthor    = Field{ParentType: "Book", Name: "author", ReturnType: "Author"}
	FieldBookPublisher = Field{ParentType: "Book", Name: "publisher", ReturnType: "Publisher"}
)

// Hook observes a resolver invocation. It is called before the resolver runs
// and the returned function, if non-nil, after it finishes with whether a
// value was found.
type Hook func(ctx context.Context, f Field) (done func(found bool))

// Resolver joins books to their authors and publishers. It has no mutable
// state and may be shared by concurrent requests.
type Resolver struct {
	store  *Store
	delays Delays
	hook   Hook
	sleep  func(time.Duration)
}

type ResolverOption func(*Resolver)

// WithDelays overrides the injected latencies.
func WithDelays(d Delays) ResolverOption { return func(r *Resolver) { r.delays = d } }

// WithHook installs an observer around every resolution.
func WithHook(h Hook) ResolverOption { return func(r *Resolver) { r.hook = h } }

func NewResolver(store *Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, delays: DefaultDelays(), sleep: time.Sleep}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Delays returns the configured latencies.
func (r *Resolver) Delays() Delays { return r.delays }

// ResolveBooks returns every book in store order.
func (r *Resolver) ResolveBooks(ctx context.Context) []Book {
	done := r.observe(ctx, FieldBooks)
	books := r.store.Books()
	done(true)
	return books
}

// ResolveAuthors returns every author in store order.
func (r *Resolver) ResolveAuthors(ctx context.Context) []Author {
	done := r.observe(ctx, FieldAuthors)
	authors := r.store.Authors()
	done(true)
	return authors
}

// ResolveBookAuthor waits for the author delay and returns the author
// referenced by book, or nil. The wait is not interrupted by ctx.
func (r *Resolver) ResolveBookAuthor(ctx context.Context, book Book) *Author {
	done := r.observe(ctx, FieldBookAuthor)
	r.wait(r.delays.Author)
	a, ok := r.store.FindAuthorByID(book.AuthorID)
	done(ok)
	if !ok {
		return nil
	}
	return &a
}

// ResolveBookPublisher waits for the publisher delay and returns the
// publisher referenced by book, or nil. The wait is not interrupted by ctx.
func (r *Resolver) ResolveBookPublisher(ctx context.Context, book Book) *Publisher {
	done := r.observe(ctx, FieldBookPublisher)
	r.wait(r.delays.Publisher)
	p, ok := r.store.FindPublisherByID(book.PublisherID)
	done(ok)
	if !ok {
		return nil
	}
	return &p
}

func (r *Resolver) wait(d time.Duration) {
	if d > 0 {
		r.sleep(d)
	}
}

func (r *Resolver) observe(ctx context.Context, f Field) func(bool) {
	if r.hook == nil {
		return func(bool) {}
	}
	if done := r.hook(ctx, f); done != nil {
		return done
	}
	return func(bool) {}
}
