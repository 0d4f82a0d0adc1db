package bookrt

import (
	"context"
	"sync/atomic"
	"time"

	eventbus "github.com/hanpama/bookgraph/internal/eventbus"
	events "github.com/hanpama/bookgraph/internal/events"
	library "github.com/hanpama/bookgraph/internal/library"
)

var callSeq atomic.Uint64

// EventHook reports every resolver invocation on the global event bus as a
// ResolverStart/ResolverFinish pair. Nothing is published while no bus is
// installed.
func EventHook() library.Hook {
	return func(ctx context.Context, f library.Field) func(bool) {
		id := callSeq.Add(1)
		start := time.Now()
		eventbus.Publish(ctx, events.ResolverStart{
			CallID:     id,
			ParentType: f.ParentType,
			Field:      f.Name,
			ReturnType: f.ReturnType,
		})
		return func(found bool) {
			eventbus.Publish(ctx, events.ResolverFinish{
				CallID:     id,
				ParentType: f.ParentType,
				Field:      f.Name,
				ReturnType: f.ReturnType,
				Found:      found,
				Duration:   time.Since(start),
			})
		}
	}
}
