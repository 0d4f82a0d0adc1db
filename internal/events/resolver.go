package events

import "time"

// ResolverStart is emitted before a bound field resolver runs. CallID pairs
// it with the matching ResolverFinish since resolvers of one request may run
// concurrently.
type ResolverStart struct {
	CallID     uint64
	ParentType string
	Field      string
	ReturnType string
}

// ResolverFinish is emitted after a bound field resolver returns.
type ResolverFinish struct {
	CallID     uint64
	ParentType string
	Field      string
	ReturnType string
	Found      bool
	Duration   time.Duration
}
