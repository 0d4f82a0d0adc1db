package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL endpoint receives a request. The
// publishing context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published after the response is written. Operations counts
// the executed and rejected operations: 0 when the body was unusable, more
// than 1 for a batch.
type HTTPFinish struct {
	Request    *http.Request
	Status     int
	Operations int
	Duration   time.Duration
}
