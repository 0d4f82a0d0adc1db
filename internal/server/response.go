package server

import (
	"fmt"
	"net/http"

	executor "github.com/hanpama/bookgraph/internal/executor"
	language "github.com/hanpama/bookgraph/internal/language"
)

type location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type responseError struct {
	Message    string         `json:"message"`
	Locations  []location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// result is the wire form of a response. data is always present, null when
// the request failed before execution.
type result struct {
	Data   any             `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

func errorResult(errs ...*language.Error) result {
	out := result{Errors: make([]responseError, len(errs))}
	for i, e := range errs {
		re := responseError{Message: e.Message, Extensions: e.Extensions}
		for _, l := range e.Locations {
			re.Locations = append(re.Locations, location{Line: l.Line, Column: l.Column})
		}
		out.Errors[i] = re
	}
	return out
}

func toResult(res *executor.ExecutionResult) result {
	out := result{Data: res.Data}
	for _, e := range res.Errors {
		re := responseError{Message: e.Message, Extensions: e.Extensions}
		for _, pe := range e.Path {
			switch v := pe.(type) {
			case string, int:
				re.Path = append(re.Path, v)
			default:
				re.Path = append(re.Path, fmt.Sprint(v))
			}
		}
		out.Errors = append(out.Errors, re)
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
