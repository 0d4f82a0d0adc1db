package server

import (
	"io"
	"mime"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	language "github.com/hanpama/bookgraph/internal/language"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const errBodyTooLargeMessage = "body too large"

// Request is one GraphQL operation request.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// parseRequest reads either a single request or a batch. Exactly one of the
// first two results is meaningful when the error is nil.
func parseRequest(r *http.Request, maxBody int64) (Request, []Request, *language.Error) {
	if r.Method == http.MethodGet {
		return parseQueryString(r)
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return Request{}, nil, &language.Error{Message: "unsupported Content-Type"}
		}
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Request{}, nil, &language.Error{Message: "failed to read body"}
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return Request{}, nil, &language.Error{Message: errBodyTooLargeMessage}
	}

	if len(body) > 0 && body[0] == '[' {
		var batch []Request
		if err := json.Unmarshal(body, &batch); err != nil {
			return Request{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if len(batch) == 0 {
			return Request{}, nil, &language.Error{Message: "empty batch"}
		}
		for _, req := range batch {
			if req.Query == "" {
				return Request{}, nil, &language.Error{Message: "missing 'query'"}
			}
		}
		return Request{}, batch, nil
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, nil, &language.Error{Message: "invalid JSON"}
	}
	if req.Query == "" {
		return Request{}, nil, &language.Error{Message: "missing 'query'"}
	}
	return req, nil, nil
}

func parseQueryString(r *http.Request) (Request, []Request, *language.Error) {
	q := r.URL.Query()
	req := Request{Query: q.Get("query"), OperationName: q.Get("operationName")}
	if req.Query == "" {
		return Request{}, nil, &language.Error{Message: "missing 'query'"}
	}
	if v := q.Get("variables"); v != "" {
		if err := json.UnmarshalFromString(v, &req.Variables); err != nil {
			return Request{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
		}
	}
	return req, nil, nil
}
