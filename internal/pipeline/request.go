package pipeline

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/url"
	"slices"

	"github.com/sipwell/sipwell-client/internal/payloads"
)

// Request is a buffered outgoing request. Because the body is kept in memory the same
// request can be mutated and sent again.
type Request struct {
	Method string
	// Path is resolved against the base URL of the client unless it is an absolute URL
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	retried bool
}

func NewRequest(method, path string, body []byte) *Request {
	return &Request{Method: method, Path: path, Header: http.Header{}, Body: body}
}

// NewJSONRequest encodes in as the request body, a nil value sends no body.
func NewJSONRequest(method, path string, in any) (*Request, error) {
	req := NewRequest(method, path, nil)
	if in == nil {
		return req, nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req.Body = body
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Clone returns a deep copy, the retry mark is carried over.
func (r *Request) Clone() *Request {
	output := *r
	output.Header = r.Header.Clone()
	if output.Header == nil {
		output.Header = http.Header{}
	}
	if r.Query != nil {
		output.Query = maps.Clone(r.Query)
		for k, v := range output.Query {
			output.Query[k] = slices.Clone(v)
		}
	}
	output.Body = slices.Clone(r.Body)
	return &output
}

// MarkRetried records that the request has been resubmitted once already.
func (r *Request) MarkRetried() {
	r.retried = true
}

func (r *Request) Retried() bool {
	return r.retried
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Request is the request that produced this response, as it was sent
	Request *Request
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body into v, an empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Message is the error message the backend put in the body.
func (r *Response) Message() string {
	return payloads.ExtractMessage(r.Body)
}
