package model

import (
	"strings"
	"time"

	"github.com/vedsharma/drivethru/rest"
	"github.com/vedsharma/drivethru/resttest"
	"github.com/vedsharma/drivethru/resturl"
)

// Entry is one executed request and the response it produced.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	Response  *Response         `json:"response,omitempty"`

	// Accepted is the verb policy verdict, nil when the policy was not
	// checked or the status was rejected outright.
	Accepted *bool `json:"accepted,omitempty"`
}

// Response is the stored form of a rest.Response.
type Response struct {
	StatusCode    int               `json:"status_code"`
	StatusMessage string            `json:"status_message"`
	Headers       map[string]string `json:"headers"`
	Body          string            `json:"body"`
	DurationMs    int64             `json:"duration_ms"`
}

// NewEntry records req, sent to the resolved url, and resp.
func NewEntry(id string, at time.Time, req *rest.Request, url string, resp *rest.Response, took time.Duration) Entry {
	e := Entry{
		ID:        id,
		Timestamp: at,
		Method:    req.Method.String(),
		URL:       url,
		Headers:   req.Headers,
		Body:      string(req.Body),
	}
	if resp != nil {
		e.Response = &Response{
			StatusCode:    resp.StatusCode,
			StatusMessage: resp.StatusMessage,
			Headers:       resp.Headers,
			Body:          resp.BodyString(),
			DurationMs:    took.Milliseconds(),
		}
	}
	return e
}

// Exchange converts the entry to a replayable fixture. ok is false when the
// entry has no response.
func (e Entry) Exchange() (ex resttest.Exchange, ok bool) {
	if e.Response == nil {
		return ex, false
	}
	ex.Request = resttest.ExchangeRequest{
		URL:     e.URL,
		Method:  strings.ToUpper(e.Method),
		Headers: e.Headers,
	}
	ex.Response = resttest.ExchangeResponse{
		StatusCode:    e.Response.StatusCode,
		StatusMessage: e.Response.StatusMessage,
		Headers:       e.Response.Headers,
		BodyString:    e.Response.Body,
	}
	return ex, true
}

// SavedRequest is a request stored in a collection, without a response.
type SavedRequest struct {
	Name    string            `json:"name"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// Request rebuilds the executable request for target. A nil target uses
// the stored URL as is.
func (s SavedRequest) Request(target *resturl.URL) (*rest.Request, error) {
	m, err := rest.ParseMethod(s.Method)
	if err != nil {
		return nil, err
	}
	if target == nil {
		target = resturl.NewWithBase(s.URL)
	}
	req := rest.NewURLRequest(target, m)
	for k, v := range s.Headers {
		req.AddHeader(k, v)
	}
	if s.Body != "" {
		req.SetBodyString(s.Body)
	}
	return req, nil
}

// Collection is a named, ordered group of saved requests.
type Collection struct {
	Name     string         `json:"name"`
	Requests []SavedRequest `json:"requests"`
}
