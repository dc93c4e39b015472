package rest

import (
	"time"

	"github.com/vedsharma/drivethru/resturl"
)

// HeaderContentType is the name of the Content-Type header.
const HeaderContentType = "Content-Type"

// Request is a single HTTP request to execute. It is owned by the caller
// until handed to an Executor and should not be reused afterwards.
type Request struct {
	URL     *resturl.URL
	Method  Method
	Headers map[string]string
	Body    []byte

	// Timeout bounds the whole exchange. Zero means no per-request limit.
	Timeout time.Duration

	// DisableRedirects makes the executor return 3xx responses as is.
	DisableRedirects bool
}

// NewRequest creates a request for a path relative to the executor's default
// base URL.
func NewRequest(path string, method Method) *Request {
	return NewURLRequest(resturl.New().SetPath(path), method)
}

// NewURLRequest creates a request for the given URL.
func NewURLRequest(u *resturl.URL, method Method) *Request {
	return &Request{
		URL:     u,
		Method:  method,
		Headers: make(map[string]string),
	}
}

// AddHeader sets a header, replacing any previous value with the same name.
func (r *Request) AddHeader(name, value string) {
	r.Headers[name] = value
}

// AddQuery appends a query parameter to the request URL.
func (r *Request) AddQuery(key, value string) {
	r.URL.AddQuery(key, value)
}

// SetContentType sets the Content-Type header.
func (r *Request) SetContentType(contentType string) {
	r.Headers[HeaderContentType] = contentType
}

// SetBody sets the request entity.
func (r *Request) SetBody(body []byte) {
	r.Body = body
}

// SetBodyString sets the request entity from a string.
func (r *Request) SetBodyString(body string) {
	r.Body = []byte(body)
}

// SetTimeout sets the per-request timeout.
func (r *Request) SetTimeout(timeout time.Duration) {
	r.Timeout = timeout
}

// SetRedirectsEnabled toggles redirect following for this request.
func (r *Request) SetRedirectsEnabled(enabled bool) {
	r.DisableRedirects = !enabled
}
