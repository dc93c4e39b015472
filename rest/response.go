package rest

import (
	"net/http"
	"strings"
)

// Response is the normalized result of executing a Request.
type Response struct {
	StatusCode    int
	StatusMessage string
	Headers       map[string]string

	// Body is nil when the response had no entity.
	Body []byte
}

// NewResponse creates a response with the given status and no headers or
// body.
func NewResponse(statusCode int, statusMessage string) *Response {
	return &Response{
		StatusCode:    statusCode,
		StatusMessage: statusMessage,
		Headers:       make(map[string]string),
	}
}

// AddHeader sets a header, replacing an earlier value with the same name.
func (r *Response) AddHeader(name, value string) {
	r.Headers[name] = value
}

// SetBody sets the response entity.
func (r *Response) SetBody(body []byte) {
	r.Body = body
}

// Header returns the value of the named header, or "" if absent. The name
// is tried as given and then in canonical form.
func (r *Response) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	return r.Headers[http.CanonicalHeaderKey(name)]
}

// ContentType returns the Content-Type header without any parameters such
// as charset, or "" if the header is absent.
func (r *Response) ContentType() string {
	value := r.Header(HeaderContentType)
	if i := strings.IndexByte(value, ';'); i >= 0 {
		return value[:i]
	}
	return value
}

// BodyString returns the body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}
