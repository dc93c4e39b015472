package resttest

import (
	"regexp"
	"time"

	"github.com/vedsharma/drivethru/rest"
	"github.com/vedsharma/drivethru/transform"
)

// StatusNotDefined is the status message of responses created with
// AndReturn.
const StatusNotDefined = "NOT_DEFINED"

// Expectation is a recorded expectation: a URL and method matcher paired
// with a programmed reply. Builder methods return the expectation so calls
// can be chained.
type Expectation struct {
	pattern string
	regex   *regexp.Regexp
	method  *rest.Method

	// times is the number of remaining matches. -1 means unlimited.
	times int

	response *rest.Response
	err      error
	delay    time.Duration
}

// NewExpectation creates an expectation matching any URL and any method.
func NewExpectation() *Expectation {
	return newExpectation(nil, ".*", true)
}

func newExpectation(method *rest.Method, pattern string, isRegex bool) *Expectation {
	e := &Expectation{
		pattern: pattern,
		method:  method,
		times:   -1,
		delay:   -1,
	}
	if isRegex {
		e.regex = regexp.MustCompile(`^(?:` + pattern + `)$`)
	}
	return e
}

// Pattern returns the URL pattern or literal.
func (e *Expectation) Pattern() string { return e.pattern }

// Remaining returns the number of matches left, or -1 if unlimited.
func (e *Expectation) Remaining() int { return e.times }

// Matches reports whether a request for url with method would fire this
// expectation. Regex patterns must match the whole URL.
func (e *Expectation) Matches(url string, method rest.Method) bool {
	switch {
	case e.times == 0:
		return false
	case e.method != nil && *e.method != method:
		return false
	case e.regex != nil:
		return e.regex.MatchString(url)
	default:
		return e.pattern == url
	}
}

// Replay fires the expectation: it uses up one match, waits for the
// configured delay, then returns the programmed error or response. An
// expectation with no programmed reply returns an empty 200.
func (e *Expectation) Replay() (*rest.Response, error) {
	if e.times > 0 {
		e.times--
	}

	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	if e.err != nil {
		return nil, e.err
	}
	if e.response == nil {
		return rest.NewResponse(rest.StatusOK, StatusNotDefined), nil
	}
	return copyResponse(e.response), nil
}

func copyResponse(r *rest.Response) *rest.Response {
	out := rest.NewResponse(r.StatusCode, r.StatusMessage)
	for k, v := range r.Headers {
		out.Headers[k] = v
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

func (e *Expectation) ensureResponse() *rest.Response {
	if e.response == nil {
		e.response = rest.NewResponse(rest.StatusOK, StatusNotDefined)
	}
	return e.response
}

// AndReturn replies with statusCode and the message NOT_DEFINED.
func (e *Expectation) AndReturn(statusCode int) *Expectation {
	return e.AndReturnStatus(statusCode, StatusNotDefined)
}

// AndReturnStatus replies with the given status code and message.
func (e *Expectation) AndReturnStatus(statusCode int, statusMessage string) *Expectation {
	r := e.ensureResponse()
	r.StatusCode = statusCode
	r.StatusMessage = statusMessage
	return e
}

// WithBody sets the reply body and its Content-Type.
func (e *Expectation) WithBody(body []byte, contentType string) *Expectation {
	r := e.ensureResponse()
	r.SetBody(body)
	r.AddHeader(rest.HeaderContentType, contentType)
	return e
}

// WithBodyString is WithBody for a string body.
func (e *Expectation) WithBodyString(body, contentType string) *Expectation {
	return e.WithBody([]byte(body), contentType)
}

// WithJSONBody serializes v as the JSON reply body. If v cannot be
// serialized the expectation replies with that error instead.
func (e *Expectation) WithJSONBody(v any) *Expectation {
	return e.withEncodedBody(transform.JSON(), v)
}

// WithYAMLBody serializes v as the YAML reply body.
func (e *Expectation) WithYAMLBody(v any) *Expectation {
	return e.withEncodedBody(transform.YAML(), v)
}

func (e *Expectation) withEncodedBody(t transform.Transformer, v any) *Expectation {
	body, err := t.Write(v)
	if err != nil {
		e.err = &rest.HTTPError{Message: "failed to serialize mock body", Cause: err}
		return e
	}
	return e.WithBody(body, t.MIME())
}

// WithHeader adds a reply header.
func (e *Expectation) WithHeader(name, value string) *Expectation {
	e.ensureResponse().AddHeader(name, value)
	return e
}

// AndThrow makes the expectation fail with err instead of replying.
func (e *Expectation) AndThrow(err error) *Expectation {
	e.err = err
	return e
}

// Err returns the programmed error, if any.
func (e *Expectation) Err() error { return e.err }

// After delays the reply by d.
func (e *Expectation) After(d time.Duration) *Expectation {
	e.delay = d
	return e
}

// Once limits the expectation to a single match.
func (e *Expectation) Once() *Expectation {
	return e.Times(1)
}

// Times limits the expectation to n matches.
func (e *Expectation) Times(n int) *Expectation {
	e.times = n
	return e
}
