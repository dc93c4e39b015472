// Package resttest provides a replaying rest.Executor and mock clients for
// testing code that talks to REST services without a network.
//
// Expectations are registered on a Recorder and matched in registration
// order; the first live expectation that matches a request fires.
//
//	mock := resttest.NewMockClient("http://cheezburger.com")
//	mock.ExpectMethodPattern(rest.GET, ".*/stuff").AndReturn(200).WithJSONBody(stuff)
//	err := mock.Get(ctx, "/stuff", &got)
package resttest

import (
	"fmt"
	"testing"

	"github.com/vedsharma/drivethru/rest"
	"github.com/vedsharma/drivethru/resturl"
)

// NoMatchError is returned when no live expectation matches a request. It
// deliberately does not match rest.ErrHTTP.
type NoMatchError struct {
	URL    string
	Method rest.Method
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("No response recorded for URL: %s", e.URL)
}

// Recorder holds expectations in registration order. It is not safe for
// concurrent registration and replay.
type Recorder struct {
	expectations []*Expectation
	t            testing.TB
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Bind makes unmatched requests fail t in addition to returning a
// NoMatchError.
func (r *Recorder) Bind(t testing.TB) *Recorder {
	r.t = t
	return r
}

func (r *Recorder) add(e *Expectation) *Expectation {
	r.expectations = append(r.expectations, e)
	return e
}

// Expect registers an expectation matching any request.
func (r *Recorder) Expect() *Expectation {
	return r.add(NewExpectation())
}

// ExpectPattern registers an expectation for URLs fully matching the regular
// expression pattern, with any method.
// It panics if pattern is not a valid regular expression.
func (r *Recorder) ExpectPattern(pattern string) *Expectation {
	return r.add(newExpectation(nil, pattern, true))
}

// ExpectExact registers an expectation for exactly url, with any method.
func (r *Recorder) ExpectExact(url string) *Expectation {
	return r.add(newExpectation(nil, url, false))
}

// ExpectMethod registers an expectation for any URL requested with method.
func (r *Recorder) ExpectMethod(method rest.Method) *Expectation {
	return r.add(newExpectation(&method, ".*", true))
}

// ExpectMethodPattern registers an expectation for method and URLs fully
// matching pattern.
// It panics if pattern is not a valid regular expression.
func (r *Recorder) ExpectMethodPattern(method rest.Method, pattern string) *Expectation {
	return r.add(newExpectation(&method, pattern, true))
}

// ExpectMethodExact registers an expectation for method and exactly url.
func (r *Recorder) ExpectMethodExact(method rest.Method, url string) *Expectation {
	return r.add(newExpectation(&method, url, false))
}

// Expectations returns the registered expectations in order.
func (r *Recorder) Expectations() []*Expectation {
	return r.expectations
}

// Reset removes every expectation.
func (r *Recorder) Reset() {
	r.expectations = nil
}

// Replay resolves u against defaultBaseURL and fires the first live
// expectation matching it and method.
func (r *Recorder) Replay(u *resturl.URL, defaultBaseURL string, method rest.Method) (*rest.Response, error) {
	target, err := u.SetDefaultBaseURL(defaultBaseURL).Build()
	if err != nil {
		return nil, &rest.HTTPError{Message: "failed to build request URL", Cause: err}
	}

	for _, e := range r.expectations {
		if e.Matches(target, method) {
			return e.Replay()
		}
	}

	if r.t != nil {
		r.t.Helper()
		r.t.Errorf("No response recorded for %s %s", method, target)
	}
	return nil, &NoMatchError{URL: target, Method: method}
}

// Load registers a single-use exact expectation for every exchange, in
// order, so that a captured session replays verbatim.
func (r *Recorder) Load(exchanges []Exchange) error {
	for _, ex := range exchanges {
		method, err := rest.ParseMethod(ex.Request.Method)
		if err != nil {
			return err
		}

		e := r.ExpectMethodExact(method, ex.Request.URL).
			Once().
			AndReturnStatus(ex.Response.StatusCode, ex.Response.StatusMessage)
		for name, value := range ex.Response.Headers {
			e.WithHeader(name, value)
		}
		if body := ex.Response.body(); body != nil {
			e.ensureResponse().SetBody(body)
		}
	}
	return nil
}
