package resttest

import (
	"context"

	"github.com/vedsharma/drivethru/rest"
)

// Executor is a rest.Executor that answers from a Recorder. Request bodies,
// request headers, default headers and security providers are ignored.
type Executor struct {
	recorder       *Recorder
	defaultBaseURL string
}

var _ rest.Executor = (*Executor)(nil)

// NewExecutor returns an executor replaying from recorder.
func NewExecutor(recorder *Recorder, defaultBaseURL string) *Executor {
	return &Executor{recorder: recorder, defaultBaseURL: defaultBaseURL}
}

// Execute replays the first matching expectation.
func (e *Executor) Execute(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &rest.HTTPError{Message: "error establishing connection", Cause: err}
	}
	return e.recorder.Replay(req.URL, e.defaultBaseURL, req.Method)
}

// DefaultBaseURL returns the base URL requests are resolved against.
func (e *Executor) DefaultBaseURL() string { return e.defaultBaseURL }

// AddDefaultHeader does nothing.
func (e *Executor) AddDefaultHeader(string, string) {}

// SetSecurityProvider does nothing.
func (e *Executor) SetSecurityProvider(rest.SecurityProvider) {}

// Close does nothing.
func (e *Executor) Close() error { return nil }

// Capture wraps an executor and records every completed exchange so it can
// be written out with WriteFixture and replayed later with Recorder.Load.
type Capture struct {
	inner     rest.Executor
	exchanges []Exchange
}

var _ rest.Executor = (*Capture)(nil)

// NewCapture wraps inner.
func NewCapture(inner rest.Executor) *Capture {
	return &Capture{inner: inner}
}

// Execute runs req through the wrapped executor and records the result.
// Failed exchanges are not recorded.
func (c *Capture) Execute(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	resp, err := c.inner.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	c.exchanges = append(c.exchanges, NewExchange(req, resp))
	return resp, nil
}

// Exchanges returns the recorded exchanges in order.
func (c *Capture) Exchanges() []Exchange { return c.exchanges }

// DefaultBaseURL delegates to the wrapped executor.
func (c *Capture) DefaultBaseURL() string { return c.inner.DefaultBaseURL() }

// AddDefaultHeader delegates to the wrapped executor.
func (c *Capture) AddDefaultHeader(name, value string) { c.inner.AddDefaultHeader(name, value) }

// SetSecurityProvider delegates to the wrapped executor.
func (c *Capture) SetSecurityProvider(p rest.SecurityProvider) { c.inner.SetSecurityProvider(p) }

// Close closes the wrapped executor.
func (c *Capture) Close() error { return c.inner.Close() }
