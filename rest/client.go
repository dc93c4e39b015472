// Package rest executes HTTP requests and maps their status codes onto
// per-verb outcomes, encoding and decoding bodies with a pluggable
// transform.Transformer.
package rest

import (
	"context"

	"github.com/vedsharma/drivethru/resturl"
	"github.com/vedsharma/drivethru/transform"
)

// Client is the high level facade. It builds requests, runs them through an
// Executor and applies the status policy of each verb.
type Client struct {
	executor    Executor
	transformer transform.Transformer
}

// NewClient validates cfg and returns a client talking to the network.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return NewClientWithExecutor(NewHTTPExecutor(cfg), cfg.Transformer), nil
}

// NewClientWithExecutor returns a client using executor for every request.
// A nil transformer selects JSON.
func NewClientWithExecutor(executor Executor, transformer transform.Transformer) *Client {
	if transformer == nil {
		transformer = transform.JSON()
	}
	return &Client{executor: executor, transformer: transformer}
}

// Executor returns the executor requests are sent through.
func (c *Client) Executor() Executor { return c.executor }

// Transformer returns the body transformer.
func (c *Client) Transformer() transform.Transformer { return c.transformer }

// SetTransformer replaces the body transformer.
func (c *Client) SetTransformer(t transform.Transformer) { c.transformer = t }

// DefaultBaseURL returns the base URL used for requests without one.
func (c *Client) DefaultBaseURL() string { return c.executor.DefaultBaseURL() }

// AddDefaultHeader adds a header sent with every request.
func (c *Client) AddDefaultHeader(name, value string) {
	c.executor.AddDefaultHeader(name, value)
}

// SetSecurityProvider sets the provider that signs every request.
func (c *Client) SetSecurityProvider(provider SecurityProvider) {
	c.executor.SetSecurityProvider(provider)
}

// Execute runs req without applying any status policy.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	return c.executor.Execute(ctx, req)
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.executor.Close()
}

// Get fetches path and decodes a 200 response into out. A nil out skips
// decoding.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.GetURL(ctx, resturl.New().SetPath(path), out)
}

// GetURL is Get for a fully built URL.
func (c *Client) GetURL(ctx context.Context, u *resturl.URL, out any) error {
	resp, err := c.executor.Execute(ctx, NewURLRequest(u, GET))
	if err != nil {
		return err
	}
	if _, err := Outcome(GET, resp); err != nil {
		return err
	}
	return c.decode(resp, out)
}

// Put sends payload to path. It returns true when the server created a new
// resource (201) and false when it updated one (200 or 204).
func (c *Client) Put(ctx context.Context, path string, payload any) (bool, error) {
	return c.PutURL(ctx, resturl.New().SetPath(path), payload)
}

// PutURL is Put for a fully built URL.
func (c *Client) PutURL(ctx context.Context, u *resturl.URL, payload any) (bool, error) {
	req := NewURLRequest(u, PUT)
	if err := c.encode(req, payload); err != nil {
		return false, err
	}

	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		return false, err
	}
	return Outcome(PUT, resp)
}

// Delete deletes path. It returns true when the deletion completed (200) and
// false when it was accepted or produced no content (202 or 204).
func (c *Client) Delete(ctx context.Context, path string) (bool, error) {
	return c.DeleteURL(ctx, resturl.New().SetPath(path))
}

// DeleteURL is Delete for a fully built URL.
func (c *Client) DeleteURL(ctx context.Context, u *resturl.URL) (bool, error) {
	resp, err := c.executor.Execute(ctx, NewURLRequest(u, DELETE))
	if err != nil {
		return false, err
	}
	return Outcome(DELETE, resp)
}

// Post sends payload to path and decodes the response into out. A nil
// payload sends no body and a nil out skips decoding.
func (c *Client) Post(ctx context.Context, path string, payload, out any) error {
	return c.PostURL(ctx, resturl.New().SetPath(path), payload, out)
}

// PostURL is Post for a fully built URL.
func (c *Client) PostURL(ctx context.Context, u *resturl.URL, payload, out any) error {
	req := NewURLRequest(u, POST)
	if payload != nil {
		if err := c.encode(req, payload); err != nil {
			return err
		}
	}

	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		return err
	}
	if _, err := Outcome(POST, resp); err != nil {
		return err
	}
	return c.decode(resp, out)
}

func (c *Client) encode(req *Request, payload any) error {
	body, err := c.transformer.Write(payload)
	if err != nil {
		return &HTTPError{Message: "failed to serialize request body", Cause: err}
	}
	req.SetContentType(c.transformer.MIME())
	req.SetBody(body)
	return nil
}

func (c *Client) decode(resp *Response, out any) error {
	if out == nil {
		return nil
	}

	contentType := resp.ContentType()
	if contentType == "" || contentType != c.transformer.MIME() {
		return &ContentTypeError{ContentType: contentType, Expected: c.transformer.MIME()}
	}

	if err := c.transformer.Read(resp.Body, out); err != nil {
		return &HTTPError{Message: "failed to deserialize response body", Cause: err}
	}
	return nil
}
