package rest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the per-request timeout applied when neither the
	// request nor the client configures one.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResponseSize caps response bodies read by the CLI.
	DefaultMaxResponseSize = 50 * 1024 * 1024
)

// Doer is the transport an HTTPExecutor dispatches through. *http.Client
// satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SecurityProvider signs or otherwise authorizes an outgoing request. Sign is
// called exactly once per request, after every header is applied and before
// the request is dispatched.
type SecurityProvider interface {
	Sign(req *http.Request) error
}

// Executor turns a Request into a Response. HTTPExecutor talks to the
// network; the resttest package provides a replaying implementation.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
	DefaultBaseURL() string
	AddDefaultHeader(name, value string)
	SetSecurityProvider(provider SecurityProvider)
	Close() error
}

// HTTPExecutor executes requests over a real HTTP transport.
//
// Default headers and the security provider are not synchronized. Callers
// that mutate them must do so before sharing the executor between goroutines.
type HTTPExecutor struct {
	defaultBaseURL  string
	defaultHeaders  map[string]string
	client          Doer
	timeout         time.Duration
	maxResponseSize int64
	security        SecurityProvider
	limiter         *rate.Limiter
	log             *logrus.Logger
	closed          bool
}

// NewHTTPExecutor creates an executor from an already validated config.
func NewHTTPExecutor(cfg Config) *HTTPExecutor {
	cfg = cfg.withDefaults()

	headers := make(map[string]string, len(cfg.DefaultHeaders))
	for k, v := range cfg.DefaultHeaders {
		headers[k] = v
	}

	return &HTTPExecutor{
		defaultBaseURL:  cfg.DefaultBaseURL,
		defaultHeaders:  headers,
		client:          cfg.HTTPClient,
		timeout:         cfg.Timeout,
		maxResponseSize: cfg.MaxResponseSize,
		security:        cfg.Security,
		limiter:         cfg.RateLimiter,
		log:             cfg.Logger,
	}
}

// DefaultBaseURL returns the base URL used for requests that carry none.
func (e *HTTPExecutor) DefaultBaseURL() string {
	return e.defaultBaseURL
}

// AddDefaultHeader sets a header applied to every request before the
// request's own headers.
func (e *HTTPExecutor) AddDefaultHeader(name, value string) {
	e.defaultHeaders[name] = value
}

// SetSecurityProvider replaces the security provider. nil disables signing.
func (e *HTTPExecutor) SetSecurityProvider(provider SecurityProvider) {
	e.security = provider
}

// Close releases idle connections held by the transport. Calling it more
// than once is a no-op.
func (e *HTTPExecutor) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if c, ok := e.client.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
	return nil
}

// Execute sends req and returns the normalized response. It never applies a
// status policy: any status the server returns is handed back.
func (e *HTTPExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	target, err := req.URL.SetDefaultBaseURL(e.defaultBaseURL).Build()
	if err != nil {
		return nil, &HTTPError{Message: "failed to build request URL", Cause: err}
	}

	if req.Body != nil && !req.Method.AllowsBody() {
		return nil, &BodyNotAllowedError{Method: req.Method}
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpReq, err := newTransportRequest(ctx, req.Method, target, req.Body)
	if err != nil {
		return nil, &HTTPError{Message: "failed to create request", Cause: err}
	}

	for name, value := range e.defaultHeaders {
		httpReq.Header.Set(name, value)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &HTTPError{Message: "rate limit wait cancelled", Cause: err}
		}
	}

	if e.security != nil {
		if err := e.security.Sign(httpReq); err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return nil, err
			}
			return nil, &HTTPError{Message: "failed to sign request", Cause: err}
		}
	}

	client := e.client
	if req.DisableRedirects {
		client = withoutRedirects(client, e.log)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &HTTPError{Message: "error establishing connection", Cause: err}
		}
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := e.readBody(resp.Body)
	if err != nil {
		return nil, &HTTPError{Message: "error establishing connection", Cause: err}
	}

	out := &Response{
		StatusCode:    resp.StatusCode,
		StatusMessage: reasonPhrase(resp),
		Headers:       make(map[string]string, len(resp.Header)),
		Body:          body,
	}
	for name, values := range resp.Header {
		if len(values) > 0 {
			out.Headers[name] = values[len(values)-1]
		}
	}

	e.log.WithFields(logrus.Fields{
		"method":      req.Method.String(),
		"url":         target,
		"status":      out.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("request executed")

	return out, nil
}

// newTransportRequest maps a Method onto a net/http request.
func newTransportRequest(ctx context.Context, method Method, target string, body []byte) (*http.Request, error) {
	var verb string
	switch method {
	case GET:
		verb = http.MethodGet
	case POST:
		verb = http.MethodPost
	case PUT:
		verb = http.MethodPut
	case DELETE:
		verb = http.MethodDelete
	case PATCH:
		verb = http.MethodPatch
	case OPTIONS:
		verb = http.MethodOptions
	case HEAD:
		verb = http.MethodHead
	case TRACE:
		verb = http.MethodTrace
	default:
		return nil, errors.New("unsupported method " + method.String())
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	return http.NewRequestWithContext(ctx, verb, target, reader)
}

func (e *HTTPExecutor) readBody(r io.Reader) ([]byte, error) {
	if e.maxResponseSize > 0 {
		r = io.LimitReader(r, e.maxResponseSize+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if e.maxResponseSize > 0 && int64(len(body)) > e.maxResponseSize {
		body = body[:e.maxResponseSize]
		e.log.WithField("limit", e.maxResponseSize).Warn("response body truncated")
	}

	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

func reasonPhrase(resp *http.Response) string {
	msg := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

// withoutRedirects returns a client that hands 3xx responses back instead of
// following them. Only *http.Client can be adjusted; other transports are
// used as is.
func withoutRedirects(client Doer, log *logrus.Logger) Doer {
	hc, ok := client.(*http.Client)
	if !ok {
		log.Warn("transport does not support disabling redirects")
		return client
	}
	cp := *hc
	cp.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &cp
}

type statusCoder interface {
	StatusCode() int
}

// classify maps a transport failure onto the package's error types.
func classify(err error) error {
	var sc statusCoder
	if errors.As(err, &sc) {
		return &StatusError{StatusCode: sc.StatusCode(), StatusMessage: http.StatusText(sc.StatusCode())}
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se
	}

	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}

	var netErr net.Error
	switch {
	case errors.As(cause, &netErr),
		errors.Is(cause, io.EOF),
		errors.Is(cause, io.ErrUnexpectedEOF),
		errors.Is(cause, context.DeadlineExceeded),
		errors.Is(cause, context.Canceled):
		return &HTTPError{Message: "error establishing connection", Cause: err}
	default:
		return &HTTPError{Message: "HTTP protocol error occurred", Cause: err}
	}
}
