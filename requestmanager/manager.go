// Package requestmanager sends one-off HTTP requests assembled from raw
// parameters: any verb, cookies, user agent, an auth header and a custom TLS
// configuration. It applies no status policy.
package requestmanager

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vedsharma/drivethru/rest"
)

const (
	// DefaultContentType is sent when Config.ContentType is empty.
	DefaultContentType = "application/x-www-form-urlencoded"

	defaultEncoding = "UTF-8"
)

// DefaultHeaders returns the headers sent when Config.Headers is nil.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept-Language": "en-US,en;q=0.5",
		"accept-charset":  defaultEncoding,
	}
}

// Auth is a single authorization header, applied last.
type Auth struct {
	Name  string
	Value string
}

// Config describes a single request.
type Config struct {
	URL    string
	Method rest.Method
	Body   []byte

	// ContentType defaults to DefaultContentType.
	ContentType string

	// Headers defaults to DefaultHeaders(). Pass an empty map to send none.
	Headers map[string]string

	// Cookies are each sent as a separate Cookie header.
	Cookies   []string
	UserAgent string
	Auth      *Auth

	// TLSConfig is used for https URLs.
	TLSConfig *tls.Config

	// Timeout bounds the exchange. Zero means rest.DefaultTimeout.
	Timeout time.Duration

	// HTTPClient replaces the client built from TLSConfig.
	HTTPClient rest.Doer

	// Security, if set, signs or rejects the request after every header is
	// applied.
	Security rest.SecurityProvider

	Logger *logrus.Logger
}

// Manager sends the request described by its Config.
type Manager struct {
	cfg Config
	log *logrus.Logger
}

// New validates cfg.
func New(cfg Config) (*Manager, error) {
	if cfg.URL == "" {
		return nil, &rest.ConfigError{Field: "URL", Message: "is a required field"}
	}
	if cfg.Method < rest.GET || cfg.Method > rest.TRACE {
		return nil, &rest.ConfigError{Field: "Method", Message: fmt.Sprintf("is not a known method (%d)", int(cfg.Method))}
	}
	if cfg.Timeout < 0 {
		return nil, &rest.ConfigError{Field: "Timeout", Message: "must not be negative"}
	}

	if cfg.ContentType == "" {
		cfg.ContentType = DefaultContentType
	}
	if cfg.Headers == nil {
		cfg.Headers = DefaultHeaders()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = rest.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Manager{cfg: cfg, log: cfg.Logger}, nil
}

// ResponseContainer is the raw result of Send.
type ResponseContainer struct {
	StatusCode int
	Body       string
	Headers    http.Header
}

// Cookies returns the values of every Set-Cookie header.
func (r *ResponseContainer) Cookies() []string {
	return r.Headers.Values("Set-Cookie")
}

// Send performs the request.
func (m *Manager) Send(ctx context.Context) (*ResponseContainer, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	req, err := m.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	if m.cfg.Security != nil {
		if err := m.cfg.Security.Sign(req); err != nil {
			return nil, &rest.HTTPError{Message: "request rejected before sending", Cause: err}
		}
	}

	client, release := m.client()
	defer release()

	m.log.Infof("Sending request to %s", m.cfg.URL)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &rest.HTTPError{Message: "connection failed, request not sent", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &rest.HTTPError{Message: "connection failed while reading response", Cause: err}
	}

	entry := m.log.WithFields(logrus.Fields{
		"method": m.cfg.Method.String(),
		"status": resp.StatusCode,
	})
	line := fmt.Sprintf("Response: %d - %s", resp.StatusCode, body)
	if resp.StatusCode >= http.StatusOK && resp.StatusCode <= http.StatusPartialContent {
		entry.Info(line)
	} else {
		entry.Error(line)
	}

	return &ResponseContainer{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Headers:    resp.Header,
	}, nil
}

func (m *Manager) newRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(m.cfg.Body) > 0 {
		if !m.cfg.Method.AllowsBody() {
			return nil, &rest.BodyNotAllowedError{Method: m.cfg.Method}
		}
		body = bytes.NewReader(m.cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, m.cfg.Method.String(), m.cfg.URL, body)
	if err != nil {
		return nil, &rest.HTTPError{Message: "failed to create request", Cause: err}
	}

	for _, cookie := range m.cfg.Cookies {
		req.Header.Add("Cookie", cookie)
	}
	req.Header.Set(rest.HeaderContentType, m.cfg.ContentType)
	if m.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", m.cfg.UserAgent)
	}
	for name, value := range m.cfg.Headers {
		req.Header.Set(name, value)
	}
	if m.cfg.Auth != nil {
		req.Header.Set(m.cfg.Auth.Name, m.cfg.Auth.Value)
	}
	return req, nil
}

// client returns the transport for one request and a func releasing it.
func (m *Manager) client() (rest.Doer, func()) {
	if m.cfg.HTTPClient != nil {
		return m.cfg.HTTPClient, func() {}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if m.cfg.TLSConfig != nil && strings.HasPrefix(strings.ToLower(m.cfg.URL), "https") {
		transport.TLSClientConfig = m.cfg.TLSConfig
	}
	return &http.Client{Transport: transport}, transport.CloseIdleConnections
}
