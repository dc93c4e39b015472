package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vedsharma/drivethru/transform"
)

// Config configures a Client backed by an HTTPExecutor.
type Config struct {
	// DefaultBaseURL is used for every request whose URL has no base URL.
	// It may be empty, in which case every request must carry a full URL.
	DefaultBaseURL string

	// DefaultHeaders are applied to every request before its own headers.
	DefaultHeaders map[string]string

	// Transformer encodes payloads and decodes responses. Defaults to JSON.
	Transformer transform.Transformer

	// HTTPClient is the transport. Defaults to a new *http.Client.
	HTTPClient Doer

	// Timeout applies to requests that do not set their own. Defaults to
	// DefaultTimeout; a negative value is rejected.
	Timeout time.Duration

	// MaxResponseSize truncates response bodies longer than this many
	// bytes. Zero means unlimited.
	MaxResponseSize int64

	Security    SecurityProvider
	RateLimiter *rate.Limiter

	// Logger defaults to logrus.StandardLogger().
	Logger *logrus.Logger
}

// Validate checks the fields that cannot be defaulted.
func (c Config) Validate() error {
	if c.DefaultBaseURL != "" {
		parsed, err := url.Parse(c.DefaultBaseURL)
		if err != nil {
			return &ConfigError{Field: "DefaultBaseURL", Message: fmt.Sprintf("is not a valid URL: %v", err)}
		}
		scheme := strings.ToLower(parsed.Scheme)
		if scheme != "http" && scheme != "https" {
			return &ConfigError{Field: "DefaultBaseURL", Message: fmt.Sprintf("has unsupported scheme %q (only http and https are allowed)", parsed.Scheme)}
		}
		if parsed.Host == "" {
			return &ConfigError{Field: "DefaultBaseURL", Message: "must have a host"}
		}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "Timeout", Message: "must not be negative"}
	}
	if c.MaxResponseSize < 0 {
		return &ConfigError{Field: "MaxResponseSize", Message: "must not be negative"}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Transformer == nil {
		c.Transformer = transform.JSON()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
