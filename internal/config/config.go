// Package config loads the drivethru CLI settings from
// ~/.drivethru/config.yaml and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/vedsharma/drivethru/rest"
	"github.com/vedsharma/drivethru/security"
)

const (
	dirName  = ".drivethru"
	fileName = "config.yaml"

	// EnvHome overrides the data directory.
	EnvHome = "DRIVETHRU_HOME"

	EnvBaseURL  = "DRIVETHRU_BASE_URL"
	EnvLogLevel = "DRIVETHRU_LOG_LEVEL"
	EnvTimeout  = "DRIVETHRU_TIMEOUT"
)

// Auth types.
const (
	AuthNone      = ""
	AuthBearerJWT = "bearer-jwt"
	AuthOAuth2    = "oauth2"
	AuthSigV4     = "aws-sigv4"
)

// Config holds the CLI settings.
type Config struct {
	BaseURL         string            `yaml:"base_url"`
	Timeout         time.Duration     `yaml:"timeout"`
	Headers         map[string]string `yaml:"headers"`
	LogLevel        string            `yaml:"log_level"`
	MaxResponseSize int64             `yaml:"max_response_size"`

	// RateLimit is in requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	Auth Auth `yaml:"auth"`
}

// Auth selects and parameterizes the security provider. Secret values may
// reference environment variables as $NAME or ${NAME}.
type Auth struct {
	Type string `yaml:"type"`

	// bearer-jwt
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Subject  string        `yaml:"subject"`
	Audience []string      `yaml:"audience"`
	TTL      time.Duration `yaml:"ttl"`

	// oauth2 client credentials
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`

	// aws-sigv4
	Service string `yaml:"service"`
	Region  string `yaml:"region"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Timeout:         rest.DefaultTimeout,
		LogLevel:        logrus.WarnLevel.String(),
		MaxResponseSize: rest.DefaultMaxResponseSize,
	}
}

// Dir returns the data directory, creating nothing.
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPath returns the path of the config file inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads path, applies environment overrides and validates the result.
// An empty path loads the default file, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := false
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
		optional = true
	}

	if err := cfg.loadFromFile(path); err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = rest.DefaultTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = logrus.WarnLevel.String()
	}
}

func (c *Config) loadFromEnv() error {
	if val := os.Getenv(EnvBaseURL); val != "" {
		c.BaseURL = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv(EnvTimeout); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return &rest.ConfigError{Field: EnvTimeout, Message: fmt.Sprintf("is not a duration: %q", val)}
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the fields rest.Config does not.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return &rest.ConfigError{Field: "log_level", Message: err.Error()}
	}
	if c.RateLimit < 0 {
		return &rest.ConfigError{Field: "rate_limit", Message: "must not be negative"}
	}
	switch c.Auth.Type {
	case AuthNone, AuthBearerJWT, AuthOAuth2, AuthSigV4:
	default:
		return &rest.ConfigError{Field: "auth.type", Message: fmt.Sprintf("is not supported: %q", c.Auth.Type)}
	}
	return c.RESTConfig(nil).Validate()
}

// Level returns the parsed log level. Validate has already rejected bad values.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return lvl
}

// RESTConfig maps the settings onto a rest.Config without a security
// provider.
func (c *Config) RESTConfig(log *logrus.Logger) rest.Config {
	cfg := rest.Config{
		DefaultBaseURL:  c.BaseURL,
		DefaultHeaders:  c.Headers,
		Timeout:         c.Timeout,
		MaxResponseSize: c.MaxResponseSize,
		Logger:          log,
	}
	if c.RateLimit > 0 {
		cfg.RateLimiter = rate.NewLimiter(rate.Limit(c.RateLimit), 1)
	}
	return cfg
}

// Security returns the provider chain for every request: the destination
// guard followed by the configured auth provider.
func (c *Config) Security(ctx context.Context, log *logrus.Logger) (rest.SecurityProvider, error) {
	chain := security.Chain{security.NewGuard(log)}
	provider, err := c.Auth.Provider(ctx)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		chain = append(chain, provider)
	}
	return chain, nil
}

// Provider builds the configured auth provider, or nil for AuthNone.
func (a Auth) Provider(ctx context.Context) (rest.SecurityProvider, error) {
	switch a.Type {
	case AuthNone:
		return nil, nil
	case AuthBearerJWT:
		p, err := security.NewJWT(security.JWTConfig{
			Secret:   []byte(os.ExpandEnv(a.Secret)),
			Issuer:   a.Issuer,
			Subject:  a.Subject,
			Audience: a.Audience,
			TTL:      a.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("auth %s: %w", a.Type, err)
		}
		return p, nil
	case AuthOAuth2:
		p, err := security.NewClientCredentials(ctx, security.ClientCredentialsConfig{
			ClientID:     os.ExpandEnv(a.ClientID),
			ClientSecret: os.ExpandEnv(a.ClientSecret),
			TokenURL:     a.TokenURL,
			Scopes:       a.Scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("auth %s: %w", a.Type, err)
		}
		return p, nil
	case AuthSigV4:
		p, err := security.NewSigV4FromEnvironment(ctx, a.Service, a.Region)
		if err != nil {
			return nil, fmt.Errorf("auth %s: %w", a.Type, err)
		}
		return p, nil
	default:
		return nil, &rest.ConfigError{Field: "auth.type", Message: fmt.Sprintf("is not supported: %q", a.Type)}
	}
}

// NewClient builds a rest.Client from the settings.
func (c *Config) NewClient(ctx context.Context, log *logrus.Logger) (*rest.Client, error) {
	provider, err := c.Security(ctx, log)
	if err != nil {
		return nil, err
	}
	cfg := c.RESTConfig(log)
	cfg.Security = provider
	return rest.NewClient(cfg)
}
