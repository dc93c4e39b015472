package cmd

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vedsharma/drivethru/requestmanager"
	"github.com/vedsharma/drivethru/rest"
	"github.com/vedsharma/drivethru/security"
)

type rawOptions struct {
	method      string
	data        string
	contentType string
	userAgent   string
	auth        string
	headers     []string
	cookies     []string
	insecure    bool
	caCert      string
}

func newRawCmd(a *app) *cobra.Command {
	opts := &rawOptions{}
	cmd := &cobra.Command{
		Use:   "raw <url|alias/path|path>",
		Short: "Send a one-off request with full control over cookies, auth and TLS",
		Long: `Send a one-off request without any status policy.

Unless headers are given, Accept-Language and accept-charset defaults are
sent. The content type defaults to application/x-www-form-urlencoded.

Example:
  drivethru raw https://example.com/login -X POST -d 'user=me' --cookie session=abc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRaw(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.method, "request", "X", "GET", "HTTP method")
	flags.StringVarP(&opts.data, "data", "d", "", "Request body (string or @filename)")
	flags.StringVar(&opts.contentType, "content-type", "", "Content type of the body")
	flags.StringVarP(&opts.userAgent, "user-agent", "A", "", "User-Agent header")
	flags.StringVar(&opts.auth, "auth", "", `Authorization header as "Name: value"`)
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "Add header (replaces the defaults)")
	flags.StringArrayVarP(&opts.cookies, "cookie", "b", nil, "Add cookie (can be used multiple times)")
	flags.BoolVarP(&opts.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	flags.StringVar(&opts.caCert, "cacert", "", "PEM file of additional trusted CAs")
	return cmd
}

func (a *app) runRaw(ctx context.Context, target string, opts *rawOptions) error {
	method, err := rest.ParseMethod(opts.method)
	if err != nil {
		return err
	}

	u := a.resolveTarget(target)
	if a.cfg.BaseURL != "" {
		u.SetDefaultBaseURL(a.cfg.BaseURL)
	}
	url, err := u.Build()
	if err != nil {
		return fmt.Errorf("%w: pass a full URL or set --base-url", err)
	}

	body, err := readBody(opts.data)
	if err != nil {
		return err
	}

	cfg := requestmanager.Config{
		URL:         url,
		Method:      method,
		ContentType: opts.contentType,
		Cookies:     opts.cookies,
		UserAgent:   opts.userAgent,
		Timeout:     a.cfg.Timeout,
		Security:    security.NewGuard(a.log),
		Logger:      a.log,
	}
	if body != "" {
		cfg.Body = []byte(body)
	}
	if len(opts.headers) > 0 {
		cfg.Headers = parseHeaders(opts.headers)
	}
	if opts.auth != "" {
		name, value, ok := strings.Cut(opts.auth, ":")
		if !ok {
			return fmt.Errorf(`invalid --auth %q: expected "Name: value"`, opts.auth)
		}
		cfg.Auth = &requestmanager.Auth{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
	}
	if cfg.TLSConfig, err = opts.tlsConfig(); err != nil {
		return err
	}

	mgr, err := requestmanager.New(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := mgr.Send(ctx)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	a.printer.Raw(resp.StatusCode, resp.Headers, resp.Body, time.Since(start), a.verbose)
	return nil
}

func (o *rawOptions) tlsConfig() (*tls.Config, error) {
	if !o.insecure && o.caCert == "" {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: o.insecure,
	}
	if o.caCert != "" {
		pem, err := os.ReadFile(o.caCert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", o.caCert)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
