package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vedsharma/drivethru/internal/model"
	"github.com/vedsharma/drivethru/rest"
	"github.com/vedsharma/drivethru/resturl"
	"github.com/vedsharma/drivethru/transform"
)

// sensitiveHeaders are redacted before anything is stored.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"www-authenticate":    true,

	"cookie":       true,
	"set-cookie":   true,
	"x-api-key":    true,
	"api-key":      true,
	"x-auth-token": true,
	"x-csrf-token": true,
	"x-xsrf-token": true,

	"x-amz-security-token": true,
	"x-amz-credential":     true,
	"x-amz-signature":      true,

	"x-goog-authenticated-user-email": true,
	"x-goog-authenticated-user-id":    true,
	"x-goog-iap-jwt-assertion":        true,

	"x-ms-client-principal":    true,
	"x-ms-client-principal-id": true,
	"x-ms-token-aad-id-token":  true,

	"x-access-token":  true,
	"x-refresh-token": true,
	"x-session-token": true,
	"x-secret-key":    true,
	"x-private-key":   true,
}

const redacted = "[REDACTED]"

type requestOptions struct {
	headers     []string
	query       []string
	data        string
	noHistory   bool
	collection  string
	strict      bool
	noRedirects bool
}

func newRequestCmd(a *app, method rest.Method) *cobra.Command {
	opts := &requestOptions{}
	name := strings.ToLower(method.String())

	cmd := &cobra.Command{
		Use:   name + " <url|alias/path|path>",
		Short: fmt.Sprintf("Send a %s request", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRequest(cmd.Context(), method, args[0], opts)
		},
	}

	opts.addFlags(cmd.Flags(), method.AllowsBody())
	return cmd
}

func (o *requestOptions) addFlags(flags *pflag.FlagSet, withBody bool) {
	flags.StringArrayVarP(&o.headers, "header", "H", nil, "Add header (can be used multiple times)")
	flags.StringArrayVarP(&o.query, "query", "q", nil, "Add query parameter key=value (can be used multiple times)")
	if withBody {
		flags.StringVarP(&o.data, "data", "d", "", "Request body (JSON string or @filename)")
	}
	flags.BoolVar(&o.noHistory, "no-history", false, "Don't save to history")
	flags.StringVarP(&o.collection, "collection", "c", "", "Save to collection")
	flags.BoolVar(&o.strict, "strict", false, "Fail unless the status is accepted by the verb's policy")
	flags.BoolVar(&o.noRedirects, "no-redirects", false, "Return redirect responses instead of following them")
}

func (a *app) runRequest(ctx context.Context, method rest.Method, target string, opts *requestOptions) error {
	req := rest.NewURLRequest(a.resolveTarget(target), method)

	headers := parseHeaders(opts.headers)
	for k, v := range headers {
		req.AddHeader(k, v)
	}

	for _, q := range opts.query {
		key, value, ok := strings.Cut(q, "=")
		if !ok {
			return fmt.Errorf("invalid query parameter %q: expected key=value", q)
		}
		req.AddQuery(key, value)
	}

	body, err := readBody(opts.data)
	if err != nil {
		return err
	}
	if body != "" {
		req.SetBodyString(body)
		if !hasHeader(headers, rest.HeaderContentType) {
			req.SetContentType(transform.MIMEJSON)
		}
		if !opts.noHistory {
			a.warnIfSensitiveBody(body)
		}
	}
	req.SetRedirectsEnabled(!opts.noRedirects)

	client, err := a.restClient(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := client.Execute(ctx, req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	took := time.Since(start)

	a.printer.Response(resp, took, a.verbose)

	var accepted *bool
	var policyErr error
	if opts.strict {
		ok, err := rest.Outcome(method, resp)
		if err != nil {
			policyErr = err
		} else {
			accepted = &ok
			a.printer.Outcome(method, ok)
		}
	}

	if !opts.noHistory {
		a.saveToHistory(req, resp, took, accepted)
	}
	if opts.collection != "" {
		a.saveToCollection(opts.collection, model.SavedRequest{
			Method:  method.String(),
			URL:     target,
			Headers: filterSensitiveHeaders(req.Headers),
			Body:    body,
		})
	}

	return policyErr
}

func (a *app) saveToHistory(req *rest.Request, resp *rest.Response, took time.Duration, accepted *bool) {
	store, err := a.openStore()
	if err != nil {
		a.log.WithError(err).Warn("request not saved to history")
		return
	}

	e := model.NewEntry(uuid.New().String()[:8], time.Now(), req, req.URL.String(), resp, took)
	e.Headers = filterSensitiveHeaders(e.Headers)
	if e.Response != nil {
		e.Response.Headers = filterSensitiveHeaders(e.Response.Headers)
	}
	e.Accepted = accepted

	if err := store.AddHistory(e); err != nil {
		a.log.WithError(err).Warn("request not saved to history")
	}
}

func (a *app) saveToCollection(name string, req model.SavedRequest) {
	store, err := a.openStore()
	if err == nil {
		err = store.AddToCollection(name, req)
	}
	if err != nil {
		a.printer.Error(fmt.Sprintf("Failed to save to collection: %v", err))
		return
	}
	a.printer.Success(fmt.Sprintf("Saved to collection '%s'", name))
}

// resolveTarget turns a command argument into a URL. Full URLs are used as
// is, "alias/path" is resolved against a stored alias and anything else is a
// path relative to the configured base URL.
func (a *app) resolveTarget(target string) *resturl.URL {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return resturl.NewWithBase(target)
	}

	name, path, _ := strings.Cut(target, "/")
	store, err := a.openStore()
	if err != nil {
		a.log.WithError(err).Warn("aliases unavailable")
	} else if base, ok, err := store.GetAlias(name); err != nil {
		a.log.WithError(err).Warn("alias lookup failed")
	} else if ok {
		return joinAlias(base, path)
	}

	return resturl.New().SetPath("/" + strings.TrimLeft(target, "/"))
}

// joinAlias appends path to an alias base URL with exactly one slash.
func joinAlias(base, path string) *resturl.URL {
	base = strings.TrimSuffix(base, "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return resturl.NewWithBase(base)
	}
	return resturl.NewWithPath(base+"/", path)
}

func parseHeaders(headerStrings []string) map[string]string {
	result := make(map[string]string)
	for _, h := range headerStrings {
		key, value, ok := strings.Cut(h, ":")
		if ok {
			result[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return result
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// readBody returns data, or the content of the file it names with a
// leading @.
func readBody(data string) (string, error) {
	filename, ok := strings.CutPrefix(data, "@")
	if !ok {
		return data, nil
	}
	content, err := readBodyFromFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// readBodyFromFile reads a file that must live inside the working directory,
// symlink targets included.
func readBodyFromFile(filename string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	roots := []string{wd}
	if resolved, err := filepath.EvalSymlinks(wd); err == nil && resolved != wd {
		roots = append(roots, resolved)
	}
	within := func(p string) bool {
		for _, root := range roots {
			if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)
	if !within(cleanPath) {
		return "", fmt.Errorf("access denied: file must be within current directory")
	}

	realPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = cleanPath
	} else if !within(realPath) {
		return "", fmt.Errorf("access denied: symlink target must be within current directory")
	}

	content, err := os.ReadFile(realPath)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// filterSensitiveHeaders returns a copy of headers with sensitive values
// redacted.
func filterSensitiveHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}

	filtered := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			filtered[k] = redacted
		} else {
			filtered[k] = v
		}
	}
	return filtered
}

var sensitiveBodyPatterns = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"private_key", "privatekey",
	"credit_card", "creditcard", "card_number",
	"ssn", "social_security",
	"access_token", "refresh_token",
	"client_secret", "auth",
}

func (a *app) warnIfSensitiveBody(body string) {
	lowerBody := strings.ToLower(body)
	for _, pattern := range sensitiveBodyPatterns {
		if strings.Contains(lowerBody, pattern) {
			a.log.WithField("pattern", pattern).
				Warn("request body may contain sensitive data and will be stored in history; use --no-history to skip it")
			return
		}
	}
}
