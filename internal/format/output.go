// Package format renders responses, history, collections and aliases for
// the terminal.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/fatih/color"

	"github.com/vedsharma/drivethru/internal/model"
	"github.com/vedsharma/drivethru/rest"
	"github.com/vedsharma/drivethru/transform"
)

// sanitizeOutput escapes control characters that could manipulate the
// terminal.
func sanitizeOutput(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			result.WriteRune(r)
		case r == '\x1b':
			result.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			fmt.Fprintf(&result, "\\x%02x", r)
		case r == 0x7F:
			result.WriteString("\\x7f")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	infoColor      = color.New(color.FgWhite, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	dimColor       = color.New(color.Faint)
)

func statusColor(code int) *color.Color {
	switch {
	case rest.IsInformational(code):
		return infoColor
	case rest.IsSuccess(code):
		return successColor
	case rest.IsRedirect(code):
		return redirectColor
	case rest.IsClientError(code):
		return clientErrColor
	default:
		return serverErrColor
	}
}

func statusLine(code int, message string) string {
	if message == "" {
		message = http.StatusText(code)
	}
	return fmt.Sprintf("%d %s", code, message)
}

// Printer writes formatted output to w.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Response prints a normalized response.
func (p *Printer) Response(resp *rest.Response, took time.Duration, showHeaders bool) {
	p.response(resp.StatusCode, resp.StatusMessage, resp.Headers, resp.ContentType(), resp.BodyString(), took.Milliseconds(), showHeaders)
}

// Raw prints a response whose headers may repeat, such as the ones
// returned by the request manager.
func (p *Printer) Raw(code int, headers http.Header, body string, took time.Duration, showHeaders bool) {
	flat := make(map[string]string, len(headers))
	for k, v := range headers {
		flat[k] = strings.Join(v, ", ")
	}
	contentType, _, _ := strings.Cut(headers.Get(rest.HeaderContentType), ";")
	p.response(code, "", flat, contentType, body, took.Milliseconds(), showHeaders)
}

func (p *Printer) storedResponse(resp *model.Response) {
	contentType, _, _ := strings.Cut(resp.Headers[rest.HeaderContentType], ";")
	p.response(resp.StatusCode, resp.StatusMessage, resp.Headers, contentType, resp.Body, resp.DurationMs, true)
}

func (p *Printer) response(code int, message string, headers map[string]string, contentType, body string, ms int64, showHeaders bool) {
	statusColor(code).Fprintf(p.w, "%s\n", sanitizeOutput(statusLine(code, message)))
	dimColor.Fprintf(p.w, "  Time: %dms\n\n", ms)

	if showHeaders {
		p.headers(headers)
	}
	p.body(body, contentType)
}

// Outcome prints the verdict of the verb's status policy.
func (p *Printer) Outcome(method rest.Method, accepted bool) {
	dimColor.Fprintf(p.w, "Outcome: ")
	fmt.Fprintf(p.w, "%s %t\n", method, accepted)
}

func (p *Printer) headers(headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	fmt.Fprintln(p.w, "Headers:")

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		headerKeyColor.Fprintf(p.w, "  %s: ", sanitizeOutput(key))
		fmt.Fprintln(p.w, sanitizeOutput(headers[key]))
	}
	fmt.Fprintln(p.w)
}

func (p *Printer) body(body, contentType string) {
	if body == "" {
		dimColor.Fprintln(p.w, "(empty body)")
		return
	}
	fmt.Fprintln(p.w, sanitizeOutput(prettyBody(body, contentType)))
}

// prettyBody indents JSON bodies. Other content types print verbatim.
func prettyBody(s, contentType string) string {
	if contentType != "" && contentType != transform.MIMEJSON && !strings.HasSuffix(contentType, "+json") {
		return s
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(s), "", "  "); err != nil {
		return s
	}
	return out.String()
}

// Entry prints a one-entry history summary.
func (p *Printer) Entry(e model.Entry) {
	methodColor.Fprintf(p.w, "%s ", e.Method)
	urlColor.Fprintln(p.w, sanitizeOutput(e.URL))
	dimColor.Fprintf(p.w, "  ID: %s\n", e.ID)
	dimColor.Fprintf(p.w, "  Time: %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))

	if e.Response != nil {
		fmt.Fprint(p.w, "  Status: ")
		statusColor(e.Response.StatusCode).Fprintln(p.w, sanitizeOutput(statusLine(e.Response.StatusCode, e.Response.StatusMessage)))
	}
}

// EntryDetail prints the full request and response of a history entry.
func (p *Printer) EntryDetail(e model.Entry) {
	fmt.Fprintln(p.w, "Request:")
	fmt.Fprintln(p.w, strings.Repeat("-", 40))
	methodColor.Fprintf(p.w, "%s ", e.Method)
	urlColor.Fprintln(p.w, sanitizeOutput(e.URL))
	dimColor.Fprintf(p.w, "ID: %s\n", e.ID)
	dimColor.Fprintf(p.w, "Time: %s\n\n", e.Timestamp.Format("2006-01-02 15:04:05"))

	p.headers(e.Headers)

	if e.Body != "" {
		fmt.Fprintln(p.w, "Body:")
		fmt.Fprintln(p.w, sanitizeOutput(prettyBody(e.Body, "")))
		fmt.Fprintln(p.w)
	}

	if e.Response != nil {
		fmt.Fprintln(p.w, "\nResponse:")
		fmt.Fprintln(p.w, strings.Repeat("-", 40))
		p.storedResponse(e.Response)
	}
	if e.Accepted != nil {
		if m, err := rest.ParseMethod(e.Method); err == nil {
			p.Outcome(m, *e.Accepted)
		}
	}
}

// HistoryList prints entries in a compact table.
func (p *Printer) HistoryList(entries []model.Entry) {
	if len(entries) == 0 {
		dimColor.Fprintln(p.w, "No requests in history")
		return
	}

	for i, e := range entries {
		dimColor.Fprintf(p.w, "[%d] ", i+1)
		dimColor.Fprintf(p.w, "%s ", e.ID)
		methodColor.Fprintf(p.w, "%-7s ", e.Method)

		url := e.URL
		if len(url) > 60 {
			url = url[:57] + "..."
		}
		urlColor.Fprintf(p.w, "%-60s ", sanitizeOutput(url))

		if e.Response != nil {
			statusColor(e.Response.StatusCode).Fprintf(p.w, "%d ", e.Response.StatusCode)
			dimColor.Fprintf(p.w, "(%dms)", e.Response.DurationMs)
		}
		fmt.Fprintln(p.w)
	}
}

// CollectionList prints collection names with their sizes.
func (p *Printer) CollectionList(collections []model.Collection) {
	if len(collections) == 0 {
		dimColor.Fprintln(p.w, "No collections found")
		return
	}

	fmt.Fprintln(p.w, "Collections:")
	for _, c := range collections {
		headerKeyColor.Fprintf(p.w, "  %s ", sanitizeOutput(c.Name))
		dimColor.Fprintf(p.w, "(%d requests)\n", len(c.Requests))
	}
}

// CollectionRequests prints the requests of one collection.
func (p *Printer) CollectionRequests(c *model.Collection) {
	if len(c.Requests) == 0 {
		dimColor.Fprintf(p.w, "Collection '%s' is empty\n", sanitizeOutput(c.Name))
		return
	}

	headerKeyColor.Fprintf(p.w, "Collection: %s\n", sanitizeOutput(c.Name))
	fmt.Fprintln(p.w, strings.Repeat("-", 40))

	for i, req := range c.Requests {
		dimColor.Fprintf(p.w, "[%d] ", i+1)
		if req.Name != "" {
			fmt.Fprintf(p.w, "%s: ", sanitizeOutput(req.Name))
		}
		methodColor.Fprintf(p.w, "%s ", req.Method)
		urlColor.Fprintln(p.w, sanitizeOutput(req.URL))
	}
}

// AliasList prints aliases sorted by name.
func (p *Printer) AliasList(aliases map[string]string) {
	if len(aliases) == 0 {
		dimColor.Fprintln(p.w, "No aliases found")
		return
	}

	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(p.w, "Aliases:")
	for _, name := range names {
		fmt.Fprint(p.w, "  ")
		p.Alias(name, aliases[name])
	}
}

// Alias prints a single alias.
func (p *Printer) Alias(name, url string) {
	headerKeyColor.Fprintf(p.w, "%s ", sanitizeOutput(name))
	dimColor.Fprint(p.w, "→ ")
	urlColor.Fprintln(p.w, sanitizeOutput(url))
}

// Success prints a success message.
func (p *Printer) Success(msg string) {
	successColor.Fprintf(p.w, "✓ %s\n", msg)
}

// Error prints an error message.
func (p *Printer) Error(msg string) {
	clientErrColor.Fprintf(p.w, "✗ %s\n", msg)
}
