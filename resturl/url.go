// Package resturl builds absolute request URLs from a base URL, a relative
// path and an ordered list of query parameters.
package resturl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingBaseURL is returned by Build when no base URL was ever set.
var ErrMissingBaseURL = errors.New("URL must set a base URL")

type queryPair struct {
	key   string
	value string
}

// URL is a mutable builder. It is meant to be created for one request,
// mutated, built once and then discarded.
type URL struct {
	baseURL string
	hasBase bool
	path    string
	query   []queryPair
}

// New returns an empty URL with no base URL set.
func New() *URL {
	return &URL{}
}

// NewWithBase returns a URL starting with the given base URL.
func NewWithBase(baseURL string) *URL {
	return (&URL{}).SetBaseURL(baseURL)
}

// NewWithPath returns a URL starting with the given base URL and path.
func NewWithPath(baseURL, path string) *URL {
	return NewWithBase(baseURL).SetPath(path)
}

// SetBaseURL sets the base URL unconditionally.
func (u *URL) SetBaseURL(baseURL string) *URL {
	u.baseURL = baseURL
	u.hasBase = true
	return u
}

// SetDefaultBaseURL sets the base URL only if none is set yet. The first
// base URL to be set always wins. An empty default leaves the base unset.
func (u *URL) SetDefaultBaseURL(defaultBaseURL string) *URL {
	if !u.hasBase && defaultBaseURL != "" {
		u.SetBaseURL(defaultBaseURL)
	}
	return u
}

// BaseURL returns the base URL, or "" when none is set.
func (u *URL) BaseURL() string {
	return u.baseURL
}

// HasBaseURL reports whether a base URL has been set.
func (u *URL) HasBaseURL() bool {
	return u.hasBase
}

// SetPath sets the path relative to the base URL.
func (u *URL) SetPath(path string) *URL {
	u.path = path
	return u
}

// Path returns the current relative path.
func (u *URL) Path() string {
	return u.path
}

// AddPath appends "/" + segment to the current path.
func (u *URL) AddPath(segment string) *URL {
	u.path += "/" + segment
	return u
}

// AddQuery appends a key=value query parameter. Both parts are encoded here,
// so callers must pass them unencoded.
func (u *URL) AddQuery(key, value string) *URL {
	u.query = append(u.query, queryPair{key: Encode(key), value: Encode(value)})
	return u
}

// AddQueryValue is AddQuery for any value, formatted with fmt.Sprint.
func (u *URL) AddQueryValue(key string, value any) *URL {
	return u.AddQuery(key, fmt.Sprint(value))
}

// Build composes the full URL string.
func (u *URL) Build() (string, error) {
	if !u.hasBase {
		return "", ErrMissingBaseURL
	}

	var sb strings.Builder
	sb.WriteString(u.baseURL)

	if u.path != "" {
		// Avoid a double slash when the base already ends with one
		if strings.HasSuffix(u.baseURL, "/") {
			sb.WriteString(strings.TrimLeft(u.path, "/"))
		} else {
			sb.WriteString(u.path)
		}
	}

	for i, pair := range u.query {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(pair.key)
		sb.WriteByte('=')
		sb.WriteString(pair.value)
	}

	return sb.String(), nil
}

// String returns the built URL, or a placeholder when the base is missing.
func (u *URL) String() string {
	s, err := u.Build()
	if err != nil {
		return "<no base URL>" + u.path
	}
	return s
}

// queryFixups turns url.QueryEscape output into form encoding with %20 for
// spaces: '*' stays literal and '~' is escaped.
var queryFixups = strings.NewReplacer("+", "%20", "%2A", "*", "~", "%7E")

// Encode percent-encodes val for use in a query string. Spaces become %20,
// not +.
func Encode(val string) string {
	return queryFixups.Replace(url.QueryEscape(val))
}
