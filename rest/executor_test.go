package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/vedsharma/drivethru/resturl"
)

type recordingSigner struct {
	calls   int
	seen    http.Header
	failure error
}

func (s *recordingSigner) Sign(req *http.Request) error {
	s.calls++
	s.seen = req.Header.Clone()
	if s.failure != nil {
		return s.failure
	}
	req.Header.Set("Authorization", "Signed")
	return nil
}

type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

func newCaptureServer(t *testing.T, status int, respond func(w http.ResponseWriter)) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var got []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   body,
		})
		if respond != nil {
			respond(w)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestExecutor(t *testing.T, baseURL string) (*HTTPExecutor, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewHTTPExecutor(Config{DefaultBaseURL: baseURL, Logger: logger}), hook
}

func TestExecuteHeadersAndSigning(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, nil)
	exec, _ := newTestExecutor(t, srv.URL)

	signer := &recordingSigner{}
	exec.SetSecurityProvider(signer)
	exec.AddDefaultHeader("X-Shared", "default")
	exec.AddDefaultHeader("X-Default-Only", "d")

	req := NewRequest("/things", GET)
	req.AddHeader("X-Shared", "request")
	req.AddQuery("q", "a b")

	resp, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1, signer.calls)
	assert.Equal(t, "request", signer.seen.Get("X-Shared"))
	assert.Equal(t, "d", signer.seen.Get("X-Default-Only"))

	require.Len(t, *got, 1)
	sent := (*got)[0]
	assert.Equal(t, http.MethodGet, sent.method)
	assert.Equal(t, "/things", sent.path)
	assert.Equal(t, "q=a%20b", sent.query)
	assert.Equal(t, "request", sent.header.Get("X-Shared"))
	assert.Equal(t, "Signed", sent.header.Get("Authorization"))
}

func TestExecuteSendsBody(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusCreated, nil)
	exec, _ := newTestExecutor(t, srv.URL)

	req := NewRequest("/items", PUT)
	req.SetContentType("text/plain")
	req.SetBodyString("hello")

	_, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, *got, 1)
	assert.Equal(t, http.MethodPut, (*got)[0].method)
	assert.Equal(t, []byte("hello"), (*got)[0].body)
	assert.Equal(t, "text/plain", (*got)[0].header.Get("Content-Type"))
}

func TestExecuteBodyNotAllowed(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, nil)
	exec, _ := newTestExecutor(t, srv.URL)

	for _, m := range []Method{GET, DELETE, HEAD, OPTIONS, TRACE} {
		req := NewRequest("/x", m)
		req.SetBodyString("nope")

		_, err := exec.Execute(context.Background(), req)
		var bodyErr *BodyNotAllowedError
		require.ErrorAs(t, err, &bodyErr, m.String())
		assert.Equal(t, m, bodyErr.Method)
		assert.ErrorIs(t, err, ErrHTTP)
	}
	assert.Empty(t, *got)
}

func TestExecuteMissingBaseURL(t *testing.T) {
	exec, _ := newTestExecutor(t, "")
	_, err := exec.Execute(context.Background(), NewRequest("/x", GET))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.ErrorIs(t, err, resturl.ErrMissingBaseURL)
}

func TestExecuteExplicitBaseWins(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, nil)
	exec, _ := newTestExecutor(t, "http://unused.invalid")

	_, err := exec.Execute(context.Background(), NewURLRequest(resturl.NewWithPath(srv.URL, "/direct"), GET))
	require.NoError(t, err)
	require.Len(t, *got, 1)
	assert.Equal(t, "/direct", (*got)[0].path)
}

func TestExecuteNormalizesResponse(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusNotFound, func(w http.ResponseWriter) {
		w.Header().Add("X-Multi", "first")
		w.Header().Add("X-Multi", "last")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	})
	exec, hook := newTestExecutor(t, srv.URL)

	resp, err := exec.Execute(context.Background(), NewRequest("/missing", GET))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", resp.StatusMessage)
	assert.Equal(t, "last", resp.Header("X-Multi"))
	assert.Equal(t, "application/json", resp.ContentType())
	assert.Nil(t, resp.Body)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "GET", entry.Data["method"])
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
}

func TestExecuteConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	exec, _ := newTestExecutor(t, base)
	_, err := exec.Execute(context.Background(), NewRequest("/x", GET))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "error establishing connection", httpErr.Message)
	assert.ErrorIs(t, err, ErrHTTP)
}

func TestExecuteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	exec, _ := newTestExecutor(t, srv.URL)
	req := NewRequest("/slow", GET)
	req.SetTimeout(20 * time.Millisecond)

	_, err := exec.Execute(context.Background(), req)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "error establishing connection", httpErr.Message)
}

func TestExecuteRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	exec, _ := newTestExecutor(t, srv.URL)

	resp, err := exec.Execute(context.Background(), NewRequest("/old", GET))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := NewRequest("/old", GET)
	req.SetRedirectsEnabled(false)
	resp, err = exec.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/new", resp.Header("Location"))
}

func TestExecuteSignFailure(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, nil)
	exec, _ := newTestExecutor(t, srv.URL)

	cause := errors.New("no credentials")
	exec.SetSecurityProvider(&recordingSigner{failure: cause})

	_, err := exec.Execute(context.Background(), NewRequest("/x", GET))
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, *got)
}

type statusTransportError struct{ code int }

func (e statusTransportError) Error() string { return "status failure" }
func (e statusTransportError) StatusCode() int { return e.code }

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestExecuteClassifiesTransportErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
		code    int
	}{
		{"status carrying", statusTransportError{code: 503}, "", 503},
		{"unexpected eof", io.ErrUnexpectedEOF, "error establishing connection", 0},
		{"protocol", errors.New("malformed HTTP response"), "HTTP protocol error occurred", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewHTTPExecutor(Config{
				DefaultBaseURL: "http://example.test",
				HTTPClient: doerFunc(func(*http.Request) (*http.Response, error) {
					return nil, tt.err
				}),
			})

			_, err := exec.Execute(context.Background(), NewRequest("/x", GET))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrHTTP)

			if tt.code != 0 {
				code, ok := StatusCode(err)
				require.True(t, ok)
				assert.Equal(t, tt.code, code)
				return
			}
			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

type panickingBody struct{ closed *bool }

func (b panickingBody) Read([]byte) (int, error) { panic("boom") }
func (b panickingBody) Close() error {
	*b.closed = true
	return nil
}

func TestExecuteReleasesOnPanic(t *testing.T) {
	closed := false
	var reqCtx context.Context
	exec := NewHTTPExecutor(Config{
		DefaultBaseURL: "http://example.test",
		HTTPClient: doerFunc(func(r *http.Request) (*http.Response, error) {
			reqCtx = r.Context()
			return &http.Response{StatusCode: 200, Header: http.Header{}, Body: panickingBody{closed: &closed}}, nil
		}),
	})

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = exec.Execute(context.Background(), NewRequest("/x", GET))
	})
	assert.True(t, closed)
	require.NotNil(t, reqCtx)
	assert.Error(t, reqCtx.Err())
}

func TestExecuteRateLimited(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, nil)
	exec := NewHTTPExecutor(Config{
		DefaultBaseURL: srv.URL,
		RateLimiter:    rate.NewLimiter(rate.Every(time.Hour), 1),
	})

	_, err := exec.Execute(context.Background(), NewRequest("/a", GET))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = exec.Execute(ctx, NewRequest("/b", GET))
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Len(t, *got, 1)
}

func TestExecuteTruncatesLargeBodies(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusOK, func(w http.ResponseWriter) {
		_, _ = w.Write([]byte("0123456789"))
	})
	exec := NewHTTPExecutor(Config{DefaultBaseURL: srv.URL, MaxResponseSize: 4})

	resp, err := exec.Execute(context.Background(), NewRequest("/", GET))
	require.NoError(t, err)
	assert.Equal(t, "0123", resp.BodyString())
}

func TestCloseIsIdempotent(t *testing.T) {
	exec, _ := newTestExecutor(t, "http://example.test")
	assert.NoError(t, exec.Close())
	assert.NoError(t, exec.Close())
}
