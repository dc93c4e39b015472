package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedsharma/drivethru/resturl"
	"github.com/vedsharma/drivethru/transform"
)

type widget struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

type stubResponse struct {
	status      int
	contentType string
	body        string
}

// newStubServer answers every request with the response registered for its
// method and records the last request body.
func newStubServer(t *testing.T, responses map[string]stubResponse) (*httptest.Server, *[]byte) {
	t.Helper()
	var lastBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastBody, _ = io.ReadAll(r.Body)
		stub, ok := responses[r.Method]
		if !ok {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if stub.contentType != "" {
			w.Header().Set("Content-Type", stub.contentType)
		}
		w.WriteHeader(stub.status)
		_, _ = io.WriteString(w, stub.body)
	}))
	t.Cleanup(srv.Close)
	return srv, &lastBody
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{DefaultBaseURL: baseURL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientGet(t *testing.T) {
	srv, _ := newStubServer(t, map[string]stubResponse{
		http.MethodGet: {200, "application/json; charset=utf-8", `{"name":"bolt","count":3}`},
	})
	c := newTestClient(t, srv.URL)

	var got widget
	require.NoError(t, c.Get(context.Background(), "/widgets/1", &got))
	if diff := cmp.Diff(widget{Name: "bolt", Count: 3}, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, c.Get(context.Background(), "/widgets/1", nil))
}

func TestClientGetWrongContentType(t *testing.T) {
	srv, _ := newStubServer(t, map[string]stubResponse{
		http.MethodGet: {200, "text/html", "<html/>"},
	})
	c := newTestClient(t, srv.URL)

	var got widget
	err := c.Get(context.Background(), "/", &got)
	var ctErr *ContentTypeError
	require.ErrorAs(t, err, &ctErr)
	assert.Equal(t, "text/html", ctErr.ContentType)
	assert.Equal(t, transform.MIMEJSON, ctErr.Expected)
	assert.ErrorIs(t, err, ErrHTTP)
}

func TestClientGetStatus(t *testing.T) {
	srv, _ := newStubServer(t, map[string]stubResponse{
		http.MethodGet: {201, "application/json", "{}"},
	})
	c := newTestClient(t, srv.URL)

	err := c.GetURL(context.Background(), resturl.NewWithPath(srv.URL, "/x"), &widget{})
	code, ok := StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, 201, code)
}

func TestClientPut(t *testing.T) {
	tests := []struct {
		status  int
		want    bool
		wantErr bool
	}{
		{201, true, false},
		{200, false, false},
		{204, false, false},
		{409, false, true},
	}

	for _, tt := range tests {
		srv, body := newStubServer(t, map[string]stubResponse{
			http.MethodPut: {status: tt.status},
		})
		c := newTestClient(t, srv.URL)

		got, err := c.Put(context.Background(), "/widgets/1", widget{Name: "nut", Count: 1})
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "status %d", tt.status)
		assert.JSONEq(t, `{"name":"nut","count":1}`, string(*body))
	}
}

func TestClientDelete(t *testing.T) {
	tests := []struct {
		status  int
		want    bool
		wantErr bool
	}{
		{200, true, false},
		{202, false, false},
		{204, false, false},
		{404, false, true},
	}

	for _, tt := range tests {
		srv, _ := newStubServer(t, map[string]stubResponse{
			http.MethodDelete: {status: tt.status},
		})
		c := newTestClient(t, srv.URL)

		got, err := c.Delete(context.Background(), "/widgets/1")
		if tt.wantErr {
			var se *StatusError
			assert.ErrorAs(t, err, &se)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "status %d", tt.status)
	}
}

func TestClientPost(t *testing.T) {
	srv, body := newStubServer(t, map[string]stubResponse{
		http.MethodPost: {201, "application/json", `{"name":"made","count":9}`},
	})
	c := newTestClient(t, srv.URL)

	var got widget
	require.NoError(t, c.Post(context.Background(), "/widgets", widget{Name: "new"}, &got))
	assert.Equal(t, widget{Name: "made", Count: 9}, got)
	assert.JSONEq(t, `{"name":"new","count":0}`, string(*body))

	require.NoError(t, c.Post(context.Background(), "/widgets", nil, nil))
	assert.Empty(t, *body)
}

func TestClientPostNoContent(t *testing.T) {
	srv, _ := newStubServer(t, map[string]stubResponse{
		http.MethodPost: {status: 204},
	})
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.Post(context.Background(), "/ping", nil, nil))

	err := c.Post(context.Background(), "/ping", nil, &widget{})
	var ctErr *ContentTypeError
	assert.ErrorAs(t, err, &ctErr)
}

func TestClientYAMLTransformer(t *testing.T) {
	srv, _ := newStubServer(t, map[string]stubResponse{
		http.MethodGet: {200, transform.MIMEYAML, "name: gear\ncount: 2\n"},
	})
	c, err := NewClient(Config{DefaultBaseURL: srv.URL, Transformer: transform.YAML()})
	require.NoError(t, err)

	var got widget
	require.NoError(t, c.Get(context.Background(), "/", &got))
	assert.Equal(t, widget{Name: "gear", Count: 2}, got)
}

func TestTypedClient(t *testing.T) {
	srv, _ := newStubServer(t, map[string]stubResponse{
		http.MethodGet: {200, "application/json", `{"name":"typed","count":7}`},
	})
	typed, err := NewTypedClientFrom[widget](DefaultFactory{}, srv.URL)
	require.NoError(t, err)

	got, err := typed.Get(context.Background(), "/w")
	require.NoError(t, err)
	assert.Equal(t, widget{Name: "typed", Count: 7}, got)
	assert.Equal(t, srv.URL, typed.DefaultBaseURL())
}

func TestClientExecuteIgnoresPolicy(t *testing.T) {
	srv, _ := newStubServer(t, map[string]stubResponse{
		http.MethodPatch: {status: 418},
	})
	c := newTestClient(t, srv.URL)

	req := NewRequest("/teapot", PATCH)
	req.SetBodyString("{}")
	resp, err := c.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 418, resp.StatusCode)
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"bad scheme", Config{DefaultBaseURL: "ftp://files.example.com"}, "DefaultBaseURL"},
		{"no host", Config{DefaultBaseURL: "http://"}, "DefaultBaseURL"},
		{"negative timeout", Config{Timeout: -1}, "Timeout"},
		{"negative max size", Config{MaxResponseSize: -1}, "MaxResponseSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrHTTP)
		})
	}

	c, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, transform.MIMEJSON, c.Transformer().MIME())
}
