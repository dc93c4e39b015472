package resttest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedsharma/drivethru/rest"
)

func TestCaptureAndReplay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/stuff":
			_, _ = w.Write([]byte(`{"name":"cheez","tags":["a","b"],"count":3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	live, err := rest.NewClient(rest.Config{DefaultBaseURL: srv.URL})
	require.NoError(t, err)

	capture := NewCapture(live.Executor())
	client := rest.NewClientWithExecutor(capture, nil)

	var got stuff
	require.NoError(t, client.Get(context.Background(), "/stuff", &got))
	assert.Equal(t, sample, got)

	_, err = client.Delete(context.Background(), "/missing")
	require.Error(t, err)

	exchanges := capture.Exchanges()
	require.Len(t, exchanges, 2)
	assert.Equal(t, srv.URL+"/stuff", exchanges[0].Request.URL)
	assert.Equal(t, "GET", exchanges[0].Request.Method)
	assert.Equal(t, 404, exchanges[1].Response.StatusCode)

	file := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, WriteFixture(file, exchanges))

	loaded, err := ReadFixture(file)
	require.NoError(t, err)
	assert.Equal(t, exchanges, loaded)

	srv.Close()

	replay := NewMockClient(srv.URL)
	require.NoError(t, replay.Load(loaded))

	var again stuff
	require.NoError(t, replay.Get(context.Background(), "/stuff", &again))
	assert.Equal(t, sample, again)

	_, err = replay.Delete(context.Background(), "/missing")
	code, ok := rest.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, 404, code)

	err = replay.Get(context.Background(), "/stuff", &again)
	var noMatch *NoMatchError
	assert.ErrorAs(t, err, &noMatch)
}

func TestExchangeBinaryBody(t *testing.T) {
	req := rest.NewRequest("/bin", rest.GET)
	req.URL.SetBaseURL("http://1.com")
	resp := rest.NewResponse(200, "OK")
	resp.SetBody([]byte{0xff, 0xfe, 0x00})

	ex := NewExchange(req, resp)
	assert.Empty(t, ex.Response.BodyString)
	assert.Equal(t, []byte{0xff, 0xfe, 0x00}, ex.Response.BodyBytes)

	r := NewRecorder()
	require.NoError(t, r.Load([]Exchange{ex}))
	got, err := r.Replay(req.URL, "", rest.GET)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe, 0x00}, got.Body)
}

func TestLoadRejectsUnknownMethod(t *testing.T) {
	r := NewRecorder()
	err := r.Load([]Exchange{{Request: ExchangeRequest{URL: "http://x", Method: "BREW"}}})
	assert.Error(t, err)
}

func TestReadFixtureMissing(t *testing.T) {
	_, err := ReadFixture(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

type failingCloser struct {
	bytes.Buffer
	err    error
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.err
}

func TestWriteFixtureReportsCloseError(t *testing.T) {
	flushErr := errors.New("disk full")
	w := &failingCloser{err: flushErr}

	err := writeFixture(w, []Exchange{{Request: ExchangeRequest{Method: "GET", URL: "http://x"}}})
	assert.ErrorIs(t, err, flushErr)
	assert.True(t, w.closed)
	assert.Contains(t, w.String(), `"url": "http://x"`)

	ok := &failingCloser{}
	require.NoError(t, writeFixture(ok, nil))
	assert.True(t, ok.closed)
}
