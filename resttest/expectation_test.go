package resttest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedsharma/drivethru/rest"
)

func TestExpectationMatchCountLimit(t *testing.T) {
	e := NewExpectation().Once().AndReturn(200)
	assert.True(t, e.Matches("asuj9p08jr32;d", rest.GET))

	_, err := e.Replay()
	require.NoError(t, err)
	assert.False(t, e.Matches("asuj9p08jr32;d", rest.GET))
	assert.Equal(t, 0, e.Remaining())
}

func TestExpectationTimes(t *testing.T) {
	e := NewExpectation().Times(3)
	for i := 0; i < 3; i++ {
		require.True(t, e.Matches("u", rest.GET), "match %d", i)
		_, _ = e.Replay()
	}
	assert.False(t, e.Matches("u", rest.GET))
}

func TestExpectationUnlimited(t *testing.T) {
	e := NewExpectation()
	for i := 0; i < 10; i++ {
		_, _ = e.Replay()
	}
	assert.True(t, e.Matches("u", rest.DELETE))
	assert.Equal(t, -1, e.Remaining())
}

func TestExpectationWithDelay(t *testing.T) {
	e := NewExpectation().AndReturn(202).After(80 * time.Millisecond)

	start := time.Now()
	resp, err := e.Replay()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 202, resp.StatusCode)
	assert.Equal(t, StatusNotDefined, resp.StatusMessage)
}

func TestExpectationWithThrow(t *testing.T) {
	expected := &rest.HTTPError{Message: "Some message"}
	e := NewExpectation().AndThrow(expected)

	_, err := e.Replay()
	assert.Same(t, expected, err)
	assert.Same(t, expected, e.Err())
}

func TestExpectationMatching(t *testing.T) {
	const url = "http://1.com/users/42"

	tests := []struct {
		name   string
		e      *Expectation
		method rest.Method
		want   bool
	}{
		{"any", NewExpectation(), rest.PUT, true},
		{"pattern", newExpectation(nil, ".*/users/\\d+", true), rest.GET, true},
		{"pattern is anchored", newExpectation(nil, "users/\\d+", true), rest.GET, false},
		{"exact", newExpectation(nil, url, false), rest.POST, true},
		{"exact is literal", newExpectation(nil, "http://1.com/users/.*", false), rest.GET, false},
		{"method", methodExpectation(rest.GET, ".*", true), rest.GET, true},
		{"method mismatch", methodExpectation(rest.GET, ".*", true), rest.POST, false},
		{"method exact", methodExpectation(rest.DELETE, url, false), rest.DELETE, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.Matches(url, tt.method))
		})
	}
}

func methodExpectation(m rest.Method, pattern string, isRegex bool) *Expectation {
	return newExpectation(&m, pattern, isRegex)
}

func TestExpectationBodies(t *testing.T) {
	resp, err := NewExpectation().
		AndReturnStatus(201, "Created").
		WithBodyString("hi", "text/plain").
		WithHeader("X-Id", "7").
		Replay()
	require.NoError(t, err)
	assert.Equal(t, "Created", resp.StatusMessage)
	assert.Equal(t, "hi", resp.BodyString())
	assert.Equal(t, "text/plain", resp.ContentType())
	assert.Equal(t, "7", resp.Header("X-Id"))

	resp, err = NewExpectation().AndReturn(200).WithYAMLBody(map[string]int{"a": 1}).Replay()
	require.NoError(t, err)
	assert.Equal(t, "application/yaml", resp.ContentType())
	assert.Equal(t, "a: 1\n", resp.BodyString())

	_, err = NewExpectation().WithJSONBody(func() {}).Replay()
	var httpErr *rest.HTTPError
	assert.ErrorAs(t, err, &httpErr)
}

func TestExpectationReplayReturnsCopies(t *testing.T) {
	e := NewExpectation().AndReturn(200).WithBodyString("x", "text/plain")

	first, _ := e.Replay()
	first.Body[0] = 'y'
	first.Headers["Content-Type"] = "changed"

	second, _ := e.Replay()
	assert.Equal(t, "x", second.BodyString())
	assert.Equal(t, "text/plain", second.ContentType())
}

func TestNoMatchErrorIsNotHTTPError(t *testing.T) {
	err := error(&NoMatchError{URL: "http://x"})
	assert.False(t, errors.Is(err, rest.ErrHTTP))
	assert.Equal(t, "No response recorded for URL: http://x", err.Error())
}

func TestInvalidPatternPanics(t *testing.T) {
	r := NewRecorder()
	assert.Panics(t, func() { r.ExpectPattern("(unclosed") })
	assert.Panics(t, func() { r.ExpectMethodPattern(rest.GET, "[a-") })
	assert.Empty(t, r.Expectations())
}
