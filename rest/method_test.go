package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	for _, m := range Methods {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMethod(" option ")
	require.NoError(t, err)
	assert.Equal(t, OPTIONS, got)

	got, err = ParseMethod("post")
	require.NoError(t, err)
	assert.Equal(t, POST, got)

	_, err = ParseMethod("FETCH")
	assert.Error(t, err)
}

func TestAllowsBody(t *testing.T) {
	allowed := map[Method]bool{POST: true, PUT: true, PATCH: true}
	for _, m := range Methods {
		assert.Equal(t, allowed[m], m.AllowsBody(), m.String())
	}
}

func TestResponseHeaders(t *testing.T) {
	resp := NewResponse(200, "OK")
	resp.AddHeader("Content-Type", "application/yaml;charset=UTF-8")
	resp.AddHeader("x-lower", "v")

	assert.Equal(t, "application/yaml", resp.ContentType())
	assert.Equal(t, "v", resp.Header("x-lower"))
	assert.Equal(t, "application/yaml;charset=UTF-8", resp.Header("content-type"))
	assert.Equal(t, "", resp.Header("missing"))

	assert.Equal(t, "", NewResponse(204, "No Content").ContentType())
}
