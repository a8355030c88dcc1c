package recapi_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	env, err := recapi.ParseEnvelope([]byte(`{
		"success": true,
		"timestamp": "2026-01-01T00:00:00Z",
		"data": [1, 2],
		"pagination": {"page": 2, "limit": 2, "total": 5, "pages": 3}
	}`))
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.JSONEq(t, `[1, 2]`, string(env.Data))
	require.NotNil(t, env.Pagination)
	assert.True(t, env.Pagination.HasNext())

	_, err = recapi.ParseEnvelope([]byte(`<html>bad gateway</html>`))
	require.Error(t, err)

	_, err = recapi.ParseEnvelope([]byte(`[1, 2]`))
	require.Error(t, err)
}

func TestPayloadFromEnvelope(t *testing.T) {
	t.Parallel()

	_, err := recapi.PayloadFromEnvelope(nil)
	require.Error(t, err)
	assert.True(t, recapi.IsValidation(err))

	_, err = recapi.PayloadFromEnvelope(&recapi.Envelope{Success: false, Message: "quota exceeded"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	payload, err := recapi.PayloadFromEnvelope(&recapi.Envelope{Success: true, Message: "ok", Data: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "ok", payload.Message)
	assert.Equal(t, `{}`, string(payload.Data))
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "from envelope", recapi.ErrorMessage(&recapi.Envelope{Message: "from envelope"}, []byte("body"), 10))
	assert.Equal(t, "plain body", recapi.ErrorMessage(nil, []byte("  plain body \n"), 0))
	assert.Equal(t, "abcde", recapi.ErrorMessage(nil, []byte(strings.Repeat("abcde", 10)), 5))

	// Truncation never splits a multi-byte rune.
	assert.Equal(t, "é", recapi.ErrorMessage(nil, []byte("éé"), 3))
}
