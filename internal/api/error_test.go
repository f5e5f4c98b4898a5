package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFallback(t *testing.T) {
	assert.Equal(t, "request failed", (&Error{}).Error())
	assert.Equal(t, "request failed", (&Error{Code: "500"}).Error())
	assert.Equal(t, "task not found", (&Error{Code: "NOT_FOUND", Message: "task not found"}).Error())
}

func TestEnvelopeDecoding(t *testing.T) {
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(`{
		"success": false,
		"error": {"code": "OVER_ASSIGNMENT", "message": "too many records assigned"}
	}`), &env))
	require.NotNil(t, env.Error)
	assert.False(t, env.Success)
	assert.Equal(t, "OVER_ASSIGNMENT", env.Error.Code)

	// A success envelope leaves the data payload raw for the caller.
	require.NoError(t, json.Unmarshal([]byte(`{"success": true, "data": {"id": "t1"}}`), &env))
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"id": "t1"}`, string(env.Data))
}
