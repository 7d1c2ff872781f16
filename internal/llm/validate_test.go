package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"valid", `{"portrait":"x","strengths":["a"]}`, ""},
		{"missing required", `{"strengths":["a"]}`, "schema profile-summary"},
		{"extra property", `{"portrait":"x","mood":"ok"}`, "schema profile-summary"},
		{"bad enum", `{"portrait":"x","level":"mid"}`, "schema profile-summary"},
		{"not json", `Портрет.`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(profileSchema, json.RawMessage(tt.raw))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.raw, string(inv.Content))
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	assert.NoError(t, validateResponse(nil, json.RawMessage("plain text")))
}

func TestCompileSchema_Cached(t *testing.T) {
	a, err := compileSchema(profileSchema)
	require.NoError(t, err)
	b, err := compileSchema(profileSchema)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
