package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSensitiveKey(t *testing.T) {
	sensitive := []string{"password", "rootPassword", "api_token", "PRIVATE_KEY", "private-key", "clientSecret", "pwd", "db_pwd"}
	for _, key := range sensitive {
		assert.True(t, SensitiveKey(key), key)
	}
	plain := []string{"username", "clusterId", "state", "public_key_id_count", "host"}
	for _, key := range plain {
		assert.False(t, SensitiveKey(key), key)
	}
}

func TestPlaceholderName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"rootPassword", "root_password"},
		{"password", "password"},
		{"API-Token", "api_token"},
		{"private_key", "private_key"},
		{"__secret__", "secret"},
		{"", "redacted"},
		{"!!!", "redacted"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlaceholderName(tt.key), tt.key)
	}
}

func TestValues(t *testing.T) {
	in := map[string]any{
		"clusterId":    "c-1",
		"rootPassword": "hunter2",
		"nested": map[string]any{
			"api_token": "tok-abc",
			"state":     "ACTIVE",
		},
		"list": []any{
			map[string]any{"secret": "s3cr3t", "name": "a"},
		},
	}

	out, ok := Values(in).(map[string]any)
	assert.True(t, ok)

	assert.Equal(t, "c-1", out["clusterId"])
	assert.Equal(t, "{root_password}", out["rootPassword"])
	assert.Equal(t, "{api_token}", out["nested"].(map[string]any)["api_token"])
	assert.Equal(t, "ACTIVE", out["nested"].(map[string]any)["state"])
	assert.Equal(t, "{secret}", out["list"].([]any)[0].(map[string]any)["secret"])
	assert.Equal(t, "a", out["list"].([]any)[0].(map[string]any)["name"])

	// Input untouched.
	assert.Equal(t, "hunter2", in["rootPassword"])
}

func TestValuesIdempotent(t *testing.T) {
	in := map[string]any{"rootPassword": "hunter2", "plain": "x"}
	once := Values(in)
	twice := Values(once)
	assert.Equal(t, once, twice)
}

func TestValuesDeterministic(t *testing.T) {
	in := map[string]any{"rootPassword": "first"}
	again := map[string]any{"rootPassword": "completely-different"}
	a := Values(in).(map[string]any)
	b := Values(again).(map[string]any)
	assert.Equal(t, a["rootPassword"], b["rootPassword"])
}
