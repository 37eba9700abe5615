package pathexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleBody() map[string]any {
	return map[string]any{
		"clusterId": "10233256",
		"state":     "ACTIVE",
		"count":     float64(3),
		"nodeSetting": map[string]any{
			"groups": []any{
				map[string]any{"groupId": "g-1"},
				map[string]any{"groupId": "g-2"},
			},
		},
		"items": []any{"a", "b"},
	}
}

func TestLookup(t *testing.T) {
	body := sampleBody()
	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{"top level key", "clusterId", "10233256", true},
		{"nested key", "nodeSetting.groups", body["nodeSetting"].(map[string]any)["groups"], true},
		{"index into list", "nodeSetting.groups[0].groupId", "g-1", true},
		{"second index", "nodeSetting.groups[1].groupId", "g-2", true},
		{"bare list index", "items[1]", "b", true},
		{"missing key", "nope", nil, false},
		{"missing nested key", "nodeSetting.nope", nil, false},
		{"index out of range", "nodeSetting.groups[5]", nil, false},
		{"index into map", "clusterId[0]", nil, false},
		{"key into scalar", "clusterId.sub", nil, false},
		{"negative index", "items[-1]", nil, false},
		{"malformed bracket", "items[x]", nil, false},
		{"empty path", "", nil, false},
		{"empty segment", "a..b", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Lookup(body, tt.path)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStripBody(t *testing.T) {
	assert.Equal(t, "clusterId", StripBody("body.clusterId"))
	assert.Equal(t, "clusterId", StripBody("clusterId"))
	assert.Equal(t, "body", StripBody("body"))
}

func TestCondition(t *testing.T) {
	body := sampleBody()
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty is vacuously true", "", true},
		{"whitespace only", "   ", true},
		{"equality match", "body.state == ACTIVE", true},
		{"equality mismatch", "body.state == DELETED", false},
		{"quoted literal", `body.state == "ACTIVE"`, true},
		{"single quoted literal", "body.state == 'ACTIVE'", true},
		{"numeric comparison", "body.count == 3", true},
		{"nested path", "body.nodeSetting.groups[0].groupId == g-1", true},
		{"unresolvable path", "body.missing == x", false},
		{"no operator", "body.state", false},
		{"unsupported operator", "body.count > 1", false},
		{"left side not body-rooted", "state == ACTIVE", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Condition(body, tt.expr))
		})
	}
}
