package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	store := NewStore()
	store.Set("cluster_id", "c-123")
	store.Set("count", float64(2))

	in := map[string]any{
		"path": "/clusters/{cluster_id}/nodes",
		"body": map[string]any{
			"size":  "{count}",
			"other": "{unknown}",
		},
		"list":   []any{"{cluster_id}", float64(7)},
		"number": float64(7),
	}

	out, ok := Substitute(in, store).(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "/clusters/c-123/nodes", out["path"])
	assert.Equal(t, "2", out["body"].(map[string]any)["size"])
	assert.Equal(t, "{unknown}", out["body"].(map[string]any)["other"], "unresolved tokens stay intact")
	assert.Equal(t, "c-123", out["list"].([]any)[0])
	assert.Equal(t, float64(7), out["number"])

	// Input untouched.
	assert.Equal(t, "/clusters/{cluster_id}/nodes", in["path"])
}

func TestFindRequiredAndMissing(t *testing.T) {
	in := map[string]any{
		"path": "/clusters/{cluster_id}",
		"body": map[string]any{"name": "{name}", "list": []any{"{cluster_id}"}},
	}
	required := FindRequired(in)
	assert.Len(t, required, 2)
	assert.Contains(t, required, "cluster_id")
	assert.Contains(t, required, "name")

	store := NewStore()
	store.Set("name", "x")
	assert.Equal(t, []string{"cluster_id"}, Missing(required, store))

	store.Set("cluster_id", "c-1")
	assert.Empty(t, Missing(required, store))
}

func TestExtractAndSave(t *testing.T) {
	body := map[string]any{
		"clusterId": "10233256",
		"nodeSetting": map[string]any{
			"groups": []any{map[string]any{"groupId": "g-1"}},
		},
	}
	cfg := &SaveConfig{Placeholder: []SaveRule{
		{Key: "cluster_1", Eval: "body.clusterId"},
		{Key: "group_1", Eval: "body.nodeSetting.groups[0].groupId"},
		{Key: "gone", Eval: "body.doesNotExist"},
		{Key: "", Eval: "body.clusterId"},
	}}

	store := NewStore()
	saved := ExtractAndSave(body, cfg, store)

	assert.Equal(t, map[string]any{"cluster_1": "10233256", "group_1": "g-1"}, saved)
	v, ok := store.Get("cluster_1")
	assert.True(t, ok)
	assert.Equal(t, "10233256", v)
	assert.False(t, store.Has("gone"), "unresolved paths are skipped silently")
}

func TestExtractAndSaveNilConfig(t *testing.T) {
	store := NewStore()
	saved := ExtractAndSave(map[string]any{"a": 1}, nil, store)
	assert.Empty(t, saved)
	assert.Equal(t, 0, store.Len())
}

func TestSavedNames(t *testing.T) {
	cfg := &SaveConfig{Placeholder: []SaveRule{
		{Key: "b", Eval: "body.b"},
		{Key: "a", Eval: "body.a"},
	}}
	saved := map[string]any{"a": 1, "b": 2}
	assert.Equal(t, []string{"b", "a"}, SavedNames(cfg, saved), "rule order, not map order")
	assert.Empty(t, SavedNames(nil, saved))
}
