package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	s.Set("key1", "value1")
	s.Set("key2", float64(2))

	v, ok := s.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", v)

	_, ok = s.Get("nonexistent")
	assert.False(t, ok)

	s.Set("key1", "new")
	v, _ = s.Get("key1")
	assert.Equal(t, "new", v)
	assert.Equal(t, 2, s.Len())
}

func TestStoreGetAllCopies(t *testing.T) {
	s := NewStore()
	s.Set("a", "1")
	all := s.GetAll()
	all["b"] = "2"
	assert.False(t, s.Has("b"), "mutating the snapshot must not affect the store")
}

func TestStoreMergeMap(t *testing.T) {
	s := NewStore()
	s.Set("a", "1")
	s.MergeMap(map[string]any{"a": "override", "b": "2"})
	s.MergeMap(nil)

	assert.Equal(t, map[string]any{"a": "override", "b": "2"}, s.GetAll())
}
