// Package pathexpr implements the small extraction path language used to
// address values inside nested response structures: dotted segments with an
// optional zero-based index suffix, e.g. "nodeSetting.groups[0].groupId".
//
// Resolution is best-effort: a missing key, an out-of-range index, or a kind
// mismatch yields not-found rather than an error. There is deliberately no
// wildcard or slice support.
package pathexpr

import (
	"strconv"
	"strings"
)

// BodyPrefix marks a path as relative to the response body.
const BodyPrefix = "body."

// segment is one resolved step of a path: either a map key or a slice index.
type segment struct {
	key     string
	index   int
	isIndex bool
}

// parse splits a path into segments. It returns false for malformed input
// (empty segment, unterminated bracket, non-numeric or negative index).
func parse(path string) ([]segment, bool) {
	if path == "" {
		return nil, false
	}
	var segs []segment
	for _, raw := range strings.Split(path, ".") {
		open := strings.IndexByte(raw, '[')
		if open < 0 {
			if raw == "" {
				return nil, false
			}
			segs = append(segs, segment{key: raw})
			continue
		}
		close := strings.IndexByte(raw, ']')
		if close < open {
			return nil, false
		}
		if base := raw[:open]; base != "" {
			segs = append(segs, segment{key: base})
		}
		idx, err := strconv.Atoi(raw[open+1 : close])
		if err != nil || idx < 0 {
			return nil, false
		}
		segs = append(segs, segment{index: idx, isIndex: true})
	}
	return segs, true
}

// StripBody removes the leading body marker from a path, if present.
func StripBody(path string) string {
	return strings.TrimPrefix(path, BodyPrefix)
}

// Lookup resolves a path against a nested structure of maps, slices, and
// scalars. The second return value reports whether the path resolved.
func Lookup(doc any, path string) (any, bool) {
	segs, ok := parse(path)
	if !ok {
		return nil, false
	}
	current := doc
	for _, seg := range segs {
		if seg.isIndex {
			list, ok := current.([]any)
			if !ok || seg.index >= len(list) {
				return nil, false
			}
			current = list[seg.index]
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, ok := m[seg.key]
		if !ok {
			return nil, false
		}
		current = val
	}
	return current, true
}
