// Package redact replaces secret values with stable placeholder tokens
// before anything is persisted to disk. Live in-memory variables are never
// redacted; only their persisted projections are.
package redact

import (
	"regexp"
	"strings"
)

var (
	sensitiveKeyRe = regexp.MustCompile(`(?i)(password|private[_-]?key|token|secret|pwd)`)
	placeholderRe  = regexp.MustCompile(`^\{[A-Za-z0-9_]+\}$`)
	nonAlnumRe     = regexp.MustCompile(`[^A-Za-z0-9]+`)
	camelBoundRe   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// SensitiveKey reports whether a mapping key names a secret.
func SensitiveKey(key string) bool {
	return sensitiveKeyRe.MatchString(key)
}

// PlaceholderName derives the placeholder variable name for a key:
// non-alphanumeric runs collapse to "_", camel-case boundaries split, the
// result is trimmed and lower-cased. "rootPassword" becomes "root_password".
func PlaceholderName(key string) string {
	name := nonAlnumRe.ReplaceAllString(key, "_")
	name = camelBoundRe.ReplaceAllString(name, "${1}_${2}")
	name = strings.ToLower(strings.Trim(name, "_"))
	if name == "" {
		return "redacted"
	}
	return name
}

// Values returns a copy of a nested structure in which every value under a
// sensitive key is replaced by "{<placeholder>}". A value that already looks
// like such a placeholder is kept as-is, which makes the filter idempotent
// and keeps persisted scenarios replayable without leaking real values.
func Values(obj any) any {
	switch v := obj.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if SensitiveKey(k) {
				if s, ok := item.(string); ok && placeholderRe.MatchString(s) {
					out[k] = s
				} else {
					out[k] = "{" + PlaceholderName(k) + "}"
				}
				continue
			}
			out[k] = Values(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Values(item)
		}
		return out
	default:
		return obj
	}
}
