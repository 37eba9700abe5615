package util

import (
	"os"
	"regexp"
	"strings"
)

// envPattern matches ${VAR} and ${VAR:-default} references. Only uppercase
// names are expanded so that request payload text is left alone.
var envPattern = regexp.MustCompile(`\$\{([A-Z0-9_]+)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references in a string with
// values from the process environment. An unset or empty variable falls back
// to the default, or the empty string when no default is given.
func ExpandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		value := os.Getenv(groups[1])
		if value == "" {
			return groups[2]
		}
		return value
	})
}

// ExpandEnvAny applies ExpandEnv to every string value inside a nested
// structure of maps, slices, and scalars, returning a copy. Non-string
// scalars pass through unchanged.
func ExpandEnvAny(obj any) any {
	switch v := obj.(type) {
	case string:
		return ExpandEnv(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = ExpandEnvAny(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ExpandEnvAny(item)
		}
		return out
	default:
		return obj
	}
}

// Snippet returns a short prefix of a byte slice, useful for logging.
func Snippet(b []byte) string {
	const maxLen = 200
	runes := []rune(string(b))
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return string(b)
}

// Truncate caps a string at n runes. Used when folding oversized raw
// response or process output into a structured body.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

// LooksLikeJSON performs a basic check to see if a string starts and ends
// with characters typical of JSON objects or arrays.
func LooksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
}
