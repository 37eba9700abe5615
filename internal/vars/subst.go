package vars

import (
	"regexp"
	"sort"

	"api-recorder/internal/pathexpr"
	"api-recorder/internal/util"
)

// placeholderRe matches {name} tokens inside request strings.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// SaveConfig carries the extraction instructions attached to one step:
// which response paths to evaluate and which variable names to save them
// under. It is retained verbatim on attempts so the compiled scenario can
// reproduce the same extraction at replay time.
type SaveConfig struct {
	Placeholder []SaveRule `json:"placeholder" yaml:"placeholder"`
}

// SaveRule maps one extraction path to a variable name.
type SaveRule struct {
	Key  string `json:"key" yaml:"key"`
	Eval string `json:"eval" yaml:"eval"`
}

// Substitute walks a request structure and replaces every {name} occurrence
// inside string values with the stringified store value for that name.
// Tokens whose name is absent from the store are left untouched: the gap is
// surfaced as a missing-variables warning before execution, not a failure.
func Substitute(obj any, store *Store) any {
	switch v := obj.(type) {
	case string:
		return placeholderRe.ReplaceAllStringFunc(v, func(match string) string {
			name := match[1 : len(match)-1]
			if value, ok := store.Get(name); ok {
				return util.Stringify(value)
			}
			return match
		})
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Substitute(item, store)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Substitute(item, store)
		}
		return out
	default:
		return obj
	}
}

// FindRequired collects the set of all {name} tokens referenced anywhere in
// a request structure.
func FindRequired(obj any) map[string]struct{} {
	required := make(map[string]struct{})
	collectRequired(obj, required)
	return required
}

func collectRequired(obj any, required map[string]struct{}) {
	switch v := obj.(type) {
	case string:
		for _, match := range placeholderRe.FindAllStringSubmatch(v, -1) {
			required[match[1]] = struct{}{}
		}
	case map[string]any:
		for _, item := range v {
			collectRequired(item, required)
		}
	case []any:
		for _, item := range v {
			collectRequired(item, required)
		}
	}
}

// Missing returns the sorted subset of required names absent from the store.
func Missing(required map[string]struct{}, store *Store) []string {
	var missing []string
	for name := range required {
		if !store.Has(name) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// ExtractAndSave evaluates each save rule's path against a response body and
// writes resolved values into the store. Rules whose path does not resolve
// are skipped silently; extraction is best-effort, and the dependency
// validator is where resulting gaps get reported. The returned map holds the
// variables produced by this call.
func ExtractAndSave(body map[string]any, cfg *SaveConfig, store *Store) map[string]any {
	saved := make(map[string]any)
	if cfg == nil {
		return saved
	}
	for _, rule := range cfg.Placeholder {
		if rule.Key == "" || rule.Eval == "" {
			continue
		}
		value, ok := pathexpr.Lookup(map[string]any(body), pathexpr.StripBody(rule.Eval))
		if !ok || value == nil {
			continue
		}
		store.Set(rule.Key, value)
		saved[rule.Key] = value
	}
	return saved
}

// SavedNames lists the variable names a save config produced, in rule order.
func SavedNames(cfg *SaveConfig, saved map[string]any) []string {
	names := []string{}
	if cfg == nil {
		return names
	}
	for _, rule := range cfg.Placeholder {
		if _, ok := saved[rule.Key]; ok {
			names = append(names, rule.Key)
		}
	}
	return names
}
