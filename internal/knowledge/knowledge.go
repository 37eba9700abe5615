// Package knowledge exports locally accumulated pitfalls and interaction
// patterns into a repo-tracked YAML file, sanitized so ids, hashes, and
// endpoints from real environments never land in version control.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"api-recorder/internal/config"
)

var (
	longNumberRe = regexp.MustCompile(`\b\d{6,}\b`)
	hexRe        = regexp.MustCompile(`\b[0-9a-fA-F]{8,}\b`)
	urlRe        = regexp.MustCompile(`https?://[^\s'"<>]+`)
)

// DefaultMinOccurrences is the pitfall export threshold: one-off errors are
// noise, repeats are knowledge.
const DefaultMinOccurrences = 2

// ExportOpts controls one export run.
type ExportOpts struct {
	SUTName        string
	OutPath        string // default <root>/configs/<sut>/knowledge.yaml
	FromDir        string // default ~/.api-recorder/knowledge/<sut>
	MinOccurrences int
}

// ExportResult reports what the export run did.
type ExportResult struct {
	SUT       string       `json:"sut" yaml:"sut"`
	SourceDir string       `json:"source_dir" yaml:"source_dir"`
	Out       string       `json:"out" yaml:"out"`
	Added     ExportCounts `json:"added" yaml:"added"`
	Counts    ExportTotals `json:"counts" yaml:"counts"`
}

type ExportCounts struct {
	Pitfalls int `json:"pitfalls" yaml:"pitfalls"`
	Patterns int `json:"patterns" yaml:"patterns"`
}

type ExportTotals struct {
	PitfallsExported int `json:"pitfalls_exported" yaml:"pitfalls_exported"`
	PatternsExported int `json:"patterns_exported" yaml:"patterns_exported"`
}

// Export merges local knowledge into the repo file. Entries already present
// in the repo file win: the repo copy is the reviewed source of truth, so
// collisions are skipped rather than overwritten.
func Export(root string, opts ExportOpts) (*ExportResult, error) {
	sutName := config.CanonicalSUTName(opts.SUTName)

	fromDir := opts.FromDir
	if fromDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		fromDir = filepath.Join(home, ".api-recorder", "knowledge", sutName)
	}

	outPath := opts.OutPath
	if outPath == "" {
		outPath = filepath.Join(config.SUTDir(root, sutName), "knowledge.yaml")
	}

	minOcc := opts.MinOccurrences
	if minOcc <= 0 {
		minOcc = DefaultMinOccurrences
	}

	pitfallsSrc := listSection(readYAML(filepath.Join(fromDir, "pitfalls.yaml")), "pitfalls")
	patternsSrc := listSection(readYAML(filepath.Join(fromDir, "patterns.yaml")), "patterns")

	var pitfalls []map[string]any
	for _, p := range pitfallsSrc {
		if occurrenceCount(p) < minOcc {
			continue
		}
		clean, _ := sanitize(p).(map[string]any)
		// Timestamps churn in git diffs without adding knowledge.
		delete(clean, "last_occurred")
		pitfalls = append(pitfalls, clean)
	}

	var patterns []map[string]any
	for _, p := range patternsSrc {
		clean, _ := sanitize(p).(map[string]any)
		delete(clean, "last_used")
		patterns = append(patterns, clean)
	}

	merged := readYAML(outPath)
	if merged == nil {
		merged = map[string]any{}
	}

	mergedPitfalls := listSection(merged, "pitfalls")
	mergedPatterns := listSection(merged, "patterns")

	addedPitfalls := 0
	seenPitfalls := keySet(mergedPitfalls, pitfallKey)
	for _, p := range pitfalls {
		k := pitfallKey(p)
		if _, exists := seenPitfalls[k]; exists {
			continue
		}
		mergedPitfalls = append(mergedPitfalls, p)
		seenPitfalls[k] = struct{}{}
		addedPitfalls++
	}

	addedPatterns := 0
	seenPatterns := keySet(mergedPatterns, patternKey)
	for _, p := range patterns {
		k := patternKey(p)
		if _, exists := seenPatterns[k]; exists {
			continue
		}
		mergedPatterns = append(mergedPatterns, p)
		seenPatterns[k] = struct{}{}
		addedPatterns++
	}

	merged["pitfalls"] = mergedPitfalls
	merged["patterns"] = mergedPatterns
	merged["export"] = map[string]any{
		"sut":             sutName,
		"min_occurrences": minOcc,
		"source_dir":      fromDir,
		"exported_at":     time.Now().UTC().Format(time.RFC3339),
	}

	if err := writeYAML(outPath, merged); err != nil {
		return nil, err
	}

	return &ExportResult{
		SUT:       sutName,
		SourceDir: fromDir,
		Out:       outPath,
		Added:     ExportCounts{Pitfalls: addedPitfalls, Patterns: addedPatterns},
		Counts:    ExportTotals{PitfallsExported: len(pitfalls), PatternsExported: len(patterns)},
	}, nil
}

// pitfallKey identifies a pitfall by its trigger and error pattern.
func pitfallKey(p map[string]any) string {
	trigger, _ := p["trigger"].(map[string]any)
	errPattern, _ := p["error_pattern"].(map[string]any)
	return fmt.Sprintf("%v|%v|%v|%v",
		trigger["operation_id"], trigger["missing_variable"],
		trigger["resource_state"], errPattern["message_contains"])
}

// patternKey identifies a pattern by name, intent keywords, and precondition.
func patternKey(p map[string]any) string {
	trigger, _ := p["trigger"].(map[string]any)
	return fmt.Sprintf("%v|%v|%v", p["name"], trigger["intent_keywords"], trigger["precondition"])
}

func keySet(entries []map[string]any, keyFn func(map[string]any) string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[keyFn(e)] = struct{}{}
	}
	return set
}

func occurrenceCount(p map[string]any) int {
	switch v := p["occurrence_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func sanitizeText(s string) string {
	s = urlRe.ReplaceAllString(s, "<REDACTED_URL>")
	s = longNumberRe.ReplaceAllString(s, "<REDACTED_NUM>")
	s = hexRe.ReplaceAllString(s, "<REDACTED_HEX>")
	return s
}

func sanitize(obj any) any {
	switch v := obj.(type) {
	case string:
		return sanitizeText(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitize(item)
		}
		return out
	default:
		return obj
	}
}

func listSection(doc map[string]any, key string) []map[string]any {
	raw, _ := doc[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func readYAML(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}

func writeYAML(path string, doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create '%s': %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}
