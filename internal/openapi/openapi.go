// Package openapi serves spec navigation for agents: listing operations and
// extracting one operation with the schema closure it references. Specs too
// large to read whole are consumed through these two windows instead.
package openapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/tidwall/gjson"

	"api-recorder/internal/config"
)

// Operation is the abbreviated listing entry for one spec operation.
type Operation struct {
	OperationID string   `json:"operationId" yaml:"operationId"`
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	Summary     string   `json:"summary" yaml:"summary"`
	Tags        []string `json:"tags" yaml:"tags"`
}

// SpecPath resolves the OpenAPI document location for a SUT. The sut.yaml
// specs.openapi value is relative to the SUT's config directory and
// defaults to openapi.json.
func SpecPath(root string, cfg *config.SUTConfig, sutName string) string {
	rel := cfg.Specs.OpenAPI
	if rel == "" {
		rel = "openapi.json"
	}
	return filepath.Join(config.SUTDir(root, sutName), rel)
}

// LoadSpec reads the raw OpenAPI document for a SUT.
func LoadSpec(root, sutName string) (string, []byte, error) {
	cfg, err := config.LoadSUT(root, sutName)
	if err != nil {
		return "", nil, err
	}
	path := SpecPath(root, cfg, config.CanonicalSUTName(sutName))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("OpenAPI spec not found: %s", path)
		}
		return "", nil, err
	}
	return path, data, nil
}

// List enumerates operations that carry an operationId, optionally filtered
// by a case-insensitive substring over id, method, path, and summary.
// A limit of 0 means no limit. Output order is path then method, so listing
// is stable across runs.
func List(raw []byte, query string, limit int) ([]Operation, error) {
	ops, err := allOperations(raw)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := []Operation{}
	for _, op := range ops {
		if q != "" {
			hay := strings.ToLower(op.OperationID + " " + op.Method + " " + op.Path + " " + op.Summary)
			if !strings.Contains(hay, q) {
				continue
			}
		}
		out = append(out, op)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func allOperations(raw []byte) ([]Operation, error) {
	if gjson.GetBytes(raw, "swagger").Exists() {
		return swaggerOperations(raw)
	}
	return openapi3Operations(raw)
}

func swaggerOperations(raw []byte) ([]Operation, error) {
	var doc openapi2.T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse Swagger 2.0 spec: %w", err)
	}

	paths := make([]string, 0, len(doc.Paths))
	for path := range doc.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var ops []Operation
	for _, path := range paths {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		ops = append(ops, itemOperations(path, item.Operations())...)
	}
	return ops, nil
}

func openapi3Operations(raw []byte) ([]Operation, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI 3 spec: %w", err)
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for path := range pathMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var ops []Operation
	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}
		byMethod := map[string]operationInfo{}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			byMethod[method] = operationInfo{id: op.OperationID, summary: op.Summary, tags: op.Tags}
		}
		ops = append(ops, sortedOperations(path, byMethod)...)
	}
	return ops, nil
}

type operationInfo struct {
	id      string
	summary string
	tags    []string
}

func itemOperations(path string, byMethod map[string]*openapi2.Operation) []Operation {
	infos := make(map[string]operationInfo, len(byMethod))
	for method, op := range byMethod {
		if op == nil {
			continue
		}
		infos[method] = operationInfo{id: op.OperationID, summary: op.Summary, tags: op.Tags}
	}
	return sortedOperations(path, infos)
}

func sortedOperations(path string, byMethod map[string]operationInfo) []Operation {
	methods := make([]string, 0, len(byMethod))
	for method := range byMethod {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	var ops []Operation
	for _, method := range methods {
		info := byMethod[method]
		if info.id == "" {
			continue
		}
		tags := info.tags
		if tags == nil {
			tags = []string{}
		}
		ops = append(ops, Operation{
			OperationID: info.id,
			Method:      strings.ToUpper(method),
			Path:        path,
			Summary:     info.summary,
			Tags:        tags,
		})
	}
	return ops
}
