package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	definitionsPrefix = "#/definitions/"
	schemasPrefix     = "#/components/schemas/"
)

// Schema names present in generated gRPC-gateway specs that add bulk
// without information.
var noisySchemas = []string{"googlerpcStatus", "protobufAny"}

// Extract returns one operation plus the transitive closure of the schemas
// its $ref entries reach, shaped like a minimal spec document. Swagger 2
// schemas land under "definitions", OpenAPI 3 schemas under
// "components.schemas", matching where they came from.
func Extract(raw []byte, operationID string) (map[string]any, error) {
	var spec map[string]any
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse spec: %w", err)
	}

	path, method, operation := findOperation(spec, operationID)
	if operation == nil {
		return nil, fmt.Errorf("operation not found: %s", operationID)
	}

	refs := map[string]struct{}{}
	collectRefs(operation, refs)
	definitions := resolveRefs(spec, refs, definitionsPrefix, schemaTable(spec, "definitions"))
	schemas := resolveRefs(spec, refs, schemasPrefix, componentSchemas(spec))

	out := map[string]any{
		"paths": map[string]any{path: map[string]any{method: operation}},
	}
	if len(definitions) > 0 {
		out["definitions"] = definitions
	}
	if len(schemas) > 0 {
		out["components"] = map[string]any{"schemas": schemas}
	}
	return out, nil
}

func findOperation(spec map[string]any, operationID string) (string, string, map[string]any) {
	paths, _ := spec["paths"].(map[string]any)

	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	for _, path := range keys {
		methods, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		methodKeys := make([]string, 0, len(methods))
		for method := range methods {
			methodKeys = append(methodKeys, method)
		}
		sort.Strings(methodKeys)

		for _, method := range methodKeys {
			op, ok := methods[method].(map[string]any)
			if !ok {
				continue
			}
			if op["operationId"] == operationID {
				return path, strings.ToLower(method), op
			}
		}
	}
	return "", "", nil
}

func collectRefs(obj any, refs map[string]struct{}) {
	switch v := obj.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			refs[ref] = struct{}{}
		}
		for _, child := range v {
			collectRefs(child, refs)
		}
	case []any:
		for _, item := range v {
			collectRefs(item, refs)
		}
	}
}

func schemaTable(spec map[string]any, key string) map[string]any {
	table, _ := spec[key].(map[string]any)
	return table
}

func componentSchemas(spec map[string]any) map[string]any {
	components, _ := spec["components"].(map[string]any)
	schemas, _ := components["schemas"].(map[string]any)
	return schemas
}

// resolveRefs walks the ref set to a fixed point over one schema table,
// following refs discovered inside extracted schemas.
func resolveRefs(spec map[string]any, refs map[string]struct{}, prefix string, table map[string]any) map[string]any {
	extracted := map[string]any{}
	processed := map[string]struct{}{}

	queue := make([]string, 0, len(refs))
	for ref := range refs {
		queue = append(queue, ref)
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if _, done := processed[ref]; done {
			continue
		}
		processed[ref] = struct{}{}

		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		name := ref[strings.LastIndex(ref, "/")+1:]
		schema, ok := table[name]
		if !ok {
			continue
		}
		extracted[name] = schema

		nested := map[string]struct{}{}
		collectRefs(schema, nested)
		nestedRefs := make([]string, 0, len(nested))
		for r := range nested {
			if _, done := processed[r]; !done {
				nestedRefs = append(nestedRefs, r)
			}
		}
		sort.Strings(nestedRefs)
		queue = append(queue, nestedRefs...)
	}

	for _, name := range noisySchemas {
		delete(extracted, name)
	}
	return extracted
}
