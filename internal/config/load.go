package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"api-recorder/internal/util"
)

// RootEnvVar overrides workspace root discovery when set.
const RootEnvVar = "API_RECORDER_ROOT"

var sutNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// CanonicalSUTName normalizes a SUT name to the directory form used under
// configs/: lower-cased, dashes and other separators folded to underscores.
func CanonicalSUTName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	name = sutNameRe.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// ResolveRoot locates the workspace root: the directory holding configs/
// and output/. An explicit API_RECORDER_ROOT wins; otherwise the search
// walks up from start (or the working directory) looking for a configs/
// directory.
func ResolveRoot(start string) (string, error) {
	if explicit := os.Getenv(RootEnvVar); explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("invalid %s value '%s': %w", RootEnvVar, explicit, err)
		}
		return abs, nil
	}

	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cannot determine working directory: %w", err)
		}
		start = cwd
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("cannot resolve start directory '%s': %w", start, err)
	}
	for {
		if info, statErr := os.Stat(filepath.Join(dir, "configs")); statErr == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("cannot locate workspace root (missing ./configs); run from the workspace or set %s", RootEnvVar)
}

// LoadDotenv reads KEY=VALUE lines from <root>/.env into the process
// environment. Variables already set in the environment win. The file is
// optional; parse errors are ignored line by line.
func LoadDotenv(root string) {
	data, err := os.ReadFile(filepath.Join(root, ".env"))
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		os.Setenv(key, value)
	}
}

// SUTDir returns the configuration directory for a SUT.
func SUTDir(root, sutName string) string {
	return filepath.Join(root, "configs", CanonicalSUTName(sutName))
}

// LoadSUT reads and env-expands configs/<sut>/sut.yaml. A missing file
// yields an empty config; a malformed one is an error.
func LoadSUT(root, sutName string) (*SUTConfig, error) {
	path := filepath.Join(SUTDir(root, sutName), "sut.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SUTConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read SUT config '%s': %w", path, err)
	}

	// Expansion happens on the raw document so that ${VAR:-default}
	// references work anywhere a string value can appear.
	expanded := util.ExpandEnv(string(data))

	var cfg SUTConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", path, err)
	}
	return &cfg, nil
}

// OutputDir returns (and creates) the output directory under the root.
func OutputDir(root string) (string, error) {
	dir := filepath.Join(root, "output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory '%s': %w", dir, err)
	}
	return dir, nil
}
