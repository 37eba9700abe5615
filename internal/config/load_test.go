package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalSUTName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"billing-api", "billing_api"},
		{"Payments API", "payments_api"},
		{"  my_sut  ", "my_sut"},
		{"weird!!name", "weird_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalSUTName(tt.in), tt.in)
	}
}

func TestResolveRootWalkUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "configs"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Setenv(RootEnvVar, "")
	os.Unsetenv(RootEnvVar)

	got, err := ResolveRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolveRootEnvOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv(RootEnvVar, override)

	got, err := ResolveRoot(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, override, got)
}

func TestResolveRootNotFound(t *testing.T) {
	t.Setenv(RootEnvVar, "")
	os.Unsetenv(RootEnvVar)

	_, err := ResolveRoot(t.TempDir())
	assert.Error(t, err)
}

func TestLoadDotenv(t *testing.T) {
	root := t.TempDir()
	content := "# comment\nFOO_FROM_DOTENV=bar\nexport EXPORTED_VAL=\"quoted\"\nPRESET_VAL=from_file\nnot a pair\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(content), 0o644))

	t.Setenv("PRESET_VAL", "from_env")
	os.Unsetenv("FOO_FROM_DOTENV")
	os.Unsetenv("EXPORTED_VAL")
	t.Cleanup(func() {
		os.Unsetenv("FOO_FROM_DOTENV")
		os.Unsetenv("EXPORTED_VAL")
	})

	LoadDotenv(root)

	assert.Equal(t, "bar", os.Getenv("FOO_FROM_DOTENV"))
	assert.Equal(t, "quoted", os.Getenv("EXPORTED_VAL"))
	assert.Equal(t, "from_env", os.Getenv("PRESET_VAL"), "existing environment wins")
}

func TestLoadSUT(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "configs", "my_sut")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	t.Setenv("MY_SUT_HOST", "api.example.com")
	content := `
connection:
  host: ${MY_SUT_HOST}
  base_path: /api/v1
  auth:
    type: digest
    env_vars:
      username: MY_SUT_USER
      password: MY_SUT_PASS
preset_variables:
  project_id: "p-1"
specs:
  openapi: openapi.json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sut.yaml"), []byte(content), 0o644))

	cfg, err := LoadSUT(root, "My-SUT")
	require.NoError(t, err)
	assert.Equal(t, "api.example.com", cfg.Connection.Host)
	assert.Equal(t, "/api/v1", cfg.Connection.BasePath)
	assert.Equal(t, "digest", cfg.Connection.Auth.Type)
	assert.Equal(t, "MY_SUT_USER", cfg.Connection.Auth.EnvVars["username"])
	assert.Equal(t, "p-1", cfg.PresetVariables["project_id"])
	assert.Equal(t, "openapi.json", cfg.Specs.OpenAPI)
}

func TestLoadSUTMissingFile(t *testing.T) {
	cfg, err := LoadSUT(t.TempDir(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, &SUTConfig{}, cfg)
}

func TestLoadSUTMalformed(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "configs", "bad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sut.yaml"), []byte("connection: [unclosed"), 0o644))

	_, err := LoadSUT(root, "bad")
	assert.Error(t, err)
}
