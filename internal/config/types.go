package config

// SUTConfig describes one system under test: where to reach it, how to
// authenticate, which variables every session starts with, and where its
// API specs live. Loaded from configs/<sut>/sut.yaml under the workspace
// root; a missing file yields an empty config rather than an error so that
// purely CLI-driven SUTs need no setup.
type SUTConfig struct {
	Connection      Connection     `yaml:"connection"`
	PresetVariables map[string]any `yaml:"preset_variables"`
	Specs           Specs          `yaml:"specs"`
}

// Connection holds the HTTP endpoint and authentication settings.
type Connection struct {
	Host     string     `yaml:"host"`
	BasePath string     `yaml:"base_path"`
	Auth     AuthConfig `yaml:"auth"`
}

// AuthConfig selects the authentication scheme and where credentials come
// from. EnvVars maps credential names to environment variable names; the
// credential file is a JSON fallback consulted when no env var is set.
// Credentials are resolved inside the executor and never surface in
// results, session files, or generated scenarios.
type AuthConfig struct {
	Type           string            `yaml:"type"`
	EnvVars        map[string]string `yaml:"env_vars"`
	CredentialFile string            `yaml:"credential_file"`
}

// Specs points at API specification documents for this SUT.
type Specs struct {
	OpenAPI string `yaml:"openapi"`
}
