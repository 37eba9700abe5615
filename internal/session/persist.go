package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"api-recorder/internal/config"
	"api-recorder/internal/redact"
	"api-recorder/internal/vars"
)

// SessionPath is the hidden JSON state file backing this session.
func (m *Manager) SessionPath() string {
	return filepath.Join(m.root, "output", ".session_"+m.SessionID+".json")
}

// DraftPath is the hidden running YAML log of every attempt so far.
func (m *Manager) DraftPath() string {
	return filepath.Join(m.root, "output", ".draft_"+m.ScenarioName+".yaml")
}

// FinalPath is the compiled scenario file produced by Summary.
func (m *Manager) FinalPath() string {
	return filepath.Join(m.root, "output", m.ScenarioName+".yaml")
}

// sessionFile is the on-disk session layout. Everything in it has already
// been through redaction, so reloading a session never resurrects secrets.
type sessionFile struct {
	SessionID    string         `json:"session_id"`
	SUTName      string         `json:"sut_name"`
	ScenarioName string         `json:"scenario_name"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
	Variables    map[string]any `json:"variables"`
	Attempts     []*Attempt     `json:"attempts"`
}

// Save persists the session state with sensitive values redacted.
func (m *Manager) Save() error {
	m.UpdatedAt = time.Now().Format(time.RFC3339)

	attempts := make([]any, 0, len(m.Attempts))
	for _, a := range m.Attempts {
		attempts = append(attempts, redactAny(a))
	}
	doc := map[string]any{
		"session_id":    m.SessionID,
		"sut_name":      m.SUTName,
		"scenario_name": m.ScenarioName,
		"created_at":    m.CreatedAt,
		"updated_at":    m.UpdatedAt,
		"variables":     redactAny(m.Vars.GetAll()),
		"attempts":      attempts,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return m.writeOutput(m.SessionPath(), data)
}

// draftDoc is the draft log layout: session identity, connection target,
// current variables, and every attempt including failures.
type draftDoc struct {
	Session    draftSession `yaml:"session"`
	Connection draftConn    `yaml:"connection"`
	Variables  any          `yaml:"variables"`
	Attempts   []any        `yaml:"attempts"`
}

type draftSession struct {
	ID        string `yaml:"id"`
	SUT       string `yaml:"sut"`
	Scenario  string `yaml:"scenario"`
	CreatedAt string `yaml:"created_at"`
}

type draftConn struct {
	Host     string `yaml:"host"`
	BasePath string `yaml:"base_path"`
}

// WriteDraft rewrites the draft YAML log from the full attempt history.
// The draft is an audit trail, not a replayable scenario: failures stay in.
func (m *Manager) WriteDraft() error {
	attempts := make([]any, 0, len(m.Attempts))
	for _, a := range m.Attempts {
		attempts = append(attempts, redactAny(a))
	}

	conn := m.cfg.Connection
	doc := draftDoc{
		Session: draftSession{
			ID:        m.SessionID,
			SUT:       m.SUTName,
			Scenario:  m.ScenarioName,
			CreatedAt: m.CreatedAt,
		},
		Connection: draftConn{Host: conn.Host, BasePath: conn.BasePath},
		Variables:  redactAny(m.Vars.GetAll()),
		Attempts:   attempts,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	return m.writeOutput(m.DraftPath(), data)
}

// writeFinal emits the compiled scenario YAML.
func (m *Manager) writeFinal(steps []Step) error {
	if steps == nil {
		steps = []Step{}
	}
	scenario := Scenario{
		Scenario: ScenarioMeta{
			Name:        m.ScenarioName,
			Description: "Auto-generated from session " + m.SessionID,
		},
		Connection: m.Connection(),
		Steps:      steps,
	}

	data, err := yaml.Marshal(scenario)
	if err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}
	return m.writeOutput(m.FinalPath(), data)
}

func (m *Manager) writeOutput(path string, data []byte) error {
	if _, err := config.OutputDir(m.root); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}

// Load restores a session from its state file. The variable store and
// attempt log come from disk; configuration and the executor are rebuilt
// fresh so credential and host changes take effect on resume.
func Load(root, path string, opts ManagerOpts) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session '%s': %w", path, err)
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse session '%s': %w", path, err)
	}

	opts.SessionID = file.SessionID
	m, err := NewManager(root, file.SUTName, file.ScenarioName, opts)
	if err != nil {
		return nil, err
	}
	if file.CreatedAt != "" {
		m.CreatedAt = file.CreatedAt
	}
	if file.UpdatedAt != "" {
		m.UpdatedAt = file.UpdatedAt
	}
	m.Vars = vars.NewStore()
	m.Vars.MergeMap(file.Variables)
	m.Attempts = file.Attempts
	if m.Attempts == nil {
		m.Attempts = []*Attempt{}
	}
	return m, nil
}

// Find locates a session by id under root's output directory.
func Find(root, sessionID string, opts ManagerOpts) (*Manager, error) {
	path := filepath.Join(root, "output", ".session_"+sessionID+".json")
	if !fileExists(path) {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return Load(root, path, opts)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// redactAny normalizes any value through a JSON round trip and redacts
// sensitive keys in the result. Struct values come back as generic maps,
// which is what the YAML and JSON writers want anyway.
func redactAny(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return v
	}
	return redact.Values(doc)
}
