package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"api-recorder/internal/config"
	"api-recorder/internal/executor"
	"api-recorder/internal/logging"
	"api-recorder/internal/util"
	"api-recorder/internal/vars"
)

// Executor is the collaborator that performs the actual calls. The concrete
// implementation lives in internal/executor; tests and replay verification
// inject stubs through ManagerOpts.
type Executor interface {
	ExecuteHTTP(request map[string]any) executor.Result
	ExecuteCLI(request map[string]any) executor.Result
	PollUntilReady(request map[string]any, condition string, maxRetries, delaySeconds int) executor.Result
}

// Manager owns one exploration session: its variable store and ordered
// attempt log. Access is single-writer; callers serialize externally.
type Manager struct {
	SessionID    string
	SUTName      string
	ScenarioName string
	CreatedAt    string
	UpdatedAt    string

	Vars     *vars.Store
	Attempts []*Attempt

	root string
	cfg  *config.SUTConfig
	exec Executor
	opts ManagerOpts
}

// ManagerOpts allows injecting dependencies and identity, mirroring the
// options pattern used across the codebase for testability.
type ManagerOpts struct {
	SessionID string
	Executor  Executor
}

// NewManager creates a session for a SUT and scenario under a workspace
// root, seeds the variable store from the SUT's preset variables, and
// builds the default executor unless one is injected.
func NewManager(root, sutName, scenarioName string, opts ManagerOpts) (*Manager, error) {
	config.LoadDotenv(root)

	cfg, err := config.LoadSUT(root, sutName)
	if err != nil {
		return nil, err
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}

	exec := opts.Executor
	if exec == nil {
		real, err := executor.New(root, sutName)
		if err != nil {
			return nil, err
		}
		exec = real
	}

	now := time.Now().Format(time.RFC3339)
	m := &Manager{
		SessionID:    sessionID,
		SUTName:      config.CanonicalSUTName(sutName),
		ScenarioName: scenarioName,
		CreatedAt:    now,
		UpdatedAt:    now,
		Vars:         vars.NewStore(),
		root:         root,
		cfg:          cfg,
		exec:         exec,
		opts:         opts,
	}
	m.Vars.MergeMap(cfg.PresetVariables)
	return m, nil
}

func newSessionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ses_" + hex[:12]
}

// Execute records one attempt: it warns about unresolvable placeholders,
// substitutes variables, expands environment references, dispatches to the
// executor by request kind, extracts variables on success, appends the
// attempt, and persists the draft log and session file. Exactly one attempt
// is appended per call regardless of outcome; ordinary execution failures
// are captured inside the attempt, never returned as an error.
func (m *Manager) Execute(operationID string, request map[string]any, save *vars.SaveConfig, kind RequestKind) (*Attempt, error) {
	required := vars.FindRequired(request)
	if missing := vars.Missing(required, m.Vars); len(missing) > 0 {
		logging.Logf(logging.Warning, "Missing variables: %v", missing)
	}

	resolved, _ := vars.Substitute(request, m.Vars).(map[string]any)
	resolved, _ = util.ExpandEnvAny(resolved).(map[string]any)

	var result executor.Result
	switch kind {
	case KindHTTP:
		result = m.exec.ExecuteHTTP(resolved)
	case KindCLI:
		result = m.exec.ExecuteCLI(resolved)
	default:
		result = executor.Failure("Unknown request_type: " + string(kind))
	}

	saved := map[string]any{}
	if result.Success {
		saved = vars.ExtractAndSave(result.Body, save, m.Vars)
	}

	attempt := &Attempt{
		Index:           len(m.Attempts),
		Timestamp:       time.Now().Format(time.RFC3339),
		OperationID:     operationID,
		RequestType:     kind,
		Request:         request,
		ResolvedRequest: resolved,
		Response:        Response{StatusCode: result.StatusCode, Body: result.Body},
		Success:         result.Success,
		Error:           result.Error,
		DurationMS:      result.DurationMS,
		SavedVariables:  saved,
		SaveConfig:      save,
	}
	m.Attempts = append(m.Attempts, attempt)

	if err := m.WriteDraft(); err != nil {
		return attempt, err
	}
	if err := m.Save(); err != nil {
		return attempt, err
	}
	return attempt, nil
}

// AttemptCounts summarizes the attempt log.
type AttemptCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// FileSummary lists the files backing a session. Final is empty until the
// compiler has produced a scenario.
type FileSummary struct {
	Session string `json:"session"`
	Draft   string `json:"draft"`
	Final   string `json:"final,omitempty"`
}

// RecentAttempt is the abbreviated attempt view shown by Status.
type RecentAttempt struct {
	Index       int      `json:"index"`
	OperationID string   `json:"operation_id"`
	Success     bool     `json:"success"`
	Saved       []string `json:"saved"`
}

// StatusResult is the structured session report.
type StatusResult struct {
	SessionID      string          `json:"session_id"`
	SUT            string          `json:"sut"`
	Scenario       string          `json:"scenario"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
	Variables      map[string]any  `json:"variables"`
	Attempts       AttemptCounts   `json:"attempts"`
	Files          FileSummary     `json:"files"`
	RecentAttempts []RecentAttempt `json:"recent_attempts"`
}

// Status reports counts, redacted variables, backing files, and the five
// most recent attempts.
func (m *Manager) Status() *StatusResult {
	successCount := 0
	for _, a := range m.Attempts {
		if a.Success {
			successCount++
		}
	}

	recent := []RecentAttempt{}
	startIdx := len(m.Attempts) - 5
	if startIdx < 0 {
		startIdx = 0
	}
	for _, a := range m.Attempts[startIdx:] {
		recent = append(recent, RecentAttempt{
			Index:       a.Index,
			OperationID: a.OperationID,
			Success:     a.Success,
			Saved:       a.SavedNames(),
		})
	}

	files := FileSummary{
		Session: m.SessionPath(),
		Draft:   m.DraftPath(),
	}
	if fileExists(m.FinalPath()) {
		files.Final = m.FinalPath()
	}

	redacted, _ := redactAny(m.Vars.GetAll()).(map[string]any)
	return &StatusResult{
		SessionID: m.SessionID,
		SUT:       m.SUTName,
		Scenario:  m.ScenarioName,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Variables: redacted,
		Attempts: AttemptCounts{
			Total:   len(m.Attempts),
			Success: successCount,
			Failure: len(m.Attempts) - successCount,
		},
		Files:          files,
		RecentAttempts: recent,
	}
}

// PresetNames returns the SUT-level preset variable names, which are exempt
// from dependency-ordering checks.
func (m *Manager) PresetNames() map[string]struct{} {
	presets := make(map[string]struct{}, len(m.cfg.PresetVariables))
	for name := range m.cfg.PresetVariables {
		presets[name] = struct{}{}
	}
	return presets
}

// Connection returns the redaction-safe connection summary for scenarios.
func (m *Manager) Connection() ConnectionSummary {
	conn := m.cfg.Connection
	summary := ConnectionSummary{Host: conn.Host, BasePath: conn.BasePath}
	authType := conn.Auth.Type
	if authType == "" {
		authType = "digest"
	}
	summary.Auth = &ConnectionAuth{Type: authType}
	return summary
}
