package session

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"api-recorder/internal/vars"
)

// StepResult is the per-step ledger entry produced by a replay.
type StepResult struct {
	Step    string   `json:"step"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Saved   []string `json:"saved"`
}

// RerunResult aggregates a replay: overall success is the logical AND of
// all step outcomes; a failed step does not abort the remaining steps.
type RerunResult struct {
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
	RerunSessionID string         `json:"rerun_session_id,omitempty"`
	Steps          []StepResult   `json:"steps,omitempty"`
	Variables      map[string]any `json:"variables,omitempty"`
}

// Rerun replays the compiled scenario against a brand-new session with a
// fresh variable store seeded only from SUT presets. Requires the compiler
// to have run; returns a structured failure otherwise.
//
// Steps with a retry budget and a condition expression poll the endpoint,
// sleeping the configured delay between attempts; everything else executes
// as a plain recorded attempt.
func (m *Manager) Rerun() (*RerunResult, error) {
	data, err := os.ReadFile(m.FinalPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &RerunResult{Error: "No compiled scenario. Run summary first."}, nil
		}
		return nil, fmt.Errorf("failed to read scenario '%s': %w", m.FinalPath(), err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario '%s': %w", m.FinalPath(), err)
	}

	rerunName := fmt.Sprintf("%s_rerun_%s", m.ScenarioName, time.Now().Format("20060102_150405"))
	replay, err := NewManager(m.root, m.SUTName, rerunName, ManagerOpts{Executor: m.opts.Executor})
	if err != nil {
		return nil, err
	}

	results := []StepResult{}
	allSuccess := true
	for _, step := range scenario.Steps {
		attempt, err := replay.executeStep(step)
		if err != nil {
			return nil, err
		}

		name := step.Name
		if name == "" {
			name = step.OperationID
		}
		results = append(results, StepResult{
			Step:    name,
			Success: attempt.Success,
			Error:   attempt.Error,
			Saved:   attempt.SavedNames(),
		})
		if !attempt.Success {
			allSuccess = false
		}
	}

	if err := replay.Save(); err != nil {
		return nil, err
	}

	return &RerunResult{
		Success:        allSuccess,
		RerunSessionID: replay.SessionID,
		Steps:          results,
		Variables:      replay.Vars.GetAll(),
	}, nil
}

// executeStep runs one compiled step, polling when the step declares a
// retry budget with a condition expression on an HTTP request.
func (m *Manager) executeStep(step Step) (*Attempt, error) {
	kind := step.RequestType
	if kind == "" {
		kind = KindHTTP
	}

	condition, _ := step.Expect["cel"].(string)
	if step.MaxRetries > 0 && condition != "" && kind == KindHTTP {
		resolved, _ := vars.Substitute(step.Request, m.Vars).(map[string]any)
		delay := step.DelayAfter
		if delay <= 0 {
			delay = 30
		}
		result := m.exec.PollUntilReady(resolved, condition, step.MaxRetries, delay)

		saved := map[string]any{}
		if result.Success {
			saved = vars.ExtractAndSave(result.Body, step.Save, m.Vars)
		}
		attempt := &Attempt{
			Index:           len(m.Attempts),
			Timestamp:       time.Now().Format(time.RFC3339),
			OperationID:     step.OperationID,
			RequestType:     kind,
			Request:         step.Request,
			ResolvedRequest: resolved,
			Response:        Response{StatusCode: result.StatusCode, Body: result.Body},
			Success:         result.Success,
			Error:           result.Error,
			DurationMS:      result.DurationMS,
			SavedVariables:  saved,
			SaveConfig:      step.Save,
		}
		m.Attempts = append(m.Attempts, attempt)
		return attempt, nil
	}

	return m.Execute(step.OperationID, step.Request, step.Save, kind)
}
