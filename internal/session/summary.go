package session

import (
	"fmt"
	"sort"
	"strings"

	"api-recorder/internal/vars"
)

// SummaryResult reports what the compiler produced and any dependency
// diagnostics. Diagnostics are informational: the scenario is written
// regardless so the caller can correct and re-run the compiler.
type SummaryResult struct {
	TotalAttempts    int      `json:"total_attempts"`
	SuccessAttempts  int      `json:"success_attempts"`
	RemovedAttempts  int      `json:"removed_attempts"`
	FinalSteps       int      `json:"final_steps"`
	SavedVariables   []string `json:"saved_variables"`
	ValidationErrors []string `json:"validation_errors"`
	FinalFile        string   `json:"final_file"`
}

// Summary compiles the attempt history into the final scenario. Attempts
// whose index is in removeIndices, and failed attempts, are dropped; the
// survivors are renumbered 1..N, and dependency checks run against that
// numbering — exclusions must not leave gaps in the dependency order.
//
// A variable required by a retained step must be a preset, or be saved by a
// strictly earlier retained step; violations are collected as diagnostics.
func (m *Manager) Summary(removeIndices []int) (*SummaryResult, error) {
	removed := make(map[int]struct{}, len(removeIndices))
	for _, idx := range removeIndices {
		removed[idx] = struct{}{}
	}

	var steps []Step
	savedAt := map[string]int{}           // variable -> step number of its latest producer
	requiredAt := map[string][]int{}      // variable -> step numbers that consume it
	var savedOrder, requiredOrder []string

	successCount := 0
	stepNumber := 0
	for _, attempt := range m.Attempts {
		if attempt.Success {
			successCount++
		}
		if _, drop := removed[attempt.Index]; drop || !attempt.Success {
			continue
		}
		stepNumber++

		for _, name := range attempt.SavedNames() {
			if _, seen := savedAt[name]; !seen {
				savedOrder = append(savedOrder, name)
			}
			savedAt[name] = stepNumber
		}

		required := vars.FindRequired(attempt.Request)
		names := make([]string, 0, len(required))
		for name := range required {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, seen := requiredAt[name]; !seen {
				requiredOrder = append(requiredOrder, name)
			}
			requiredAt[name] = append(requiredAt[name], stepNumber)
		}

		redactedReq, _ := redactAny(attempt.Request).(map[string]any)
		steps = append(steps, Step{
			Name:        fmt.Sprintf("step_%d_%s", stepNumber, operationToName(attempt.OperationID)),
			OperationID: attempt.OperationID,
			RequestType: attempt.RequestType,
			Request:     redactedReq,
			Expect:      map[string]any{"status_code": attempt.StatusCode(200)},
			Save:        attempt.SaveConfig,
		})
	}

	presets := m.PresetNames()
	var diagnostics []string
	for _, name := range requiredOrder {
		if _, preset := presets[name]; preset {
			continue
		}
		saveStep, everSaved := savedAt[name]
		if !everSaved {
			diagnostics = append(diagnostics, fmt.Sprintf("Variable '%s' used in step(s) %v but never saved", name, requiredAt[name]))
			continue
		}
		for _, useStep := range requiredAt[name] {
			if useStep <= saveStep {
				diagnostics = append(diagnostics, fmt.Sprintf("Variable '%s' used in step %d before being saved in step %d", name, useStep, saveStep))
			}
		}
	}

	if err := m.writeFinal(steps); err != nil {
		return nil, err
	}

	if savedOrder == nil {
		savedOrder = []string{}
	}
	if diagnostics == nil {
		diagnostics = []string{}
	}
	return &SummaryResult{
		TotalAttempts:    len(m.Attempts),
		SuccessAttempts:  successCount,
		RemovedAttempts:  len(removed),
		FinalSteps:       len(steps),
		SavedVariables:   savedOrder,
		ValidationErrors: diagnostics,
		FinalFile:        m.FinalPath(),
	}, nil
}

// operationToName derives the step-name suffix from an operation id by
// dropping the service prefix: "ClusterService_Create_Cluster" becomes
// "create_cluster".
func operationToName(operationID string) string {
	if strings.Contains(operationID, "_") {
		parts := strings.Split(operationID, "_")
		lowered := make([]string, 0, len(parts)-1)
		for _, p := range parts[1:] {
			lowered = append(lowered, strings.ToLower(p))
		}
		return strings.Join(lowered, "_")
	}
	return strings.ToLower(operationID)
}
