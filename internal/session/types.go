// Package session implements the exploration session state machine: attempt
// recording, variable tracking, dependency validation, scenario compilation,
// and replay.
package session

import "api-recorder/internal/vars"

// RequestKind tags the transport of one request. Dispatch over the kind is
// an explicit switch so adding a new kind is a compile-visible decision.
type RequestKind string

const (
	KindHTTP RequestKind = "http"
	KindCLI  RequestKind = "cli"
)

// Response is the executor outcome kept on an attempt.
type Response struct {
	StatusCode *int           `json:"status_code" yaml:"status_code"`
	Body       map[string]any `json:"body" yaml:"body"`
}

// Attempt is one recorded execution, success or failure. Attempts are
// immutable once appended: removal from the compiled scenario happens by
// exclusion, never by deleting history.
type Attempt struct {
	Index           int              `json:"index" yaml:"index"`
	Timestamp       string           `json:"timestamp" yaml:"timestamp"`
	OperationID     string           `json:"operation_id" yaml:"operation_id"`
	RequestType     RequestKind      `json:"request_type" yaml:"request_type"`
	Request         map[string]any   `json:"request" yaml:"request"`
	ResolvedRequest map[string]any   `json:"resolved_request" yaml:"resolved_request"`
	Response        Response         `json:"response" yaml:"response"`
	Success         bool             `json:"success" yaml:"success"`
	Error           string           `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS      int64            `json:"duration_ms" yaml:"duration_ms"`
	SavedVariables  map[string]any   `json:"saved_variables" yaml:"saved_variables"`
	SaveConfig      *vars.SaveConfig `json:"save_config,omitempty" yaml:"save_config,omitempty"`
}

// SavedNames lists the variables this attempt produced, in save-rule order.
func (a *Attempt) SavedNames() []string {
	return vars.SavedNames(a.SaveConfig, a.SavedVariables)
}

// StatusCode returns the observed status code, defaulting when absent.
func (a *Attempt) StatusCode(fallback int) int {
	if a.Response.StatusCode != nil {
		return *a.Response.StatusCode
	}
	return fallback
}

// Step is the compiled, replayable form of one retained successful attempt.
// The request is the original unresolved one (placeholders intact) with
// secrets redacted, so the scenario stays reusable without leaking values.
type Step struct {
	Name        string           `json:"name" yaml:"name"`
	OperationID string           `json:"operation_id" yaml:"operation_id"`
	RequestType RequestKind      `json:"request_type" yaml:"request_type"`
	Request     map[string]any   `json:"request" yaml:"request"`
	Expect      map[string]any   `json:"expect" yaml:"expect"`
	Save        *vars.SaveConfig `json:"save,omitempty" yaml:"save,omitempty"`
	MaxRetries  int              `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	DelayAfter  int              `json:"delay_after,omitempty" yaml:"delay_after,omitempty"`
}

// ScenarioMeta names a compiled scenario.
type ScenarioMeta struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// ConnectionSummary is the connection block written into scenarios: enough
// to identify the target, never the credentials themselves.
type ConnectionSummary struct {
	Host     string           `json:"host" yaml:"host"`
	BasePath string           `json:"base_path" yaml:"base_path"`
	Auth     *ConnectionAuth  `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// ConnectionAuth carries only the auth scheme name.
type ConnectionAuth struct {
	Type string `json:"type" yaml:"type"`
}

// Scenario is the compiled, ordered step list plus connection metadata.
// Immutable once written except by re-running the compiler.
type Scenario struct {
	Scenario   ScenarioMeta      `json:"scenario" yaml:"scenario"`
	Connection ConnectionSummary `json:"connection" yaml:"connection"`
	Steps      []Step            `json:"steps" yaml:"steps"`
}
