package session

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"api-recorder/internal/executor"
	"api-recorder/internal/vars"
)

func TestRerunWithoutScenario(t *testing.T) {
	m := newTestManager(t, newTestRoot(t), &stubExecutor{})
	result, err := m.Rerun()
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "summary")
}

func TestRerunReplaysCompiledScenario(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		if request["method"] == "POST" {
			return okResult(map[string]any{"clusterId": "c-777"})
		}
		return okResult(map[string]any{"state": "ACTIVE"})
	}}
	m := newTestManager(t, root, stub)

	save := &vars.SaveConfig{Placeholder: []vars.SaveRule{{Key: "cluster_id", Eval: "body.clusterId"}}}
	_, err := m.Execute("Svc_Create", map[string]any{"method": "POST", "path": "/clusters"}, save, KindHTTP)
	require.NoError(t, err)
	_, err = m.Execute("Svc_Get", map[string]any{"method": "GET", "path": "/clusters/{cluster_id}"}, nil, KindHTTP)
	require.NoError(t, err)
	_, err = m.Summary(nil)
	require.NoError(t, err)

	stub.httpCalls = nil
	result, err := m.Rerun()
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEqual(t, m.SessionID, result.RerunSessionID)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "step_1_create", result.Steps[0].Step)
	assert.True(t, result.Steps[0].Success)
	assert.Equal(t, []string{"cluster_id"}, result.Steps[0].Saved)
	assert.Equal(t, "c-777", result.Variables["cluster_id"], "fresh store repopulated from replay responses")

	require.Len(t, stub.httpCalls, 2)
	assert.Equal(t, "/clusters/c-777", stub.httpCalls[1]["path"], "step 2 consumed the value step 1 saved")
}

func TestRerunContinuesPastFailures(t *testing.T) {
	root := newTestRoot(t)
	replaying := false
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		if replaying && request["path"] == "/two" {
			return failedResult(500, map[string]any{})
		}
		return okResult(map[string]any{})
	}}
	m := newTestManager(t, root, stub)

	for _, path := range []string{"/one", "/two", "/three"} {
		_, err := m.Execute("Svc_Step", map[string]any{"method": "GET", "path": path}, nil, KindHTTP)
		require.NoError(t, err)
	}
	_, err := m.Summary(nil)
	require.NoError(t, err)

	// /two succeeded during recording but fails on replay.
	replaying = true
	result, err := m.Rerun()
	require.NoError(t, err)

	assert.False(t, result.Success, "overall result is the AND of all steps")
	require.Len(t, result.Steps, 3)
	assert.True(t, result.Steps[0].Success)
	assert.False(t, result.Steps[1].Success)
	assert.True(t, result.Steps[2].Success, "failure does not stop the replay")
}

func TestRerunPollsRetrySteps(t *testing.T) {
	root := newTestRoot(t)

	var pollArgs []any
	stub := &stubExecutor{
		pollFn: func(request map[string]any, condition string, maxRetries, delaySeconds int) executor.Result {
			pollArgs = []any{request["path"], condition, maxRetries, delaySeconds}
			return okResult(map[string]any{"state": "ACTIVE"})
		},
	}
	m := newTestManager(t, root, stub)

	scenario := Scenario{
		Scenario:   ScenarioMeta{Name: "create_cluster"},
		Connection: m.Connection(),
		Steps: []Step{
			{
				Name:        "step_1_wait_ready",
				OperationID: "Svc_Get",
				RequestType: KindHTTP,
				Request:     map[string]any{"method": "GET", "path": "/clusters/{cluster_id}"},
				Expect:      map[string]any{"cel": "body.state == ACTIVE"},
				MaxRetries:  60,
				DelayAfter:  10,
			},
		},
	}
	data, err := yaml.Marshal(scenario)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(root+"/output", 0o755))
	require.NoError(t, os.WriteFile(m.FinalPath(), data, 0o644))

	result, err := m.Rerun()
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, []any{"/clusters/{cluster_id}", "body.state == ACTIVE", 60, 10}, pollArgs)
}
