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

func TestSummaryCompilesSuccessesOnly(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		if request["path"] == "/bad" {
			return failedResult(500, map[string]any{})
		}
		return okResult(map[string]any{"clusterId": "c-1"})
	}}
	m := newTestManager(t, root, stub)

	save := &vars.SaveConfig{Placeholder: []vars.SaveRule{{Key: "cluster_1", Eval: "body.clusterId"}}}
	_, err := m.Execute("ClusterService_CreateCluster", map[string]any{"method": "POST", "path": "/clusters"}, save, KindHTTP)
	require.NoError(t, err)
	_, err = m.Execute("ClusterService_GetCluster", map[string]any{"method": "GET", "path": "/bad"}, nil, KindHTTP)
	require.NoError(t, err)
	_, err = m.Execute("ClusterService_DeleteCluster", map[string]any{"method": "DELETE", "path": "/clusters/{cluster_1}"}, nil, KindHTTP)
	require.NoError(t, err)

	result, err := m.Summary(nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalAttempts)
	assert.Equal(t, 2, result.SuccessAttempts)
	assert.Equal(t, 0, result.RemovedAttempts)
	assert.Equal(t, 2, result.FinalSteps)
	assert.Equal(t, []string{"cluster_1"}, result.SavedVariables)
	assert.Empty(t, result.ValidationErrors)

	data, err := os.ReadFile(m.FinalPath())
	require.NoError(t, err)
	var scenario Scenario
	require.NoError(t, yaml.Unmarshal(data, &scenario))

	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, "step_1_createcluster", scenario.Steps[0].Name)
	assert.Equal(t, "step_2_deletecluster", scenario.Steps[1].Name)
	assert.Equal(t, map[string]any{"status_code": 200}, scenario.Steps[0].Expect)
	assert.Equal(t, "/clusters/{cluster_1}", scenario.Steps[1].Request["path"], "compiled request keeps placeholders")
	assert.Equal(t, "api.example.com", scenario.Connection.Host)
	assert.Equal(t, "digest", scenario.Connection.Auth.Type)
}

func TestSummaryRemoveRenumbers(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		return okResult(map[string]any{})
	}}
	m := newTestManager(t, root, stub)

	for _, op := range []string{"Svc_First", "Svc_Second", "Svc_Third"} {
		_, err := m.Execute(op, map[string]any{"method": "GET", "path": "/x"}, nil, KindHTTP)
		require.NoError(t, err)
	}

	result, err := m.Summary([]int{1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemovedAttempts)
	assert.Equal(t, 2, result.FinalSteps)

	data, err := os.ReadFile(m.FinalPath())
	require.NoError(t, err)
	var scenario Scenario
	require.NoError(t, yaml.Unmarshal(data, &scenario))
	assert.Equal(t, "step_1_first", scenario.Steps[0].Name)
	assert.Equal(t, "step_2_third", scenario.Steps[1].Name, "retained steps renumber without gaps")
}

func TestSummaryValidationNeverSaved(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		return okResult(map[string]any{})
	}}
	m := newTestManager(t, root, stub)

	_, err := m.Execute("Svc_Get", map[string]any{"path": "/clusters/{cluster_id}"}, nil, KindHTTP)
	require.NoError(t, err)

	result, err := m.Summary(nil)
	require.NoError(t, err)
	require.Len(t, result.ValidationErrors, 1)
	assert.Contains(t, result.ValidationErrors[0], "'cluster_id'")
	assert.Contains(t, result.ValidationErrors[0], "never saved")
}

func TestSummaryValidationUsedBeforeSaved(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		return okResult(map[string]any{"clusterId": "c-1"})
	}}
	m := newTestManager(t, root, stub)

	save := &vars.SaveConfig{Placeholder: []vars.SaveRule{{Key: "cluster_id", Eval: "body.clusterId"}}}
	_, err := m.Execute("Svc_Get", map[string]any{"path": "/clusters/{cluster_id}"}, nil, KindHTTP)
	require.NoError(t, err)
	_, err = m.Execute("Svc_Create", map[string]any{"method": "POST", "path": "/clusters"}, save, KindHTTP)
	require.NoError(t, err)

	result, err := m.Summary(nil)
	require.NoError(t, err)
	require.Len(t, result.ValidationErrors, 1)
	assert.Contains(t, result.ValidationErrors[0], "used in step 1 before being saved in step 2")
}

func TestSummaryExclusionCanBreakDependencies(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		return okResult(map[string]any{"clusterId": "c-1"})
	}}
	m := newTestManager(t, root, stub)

	save := &vars.SaveConfig{Placeholder: []vars.SaveRule{{Key: "cluster_id", Eval: "body.clusterId"}}}
	_, err := m.Execute("Svc_Create", map[string]any{"method": "POST", "path": "/clusters"}, save, KindHTTP)
	require.NoError(t, err)
	_, err = m.Execute("Svc_Delete", map[string]any{"path": "/clusters/{cluster_id}"}, nil, KindHTTP)
	require.NoError(t, err)

	// Removing the producer leaves the consumer dangling; the compiler
	// reports it but still writes the scenario.
	result, err := m.Summary([]int{0})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FinalSteps)
	require.Len(t, result.ValidationErrors, 1)
	assert.Contains(t, result.ValidationErrors[0], "never saved")
}

func TestSummaryPresetsAreExempt(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		return okResult(map[string]any{})
	}}
	m := newTestManager(t, root, stub)

	_, err := m.Execute("Svc_List", map[string]any{"path": "/projects/{project_id}/clusters"}, nil, KindHTTP)
	require.NoError(t, err)

	result, err := m.Summary(nil)
	require.NoError(t, err)
	assert.Empty(t, result.ValidationErrors, "preset variables need no producer step")
}

func TestSummaryRedactsCompiledRequests(t *testing.T) {
	root := newTestRoot(t)
	stub := &stubExecutor{httpFn: func(request map[string]any) executor.Result {
		return okResult(map[string]any{})
	}}
	m := newTestManager(t, root, stub)

	_, err := m.Execute("Svc_Create", map[string]any{
		"method": "POST",
		"path":   "/clusters",
		"body":   map[string]any{"rootPassword": "hunter2", "displayName": "x"},
	}, nil, KindHTTP)
	require.NoError(t, err)

	_, err = m.Summary(nil)
	require.NoError(t, err)

	data, err := os.ReadFile(m.FinalPath())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.Contains(t, string(data), "{root_password}")
}
