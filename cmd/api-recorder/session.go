package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"api-recorder/internal/session"
	"api-recorder/internal/vars"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage exploration sessions and compile scenarios",
	Long: `An exploration session records every request attempt against a SUT,
tracks the variables extracted from responses, and compiles the successful
attempts into a replayable scenario.`,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new <sut-name> <scenario-name>",
	Short: "Start a new exploration session",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := workspaceRoot(cmd)
		if err != nil {
			fail(err)
		}
		m, err := session.NewManager(root, args[0], args[1], session.ManagerOpts{})
		if err != nil {
			fail(err)
		}
		if err := m.Save(); err != nil {
			fail(err)
		}
		printJSON(map[string]any{
			"success":      true,
			"session_id":   m.SessionID,
			"session_file": m.SessionPath(),
			"variables":    m.Vars.GetAll(),
		})
	},
}

var sessionExecuteCmd = &cobra.Command{
	Use:   "execute <session-id> <operation-id> <request-json> [save-json] [request-type]",
	Short: "Execute and record one attempt",
	Long: `Executes one request in a session. The optional save JSON maps
response paths to variable names, e.g.
  {"placeholder": [{"key": "cluster_id", "eval": "body.clusterId"}]}
The request type is http (default) or cli.`,
	Args: cobra.RangeArgs(3, 5),
	Run: func(cmd *cobra.Command, args []string) {
		m := findSession(cmd, args[0])

		var request map[string]any
		if err := json.Unmarshal([]byte(args[2]), &request); err != nil {
			fail(fmt.Errorf("invalid request JSON: %w", err))
		}

		save, err := parseSaveConfig(args)
		if err != nil {
			fail(err)
		}

		kind := session.KindHTTP
		if len(args) >= 5 {
			kind = session.RequestKind(args[4])
		}

		attempt, err := m.Execute(args[1], request, save, kind)
		if err != nil {
			fail(err)
		}
		printJSON(map[string]any{
			"success":     attempt.Success,
			"index":       attempt.Index,
			"status_code": attempt.Response.StatusCode,
			"body":        attempt.Response.Body,
			"error":       attempt.Error,
			"saved":       attempt.SavedVariables,
			"duration_ms": attempt.DurationMS,
		})
		if !attempt.Success {
			os.Exit(1)
		}
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show session state and recent attempts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := findSession(cmd, args[0])
		printJSON(m.Status())
	},
}

var sessionSummaryCmd = &cobra.Command{
	Use:   "summary <session-id>",
	Short: "Compile successful attempts into the final scenario",
	Long: `Compiles the session's successful attempts into the scenario YAML,
validating that every variable a step consumes is a preset or was saved by
an earlier retained step. Use --remove to exclude attempts by index.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := findSession(cmd, args[0])
		remove, _ := cmd.Flags().GetIntSlice("remove")
		result, err := m.Summary(remove)
		if err != nil {
			fail(err)
		}
		printJSON(result)
	},
}

var sessionRerunCmd = &cobra.Command{
	Use:   "rerun <session-id>",
	Short: "Replay the compiled scenario in a fresh session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := findSession(cmd, args[0])
		result, err := m.Rerun()
		if err != nil {
			fail(err)
		}
		printJSON(result)
		if !result.Success {
			os.Exit(1)
		}
	},
}

func findSession(cmd *cobra.Command, sessionID string) *session.Manager {
	root, err := workspaceRoot(cmd)
	if err != nil {
		fail(err)
	}
	m, err := session.Find(root, sessionID, session.ManagerOpts{})
	if err != nil {
		fail(err)
	}
	return m
}

func parseSaveConfig(args []string) (*vars.SaveConfig, error) {
	if len(args) < 4 || args[3] == "" || args[3] == "null" {
		return nil, nil
	}
	var cfg vars.SaveConfig
	if err := json.Unmarshal([]byte(args[3]), &cfg); err != nil {
		return nil, fmt.Errorf("invalid save JSON: %w", err)
	}
	return &cfg, nil
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionExecuteCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionSummaryCmd)
	sessionCmd.AddCommand(sessionRerunCmd)

	sessionSummaryCmd.Flags().IntSlice("remove", nil, "Attempt indices to exclude from the compiled scenario")
}
