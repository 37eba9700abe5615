package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"api-recorder/internal/config"
	"api-recorder/internal/executor"
	"api-recorder/internal/util"
)

var execCmd = &cobra.Command{
	Use:   "exec <http|cli|poll> <request-json>",
	Short: "Execute one request without exposing credentials",
	Long: `Executes a single HTTP request, CLI command, or readiness poll against
the configured SUT. Credentials are injected from the environment or the
credential file and never appear in the request JSON or the output.

Poll requests carry extra keys consumed before dispatch:
  expect       condition, e.g. "body.state == ACTIVE"
  max_retries  attempt budget (default 60)
  delay        seconds between attempts (default 30)`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		mode, requestJSON := args[0], args[1]

		sutName, _ := cmd.Flags().GetString("sut")
		if sutName == "" {
			sutName = os.Getenv("API_RECORDER_SUT")
		}
		if sutName == "" {
			fail(fmt.Errorf("no SUT specified: use --sut or set API_RECORDER_SUT"))
		}

		var request map[string]any
		if err := json.Unmarshal([]byte(requestJSON), &request); err != nil {
			fail(fmt.Errorf("invalid JSON: %w", err))
		}

		root, err := workspaceRoot(cmd)
		if err != nil {
			fail(err)
		}
		config.LoadDotenv(root)
		exec, err := executor.New(root, sutName)
		if err != nil {
			fail(err)
		}

		request, _ = util.ExpandEnvAny(request).(map[string]any)

		var result executor.Result
		switch mode {
		case "http":
			result = exec.ExecuteHTTP(request)
		case "cli":
			result = exec.ExecuteCLI(request)
		case "poll":
			condition, _ := request["expect"].(string)
			maxRetries := intField(request, "max_retries", 60)
			delay := intField(request, "delay", 30)
			delete(request, "expect")
			delete(request, "max_retries")
			delete(request, "delay")
			result = exec.PollUntilReady(request, condition, maxRetries, delay)
		default:
			fail(fmt.Errorf("unknown mode: %s (use http, cli, or poll)", mode))
		}

		printJSON(result)
		if !result.Success {
			os.Exit(1)
		}
	},
}

func intField(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().String("sut", "", "SUT name under configs/ (default: $API_RECORDER_SUT)")
}
