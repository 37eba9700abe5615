package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"api-recorder/internal/config"
	"api-recorder/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "api-recorder",
	Short: "Record exploratory API and CLI sessions into replayable scenarios",
	Long: `api-recorder executes requests against a configured system under test,
records every attempt with its variable flow, and compiles the successful
path into a replayable YAML scenario.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("loglevel")
		logging.SetupLogging(level)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printJSON(map[string]any{"success": false, "error": err.Error()})
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("root", "", "Workspace root (default: $API_RECORDER_ROOT or nearest dir with configs/)")
	rootCmd.PersistentFlags().String("loglevel", "warning", "Log level: none, error, warning, info, debug")
}

// workspaceRoot resolves the workspace from the --root flag, the
// API_RECORDER_ROOT environment variable, or by walking up from the
// current directory looking for a configs/ folder.
func workspaceRoot(cmd *cobra.Command) (string, error) {
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		return root, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.ResolveRoot(cwd)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("{\"success\": false, \"error\": %q}\n", err.Error())
		return
	}
	fmt.Println(string(data))
}

// fail prints a structured error and exits nonzero, so agent callers always
// get parseable output on stdout.
func fail(err error) {
	printJSON(map[string]any{"success": false, "error": err.Error()})
	os.Exit(1)
}
