package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"api-recorder/internal/openapi"
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Navigate a SUT's OpenAPI spec without reading the whole file",
}

var openapiListCmd = &cobra.Command{
	Use:   "list",
	Short: "List operations (operationId, method, path, summary)",
	Run: func(cmd *cobra.Command, args []string) {
		root, err := workspaceRoot(cmd)
		if err != nil {
			fail(err)
		}
		sutName, _ := cmd.Flags().GetString("sut")
		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")

		_, raw, err := openapi.LoadSpec(root, sutName)
		if err != nil {
			fail(err)
		}
		ops, err := openapi.List(raw, query, limit)
		if err != nil {
			fail(err)
		}
		printDoc(cmd, map[string]any{"operations": ops})
	},
}

var openapiExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one operation plus the schemas it references",
	Run: func(cmd *cobra.Command, args []string) {
		root, err := workspaceRoot(cmd)
		if err != nil {
			fail(err)
		}
		sutName, _ := cmd.Flags().GetString("sut")
		operationID, _ := cmd.Flags().GetString("operation-id")

		_, raw, err := openapi.LoadSpec(root, sutName)
		if err != nil {
			fail(err)
		}
		doc, err := openapi.Extract(raw, operationID)
		if err != nil {
			fail(err)
		}
		printDoc(cmd, doc)
	},
}

// printDoc honors the --format flag: YAML by default for readability, JSON
// on request for machine callers.
func printDoc(cmd *cobra.Command, doc any) {
	format, _ := cmd.Flags().GetString("format")
	if format == "json" {
		printJSON(doc)
		return
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		fail(err)
	}
	fmt.Print(string(data))
}

func init() {
	rootCmd.AddCommand(openapiCmd)
	openapiCmd.AddCommand(openapiListCmd)
	openapiCmd.AddCommand(openapiExtractCmd)

	for _, c := range []*cobra.Command{openapiListCmd, openapiExtractCmd} {
		c.Flags().String("sut", "", "SUT name under configs/")
		c.Flags().String("format", "yaml", "Output format: yaml or json")
		_ = c.MarkFlagRequired("sut")
	}
	openapiListCmd.Flags().String("query", "", "Substring filter over operationId/method/path/summary")
	openapiListCmd.Flags().Int("limit", 200, "Maximum operations to list (0 for no limit)")
	openapiExtractCmd.Flags().String("operation-id", "", "Operation to extract")
	_ = openapiExtractCmd.MarkFlagRequired("operation-id")
}
