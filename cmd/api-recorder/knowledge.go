package main

import (
	"github.com/spf13/cobra"

	"api-recorder/internal/knowledge"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Export locally accumulated knowledge to repo YAML",
}

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Merge local pitfalls and patterns into the SUT's knowledge.yaml",
	Run: func(cmd *cobra.Command, args []string) {
		root, err := workspaceRoot(cmd)
		if err != nil {
			fail(err)
		}
		sutName, _ := cmd.Flags().GetString("sut")
		out, _ := cmd.Flags().GetString("out")
		fromDir, _ := cmd.Flags().GetString("from-dir")
		minOcc, _ := cmd.Flags().GetInt("min-occurrences")

		result, err := knowledge.Export(root, knowledge.ExportOpts{
			SUTName:        sutName,
			OutPath:        out,
			FromDir:        fromDir,
			MinOccurrences: minOcc,
		})
		if err != nil {
			fail(err)
		}
		printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(knowledgeCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)

	knowledgeExportCmd.Flags().String("sut", "", "SUT name under configs/")
	knowledgeExportCmd.Flags().String("out", "", "Output path (default configs/<sut>/knowledge.yaml)")
	knowledgeExportCmd.Flags().String("from-dir", "", "Source directory (default ~/.api-recorder/knowledge/<sut>)")
	knowledgeExportCmd.Flags().Int("min-occurrences", knowledge.DefaultMinOccurrences, "Export pitfalls seen at least N times")
	_ = knowledgeExportCmd.MarkFlagRequired("sut")
}
