package cmd

import (
	"github.com/spf13/cobra"

	"tagassist/internal/prompt"
)

var tableSummaryCmd = &cobra.Command{
	Use:   "generate-table-summary",
	Short: "Generate summaries for tables",
	Long: `Generate a Summary attribute for Table tags.

Supported file combinations: PDF -> PDF, image -> TXT.
Supported images: jpg, jpeg, png, bmp, gif, tif, tiff, webp.`,
	Example: `  # Summarize every table without a summary
  tagassist generate-table-summary -i report.pdf -o report-tagged.pdf --openai-key sk-...

  # Re-summarize all tables
  tagassist generate-table-summary -i report.pdf -o out.pdf --overwrite --openai-key sk-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, prompt.KindTableSummary)
	},
}

func init() {
	rootCmd.AddCommand(tableSummaryCmd)
	addOperationFlags(tableSummaryCmd, prompt.KindTableSummary)
}
