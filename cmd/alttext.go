package cmd

import (
	"github.com/spf13/cobra"

	"tagassist/internal/prompt"
)

var altTextCmd = &cobra.Command{
	Use:   "generate-alt-text",
	Short: "Generate alternate text for images and formulas",
	Long: `Generate alternate text for Figure and Formula tags.

Supported file combinations: PDF -> PDF, image -> TXT, XML -> TXT,
JSON -> JSON. Supported images: jpg, jpeg, png, bmp, gif, tif, tiff, webp.`,
	Example: `  # Enrich all figures and formulas in a tagged PDF
  tagassist generate-alt-text -i report.pdf -o report-tagged.pdf --openai-key sk-...

  # Describe a standalone image
  tagassist generate-alt-text -i chart.png -o chart.txt --openai-key sk-...

  # Replace existing alt text in German
  tagassist generate-alt-text -i report.pdf -o out.pdf --overwrite --lang de --openai-key sk-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, prompt.KindAltText)
	},
}

func init() {
	rootCmd.AddCommand(altTextCmd)
	addOperationFlags(altTextCmd, prompt.KindAltText)
}
