package cmd

import (
	"github.com/spf13/cobra"

	"tagassist/internal/prompt"
)

var mathMLCmd = &cobra.Command{
	Use:   "generate-mathml",
	Short: "Generate MathML for formulas",
	Long: `Generate a MathML associated file for Formula tags.

Supported file combinations: PDF -> PDF, image -> TXT.
Supported images: jpg, jpeg, png, bmp, gif, tif, tiff, webp.`,
	Example: `  # Attach MathML to every formula
  tagassist generate-mathml -i paper.pdf -o paper-tagged.pdf --openai-key sk-...

  # Target MathML 3 instead of the default
  tagassist generate-mathml -i paper.pdf -o out.pdf --mathml-version mathml-3 --openai-key sk-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, prompt.KindMathML)
	},
}

func init() {
	rootCmd.AddCommand(mathMLCmd)
	addOperationFlags(mathMLCmd, prompt.KindMathML)
	mathMLCmd.Flags().String("mathml-version", "mathml-4", "MathML version: mathml-1, mathml-2, mathml-3 or mathml-4")
	mathMLCmd.Flags().Bool("regenerate-mathml", true, "Regenerate MathML for formulas that already have an associated file")
}
