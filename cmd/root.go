package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tagassist/internal/logger"
	"tagassist/internal/update"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "tagassist",
	Short: "AI enrichment for tagged PDF accessibility",
	Long: `tagassist walks the tagged structure tree of a PDF, finds figures,
tables and formulas, and uses a vision-capable OpenAI model to generate
alternate text, table summaries or MathML, writing the results back into
the document.

Standalone images, MathML XML fragments and JSON-wrapped images are also
supported as inputs, producing plain-text or JSON output.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits the process with the taxonomy code of any
// failure. A background check for a newer container image runs alongside
// the command and is joined before exit.
func Execute() {
	log := logger.WithComponent("cmd")
	start := time.Now()
	log.Info().Str("version", version).Msg("Processing started")

	checker := update.NewChecker(update.DefaultImage, version)
	updateDone := make(chan struct{})
	go func() {
		defer close(updateDone)
		checker.Check(context.Background())
	}()

	err := rootCmd.Execute()

	log.Info().Dur("elapsed", time.Since(start)).Msg("Processing finished")
	<-updateDone

	if err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
