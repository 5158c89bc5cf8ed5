package cmd

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

//go:embed config.json
var defaultConfig []byte

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print or save the default configuration file",
	Long: `Print the default configuration to stdout, or copy it to the path
given with --output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			fmt.Print(string(defaultConfig))
			return nil
		}
		return os.WriteFile(output, defaultConfig, 0o644)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringP("output", "o", "", "Destination path for the configuration file")
}
