package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command invoked without any subcommand.
var rootCmd = &cobra.Command{
	Use:   "streamcsv",
	Short: "A streaming CSV parsing and analysis toolkit",
	Long: `streamcsv parses, inspects, validates, and exports CSV data
through a fast streaming reader with culture-aware type conversion.`,
}

// Execute runs rootCmd and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
