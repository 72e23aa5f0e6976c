package cmd

import (
	"fmt"
	"os"

	"github.com/ooyeku/streamcsv/pkg"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display information about a CSV file",
	Long: `Display basic information about a CSV file including:
- Number of rows
- Number of columns
- Column headers
- Sample of first few rows

Example:
  streamcsv info data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer file.Close()

		cfg := pkg.DefaultConfig()
		reader, err := pkg.Open(pkg.Source{R: file, Path: filePath}, cfg)
		if err != nil {
			return fmt.Errorf("error creating reader: %w", err)
		}

		preview, err := pkg.NewTableFromReader(reader, 5)
		if err != nil {
			return fmt.Errorf("error reading records: %w", err)
		}

		rowCount := len(preview.Rows)
		for reader.Read() {
			rowCount++
		}
		if err := reader.Err(); err != nil {
			return fmt.Errorf("error reading records: %w", err)
		}

		fmt.Printf("File: %s\n", filePath)
		fmt.Printf("Total Rows: %d\n", rowCount)
		fmt.Printf("Columns: %d\n", len(preview.Headers))

		if len(preview.Headers) > 0 {
			fmt.Println("\nColumn Headers:")
			for i, header := range preview.Headers {
				fmt.Printf("%d. %s\n", i+1, header)
			}
		}

		if len(preview.Rows) > 0 {
			fmt.Println("\nSample Rows:")
			fmt.Println(preview.String())
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
