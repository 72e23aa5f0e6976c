package cmd

import (
	"fmt"
	"os"

	"github.com/ooyeku/streamcsv/pkg"
	"github.com/spf13/cobra"
)

var (
	strict           bool
	validateProgress bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate CSV file structure",
	Long: `Validate the structure of a CSV file by checking:
- Consistent number of columns across all rows
- Proper quote and delimiter usage
- No malformed rows

Example:
  streamcsv validate data.csv
  streamcsv validate --strict data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer file.Close()

		cfg := pkg.DefaultConfig()
		if strict {
			cfg.MismatchedField = pkg.MismatchThrow
			cfg.ParseErrorAction = pkg.ActionThrow
		} else {
			cfg.MismatchedField = pkg.MismatchPadOrTruncate
			cfg.ParseErrorAction = pkg.ActionCollect
		}
		if validateProgress {
			cfg.ProgressIntervalRows = 1000
			cfg.ProgressCallback = func(s pkg.Snapshot) {
				_ = pkg.LogLine(os.Stderr, "info", "progress",
					pkg.StringField("component", "validate"),
					pkg.IntField("records_read", int64(s.RecordsRead)),
					pkg.IntField("line", s.CurrentLine),
					pkg.FloatField("rows_per_second", s.RowsPerSecond))
			}
		}

		reader, err := pkg.Open(pkg.Source{R: file, Path: filePath}, cfg)
		if err != nil {
			return fmt.Errorf("error creating reader: %w", err)
		}

		var rowCount int
		var emptyFieldErrors []string

		for reader.Read() {
			rowCount++
			if strict {
				for i := 0; i < reader.FieldCount(); i++ {
					if v, ok := reader.String(i); ok && v == "" {
						emptyFieldErrors = append(emptyFieldErrors, fmt.Sprintf("Row %d, Column %d: Empty field", rowCount, i+1))
					}
				}
			}
		}
		columnCount := reader.FieldCount()

		if err := reader.Err(); err != nil {
			fmt.Printf("File: %s\n", filePath)
			fmt.Printf("Rows processed: %d\n", rowCount)
			return fmt.Errorf("validation failed: %w", err)
		}

		fmt.Printf("File: %s\n", filePath)
		fmt.Printf("Rows processed: %d\n", rowCount)
		fmt.Printf("Columns per row: %d\n", columnCount)

		structuralErrors := reader.Alterations()
		parseErrors := reader.ParseErrors()
		totalErrors := len(structuralErrors) + len(parseErrors) + len(emptyFieldErrors)

		if totalErrors > 0 {
			for _, alt := range structuralErrors {
				_ = pkg.LogLine(os.Stderr, "warn", alt.Description,
					pkg.StringField("component", "validate"),
					pkg.IntField("record", alt.Record))
			}
			for _, f := range parseErrors {
				_ = pkg.LogLine(os.Stderr, "warn", f.Error(),
					pkg.StringField("component", "validate"),
					pkg.IntField("record", f.Record))
			}
			for _, e := range emptyFieldErrors {
				_ = pkg.LogLine(os.Stderr, "warn", e, pkg.StringField("component", "validate"))
			}
			return fmt.Errorf("validation failed with %d errors", totalErrors)
		}

		fmt.Println("\nValidation successful! No errors found.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVarP(&strict, "strict", "s", false,
		"Enable strict validation (no empty fields allowed)")
	validateCmd.Flags().BoolVarP(&validateProgress, "progress", "p", false, "Emit structured progress log lines to stderr")
}
