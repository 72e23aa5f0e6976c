package cmd

import (
	"fmt"
	"os"

	"github.com/ooyeku/streamcsv/pkg"
	"github.com/spf13/cobra"
)

var (
	delimiter     string
	quote         string
	trim          bool
	parseProgress bool
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse and display CSV file contents",
	Long: `Parse and display the contents of a CSV file with customizable options for
delimiter, quote character, and whitespace trimming.

Example:
  streamcsv parse data.csv
  streamcsv parse --delimiter=";" --quote="'" data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		// Open the file
		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer func(file *os.File) {
			err := file.Close()
			if err != nil {
				fmt.Printf("Error closing file: %v\n", err)
			}
		}(file)

		// Create config
		cfg := pkg.DefaultConfig()
		cfg.Delimiter = []byte(delimiter)
		cfg.Quote = []byte(quote)[0]
		if trim {
			cfg.Trimming = pkg.TrimUnquotedOnly
		}
		if parseProgress {
			cfg.ProgressIntervalRows = 1000
			cfg.ProgressCallback = func(s pkg.Snapshot) {
				_ = pkg.LogLine(os.Stderr, "info", "progress",
					pkg.StringField("component", "parse"),
					pkg.IntField("records_read", int64(s.RecordsRead)),
					pkg.IntField("line", s.CurrentLine),
					pkg.FloatField("rows_per_second", s.RowsPerSecond))
			}
		}

		// Create reader
		reader, err := pkg.Open(pkg.Source{R: file, Path: filePath}, cfg)
		if err != nil {
			return fmt.Errorf("error creating reader: %w", err)
		}

		// Read and display records
		for reader.Read() {
			for i := 0; i < reader.FieldCount(); i++ {
				if i > 0 {
					fmt.Print("\t")
				}
				field, _ := reader.String(i)
				fmt.Print(field)
			}
			fmt.Println()
		}
		if err := reader.Err(); err != nil {
			return fmt.Errorf("error reading record: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	// Add flags
	parseCmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "Field delimiter character")
	parseCmd.Flags().StringVarP(&quote, "quote", "q", "\"", "Quote character")
	parseCmd.Flags().BoolVarP(&trim, "trim", "t", false, "Trim leading and trailing whitespace in unquoted fields")
	parseCmd.Flags().BoolVarP(&parseProgress, "progress", "p", false, "Emit structured progress log lines to stderr")
}
