package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ooyeku/streamcsv/pkg"
)

// This mirrors the teacher's example/main.go role: a small, runnable
// demonstration of the library outside the cobra CLI. It streams a
// file through Reader, reports progress as structured log lines, and
// writes a filtered copy back out through Writer.
func main() {
	file, err := os.Open("data/employees.csv")
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	defer file.Close()

	cfg := pkg.DefaultConfig()
	cfg.ProgressIntervalRows = 100
	cfg.ProgressCallback = func(s pkg.Snapshot) {
		_ = pkg.LogLine(os.Stdout, "info", "progress",
			pkg.StringField("component", "example"),
			pkg.IntField("records_read", int64(s.RecordsRead)),
			pkg.FloatField("rows_per_second", s.RowsPerSecond))
	}

	reader, err := pkg.Open(pkg.Source{R: file, Path: "data/employees.csv"}, cfg)
	if err != nil {
		log.Fatalf("error opening reader: %v", err)
	}

	out, err := os.Create("data/employees_it.csv")
	if err != nil {
		log.Fatalf("error creating output file: %v", err)
	}
	defer out.Close()

	writer, err := pkg.NewWriter(out, pkg.DefaultWriterConfig())
	if err != nil {
		log.Fatalf("error creating writer: %v", err)
	}
	defer writer.Close()

	var deptIdx, salaryIdx int
	var hasDept, hasSalary bool

	start := time.Now()
	var total, matched int
	var salarySum float64
	for reader.Read() {
		total++
		if total == 1 {
			// Column names are known only once the first Read has
			// consumed the header row.
			deptIdx, hasDept = reader.Ordinal("department")
			salaryIdx, hasSalary = reader.Ordinal("salary")
		}
		if hasDept {
			dept, _ := reader.String(deptIdx)
			if dept != "IT" {
				continue
			}
		}
		matched++
		if hasSalary {
			if v, err := reader.Float64(salaryIdx); err == nil {
				salarySum += v
			}
		}

		row := make([]string, reader.FieldCount())
		for i := range row {
			row[i], _ = reader.String(i)
		}
		if err := writer.WriteRecord(row, nil); err != nil {
			log.Fatalf("error writing record: %v", err)
		}
	}
	if err := reader.Err(); err != nil {
		log.Fatalf("error reading: %v", err)
	}

	var avgSalary float64
	if matched > 0 {
		avgSalary = salarySum / float64(matched)
	}

	fmt.Printf("read %d rows, wrote %d IT rows (avg salary %.2f) in %v\n",
		total, matched, avgSalary, time.Since(start))

	for _, alt := range reader.Alterations() {
		fmt.Printf("row %d: %s\n", alt.Record, alt.Description)
	}
}
