package pkg

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
)

// Table is a bounded, in-memory preview of a CSV stream: every row is
// materialized, which is why NewTableFromReader caps how many records
// it will drain. It exists for the CLI's preview/export surface, not
// for general-purpose data manipulation — callers that need the whole
// file should stream through Reader directly.
type Table struct {
	Headers []string
	Rows    [][]string

	// Alterations carries the Reader's alteration log (C10) at the
	// point NewTableFromReader stopped draining, so a preview can show
	// that rows were padded/truncated even though the Table itself
	// only ever sees well-formed, arity-matched records.
	Alterations []Alteration

	types []ColumnType
	index map[string]int // Header to column index mapping
}

// ColumnType represents the detected type of a column
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInteger
	TypeFloat
	TypeBoolean
	TypeNull
)

func (c ColumnType) String() string {
	switch c {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeNull:
		return "null"
	default:
		return "string"
	}
}

// NewTableFromReader builds a Table preview by draining up to maxRows
// records from an already-opened Reader (maxRows <= 0 means unbounded).
// It is the bounded, first-N-row counterpart to streaming Read/Close:
// a Table holds every row materialized in memory, so callers preview
// large files through this rather than loading them whole.
func NewTableFromReader(r *Reader, maxRows int) (*Table, error) {
	// Header capture happens lazily inside the first Read call, so the
	// column layout isn't known until after it returns.
	if !r.Read() {
		if err := r.Err(); err != nil {
			return nil, err
		}
		headers := make([]string, r.FieldCount())
		for i := range headers {
			headers[i] = r.Name(i)
		}
		t := NewTable(headers)
		t.Alterations = r.Alterations()
		return t, nil
	}

	headers := make([]string, r.FieldCount())
	for i := range headers {
		headers[i] = r.Name(i)
	}
	t := NewTable(headers)

	count := 0
	for {
		row := make([]string, r.FieldCount())
		for i := range row {
			if s, ok := r.String(i); ok {
				row[i] = s
			} else {
				row[i] = ""
			}
		}
		if err := t.AddRow(row); err != nil {
			return nil, err
		}
		count++
		if maxRows > 0 && count >= maxRows {
			break
		}
		if !r.Read() {
			break
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	t.Alterations = r.Alterations()
	return t, nil
}

// NewTable creates a new table with the given headers
func NewTable(headers []string) *Table {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	types := make([]ColumnType, len(headers))
	for i := range types {
		// No value seen yet; the first row sets the detected type.
		types[i] = TypeNull
	}
	return &Table{
		Headers: headers,
		Rows:    make([][]string, 0),
		types:   types,
		index:   index,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(row []string) error {
	if len(row) != len(t.Headers) {
		return fmt.Errorf("row length %d does not match headers length %d", len(row), len(t.Headers))
	}
	t.Rows = append(t.Rows, row)
	t.updateTypes(row)
	return nil
}

// updateTypes updates the detected types for each column based on the new row
func (t *Table) updateTypes(row []string) {
	for i, val := range row {
		if t.types[i] == TypeNull {
			t.types[i] = DetectType(val)
			continue
		}
		newType := DetectType(val)
		if newType != t.types[i] {
			// If types conflict, fall back to string
			t.types[i] = TypeString
		}
	}
}

// DetectType attempts to determine the type of a value
func DetectType(val string) ColumnType {
	if val == "" || strings.EqualFold(val, "null") || strings.EqualFold(val, "\\N") {
		return TypeNull
	}
	if strings.EqualFold(val, "true") || strings.EqualFold(val, "false") {
		return TypeBoolean
	}
	if _, err := strconv.ParseInt(val, 10, 64); err == nil {
		return TypeInteger
	}
	if _, err := strconv.ParseFloat(val, 64); err == nil {
		return TypeFloat
	}
	return TypeString
}

// GetColumn returns all values in a column by header name
func (t *Table) GetColumn(header string) ([]string, error) {
	idx, ok := t.index[header]
	if !ok {
		return nil, fmt.Errorf("column %q not found", header)
	}
	col := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		col[i] = row[idx]
	}
	return col, nil
}

// GetColumnType returns the detected type of a column
func (t *Table) GetColumnType(header string) (ColumnType, error) {
	idx, ok := t.index[header]
	if !ok {
		return TypeString, fmt.Errorf("column %q not found", header)
	}
	return t.types[idx], nil
}

// String returns a plain-text, fixed-width rendering of the table.
func (t *Table) String() string {
	if len(t.Headers) == 0 {
		return "empty table"
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for i, h := range t.Headers {
		if i > 0 {
			sb.WriteString(" | ")
		}
		fmt.Fprintf(&sb, "%-*s", widths[i], h)
	}
	sb.WriteString("\n")

	for i, w := range widths {
		if i > 0 {
			sb.WriteString("-+-")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(" | ")
			}
			fmt.Fprintf(&sb, "%-*s", widths[i], cell)
		}
		sb.WriteString("\n")
	}

	if len(t.Alterations) > 0 {
		fmt.Fprintf(&sb, "(%d row(s) padded or truncated)\n", len(t.Alterations))
	}

	return sb.String()
}

// ExportToJSON exports the table to a JSON file with optional formatting
func (t *Table) ExportToJSON(writer io.Writer) error {
	if t == nil || len(t.Headers) == 0 {
		return fmt.Errorf("cannot export empty table")
	}

	data := make([]map[string]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		rowMap := make(map[string]interface{})
		for j, header := range t.Headers {
			colType, _ := t.GetColumnType(header)
			value := row[j]

			switch colType {
			case TypeInteger:
				if val, err := strconv.ParseInt(value, 10, 64); err == nil {
					rowMap[header] = val
					continue
				}
			case TypeFloat:
				if val, err := strconv.ParseFloat(value, 64); err == nil {
					rowMap[header] = val
					continue
				}
			case TypeBoolean:
				if strings.EqualFold(value, "true") {
					rowMap[header] = true
					continue
				} else if strings.EqualFold(value, "false") {
					rowMap[header] = false
					continue
				}
			case TypeNull:
				if value == "" || strings.EqualFold(value, "null") || strings.EqualFold(value, "\\N") {
					rowMap[header] = nil
					continue
				}
			}
			rowMap[header] = value
		}
		data[i] = rowMap
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// ExportToHTML exports the table to an HTML file with responsive styling
func (t *Table) ExportToHTML(writer io.Writer) error {
	if t == nil || len(t.Headers) == 0 {
		return fmt.Errorf("cannot export empty table")
	}

	const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>CSV Data</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
            line-height: 1.6;
            padding: 20px;
            max-width: 100%;
            overflow-x: auto;
        }
        table {
            border-collapse: collapse;
            width: 100%;
            margin: 20px 0;
            background-color: white;
            box-shadow: 0 1px 3px rgba(0,0,0,0.2);
        }
        th, td {
            padding: 12px 15px;
            text-align: left;
            border-bottom: 1px solid #ddd;
        }
        th {
            background-color: #f8f9fa;
            font-weight: 600;
            color: #333;
            position: sticky;
            top: 0;
        }
        tr:nth-child(even) {
            background-color: #f8f9fa;
        }
        tr:hover {
            background-color: #f2f2f2;
        }
        @media (max-width: 600px) {
            table {
                display: block;
                overflow-x: auto;
            }
            th, td {
                min-width: 120px;
            }
        }
    </style>
</head>
<body>
    <table>
        <thead>
            <tr>
                {{range .Headers}}<th>{{.}}</th>{{end}}
            </tr>
        </thead>
        <tbody>
            {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
        </tbody>
    </table>
</body>
</html>`

	tmpl, err := template.New("table").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("error parsing HTML template: %w", err)
	}

	return tmpl.Execute(writer, t)
}

// GetTypes returns the column types
func (t *Table) GetTypes() []ColumnType {
	return t.types
}

// GetIndex returns the header to column index mapping
func (t *Table) GetIndex() map[string]int {
	return t.index
}
