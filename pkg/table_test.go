package pkg

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewTable(t *testing.T) {
	headers := []string{"id", "name", "age"}
	table := NewTable(headers)

	if !reflect.DeepEqual(table.Headers, headers) {
		t.Errorf("NewTable() headers = %v, want %v", table.Headers, headers)
	}

	if len(table.Rows) != 0 {
		t.Errorf("NewTable() rows = %v, want empty", table.Rows)
	}

	if len(table.types) != len(headers) {
		t.Errorf("NewTable() types length = %d, want %d", len(table.types), len(headers))
	}

	for header, idx := range table.index {
		if headers[idx] != header {
			t.Errorf("NewTable() index mapping incorrect for %s", header)
		}
	}
}

func TestAddRow(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		row     []string
		wantErr bool
	}{
		{
			name:    "valid row",
			headers: []string{"id", "name", "age"},
			row:     []string{"1", "John", "25"},
			wantErr: false,
		},
		{
			name:    "row too short",
			headers: []string{"id", "name", "age"},
			row:     []string{"1", "John"},
			wantErr: true,
		},
		{
			name:    "row too long",
			headers: []string{"id", "name", "age"},
			row:     []string{"1", "John", "25", "extra"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable(tt.headers)
			err := table.AddRow(tt.row)
			if (err != nil) != tt.wantErr {
				t.Errorf("AddRow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(table.Rows[0], tt.row) {
				t.Errorf("AddRow() row = %v, want %v", table.Rows[0], tt.row)
			}
		})
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want ColumnType
	}{
		{"empty string", "", TypeNull},
		{"null string", "null", TypeNull},
		{"\\N string", "\\N", TypeNull},
		{"integer", "123", TypeInteger},
		{"negative integer", "-123", TypeInteger},
		{"float", "123.45", TypeFloat},
		{"negative float", "-123.45", TypeFloat},
		{"scientific notation", "1.23e-4", TypeFloat},
		{"boolean true", "true", TypeBoolean},
		{"boolean false", "false", TypeBoolean},
		{"string", "hello", TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectType(tt.val); got != tt.want {
				t.Errorf("DetectType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetColumn(t *testing.T) {
	table := NewTable([]string{"id", "name", "age"})
	if err := table.AddRow([]string{"1", "John", "25"}); err != nil {
		t.Fatal(err)
	}
	if err := table.AddRow([]string{"2", "Jane", "30"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		header  string
		want    []string
		wantErr bool
	}{
		{
			name:    "existing column",
			header:  "name",
			want:    []string{"John", "Jane"},
			wantErr: false,
		},
		{
			name:    "non-existent column",
			header:  "invalid",
			want:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.GetColumn(tt.header)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetColumn() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetColumn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetColumnType(t *testing.T) {
	table := NewTable([]string{"id", "active"})
	if err := table.AddRow([]string{"1", "true"}); err != nil {
		t.Fatal(err)
	}

	typ, err := table.GetColumnType("active")
	if err != nil {
		t.Fatalf("GetColumnType() error = %v", err)
	}
	if typ != TypeBoolean {
		t.Errorf("GetColumnType() = %v, want TypeBoolean", typ)
	}

	if _, err := table.GetColumnType("missing"); err == nil {
		t.Error("GetColumnType() expected error for missing column")
	}
}

func TestTableFromReaderCarriesAlterations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MismatchedField = MismatchPadOrTruncate
	r := openString(t, "a,b\n1\n2,3,4\n", cfg)

	table, err := NewTableFromReader(r, 0)
	if err != nil {
		t.Fatalf("NewTableFromReader() error = %v", err)
	}
	if len(table.Alterations) != 2 {
		t.Fatalf("got %d alterations, want 2", len(table.Alterations))
	}
	if !strings.Contains(table.String(), "padded or truncated") {
		t.Error("String() should mention alterations when present")
	}
}

func TestTableString(t *testing.T) {
	table := NewTable([]string{"id", "name"})
	if err := table.AddRow([]string{"1", "John"}); err != nil {
		t.Fatal(err)
	}
	out := table.String()
	if !strings.Contains(out, "id") || !strings.Contains(out, "John") {
		t.Errorf("String() = %q, missing expected content", out)
	}
}
