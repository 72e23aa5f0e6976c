package pkg

import (
	"context"
	"strings"
	"testing"
)

func openString(t *testing.T, input string, cfg Config) *Reader {
	t.Helper()
	r, err := Open(Source{R: strings.NewReader(input)}, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return r
}

func drain(r *Reader) [][]string {
	var out [][]string
	for r.Read() {
		row := make([]string, r.FieldCount())
		for i := range row {
			row[i], _ = r.String(i)
		}
		out = append(out, row)
	}
	return out
}

// S1
func TestReaderSimple(t *testing.T) {
	r := openString(t, "a,b,c\n1,2,3\n", DefaultConfig())
	got := drain(r)
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || r.RecordsRead() != 1 {
		t.Fatalf("got %v records, want 1", got)
	}
	want := []string{"1", "2", "3"}
	for i, v := range want {
		if got[0][i] != v {
			t.Errorf("field %d = %q, want %q", i, got[0][i], v)
		}
	}
	if n, ok := r.Ordinal("b"); !ok || n != 1 {
		t.Errorf("Ordinal(b) = %d,%v want 1,true", n, ok)
	}
}

// S2
func TestReaderQuotedNoHeaderNullDistinction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HasHeaderRow = false
	cfg.DistinguishEmptyFromNull = true
	input := "\"x,y\",\"a\"\"b\",\n\"\",\"\",\n"
	r := openString(t, input, cfg)

	if !r.Read() {
		t.Fatalf("expected first record, err=%v", r.Err())
	}
	if v, ok := r.String(0); !ok || v != "x,y" {
		t.Errorf("field 0 = %q,%v want x,y,true", v, ok)
	}
	if v, ok := r.String(1); !ok || v != `a"b` {
		t.Errorf("field 1 = %q,%v", v, ok)
	}
	if !r.IsNull(2) {
		t.Errorf("field 2 should be null")
	}

	if !r.Read() {
		t.Fatalf("expected second record, err=%v", r.Err())
	}
	if v, ok := r.String(0); !ok || v != "" {
		t.Errorf("field 0 = %q,%v want empty string, true", v, ok)
	}
	if !r.IsNull(2) {
		t.Errorf("field 2 should be null")
	}
}

// S3
func TestReaderPadOrTruncate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MismatchedField = MismatchPadOrTruncate
	input := "a,b\n1\n2,3\n4,5,6\n"
	r := openString(t, input, cfg)
	got := drain(r)
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0][0] != "1" || got[0][1] != "" {
		t.Errorf("padded record = %v, want [1 \"\"]", got[0])
	}
	if got[2][0] != "4" || got[2][1] != "5" {
		t.Errorf("truncated record = %v, want [4 5]", got[2])
	}
	if len(r.Alterations()) != 2 {
		t.Fatalf("got %d alterations, want 2", len(r.Alterations()))
	}
	if r.Alterations()[0].Description != AltRecordPadded {
		t.Errorf("alteration[0].Description = %q, want AltRecordPadded", r.Alterations()[0].Description)
	}
	if r.Alterations()[1].Description != AltRecordTruncated {
		t.Errorf("alteration[1].Description = %q, want AltRecordTruncated", r.Alterations()[1].Description)
	}
}

// S4
func TestReaderBOM(t *testing.T) {
	input := "\xEF\xBB\xBFa,b\n1,2\n"
	r := openString(t, input, DefaultConfig())
	if !r.Read() {
		t.Fatalf("expected a record, err=%v", r.Err())
	}
	if name := r.Name(0); name != "a" {
		t.Errorf("Name(0) = %q, want a", name)
	}
}

// S5
func TestReaderPipeDelimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = []byte{'|'}
	r := openString(t, "a|b|c\n1|2|3\n", cfg)
	got := drain(r)
	if len(got) != 1 || got[0][2] != "3" {
		t.Fatalf("got %v", got)
	}
}

// S6
func TestReaderMultiByteDelimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = []byte("::")
	r := openString(t, "a::b::c\n1::2::3\n", cfg)
	got := drain(r)
	if len(got) != 1 || got[0][1] != "2" {
		t.Fatalf("got %v", got)
	}
}

// S8
func TestReaderDuplicateHeaderRename(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DuplicateHeader = DuplicateRename
	r := openString(t, "name,name,name\n1,2,3\n", cfg)
	got := drain(r)
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	names := []string{r.Name(0), r.Name(1), r.Name(2)}
	want := []string{"name", "name_2", "name_3"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Name(%d) = %q, want %q", i, names[i], want[i])
		}
	}
}

// S9
func TestReaderCommentLines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Comment = '#'
	r := openString(t, "# comment\na,b\n1,2\n", cfg)
	if !r.Read() {
		t.Fatalf("expected a record, err=%v", r.Err())
	}
	if r.Name(0) != "a" || r.Name(1) != "b" {
		t.Fatalf("unexpected header %s %s", r.Name(0), r.Name(1))
	}
}

func TestReaderMultilineQuotedField(t *testing.T) {
	input := "a,b\n\"line1\nline2\",2\n"
	r := openString(t, input, DefaultConfig())
	if !r.Read() {
		t.Fatalf("expected record, err=%v", r.Err())
	}
	v, _ := r.String(0)
	if v != "line1\nline2" {
		t.Errorf("field 0 = %q", v)
	}
}

func TestReaderCustomDelimiterSemicolon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = []byte{';'}
	r := openString(t, "a;b;c\n1;2;3\n", cfg)
	got := drain(r)
	want := [][]string{{"1", "2", "3"}}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i, v := range want[0] {
		if got[0][i] != v {
			t.Errorf("field %d = %q, want %q", i, got[0][i], v)
		}
	}
}

func TestReaderNullValueLiteral(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HasHeaderRow = false
	null := "\\N"
	cfg.NullValue = &null
	r := openString(t, "a,\\N,c\n", cfg)
	if !r.Read() {
		t.Fatalf("expected record, err=%v", r.Err())
	}
	if !r.IsNull(1) {
		t.Errorf("field 1 should resolve as null")
	}
}

func TestReaderTrimAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HasHeaderRow = false
	cfg.Trimming = TrimAll
	r := openString(t, "a, b ,c\n", cfg)
	if !r.Read() {
		t.Fatalf("expected record, err=%v", r.Err())
	}
	v, _ := r.String(1)
	if v != "b" {
		t.Errorf("field 1 = %q, want trimmed b", v)
	}
}

func TestReaderArityThrow(t *testing.T) {
	cfg := DefaultConfig()
	input := "a,b\n1,2,3\n"
	r := openString(t, input, cfg)
	if r.Read() {
		t.Fatalf("expected no record on arity mismatch")
	}
	if r.Err() == nil {
		t.Fatalf("expected a fault")
	}
	f, ok := r.Err().(*Fault)
	if !ok || f.Kind != KindFieldCountMismatch {
		t.Errorf("got %v, want FieldCountMismatch", r.Err())
	}
}

func TestReaderTypedAccessors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HasHeaderRow = false
	r := openString(t, "42,3.14,true,2024-01-02T15:04:05Z\n", cfg)
	if !r.Read() {
		t.Fatalf("expected record, err=%v", r.Err())
	}
	if v, err := r.Int64(0); err != nil || v != 42 {
		t.Errorf("Int64 = %d,%v", v, err)
	}
	if v, err := r.Float64(1); err != nil || v != 3.14 {
		t.Errorf("Float64 = %v,%v", v, err)
	}
	if v, err := r.Bool(2); err != nil || !v {
		t.Errorf("Bool = %v,%v", v, err)
	}
	if v, err := r.Time(3); err != nil || v.Year() != 2024 {
		t.Errorf("Time = %v,%v", v, err)
	}
}

func TestReaderCancellation(t *testing.T) {
	cfg := DefaultConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cfg.Context = ctx
	r := openString(t, "a,b\n1,2\n3,4\n5,6\n", cfg)
	cancel()
	if r.Read() {
		t.Fatalf("expected cancellation to stop reading")
	}
	f, ok := r.Err().(*Fault)
	if !ok || f.Kind != KindCancelled {
		t.Errorf("got %v, want Cancelled", r.Err())
	}
}

func TestReaderProjectionIncludeExclude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcludeColumns = map[string]struct{}{"b": {}}
	r := openString(t, "a,b,c\n1,2,3\n", cfg)
	if !r.Read() {
		t.Fatalf("expected record, err=%v", r.Err())
	}
	if r.FieldCount() != 2 {
		t.Fatalf("FieldCount() = %d, want 2", r.FieldCount())
	}
	v, _ := r.String(1)
	if v != "3" {
		t.Errorf("projected field 1 = %q, want 3 (b excluded)", v)
	}
}

func TestReaderStaticColumn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaticColumns = []StaticColumn{{Name: "source", Value: "test", Position: 0}}
	r := openString(t, "a,b\n1,2\n", cfg)
	if !r.Read() {
		t.Fatalf("expected record, err=%v", r.Err())
	}
	if r.Name(0) != "source" {
		t.Fatalf("Name(0) = %q, want source", r.Name(0))
	}
	v, _ := r.String(0)
	if v != "test" {
		t.Errorf("static column value = %q, want test", v)
	}
}

func TestReaderProgressNotifier(t *testing.T) {
	var snapshots []Snapshot
	cfg := DefaultConfig()
	cfg.HasHeaderRow = false
	cfg.ProgressIntervalRows = 2
	cfg.ProgressCallback = func(s Snapshot) { snapshots = append(snapshots, s) }
	r := openString(t, "1\n2\n3\n4\n", cfg)
	for r.Read() {
	}
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snapshots))
	}
	if snapshots[0].RecordsRead != 2 || snapshots[1].RecordsRead != 4 {
		t.Errorf("unexpected snapshot sequence: %+v", snapshots)
	}
}

func TestReaderLifecycleClosed(t *testing.T) {
	r := openString(t, "a,b\n1,2\n", DefaultConfig())
	for r.Read() {
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.Read() {
		t.Fatalf("Read() after Close should return false")
	}
}

func TestReaderPartition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HasHeaderRow = false
	input := strings.Repeat("1,2,3\n", 10)
	r := openString(t, input, cfg)
	segments, err := r.Partition(3)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(segments) != 4 {
		t.Fatalf("got %d segments, want 4 (3+3+3+1)", len(segments))
	}
	if segments[3].SegmentSize <= 0 {
		t.Errorf("last segment should still have positive size")
	}
}
