package pkg

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterSimpleRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, DefaultWriterConfig())
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteHeader([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	if err := w.WriteRecord([]string{"1", "2", "3"}, nil); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := "a,b,c" + string(platformNewline) + "1,2,3" + string(platformNewline)
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	r, err := Open(Source{R: strings.NewReader(buf.String())}, DefaultConfig())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !r.Read() {
		t.Fatalf("expected a record, err=%v", r.Err())
	}
	v, _ := r.String(1)
	if v != "2" {
		t.Errorf("round-tripped field 1 = %q, want 2", v)
	}
}

func TestWriterQuotingAsNeeded(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Newline = NewlineLF
	w, err := NewWriter(&buf, cfg)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteRecord([]string{`has"quote`, "has,comma", "plain"}, nil); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := "\"has\"\"quote\",\"has,comma\",plain\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriterQuoteAlways(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Newline = NewlineLF
	cfg.Quoting = QuoteAlways
	w, err := NewWriter(&buf, cfg)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteRecord([]string{"a", "1"}, nil); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	w.Close()

	want := "\"a\",\"1\"\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriterQuoteNever(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Newline = NewlineLF
	cfg.Quoting = QuoteNever
	w, _ := NewWriter(&buf, cfg)
	if err := w.WriteRecord([]string{"has,comma"}, nil); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	w.Close()

	if buf.String() != "has,comma\n" {
		t.Errorf("output = %q, want unquoted passthrough", buf.String())
	}
}

func TestWriterNullValue(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Newline = NewlineLF
	cfg.NullValue = "\\N"
	w, _ := NewWriter(&buf, cfg)
	if err := w.WriteRecord([]string{"a", "b"}, []bool{false, true}); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	w.Close()

	if buf.String() != "a,\\N\n" {
		t.Errorf("output = %q, want a,\\\\N", buf.String())
	}
}

func TestWriterArityMismatch(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, DefaultWriterConfig())
	if err := w.WriteHeader([]string{"a", "b"}); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	err := w.WriteRecord([]string{"1", "2", "3"}, nil)
	if err == nil {
		t.Fatalf("expected arity mismatch error")
	}
	f, ok := err.(*Fault)
	if !ok || f.Kind != KindFieldCountMismatch {
		t.Errorf("got %v, want FieldCountMismatch", err)
	}
}

func TestWriterValues(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Newline = NewlineLF
	w, _ := NewWriter(&buf, cfg)
	if err := w.WriteValues([]AnyValue{{Text: "1"}, {IsNull: true}}); err != nil {
		t.Fatalf("WriteValues() error = %v", err)
	}
	w.Close()

	if buf.String() != "1,\n" {
		t.Errorf("output = %q, want 1,<empty>", buf.String())
	}
}

func TestWriterCompressionGzip(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.CompressionFormat = CompressionGzip
	w, err := NewWriter(&buf, cfg)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteRecord([]string{"a", "b"}, nil); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	magic := buf.Bytes()
	if len(magic) < 2 || magic[0] != 0x1f || magic[1] != 0x8b {
		t.Errorf("expected gzip magic bytes, got % x", magic[:min(len(magic), 4)])
	}
}

func TestWriterNewlineCRLF(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Newline = NewlineCRLF
	w, _ := NewWriter(&buf, cfg)
	if err := w.WriteRecord([]string{"a"}, nil); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	w.Close()
	if buf.String() != "a\r\n" {
		t.Errorf("output = %q, want CRLF terminator", buf.String())
	}
}

func TestWriterEmptyDelimiterRejected(t *testing.T) {
	cfg := DefaultWriterConfig()
	cfg.Delimiter = nil
	_, err := NewWriter(&bytes.Buffer{}, cfg)
	if err == nil {
		t.Fatalf("expected error for empty delimiter")
	}
	f, ok := err.(*Fault)
	if !ok || f.Kind != KindEmptyDelimiter {
		t.Errorf("got %v, want EmptyDelimiter", err)
	}
}
