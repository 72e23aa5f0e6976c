package pkg

import (
	"bufio"
	"compress/zlib"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// platformNewline is the host's native record terminator, used by
// NewlinePlatform (the writer default).
var platformNewline = func() []byte {
	if runtime.GOOS == "windows" {
		return []byte{'\r', '\n'}
	}
	return []byte{'\n'}
}()

// QuotingPolicy controls when Writer wraps a field in quotes (C12).
type QuotingPolicy int

const (
	QuoteAsNeeded QuotingPolicy = iota
	QuoteAlways
	QuoteNever
	QuoteNonNumeric
)

// NewlineMode selects the record terminator a Writer emits.
type NewlineMode int

const (
	NewlinePlatform NewlineMode = iota
	NewlineLF
	NewlineCRLF
)

func (n NewlineMode) bytes() []byte {
	switch n {
	case NewlineLF:
		return []byte{'\n'}
	case NewlineCRLF:
		return []byte{'\r', '\n'}
	default:
		return platformNewline
	}
}

// WriterConfig is the immutable-after-construction option snapshot a
// Writer is built from, the symmetric inverse of Config.
type WriterConfig struct {
	Delimiter         []byte
	Quote             byte
	Quoting           QuotingPolicy
	Newline           NewlineMode
	NullValue         string
	WriteHeader       bool
	Culture           CultureInfo
	CompressionFormat CompressionFormat // Auto (the zero value) and None both write uncompressed; compression is an explicit opt-in
	CompressionLevel  int               // 0 = library default
}

// DefaultWriterConfig mirrors DefaultConfig: comma delimiter,
// double-quote, as-needed quoting, platform newline, no compression,
// UTF-8 without BOM.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Delimiter:   []byte{','},
		Quote:       '"',
		Quoting:     QuoteAsNeeded,
		Newline:     NewlinePlatform,
		WriteHeader: true,
		Culture:     DefaultCulture(),
	}
}

func (c *WriterConfig) validate() error {
	if len(c.Delimiter) == 0 {
		return &Fault{Kind: KindEmptyDelimiter, Cause: errors.New("delimiter must be non-empty")}
	}
	if len(c.Delimiter) == 1 && c.Delimiter[0] == c.Quote {
		return &Fault{Kind: KindOptionConflict, Cause: errors.New("delimiter and quote must be distinct")}
	}
	return nil
}

// Writer is the writer contract (C12): the symmetric inverse of
// Reader, built the same way Open assembles a Reader — wrap the sink
// with the matching compressor, then drive everything through one
// buffered, culture-aware encoder.
type Writer struct {
	cfg    WriterConfig
	bw     *bufio.Writer
	closer io.Closer
	conv   *converterRegistry

	headerWritten bool
	arity         int
	scratch       []byte
}

// NewWriter opens a Writer against sink per cfg. When cfg specifies
// Gzip, Zlib, Deflate or Brotli, sink is wrapped with the matching
// encoder; otherwise sink is used directly. Writer.Close closes the
// encoder, if any, but never closes sink itself.
func NewWriter(sink io.Writer, cfg WriterConfig) (*Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var w io.Writer = sink
	var closer io.Closer

	switch cfg.CompressionFormat {
	case CompressionNone, CompressionAuto:
	case CompressionGzip:
		level := cfg.CompressionLevel
		if level == 0 {
			level = pgzip.DefaultCompression
		}
		gw, err := pgzip.NewWriterLevel(sink, level)
		if err != nil {
			return nil, &Fault{Kind: KindIo, Cause: errors.Wrap(err, "opening gzip writer")}
		}
		w, closer = gw, gw
	case CompressionZlib:
		level := cfg.CompressionLevel
		if level == 0 {
			level = zlib.DefaultCompression
		}
		zw, err := zlib.NewWriterLevel(sink, level)
		if err != nil {
			return nil, &Fault{Kind: KindIo, Cause: errors.Wrap(err, "opening zlib writer")}
		}
		w, closer = zw, zw
	case CompressionDeflate:
		level := cfg.CompressionLevel
		if level == 0 {
			level = flate.DefaultCompression
		}
		fw, err := flate.NewWriter(sink, level)
		if err != nil {
			return nil, &Fault{Kind: KindIo, Cause: errors.Wrap(err, "opening deflate writer")}
		}
		w, closer = fw, fw
	case CompressionBrotli:
		bw := brotli.NewWriter(sink)
		w, closer = bw, bw
	default:
		return nil, &Fault{Kind: KindOptionConflict, Cause: errors.Errorf("unsupported compression format %v", cfg.CompressionFormat)}
	}

	return &Writer{
		cfg:    cfg,
		bw:     bufio.NewWriterSize(w, 64*1024),
		closer: closer,
		conv:   newConverterRegistry(&Config{Culture: cfg.Culture}),
	}, nil
}

// WriteHeader emits the header row and fixes the record arity every
// subsequent WriteRecord must match. Calling it more than once, or
// after a record has been written, is a programming error and panics,
// matching the teacher's fail-fast style for misuse of the writer
// lifecycle elsewhere in this package.
func (w *Writer) WriteHeader(names []string) error {
	if w.headerWritten || w.arity != 0 {
		panic("streamcsv: WriteHeader called after a record has already been written")
	}
	w.arity = len(names)
	if !w.cfg.WriteHeader {
		return nil
	}
	fields := make([]string, len(names))
	copy(fields, names)
	if err := w.writeRow(fields); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

// WriteRecord writes one record of already-formatted text fields. null
// indicates, per field, whether the value should be written as
// cfg.NullValue rather than as text (an empty slice treats no field as
// null).
func (w *Writer) WriteRecord(fields []string, null []bool) error {
	if w.arity == 0 {
		w.arity = len(fields)
	} else if len(fields) != w.arity {
		return &Fault{Kind: KindFieldCountMismatch, Cause: errors.Errorf("expected %d fields, got %d", w.arity, len(fields))}
	}
	out := fields
	if len(null) > 0 {
		out = make([]string, len(fields))
		copy(out, fields)
		for i, isNull := range null {
			if i < len(out) && isNull {
				out[i] = w.cfg.NullValue
			}
		}
	}
	return w.writeRow(out)
}

// WriteValues writes one record from AnyValue columns, resolving
// nulls itself rather than requiring a parallel null slice.
func (w *Writer) WriteValues(values []AnyValue) error {
	fields := make([]string, len(values))
	for i, v := range values {
		if v.IsNull {
			fields[i] = w.cfg.NullValue
		} else {
			fields[i] = v.Text
		}
	}
	return w.writeRow(fields)
}

func (w *Writer) writeRow(fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.bw.Write(w.cfg.Delimiter); err != nil {
				return err
			}
		}
		if err := w.writeField(f); err != nil {
			return err
		}
	}
	_, err := w.bw.Write(w.cfg.Newline.bytes())
	return err
}

// writeField applies the configured quoting policy and doubles any
// embedded quote characters, the inverse of the tokenizer's quoted
// scanning (C5/C12 symmetry).
func (w *Writer) writeField(value string) error {
	if w.needsQuoting(value) {
		w.scratch = w.scratch[:0]
		w.scratch = append(w.scratch, w.cfg.Quote)
		quote := w.cfg.Quote
		for i := 0; i < len(value); i++ {
			c := value[i]
			if c == quote {
				w.scratch = append(w.scratch, quote, quote)
				continue
			}
			w.scratch = append(w.scratch, c)
		}
		w.scratch = append(w.scratch, w.cfg.Quote)
		_, err := w.bw.Write(w.scratch)
		return err
	}
	_, err := w.bw.WriteString(value)
	return err
}

func (w *Writer) needsQuoting(value string) bool {
	switch w.cfg.Quoting {
	case QuoteAlways:
		return true
	case QuoteNever:
		return false
	case QuoteNonNumeric:
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return false
		}
		return true
	default: // QuoteAsNeeded
		if strings.Contains(value, string(w.cfg.Delimiter)) {
			return true
		}
		return strings.ContainsAny(value, "\"\r\n")
	}
}

// Int64, Float64, Bool, Time, Decimal format a typed value the same
// culture-aware way the reader's converters parse one, so round
// tripping through WriteRecord/Reader stays lossless for the common
// scalar kinds.
func (w *Writer) Int64(v int64) string { return strconv.FormatInt(v, 10) }

func (w *Writer) Float64(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	return w.applyCultureNumeric(s)
}

func (w *Writer) Bool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func (w *Writer) Time(v time.Time) string { return v.Format(time.RFC3339Nano) }

func (w *Writer) Decimal(v decimal.Decimal) string { return w.applyCultureNumeric(v.String()) }

func (w *Writer) applyCultureNumeric(s string) string {
	if w.cfg.Culture.DecimalSeparator != 0 && w.cfg.Culture.DecimalSeparator != '.' {
		s = strings.ReplaceAll(s, ".", string(w.cfg.Culture.DecimalSeparator))
	}
	return s
}

// Flush pushes buffered bytes to the sink without closing it.
func (w *Writer) Flush() error { return w.bw.Flush() }

// Close flushes and releases the compression layer, if any.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
