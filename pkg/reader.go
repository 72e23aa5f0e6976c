package pkg

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Source is the byte source a Reader opens (C1): an io.Reader plus an
// optional path, used only for extension-based compression detection
// and diagnostics. Grounded directly on the teacher's
// NewReader(rd io.Reader, cfg Config) signature, generalized to carry
// a path alongside the stream.
type Source struct {
	R    io.Reader
	Path string
}

// lifecycle states (spec section 3: Unstarted/Active/Exhausted/Closed).
type lifecycleState int

const (
	stateUnstarted lifecycleState = iota
	stateActive
	stateExhausted
	stateClosed
)

// Segment describes a byte range containing a subset of records,
// returned by Partition. Field names and shape are grounded on
// eltorocorp-permissivecsv's own Segment type.
type Segment struct {
	Ordinal     int64
	LowerOffset int64
	UpperOffset int64
	SegmentSize int64
}

// Reader is the streaming CSV reader: C1 source handling, C2
// decompression, C3 BOM/encoding, C4 buffering, C5 tokenizing, C6
// record assembly, C7 headers, C8 projection, C9 lazy conversion, C10
// error policy, and C11 progress all meet here, the same way the
// teacher's Reader in pkg/fastcsv.go is the single type gluing its
// buffered reader, field commit logic, and row/column counters
// together.
type Reader struct {
	cfg    *Config
	tok    *tokenizer
	pol    *errorPolicy
	prog   *progressNotifier
	conv   *converterRegistry
	header *headerSet
	proj   *projection

	closer io.Closer
	ctx    context.Context

	state lifecycleState
	err   error

	fields      []fieldSpan
	recordIdx   int64 // 0-based ordinal of the current record among emitted (non-header, non-skipped) records
	physicalRow int64 // count of skip_rows rows, the header row and emitted records consumed; comment lines, blank lines and dropped records are not counted
	recordsRead uint64

	valuesScratch []AnyValue
}

// Open constructs a Reader from src per the configured options,
// running C1-C3 synchronously (decompression detection, BOM strip)
// before any field is tokenized. cfg is copied and validated; the
// copy, not the caller's value, is what the Reader uses from here on.
func Open(src Source, cfg Config) (*Reader, error) {
	if cfg.SourcePath == "" {
		cfg.SourcePath = src.Path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	decompressed, err := openDecompressed(src.R, &cfg)
	if err != nil {
		return nil, err
	}

	stripped, err := stripBOM(decompressed)
	if err != nil {
		_ = decompressed.Close()
		return nil, &Fault{Kind: KindEncoding, Cause: errors.Wrap(err, "stripping byte-order mark")}
	}

	br := newBufReader(stripped, cfg.BufferSize, cfg.MaxQuotedFieldLength)
	pol := newErrorPolicy(&cfg)

	r := &Reader{
		cfg:    &cfg,
		tok:    newTokenizer(br, &cfg, pol),
		pol:    pol,
		prog:   newProgressNotifier(&cfg),
		conv:   newConverterRegistry(&cfg),
		closer: decompressed,
		ctx:    cfg.Context,
		state:  stateUnstarted,
	}
	return r, nil
}

// Read advances to the next caller-visible record. It returns false at
// clean EOF or on a fatal fault; Err distinguishes the two.
func (r *Reader) Read() bool {
	if r.state == stateClosed || r.state == stateExhausted {
		return false
	}
	if r.state == stateUnstarted {
		r.state = stateActive
		if err := r.consumeLeadingRows(); err != nil {
			r.fail(err)
			return false
		}
	}

	for {
		// The record about to be scanned (and, once Read returns true,
		// the current record) has 0-based index recordsRead.
		r.recordIdx = int64(r.recordsRead)
		select {
		case <-r.ctx.Done():
			r.fail(&Fault{Kind: KindCancelled, Record: r.recordIdx, Field: -1, Cause: r.ctx.Err()})
			return false
		default:
		}

		record, eof, err := r.readRawRecord()
		if err != nil {
			r.fail(err)
			return false
		}
		if eof {
			r.state = stateExhausted
			return false
		}
		if len(record) == 0 {
			// Empty physical line: zero-field record, skipped silently.
			continue
		}

		record, err = r.applyArity(record)
		if err != nil {
			if errors.Is(err, errSkipRecord) {
				continue
			}
			r.fail(err)
			return false
		}

		r.fields = record
		r.recordsRead++
		r.physicalRow++
		r.prog.maybeFire(r.recordsRead, r.tok.line, r.bytesConsumed())
		return true
	}
}

var errSkipRecord = errors.New("record skipped by policy")

// consumeLeadingRows applies skip_rows, comment-line discarding, and
// header capture (C6 steps 1-2 / C7), all before the first
// caller-visible Read.
func (r *Reader) consumeLeadingRows() error {
	// readRawRecord already discards comment lines before assembling a
	// record, so skip_rows counts only the raw records in between.
	for i := 0; i < r.cfg.SkipRows; i++ {
		if _, eof, err := r.readRawRecord(); err != nil {
			return err
		} else if eof {
			break
		}
		r.physicalRow++
	}

	if !r.cfg.HasHeaderRow {
		return nil
	}

	cells, eof, err := r.readRawRecord()
	if err != nil {
		return err
	}
	if eof {
		r.header = synthesizeHeaders(r.cfg, 0)
		r.proj = buildProjection(r.cfg, r.header)
		return nil
	}
	names := make([]string, len(cells))
	for i, c := range cells {
		names[i] = c.String()
	}
	h, err := newHeaderSet(r.cfg, names)
	if err != nil {
		return err
	}
	r.header = h
	r.proj = buildProjection(r.cfg, r.header)
	r.physicalRow++
	return nil
}

// readRawRecord reads one physical record as a slice of field spans,
// skipping comment lines at record boundaries. eof is true only when
// there was nothing left to read at all.
func (r *Reader) readRawRecord() ([]fieldSpan, bool, error) {
	for r.tok.tryCommentLine() {
	}

	var fields []fieldSpan
	fieldIdx := 0
	for {
		blankLine := fieldIdx == 0 && r.tok.lineTerminatorLen() > 0
		span, term, fieldEOF, err := r.tok.nextField(r.recordIdx, fieldIdx)
		if err != nil {
			res, werr := r.pol.handle(*asFault(err))
			if res == resolutionFatal {
				return nil, false, werr
			}
			// skip_line and friends: resynchronize at the next
			// physical line and report this record as empty so the
			// caller's loop moves straight on to it.
			r.tok.skipToLineEnd()
			return nil, false, nil
		}
		if fieldEOF {
			if len(fields) == 0 {
				return nil, true, nil
			}
			return fields, false, nil
		}
		if blankLine && term == termRecordEnd {
			// Terminator with no bytes before it: a blank physical
			// line, not a one-field record.
			return nil, false, nil
		}
		fields = append(fields, span)
		fieldIdx++
		if term != termDelimiter {
			break
		}
	}
	return fields, false, nil
}

// applyArity validates field count against the established header
// arity (C6 step 3), padding/truncating/throwing per MismatchedField.
func (r *Reader) applyArity(record []fieldSpan) ([]fieldSpan, error) {
	if r.header == nil {
		return record, nil
	}
	want := r.header.Len()
	got := len(record)
	if got == want {
		return record, nil
	}

	switch r.cfg.MismatchedField {
	case MismatchThrow:
		return nil, &Fault{Kind: KindFieldCountMismatch, Record: r.recordIdx, Field: -1, Cause: errors.Errorf("expected %d fields, got %d", want, got)}
	case MismatchPad:
		if got > want {
			return nil, &Fault{Kind: KindFieldCountMismatch, Record: r.recordIdx, Field: -1, Cause: errors.Errorf("expected %d fields, got %d (pad policy does not truncate)", want, got)}
		}
		return r.pad(record, want), nil
	case MismatchTruncate:
		if got < want {
			return nil, &Fault{Kind: KindFieldCountMismatch, Record: r.recordIdx, Field: -1, Cause: errors.Errorf("expected %d fields, got %d (truncate policy does not pad)", want, got)}
		}
		return r.pad(record, want)[:want], nil
	case MismatchPadOrTruncate:
		if got < want {
			return r.pad(record, want), nil
		}
		return r.pad(record, want)[:want], nil
	default:
		res, err := r.pol.handle(Fault{Kind: KindFieldCountMismatch, Record: r.recordIdx, Field: -1})
		if res == resolutionFatal {
			return nil, err
		}
		return nil, errSkipRecord
	}
}

func (r *Reader) pad(record []fieldSpan, want int) []fieldSpan {
	if len(record) < want {
		r.pol.recordAlteration(Alteration{Record: r.recordIdx, Kind: KindFieldCountMismatch, Description: AltRecordPadded})
		padded := make([]fieldSpan, want)
		copy(padded, record)
		for i := len(record); i < want; i++ {
			padded[i] = fieldSpan{isNull: true}
		}
		return padded
	}
	if len(record) > want {
		r.pol.recordAlteration(Alteration{Record: r.recordIdx, Kind: KindFieldCountMismatch, Description: AltRecordTruncated})
	}
	return record
}

// bytesConsumed is the offset in the decompressed stream up to which
// the tokenizer has consumed input; bytes read ahead into the buffer
// but not yet scanned are not counted.
func (r *Reader) bytesConsumed() int64 { return r.tok.br.bytesIn - int64(r.tok.br.unread()) }

func (r *Reader) fail(err error) {
	r.err = err
	r.state = stateExhausted
}

// Err returns the error that stopped the most recent Read, or nil
// after a clean EOF.
func (r *Reader) Err() error { return r.err }

// FieldCount returns the projected column count of the current record.
func (r *Reader) FieldCount() int {
	if r.proj != nil {
		return r.proj.Len()
	}
	return len(r.fields)
}

// Name returns the display name of projected column i.
func (r *Reader) Name(i int) string {
	if r.proj != nil {
		return r.proj.Name(i)
	}
	return ""
}

// Ordinal resolves a projected column name to its index.
func (r *Reader) Ordinal(name string) (int, bool) {
	if r.proj != nil {
		return r.proj.Ordinal(name)
	}
	return 0, false
}

// span resolves projected column i to its underlying field span,
// following static-column and header indirection.
func (r *Reader) span(i int) (fieldSpan, bool) {
	if r.proj == nil {
		if i < 0 || i >= len(r.fields) {
			return fieldSpan{}, false
		}
		return r.fields[i], true
	}
	srcIdx, isSource := r.proj.sourceFor(i)
	if !isSource {
		return fieldSpan{owned: []byte(r.proj.staticValue(i))}, true
	}
	if srcIdx < 0 || srcIdx >= len(r.fields) {
		return fieldSpan{}, false
	}
	return r.fields[srcIdx], true
}

// String returns the raw text of column i and whether it is non-null.
func (r *Reader) String(i int) (string, bool) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return "", false
	}
	return sp.String(), true
}

// IsNull reports whether column i is null in the current record.
func (r *Reader) IsNull(i int) bool {
	sp, ok := r.span(i)
	return !ok || sp.isNull
}

func (r *Reader) Int64(i int) (int64, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return 0, nil
	}
	return r.conv.parseInt(r.recordIdx, i, sp.String(), 64)
}

func (r *Reader) Float64(i int) (float64, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return 0, nil
	}
	return r.conv.parseFloat(r.recordIdx, i, sp.String(), 64)
}

func (r *Reader) Bool(i int) (bool, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return false, nil
	}
	return r.conv.parseBool(r.recordIdx, i, sp.String())
}

func (r *Reader) Time(i int) (time.Time, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return time.Time{}, nil
	}
	return r.conv.parseTime(r.recordIdx, i, sp.String())
}

func (r *Reader) UUID(i int) (uuid.UUID, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return uuid.UUID{}, nil
	}
	return r.conv.parseUUID(r.recordIdx, i, sp.String())
}

func (r *Reader) Decimal(i int) (decimal.Decimal, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return decimal.Decimal{}, nil
	}
	return r.conv.parseDecimal(r.recordIdx, i, sp.String())
}

func (r *Reader) Bytes(i int) ([]byte, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return nil, nil
	}
	return r.conv.parseBytes(r.recordIdx, i, sp.String())
}

func (r *Reader) Float32Vector(i int) ([]float32, error) {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return nil, nil
	}
	return r.conv.parseFloat32Vector(r.recordIdx, i, sp.String())
}

// Value returns column i as the tagged {null, text} variant without
// any type conversion.
func (r *Reader) Value(i int) AnyValue {
	sp, ok := r.span(i)
	if !ok || sp.isNull {
		return AnyValue{IsNull: true}
	}
	return AnyValue{Text: sp.String()}
}

// Values fills buf from index 0 with every projected column's AnyValue
// (allocating a new slice when buf's capacity is too small) and returns
// the result, letting a caller reuse one slice across records instead
// of allocating per row.
func (r *Reader) Values(buf []AnyValue) []AnyValue {
	n := r.FieldCount()
	if cap(buf) < n {
		buf = make([]AnyValue, n)
	}
	buf = buf[:n]
	for i := 0; i < n; i++ {
		buf[i] = r.Value(i)
	}
	return buf
}

// RecordsRead returns the number of records successfully emitted so far.
func (r *Reader) RecordsRead() uint64 { return r.recordsRead }

// ParseErrors returns the faults collected under ActionCollect.
func (r *Reader) ParseErrors() []Fault { return r.pol.Errors() }

// Alterations returns the non-fatal recoveries made while scanning.
func (r *Reader) Alterations() []Alteration { return r.pol.Alterations() }

// Close releases the pooled scan buffer and the underlying decompressor.
func (r *Reader) Close() error {
	if r.state == stateClosed {
		return nil
	}
	r.state = stateClosed
	r.tok.br.release()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Partition reads the full stream and divides it into segments of n
// records each (the last segment may hold fewer), returning byte
// offsets suitable for a parallel/pipelined consumer to seek against.
// Grounded on eltorocorp-permissivecsv's Partition method; this Reader
// is exhausted afterward and must not be used for further Read calls.
func (r *Reader) Partition(n int) ([]Segment, error) {
	if n <= 0 {
		return nil, errors.New("partition size must be positive")
	}
	var segments []Segment
	var ordinal int64
	lower := r.bytesConsumed()
	count := 0

	for r.Read() {
		count++
		if count == n {
			upper := r.bytesConsumed()
			segments = append(segments, Segment{Ordinal: ordinal, LowerOffset: lower, UpperOffset: upper, SegmentSize: upper - lower})
			ordinal++
			lower = upper
			count = 0
		}
	}
	if err := r.Err(); err != nil {
		return segments, err
	}
	if count > 0 {
		upper := r.bytesConsumed()
		segments = append(segments, Segment{Ordinal: ordinal, LowerOffset: lower, UpperOffset: upper, SegmentSize: upper - lower})
	}
	return segments, nil
}
