package pkg

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ColumnKind names the built-in target types the converter registry
// (C9) knows how to produce.
type ColumnKind int

const (
	KindAutoString ColumnKind = iota
	KindString
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindDateTime
	KindUUID
	KindBytes
	KindFloat32Vector
)

// fieldSpan is a zero-copy reference into the active buffer
// generation: [lo, hi) of buf, tagged with the generation it was cut
// from so a reader can detect a stale span (spec's "buffer
// generation" invariant).
type fieldSpan struct {
	buf        []byte
	lo, hi     int
	generation uint64
	isNull     bool
	owned      []byte // non-nil when the field required rewriting (doubled quotes, lenient recovery)
}

func (s fieldSpan) bytes() []byte {
	if s.owned != nil {
		return s.owned
	}
	if s.isNull {
		return nil
	}
	return s.buf[s.lo:s.hi]
}

func (s fieldSpan) String() string {
	if s.isNull {
		return ""
	}
	return string(s.bytes())
}

// AnyValue is the tagged variant returned by Reader.Value: {null, raw
// text}. Typed conversion happens lazily through the per-kind
// accessors; Value itself never converts, it hands back the raw span
// as text unless IsNull.
type AnyValue struct {
	IsNull bool
	Text   string
}

// typed value holders returned by the per-kind accessors, kept
// together here since they're the common vocabulary C9 converters
// produce.
type (
	DecimalValue = decimal.Decimal
	UUIDValue    = uuid.UUID
	TimeValue    = time.Time
)
