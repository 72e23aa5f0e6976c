package pkg

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the stable fault-kind surface (spec section 7).
type Kind int

const (
	KindIo Kind = iota
	KindEncoding
	KindDecompressionBomb
	KindMalformedQuote
	KindFieldCountMismatch
	KindFieldTooLong
	KindDuplicateHeader
	KindUnknownColumn
	KindConversionError
	KindEmptyDelimiter
	KindOptionConflict
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindIo:
		return "Io"
	case KindEncoding:
		return "Encoding"
	case KindDecompressionBomb:
		return "DecompressionBomb"
	case KindMalformedQuote:
		return "MalformedQuote"
	case KindFieldCountMismatch:
		return "FieldCountMismatch"
	case KindFieldTooLong:
		return "FieldTooLong"
	case KindDuplicateHeader:
		return "DuplicateHeader"
	case KindUnknownColumn:
		return "UnknownColumn"
	case KindConversionError:
		return "ConversionError"
	case KindEmptyDelimiter:
		return "EmptyDelimiter"
	case KindOptionConflict:
		return "OptionConflict"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Fault is the error type surfaced by the reader. It carries enough
// context to reproduce the failure: record/field/line/column position,
// a raw text snapshot, a kind, and an optional wrapped cause.
type Fault struct {
	Kind      Kind
	Record    int64 // 0-based; -1 if not yet known
	Field     int   // -1 if record-level
	Line      int64 // 1-based physical line
	Column    int   // 1-based character position in line
	Snippet   string
	Cause     error
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s at line %d, column %d (record %d, field %d)", f.Kind, f.Line, f.Column, f.Record, f.Field)
	if f.Snippet != "" {
		msg += fmt.Sprintf(": %q", f.Snippet)
	}
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, f.Cause)
	}
	return msg
}

func (f *Fault) Unwrap() error { return f.Cause }

// asFault unwraps err to its *Fault, wrapping any other error kind
// (which should not occur from this package's own components, but
// guards against a future non-Fault error reaching the policy) as a
// generic Io fault rather than panicking on a failed type assertion.
func asFault(err error) *Fault {
	if f, ok := err.(*Fault); ok {
		return f
	}
	return &Fault{Kind: KindIo, Cause: err}
}

// alwaysFatal reports whether a kind is fatal regardless of the
// configured ParseErrorAction (spec section 4.8 / 7).
func (k Kind) alwaysFatal() bool {
	return k == KindIo || k == KindDecompressionBomb || k == KindCancelled ||
		k == KindEmptyDelimiter || k == KindOptionConflict || k == KindEncoding
}

// Alteration descriptions, referenced by the tokenizer and assembler
// when they record a non-fatal recovery.
const (
	AltBareQuote       = "bare quote encountered inside quoted field; treated as literal"
	AltRecordPadded    = "record padded with null fields to match header arity"
	AltRecordTruncated = "record truncated to match header arity"
)

// Alteration records a non-fatal recovery the reader made while
// scanning a record (bare/extraneous quote, truncated/padded record),
// independent of the parse-errors collection. Modeled on
// eltorocorp/permissivecsv's ScanSummary/Alteration pair.
type Alteration struct {
	Record      int64
	Kind        Kind
	Description string
}

// errorPolicy implements C10: classifies faults and decides
// throw/skip/collect/raise per the matrix in spec section 4.8.
type errorPolicy struct {
	action      ParseErrorAction
	maxErrors   int
	raise       func(Fault) ParseErrorAction
	collected   []Fault
	alterations []Alteration
}

func newErrorPolicy(cfg *Config) *errorPolicy {
	return &errorPolicy{
		action:    cfg.ParseErrorAction,
		maxErrors: cfg.MaxParseErrors,
		raise:     cfg.RaiseHandler,
	}
}

// resolution describes what the caller of handle should do next.
type resolution int

const (
	resolutionFatal resolution = iota
	resolutionSkipLine
	resolutionSkipField
	resolutionSubstituteNull
	resolutionContinue
)

// handle classifies a fault against the configured policy and returns
// the resolution the caller (tokenizer/assembler/converter) must act
// on. Always-fatal kinds ignore the configured action entirely.
func (p *errorPolicy) handle(f Fault) (resolution, error) {
	if f.Kind.alwaysFatal() {
		return resolutionFatal, &f
	}

	action := p.action
	if action == ActionRaise {
		if p.raise == nil {
			return resolutionFatal, errors.Wrap(&f, "raise action configured without a RaiseHandler")
		}
		action = p.raise(f)
	}

	switch action {
	case ActionThrow:
		return resolutionFatal, &f
	case ActionSkipLine:
		return p.skipResolution(f), nil
	case ActionCollect:
		if len(p.collected) >= p.maxErrors && p.maxErrors > 0 {
			// collect overflow falls back to throw, per spec 4.8.
			return resolutionFatal, errors.Wrapf(&f, "parse error limit of %d exceeded", p.maxErrors)
		}
		p.collected = append(p.collected, f)
		return p.skipResolution(f), nil
	default:
		return resolutionFatal, &f
	}
}

func (p *errorPolicy) skipResolution(f Fault) resolution {
	switch f.Kind {
	case KindMalformedQuote:
		return resolutionSkipLine
	case KindFieldCountMismatch:
		return resolutionSkipLine
	case KindConversionError:
		return resolutionSubstituteNull
	case KindFieldTooLong:
		return resolutionSkipLine
	default:
		return resolutionContinue
	}
}

func (p *errorPolicy) recordAlteration(a Alteration) {
	p.alterations = append(p.alterations, a)
}

func (p *errorPolicy) Errors() []Fault {
	out := make([]Fault, len(p.collected))
	copy(out, p.collected)
	return out
}

func (p *errorPolicy) Alterations() []Alteration {
	out := make([]Alteration, len(p.alterations))
	copy(out, p.alterations)
	return out
}
