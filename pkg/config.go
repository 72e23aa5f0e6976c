package pkg

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// TrimMode controls whitespace trimming around field values.
type TrimMode int

const (
	TrimNone TrimMode = iota
	TrimUnquotedOnly
	TrimQuotedOnly
	TrimAll
)

// QuoteMode selects strict RFC-style quote handling or a best-effort
// recovery mode for malformed quoting.
type QuoteMode int

const (
	QuoteStrict QuoteMode = iota
	QuoteLenient
)

// DuplicateHeaderPolicy decides what happens when two header cells
// resolve to the same name.
type DuplicateHeaderPolicy int

const (
	DuplicateThrow DuplicateHeaderPolicy = iota
	DuplicateRename
	DuplicateFirst
	DuplicateLast
	DuplicateIgnore
)

// MismatchedFieldPolicy decides what happens when a record's field
// count does not match the established arity.
type MismatchedFieldPolicy int

const (
	MismatchThrow MismatchedFieldPolicy = iota
	MismatchPad
	MismatchTruncate
	MismatchPadOrTruncate
)

// ParseErrorAction selects the escalation strategy for non-fatal faults.
type ParseErrorAction int

const (
	ActionThrow ParseErrorAction = iota
	ActionSkipLine
	ActionCollect
	ActionRaise
)

// StaticColumn describes a constant column injected by the projector.
// Position is the index (in the post-projection record) at which the
// column should be inserted; a negative Position appends it.
type StaticColumn struct {
	Name     string
	Value    string
	Position int
}

// CultureInfo carries the locale used by numeric/date converters.
// It wraps a golang.org/x/text/language.Tag (the corpus's own
// dependency on golang.org/x/text, pulled in transitively by sqldef's
// MySQL driver, is reused here directly) plus the two separators most
// converters actually need.
type CultureInfo struct {
	Tag                language.Tag
	DecimalSeparator   byte
	ThousandsSeparator byte
	DateFormats        []string // tried in order before the built-in candidate list
}

// DefaultCulture is the invariant-culture equivalent: dot decimal
// separator, comma thousands separator, no caller date formats.
func DefaultCulture() CultureInfo {
	return CultureInfo{
		Tag:                language.AmericanEnglish,
		DecimalSeparator:   '.',
		ThousandsSeparator: ',',
	}
}

// Config is the immutable-after-construction option snapshot a Reader
// is built from. See spec section 3 for the full invariant set.
type Config struct {
	Delimiter                 []byte
	Quote                     byte
	Escape                    byte
	Comment                   byte // 0 means disabled
	HasHeaderRow              bool
	SkipRows                  int
	Trimming                  TrimMode
	NullValue                 *string
	DistinguishEmptyFromNull  bool
	QuoteMode                 QuoteMode
	DuplicateHeader           DuplicateHeaderPolicy
	MismatchedField           MismatchedFieldPolicy
	NormalizeSmartQuotes      bool
	BufferSize                int
	MaxQuotedFieldLength      int64 // 0 = unlimited
	MaxDecompressedSize       int64 // 0 = disabled
	ParseErrorAction          ParseErrorAction
	MaxParseErrors            int
	ColumnTypes               map[string]ColumnKind
	IncludeColumns            map[string]struct{}
	ExcludeColumns            map[string]struct{}
	StaticColumns             []StaticColumn
	Culture                   CultureInfo
	Context                   context.Context
	ProgressCallback          func(Snapshot)
	ProgressIntervalRows      uint64
	DefaultHeaderName         string
	RaiseHandler              func(Fault) ParseErrorAction
	CompressionFormat         CompressionFormat // explicit override; Auto lets C2 detect
	SourcePath                string            // used for extension-based compression detection
}

// DefaultConfig returns the baseline option set: comma delimiter,
// double-quote, strict quoting, header present, 64KiB buffer, 10GiB
// decompression guard, throw-on-error.
func DefaultConfig() Config {
	return Config{
		Delimiter:            []byte{','},
		Quote:                '"',
		Escape:               '"',
		HasHeaderRow:         true,
		Trimming:             TrimNone,
		QuoteMode:            QuoteStrict,
		DuplicateHeader:      DuplicateThrow,
		MismatchedField:      MismatchThrow,
		BufferSize:           64 * 1024,
		MaxDecompressedSize:  10 * 1024 * 1024 * 1024,
		ParseErrorAction:     ActionThrow,
		Culture:              DefaultCulture(),
		ProgressIntervalRows: 10000,
		DefaultHeaderName:    "Column",
		CompressionFormat:    CompressionAuto,
	}
}

// Validate checks construction-time invariants and returns a
// KindOptionConflict or KindEmptyDelimiter Fault on violation. Per
// spec's open question on empty-delimiter validation, this check is
// enforced strictly at construction, never mid-stream.
func (c *Config) Validate() error {
	if len(c.Delimiter) == 0 {
		return &Fault{Kind: KindEmptyDelimiter, Cause: errors.New("delimiter must be non-empty")}
	}
	if len(c.Delimiter) == 1 && c.Delimiter[0] == c.Quote {
		return &Fault{Kind: KindOptionConflict, Cause: errors.New("delimiter and quote must be distinct")}
	}
	if c.Comment != 0 {
		if len(c.Delimiter) == 1 && c.Delimiter[0] == c.Comment {
			return &Fault{Kind: KindOptionConflict, Cause: errors.New("delimiter and comment must be distinct")}
		}
		if c.Comment == c.Quote {
			return &Fault{Kind: KindOptionConflict, Cause: errors.New("quote and comment must be distinct")}
		}
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64 * 1024
	}
	if c.DefaultHeaderName == "" {
		c.DefaultHeaderName = "Column"
	}
	if c.Context == nil {
		c.Context = context.Background()
	}
	if c.Escape == 0 {
		c.Escape = c.Quote
	}
	return nil
}
