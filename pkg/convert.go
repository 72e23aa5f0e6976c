package pkg

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// builtinDateFormats are tried, in order, after any caller-supplied
// CultureInfo.DateFormats and before falling back to a general parse
// via time.Parse(time.RFC3339Nano, ...).
var builtinDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

// defaultBoolSynonyms implements the {true/false, yes/no, y/n, t/f,
// 1/0, on/off} recognition set from spec section 4.7.
var defaultBoolSynonyms = map[string]bool{
	"true": true, "false": false,
	"yes": true, "no": false,
	"y": true, "n": false,
	"t": true, "f": false,
	"1": true, "0": false,
	"on": true, "off": false,
}

// converterRegistry is the type converter registry (C9): a mapping
// from target kind to parsing behavior, culture-aware where relevant.
// It is effectively immutable once attached to a Reader — Clone gives
// a caller a private copy to customize before construction.
type converterRegistry struct {
	culture      CultureInfo
	boolSynonyms map[string]bool
	dateFormats  []string
}

func newConverterRegistry(cfg *Config) *converterRegistry {
	r := &converterRegistry{
		culture:      cfg.Culture,
		boolSynonyms: defaultBoolSynonyms,
		dateFormats:  cfg.Culture.DateFormats,
	}
	return r
}

// Clone returns a private copy whose synonym map can be extended
// without mutating the registry a Reader is already using.
func (r *converterRegistry) Clone() *converterRegistry {
	out := &converterRegistry{culture: r.culture, dateFormats: append([]string(nil), r.dateFormats...)}
	out.boolSynonyms = make(map[string]bool, len(r.boolSynonyms))
	for k, v := range r.boolSynonyms {
		out.boolSynonyms[k] = v
	}
	return out
}

// AddBoolSynonym registers a caller-supplied boolean literal.
func (r *converterRegistry) AddBoolSynonym(literal string, value bool) {
	r.boolSynonyms[strings.ToLower(literal)] = value
}

func conversionFault(recordIdx int64, fieldIdx int, text string, cause error) error {
	return &Fault{Kind: KindConversionError, Record: recordIdx, Field: fieldIdx, Snippet: text, Cause: cause}
}

func (r *converterRegistry) parseBool(recordIdx int64, fieldIdx int, text string) (bool, error) {
	v, ok := r.boolSynonyms[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return false, conversionFault(recordIdx, fieldIdx, text, errors.Errorf("not a recognized boolean literal"))
	}
	return v, nil
}

// normalizeNumeric strips the configured thousands separator and maps
// the configured decimal separator to '.' so strconv/decimal can parse
// culture-formatted numerics.
func (r *converterRegistry) normalizeNumeric(text string) string {
	s := text
	if r.culture.ThousandsSeparator != 0 {
		s = strings.ReplaceAll(s, string(r.culture.ThousandsSeparator), "")
	}
	if r.culture.DecimalSeparator != 0 && r.culture.DecimalSeparator != '.' {
		s = strings.ReplaceAll(s, string(r.culture.DecimalSeparator), ".")
	}
	return s
}

func (r *converterRegistry) parseInt(recordIdx int64, fieldIdx int, text string, bitSize int) (int64, error) {
	s := strings.TrimSpace(r.normalizeNumeric(text))
	v, err := strconv.ParseInt(s, 10, bitSize)
	if err != nil {
		return 0, conversionFault(recordIdx, fieldIdx, text, err)
	}
	return v, nil
}

func (r *converterRegistry) parseFloat(recordIdx int64, fieldIdx int, text string, bitSize int) (float64, error) {
	s := strings.TrimSpace(r.normalizeNumeric(text))
	v, err := strconv.ParseFloat(s, bitSize)
	if err != nil {
		return 0, conversionFault(recordIdx, fieldIdx, text, err)
	}
	return v, nil
}

func (r *converterRegistry) parseDecimal(recordIdx int64, fieldIdx int, text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(r.normalizeNumeric(text))
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, conversionFault(recordIdx, fieldIdx, text, err)
	}
	return v, nil
}

func (r *converterRegistry) parseTime(recordIdx int64, fieldIdx int, text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	for _, layout := range r.dateFormats {
		if v, err := time.Parse(layout, s); err == nil {
			return v, nil
		}
	}
	for _, layout := range builtinDateFormats {
		if v, err := time.Parse(layout, s); err == nil {
			return v, nil
		}
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return v, nil
	}
	return time.Time{}, conversionFault(recordIdx, fieldIdx, text, errors.Errorf("no date-time format matched"))
}

func (r *converterRegistry) parseUUID(recordIdx int64, fieldIdx int, text string) (uuid.UUID, error) {
	v, err := uuid.Parse(strings.TrimSpace(text))
	if err != nil {
		return uuid.UUID{}, conversionFault(recordIdx, fieldIdx, text, err)
	}
	return v, nil
}

func (r *converterRegistry) parseBytes(recordIdx int64, fieldIdx int, text string) ([]byte, error) {
	v, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, conversionFault(recordIdx, fieldIdx, text, err)
	}
	return v, nil
}

// parseFloat32Vector accepts either a JSON array ("[1,2,3]") or a bare
// comma-separated list ("1,2,3"), per spec section 4.7.
func (r *converterRegistry) parseFloat32Vector(recordIdx int64, fieldIdx int, text string) ([]float32, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var floats []float64
		if err := json.Unmarshal([]byte(s), &floats); err != nil {
			return nil, conversionFault(recordIdx, fieldIdx, text, err)
		}
		out := make([]float32, len(floats))
		for i, f := range floats {
			out[i] = float32(f)
		}
		return out, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, conversionFault(recordIdx, fieldIdx, text, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
