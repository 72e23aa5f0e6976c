package pkg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// headerSet is the header manager (C7): it owns the established field
// names, resolves duplicates per the configured policy, and answers
// name/ordinal lookups the same way table.go's index map does, but
// case-insensitively and with synthesized names for ragged or missing
// header rows.
type headerSet struct {
	names []string       // display names, in column order
	index map[string]int // lowercased name -> column index
}

// newHeaderSet builds a header set from the raw cells of the header
// row, giving empty cells a synthesized name (synthesizeHeaders covers
// the count-only case). Returns a DuplicateHeader fault when the policy
// is DuplicateThrow and a collision is found.
func newHeaderSet(cfg *Config, rawNames []string) (*headerSet, error) {
	h := &headerSet{
		index: make(map[string]int, len(rawNames)),
	}

	for i, raw := range rawNames {
		name := raw
		if name == "" {
			name = fmt.Sprintf("%s%d", cfg.DefaultHeaderName, i+1)
		}
		key := strings.ToLower(name)

		if _, exists := h.index[key]; !exists {
			h.names = append(h.names, name)
			h.index[key] = len(h.names) - 1
			continue
		}

		switch cfg.DuplicateHeader {
		case DuplicateThrow:
			return nil, &Fault{Kind: KindDuplicateHeader, Field: i, Cause: errors.Errorf("duplicate header name %q", name)}
		case DuplicateRename:
			renamed := h.uniqueName(name)
			h.names = append(h.names, renamed)
			h.index[strings.ToLower(renamed)] = len(h.names) - 1
		case DuplicateFirst, DuplicateIgnore:
			// Keep the column but don't let it override the existing
			// index entry; the position still holds a value, and name
			// lookups resolve to the first occurrence.
			h.names = append(h.names, name)
		case DuplicateLast:
			h.names = append(h.names, name)
			h.index[key] = len(h.names) - 1
		default:
			return nil, &Fault{Kind: KindDuplicateHeader, Field: i, Cause: errors.Errorf("duplicate header name %q", name)}
		}
	}

	return h, nil
}

// synthesizeHeaders builds a headless column set of n columns, named
// Column1..ColumnN (or cfg.DefaultHeaderName as the stem).
func synthesizeHeaders(cfg *Config, n int) *headerSet {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", cfg.DefaultHeaderName, i+1)
	}
	h := &headerSet{index: make(map[string]int, n)}
	h.names = names
	for i, name := range names {
		h.index[strings.ToLower(name)] = i
	}
	return h
}

// uniqueName appends _2, _3, ... until the candidate no longer
// collides with an established name.
func (h *headerSet) uniqueName(base string) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if _, exists := h.index[strings.ToLower(candidate)]; !exists {
			return candidate
		}
	}
}

// Len reports the established field arity.
func (h *headerSet) Len() int { return len(h.names) }

// Name returns the display name at ordinal i.
func (h *headerSet) Name(i int) string {
	if i < 0 || i >= len(h.names) {
		return ""
	}
	return h.names[i]
}

// Ordinal resolves a column name to its index, case-insensitively.
// ok is false for an unknown name.
func (h *headerSet) Ordinal(name string) (int, bool) {
	i, ok := h.index[strings.ToLower(name)]
	return i, ok
}

// Names returns a defensive copy of the established column names.
func (h *headerSet) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}
