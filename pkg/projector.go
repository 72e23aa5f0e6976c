package pkg

import "strings"

// projection is the precomputed plan C8 builds once headers are
// established: which source columns survive to the caller, in what
// order, interleaved with static columns carrying a constant value.
// Built as a small explicit struct rather than a generic
// reflection-driven mapper, matching the rest of the package's
// preference for precomputed plans over per-row decision logic.
type projection struct {
	// outputs, in final column order. sourceIndex is -1 for a static
	// column; name/staticValue are only meaningful then.
	outputs []projectedColumn
	// sourceIncluded[i] is true if source column i is read by at least
	// one output (even a projected-out column must still be tokenized
	// to advance the record, but conversion is skipped for it).
	sourceIncluded []bool
}

type projectedColumn struct {
	name        string
	sourceIndex int // -1 for a static column
	staticValue string
}

// buildProjection applies include_columns/exclude_columns against the
// established header set and appends static columns at their
// requested position (negative Position = append), per spec section
// 4.6. It is computed once, right after C7 runs.
func buildProjection(cfg *Config, h *headerSet) *projection {
	n := h.Len()
	included := make([]bool, n)
	var base []projectedColumn

	for i := 0; i < n; i++ {
		name := h.Name(i)
		if len(cfg.IncludeColumns) > 0 {
			if _, ok := cfg.IncludeColumns[name]; !ok {
				continue
			}
		}
		if _, excluded := cfg.ExcludeColumns[name]; excluded {
			continue
		}
		included[i] = true
		base = append(base, projectedColumn{name: name, sourceIndex: i})
	}

	for _, sc := range cfg.StaticColumns {
		col := projectedColumn{name: sc.Name, sourceIndex: -1, staticValue: sc.Value}
		if sc.Position < 0 || sc.Position >= len(base) {
			base = append(base, col)
			continue
		}
		base = append(base, projectedColumn{})
		copy(base[sc.Position+1:], base[sc.Position:])
		base[sc.Position] = col
	}

	return &projection{outputs: base, sourceIncluded: included}
}

// Len returns the projected (caller-visible) column count.
func (p *projection) Len() int { return len(p.outputs) }

func (p *projection) Name(i int) string {
	if i < 0 || i >= len(p.outputs) {
		return ""
	}
	return p.outputs[i].name
}

// Ordinal resolves a projected column name (static columns included)
// by a case-insensitive scan of this plan's name list. When several
// columns share a name it returns the first of them.
func (p *projection) Ordinal(name string) (int, bool) {
	for i, c := range p.outputs {
		if strings.EqualFold(c.name, name) {
			return i, true
		}
	}
	return 0, false
}

// sourceFor returns the source field index for a projected column, or
// ok=false when it is a static column.
func (p *projection) sourceFor(i int) (int, bool) {
	if i < 0 || i >= len(p.outputs) {
		return 0, false
	}
	c := p.outputs[i]
	if c.sourceIndex < 0 {
		return 0, false
	}
	return c.sourceIndex, true
}

func (p *projection) staticValue(i int) string {
	return p.outputs[i].staticValue
}
