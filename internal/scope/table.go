package scope

import "sort"

// Table is an Oracle over precomputed scope spans.  Positions not covered
// by any span have the base scope alone.
type Table struct {
	base  string
	spans []Span // sorted, non-overlapping, stacks without the base
}

// NewTable composes layers (see Compose) under a base scope such as
// "source.go".
func NewTable(base string, order []string, layers ...Layer) *Table {
	return &Table{base: base, spans: Compose(order, layers)}
}

// ScopeAt returns the base scope followed by the stack of spans covering pos.
func (t *Table) ScopeAt(pos int) string {
	i := sort.Search(len(t.spans), func(i int) bool { return t.spans[i].End > pos })
	if i < len(t.spans) && t.spans[i].Start <= pos {
		if t.base == "" {
			return t.spans[i].Scope
		}
		return t.base + " " + t.spans[i].Scope
	}
	return t.base
}

// Score scores selector against the stack at pos.
func (t *Table) Score(pos int, selector string) int {
	return Score(t.ScopeAt(pos), selector)
}

// Base returns the table's base scope.
func (t *Table) Base() string { return t.base }

// Spans returns the composed spans, without the base scope.
func (t *Table) Spans() []Span { return t.spans }
