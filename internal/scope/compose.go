package scope

import (
	"sort"
	"strings"
)

// Span is a scope name over the rune range [Start,End).
type Span struct {
	Start int
	End   int // exclusive
	Scope string
}

// Layer is one producer's scope spans, e.g. a lexer pass or an embedded
// language pass.  Spans within a layer may nest but must not cross.
type Layer struct {
	ID    int
	Name  string
	Spans []Span
}

// layerSortKey returns the sort priority for a layer name given the order
// list.  Lower index = higher priority in the order slice, but Compose
// wants higher-priority layers innermost in the stack, so callers sort
// descending by key.
func layerSortKey(order []string, name string) int {
	wildcard := -1
	for i, n := range order {
		if n == "*" {
			wildcard = i
		} else if n == name {
			return i
		}
	}
	if wildcard >= 0 {
		return wildcard
	}
	return len(order)
}

// Compose flattens layers into a sorted, non-overlapping list of spans.
// Layers are ordered by their priority in order (lower index = higher
// priority, "*" places unnamed layers); ties are broken by layer ID (lower ID
// = higher priority).  Where several spans cover a position their scopes
// are stacked, lowest-priority layer outermost, enclosing spans of one
// layer before enclosed ones.  Adjacent spans with equal stacks are merged.
func Compose(order []string, layers []Layer) []Span {
	if len(layers) == 0 {
		return nil
	}

	sorted := make([]Layer, len(layers))
	copy(sorted, layers)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki := layerSortKey(order, sorted[i].Name)
		kj := layerSortKey(order, sorted[j].Name)
		if ki != kj {
			return ki > kj
		}
		return sorted[i].ID > sorted[j].ID
	})

	type event struct {
		pos      int
		other    int // the span's opposite end
		layerIdx int
		name     string
		isEnd    bool
	}
	var events []event
	for li, l := range sorted {
		for _, s := range l.Spans {
			if s.End <= s.Start || s.Scope == "" {
				continue
			}
			events = append(events, event{s.Start, s.End, li, s.Scope, false})
			events = append(events, event{s.End, s.Start, li, s.Scope, true})
		}
	}
	if len(events) == 0 {
		return nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		if a.isEnd != b.isEnd {
			return a.isEnd
		}
		if a.layerIdx != b.layerIdx {
			return a.layerIdx < b.layerIdx
		}
		// Outer spans open first and close last.
		return a.other > b.other
	})

	active := make([][]string, len(sorted))
	stack := func() string {
		var names []string
		for _, a := range active {
			names = append(names, a...)
		}
		return strings.Join(names, " ")
	}

	var result []Span
	cur, curPos := "", 0
	for i := 0; i < len(events); {
		pos := events[i].pos
		if pos > curPos && cur != "" {
			if n := len(result); n > 0 && result[n-1].End == curPos && result[n-1].Scope == cur {
				result[n-1].End = pos
			} else {
				result = append(result, Span{Start: curPos, End: pos, Scope: cur})
			}
		}
		for i < len(events) && events[i].pos == pos {
			ev := events[i]
			a := active[ev.layerIdx]
			if ev.isEnd {
				for k := len(a) - 1; k >= 0; k-- {
					if a[k] == ev.name {
						active[ev.layerIdx] = append(a[:k:k], a[k+1:]...)
						break
					}
				}
			} else {
				active[ev.layerIdx] = append(a, ev.name)
			}
			i++
		}
		curPos = pos
		cur = stack()
	}
	return result
}
