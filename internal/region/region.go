// Package region holds the highlight and annotation intervals of one export
// run as two forward-only queues.
package region

import (
	"errors"
	"fmt"
)

// ErrInvalidRegionOrder is matched by every error New returns.
var ErrInvalidRegionOrder = errors.New("invalid region order")

// OrderError reports the first region that breaks its queue's ordering.
type OrderError struct {
	Queue  string // "highlight" or "annotation"
	Index  int
	Start  int
	End    int
	Reason string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s region %d [%d,%d): %s", e.Queue, e.Index, e.Start, e.End, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRegionOrder) true.
func (e *OrderError) Is(target error) bool {
	return target == ErrInvalidRegionOrder
}

// Highlight is a selected range [Start,End).
type Highlight struct {
	Start, End int
}

// Annotation is a commented range [Start,End).
type Annotation struct {
	Start, End int
	ID         string
	Comment    string
}

// Index is a pair of queues sorted by start.  Regions are consumed in order
// and never revisited.
type Index struct {
	highlights  []Highlight
	annotations []Annotation
}

// New validates both queues: each region must be non-empty and start at or
// after the end of its predecessor.
func New(highlights []Highlight, annotations []Annotation) (*Index, error) {
	prev := 0
	for i, h := range highlights {
		if err := check("highlight", i, h.Start, h.End, prev); err != nil {
			return nil, err
		}
		prev = h.End
	}
	prev = 0
	for i, a := range annotations {
		if err := check("annotation", i, a.Start, a.End, prev); err != nil {
			return nil, err
		}
		prev = a.End
	}
	return &Index{
		highlights:  append([]Highlight(nil), highlights...),
		annotations: append([]Annotation(nil), annotations...),
	}, nil
}

func check(queue string, i, start, end, prev int) error {
	e := &OrderError{Queue: queue, Index: i, Start: start, End: end}
	switch {
	case start < 0:
		e.Reason = "negative start"
	case start >= end:
		e.Reason = "empty or inverted"
	case i > 0 && start < prev:
		e.Reason = fmt.Sprintf("overlaps or precedes previous region ending at %d", prev)
	default:
		return nil
	}
	return e
}

// PeekHighlight returns the front highlight without consuming it.
func (x *Index) PeekHighlight() (Highlight, bool) {
	if len(x.highlights) == 0 {
		return Highlight{}, false
	}
	return x.highlights[0], true
}

// ConsumeHighlightUpTo pops the front highlight if it starts at or before
// pos.
func (x *Index) ConsumeHighlightUpTo(pos int) (Highlight, bool) {
	h, ok := x.PeekHighlight()
	if !ok || h.Start > pos {
		return Highlight{}, false
	}
	x.highlights = x.highlights[1:]
	return h, true
}

// PeekAnnotation returns the front annotation without consuming it.
func (x *Index) PeekAnnotation() (Annotation, bool) {
	if len(x.annotations) == 0 {
		return Annotation{}, false
	}
	return x.annotations[0], true
}

// ConsumeAnnotationUpTo pops the front annotation if it starts at or before
// pos.
func (x *Index) ConsumeAnnotationUpTo(pos int) (Annotation, bool) {
	a, ok := x.PeekAnnotation()
	if !ok || a.Start > pos {
		return Annotation{}, false
	}
	x.annotations = x.annotations[1:]
	return a, true
}

// Remaining returns the number of unconsumed highlights and annotations.
func (x *Index) Remaining() (highlights, annotations int) {
	return len(x.highlights), len(x.annotations)
}
