package segment

import (
	"strings"

	"github.com/cptaffe/exporthtml/internal/region"
	"github.com/cptaffe/exporthtml/style"
)

// lineBuilder accumulates the segments of one line.
type lineBuilder struct {
	s     *Segmenter
	st    *ScanState
	block int
	col   int // display column of the next rune
	text  int // end of the line's text, before any newline
	line  style.Line
}

// run emits [start,end), one scope run, splitting it at annotation
// boundaries.
func (lb *lineBuilder) run(start, end int, rs style.Resolved, hl bool) {
	for start < end {
		stop := end
		var seg style.Segment
		if a, opened := lb.annotationAt(start); a != nil {
			stop = min(end, a.End)
			seg = lb.segment(start, stop, rs, hl)
			seg.AnnotationID = a.ID
			seg.AnnotationStart = opened
			if stop == a.End {
				seg.AnnotationEnd = true
				lb.st.OpenAnnotation = nil
			}
		} else {
			if next, ok := lb.s.index.PeekAnnotation(); ok && next.Start < end {
				stop = next.Start
			}
			seg = lb.segment(start, stop, rs, hl)
		}
		lb.push(seg)
		start = stop
	}
}

// annotationAt returns the annotation covering pos, consuming it from the
// queue and recording it in the annotation table when pos is where it is
// first rendered (opened is then true).
func (lb *lineBuilder) annotationAt(pos int) (a *region.Annotation, opened bool) {
	st := lb.st
	if a := st.OpenAnnotation; a != nil {
		if a.End > pos {
			return a, false
		}
		st.OpenAnnotation = nil
	}
	for {
		next, ok := lb.s.index.PeekAnnotation()
		if !ok || next.Start > pos {
			return nil, false
		}
		lb.s.index.ConsumeAnnotationUpTo(pos)
		if next.End <= pos {
			// Entirely before the scan, e.g. outside every block.
			continue
		}
		st.OpenAnnotation = &next
		lb.s.annotations = append(lb.s.annotations, style.AnnotationEntry{
			ID:      next.ID,
			Block:   lb.block,
			Line:    lb.line.Number,
			Column:  lb.col + 1,
			Comment: next.Comment,
		})
		return &next, true
	}
}

// segment builds the segment for [start,end) and advances the column.
func (lb *lineBuilder) segment(start, end int, rs style.Resolved, hl bool) style.Segment {
	text, col := lb.s.tabs.Expand(lb.s.buf.Substr(start, min(end, lb.text)), lb.col)
	seg := style.Segment{
		Start:       start,
		End:         end,
		Column:      lb.col,
		Text:        text,
		Style:       rs,
		Highlighted: hl,
	}
	lb.col = col
	return seg
}

// push appends seg, holding back blank runs so they can be joined to the
// run that follows them.
func (lb *lineBuilder) push(seg style.Segment) {
	d := lb.st.Deferred
	if blank(seg.Text) {
		if d != nil && sameOverlay(*d, seg) {
			d.End = seg.End
			d.Text += seg.Text
			d.AnnotationStart = d.AnnotationStart || seg.AnnotationStart
			d.AnnotationEnd = seg.AnnotationEnd
			return
		}
		lb.flush()
		lb.st.Deferred = &seg
		return
	}
	if d != nil {
		if sameOverlay(*d, seg) {
			seg.Start = d.Start
			seg.Column = d.Column
			seg.Text = d.Text + seg.Text
			seg.AnnotationStart = seg.AnnotationStart || d.AnnotationStart
			lb.st.Deferred = nil
		} else {
			lb.flush()
		}
	}
	lb.line.Segments = append(lb.line.Segments, seg)
}

// flush emits any deferred whitespace.  Whitespace that is only the line's
// newline is folded into the preceding segment when the overlays agree.
func (lb *lineBuilder) flush() {
	d := lb.st.Deferred
	if d == nil {
		return
	}
	lb.st.Deferred = nil
	segs := lb.line.Segments
	if n := len(segs); d.Text == "" && n > 0 && sameOverlay(segs[n-1], *d) {
		segs[n-1].End = d.End
		segs[n-1].AnnotationEnd = d.AnnotationEnd
		return
	}
	d.WhitespaceOnly = true
	lb.line.Segments = append(segs, *d)
}

// sameOverlay reports whether b may join a: same highlight state, same
// annotation, and a does not close its annotation.
func sameOverlay(a, b style.Segment) bool {
	if a.Highlighted != b.Highlighted || a.AnnotationID != b.AnnotationID {
		return false
	}
	return a.AnnotationID == "" || !a.AnnotationEnd
}

func blank(s string) bool {
	return strings.Trim(s, " ") == ""
}
