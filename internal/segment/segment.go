// Package segment turns export blocks into styled line segments.
//
// A Segmenter walks each line of a block left to right.  Run boundaries come
// from three independent sources: scope changes reported by the oracle, the
// highlight queue and the annotation queue.  Highlights and annotations may
// span lines; the state carried between lines lives in ScanState, which is
// reset at the start of every block except for a highlight still in
// progress, which carries into the next block.
package segment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cptaffe/exporthtml/internal/region"
	"github.com/cptaffe/exporthtml/internal/scope"
	"github.com/cptaffe/exporthtml/logger"
	"github.com/cptaffe/exporthtml/style"
)

// ErrSegmentation is matched by every *Error.
var ErrSegmentation = errors.New("segmentation failed")

// Error is a fatal inconsistency found while scanning a block.
type Error struct {
	Pos    int
	Line   int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("segment: line %d pos %d: %s", e.Line, e.Pos, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrSegmentation) true.
func (e *Error) Is(target error) bool {
	return target == ErrSegmentation
}

func (e *Error) Unwrap() error { return e.Err }

// Resolver maps a scope stack to a style.  *theme.Table implements it.
type Resolver interface {
	Resolve(scope string, pos int, oracle scope.Oracle) (style.Resolved, error)
}

// Options configures a Segmenter.
type Options struct {
	TabSize int
}

// Block is a buffer range [Start,End) exported as one unit.
type Block struct {
	Start, End int
}

// Result is the output of one block.
type Result struct {
	Index int
	Block Block
	Lines []style.Line
}

// ScanState is the state carried from one line to the next within a block.
type ScanState struct {
	// PendingHighlight is the highlight the scan is inside of.  A line that
	// starts inside it resumes without re-testing its start.
	PendingHighlight *region.Highlight
	// OpenAnnotation is the annotation the scan is inside of.
	OpenAnnotation *region.Annotation
	// Deferred is whitespace waiting to be joined to the next run.  It never
	// outlives its line.
	Deferred *style.Segment
	// LineNumber is the 1-based buffer row of the line being scanned.
	LineNumber int
}

// Segmenter runs blocks over one buffer.  Blocks must be run in buffer
// order since the region queues only move forward.  A Segmenter is not safe
// for concurrent use.
type Segmenter struct {
	buf    scope.Buffer
	oracle scope.Oracle
	table  Resolver
	index  *region.Index
	tabs   Expander

	blocks      int
	annotations []style.AnnotationEntry
	// highlight is the highlight the last block ended inside of.
	highlight *region.Highlight
}

// New returns a Segmenter.
func New(buf scope.Buffer, oracle scope.Oracle, table Resolver, index *region.Index, opts Options) *Segmenter {
	return &Segmenter{
		buf:    buf,
		oracle: oracle,
		table:  table,
		index:  index,
		tabs:   NewExpander(opts.TabSize),
	}
}

// Annotations returns the annotation table: every annotation rendered so
// far, in encounter order.
func (s *Segmenter) Annotations() []style.AnnotationEntry {
	return append([]style.AnnotationEntry(nil), s.annotations...)
}

// Run segments block b.  On error nothing from the block is kept; earlier
// blocks are unaffected.  ctx is checked between lines.
func (s *Segmenter) Run(ctx context.Context, b Block) (*Result, error) {
	if n := s.buf.Len(); b.Start < 0 || b.End > n || b.Start > b.End {
		return nil, &Error{Pos: b.Start, Reason: fmt.Sprintf("block [%d,%d) outside buffer of length %d", b.Start, b.End, n)}
	}

	idx := s.blocks
	s.blocks++
	mark := len(s.annotations)

	row, _ := scope.RowCol(s.buf, b.Start)
	st := &ScanState{LineNumber: row + 1, PendingHighlight: s.highlight}
	defer func() { s.highlight = st.PendingHighlight }()
	res := &Result{Index: idx, Block: b}

	log := logger.L(ctx).With(zap.Int("block", idx))
	log.Debug("segmenting block",
		zap.Int("start", b.Start),
		zap.Int("end", b.End),
		zap.Int("line", st.LineNumber))

	// A block may begin mid-line; columns count from the real line start.
	col := s.tabs.Width(s.buf.Substr(scope.LineStart(s.buf, b.Start), b.Start), 0)
	for pos := b.Start; pos < b.End; {
		if err := ctx.Err(); err != nil {
			s.annotations = s.annotations[:mark]
			return nil, err
		}
		end := scope.LineEnd(s.buf, pos)
		if end > b.End {
			end = b.End
		}
		line, err := s.scanLine(st, idx, pos, end, col)
		if err != nil {
			s.annotations = s.annotations[:mark]
			return nil, err
		}
		res.Lines = append(res.Lines, line)
		st.LineNumber++
		col = 0
		pos = end
	}

	// An annotation running past the block is closed on its last line.
	if a := st.OpenAnnotation; a != nil && len(res.Lines) > 0 {
		closeAnnotation(&res.Lines[len(res.Lines)-1], a.ID)
	}

	log.Debug("segmented block", zap.Int("lines", len(res.Lines)))
	return res, nil
}

func (s *Segmenter) errorf(st *ScanState, pos int, err error, format string, args ...any) error {
	return &Error{Pos: pos, Line: st.LineNumber, Reason: fmt.Sprintf(format, args...), Err: err}
}

// scanLine segments [start,end), which begins at display column col.
func (s *Segmenter) scanLine(st *ScanState, block, start, end, col int) (style.Line, error) {
	lb := &lineBuilder{
		s:     s,
		st:    st,
		block: block,
		col:   col,
		text:  end,
		line: style.Line{
			Number:              st.LineNumber,
			Start:               start,
			End:                 end,
			ContinuesAnnotation: st.OpenAnnotation != nil && st.OpenAnnotation.End > start,
		},
	}
	if end > start && s.buf.Substr(end-1, end) == "\n" {
		lb.text = end - 1
	}

	probe, probePos := "", -1
	for cursor := start; cursor < end; {
		sc := s.oracle.ScopeAt(cursor)
		if cursor == probePos && sc != probe {
			return style.Line{}, s.errorf(st, cursor, nil, "oracle reported scope %q then %q", probe, sc)
		}
		probePos = -1

		hl, limit := s.highlightAt(st, cursor, end)
		runEnd := cursor + 1
		for runEnd < limit {
			if next := s.oracle.ScopeAt(runEnd); next != sc {
				probe, probePos = next, runEnd
				break
			}
			runEnd++
		}

		rs, err := s.table.Resolve(sc, cursor, s.oracle)
		if err != nil {
			return style.Line{}, s.errorf(st, cursor, err, "resolve %q", sc)
		}
		lb.run(cursor, runEnd, rs, hl)
		cursor = runEnd
	}
	lb.flush()

	if h := st.PendingHighlight; h != nil && h.End <= end {
		st.PendingHighlight = nil
	}
	if a := st.OpenAnnotation; a != nil && a.End <= end {
		closeAnnotation(&lb.line, a.ID)
		st.OpenAnnotation = nil
	}
	return lb.line, nil
}

// highlightAt reports whether cursor is inside a highlight and the position
// where that state next changes, capped at lineEnd.
func (s *Segmenter) highlightAt(st *ScanState, cursor, lineEnd int) (bool, int) {
	if h := st.PendingHighlight; h != nil && h.End <= cursor {
		st.PendingHighlight = nil
	}
	if st.PendingHighlight == nil {
		for {
			h, ok := s.index.PeekHighlight()
			if !ok || h.Start > cursor {
				break
			}
			s.index.ConsumeHighlightUpTo(cursor)
			if h.End > cursor {
				st.PendingHighlight = &h
				break
			}
		}
	}
	if h := st.PendingHighlight; h != nil {
		return true, min(lineEnd, h.End)
	}
	if h, ok := s.index.PeekHighlight(); ok && h.Start < lineEnd {
		return false, h.Start
	}
	return false, lineEnd
}

// closeAnnotation marks the last segment of id on l as its end.
func closeAnnotation(l *style.Line, id string) {
	for i := len(l.Segments) - 1; i >= 0; i-- {
		if l.Segments[i].AnnotationID == id {
			l.Segments[i].AnnotationEnd = true
			return
		}
	}
}
