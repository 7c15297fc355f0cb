// Package export runs the segmenter over a buffer and hands the result to a
// renderer.
//
// An export run decides which parts of the buffer to print (the whole
// buffer, one selection or several), builds a fresh theme table and region
// index, segments each block in buffer order and collects the annotation
// table.  Nothing built for one run is shared with another, so runs over
// different buffers may proceed in parallel.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cptaffe/exporthtml/internal/region"
	"github.com/cptaffe/exporthtml/internal/scope"
	"github.com/cptaffe/exporthtml/internal/segment"
	"github.com/cptaffe/exporthtml/internal/theme"
	"github.com/cptaffe/exporthtml/logger"
	"github.com/cptaffe/exporthtml/style"
)

// DefaultValidSelectionSize is the smallest selection exported on its own.
const DefaultValidSelectionSize = 4

// Selection is a selected buffer range [Start,End).
type Selection struct {
	Start, End int
}

// Size returns the selection's length.
func (s Selection) Size() int { return s.End - s.Start }

// Empty reports whether the selection selects nothing.
func (s Selection) Empty() bool { return s.End <= s.Start }

// Options selects what is exported.
type Options struct {
	TabSize int

	// IgnoreSelections exports the whole buffer and drops highlights.
	IgnoreSelections bool
	// MultiSelect exports every selection of at least ValidSelectionSize
	// as its own block.
	MultiSelect bool
	// HighlightSelections exports the whole buffer with the selections
	// drawn in the selection colors.
	HighlightSelections bool
	// ValidSelectionSize is the minimum selection size that counts as a
	// block.
	ValidSelectionSize int
}

// Request is one export.
type Request struct {
	Title       string
	Buffer      scope.Buffer
	Oracle      scope.Oracle
	Theme       theme.Spec
	Selections  []Selection
	Annotations []region.Annotation
	Options     Options
}

// Result is everything a renderer needs.
type Result struct {
	RunID       string
	Title       string
	Created     time.Time
	Theme       *theme.Table
	Blocks      []*segment.Result
	Annotations []style.AnnotationEntry
	// GutterWidth is the width line numbers are padded to.
	GutterWidth int
}

// Renderer writes a Result in some markup.
type Renderer interface {
	Render(w io.Writer, res *Result) error
	// FileExtension returns the output file extension, e.g. ".html".
	FileExtension() string
}

// Exporter runs export requests.
type Exporter struct {
	// Now stamps results; time.Now when nil.
	Now func() time.Time
}

// Export segments req.  A failure in any block fails the whole export.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if req.Buffer == nil || req.Oracle == nil {
		return nil, errors.New("export: request needs a buffer and an oracle")
	}
	runID := uuid.New().String()
	ctx = logger.With(ctx, zap.String("run", runID))
	log := logger.L(ctx)

	tab, err := theme.New(ctx, req.Theme)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	opts := req.Options
	if opts.ValidSelectionSize <= 0 {
		opts.ValidSelectionSize = DefaultValidSelectionSize
	}
	n := req.Buffer.Len()
	blocks := Blocks(n, req.Selections, opts)
	var highlights []region.Highlight
	if opts.HighlightSelections && !opts.IgnoreSelections {
		highlights = Highlights(n, req.Selections)
	}
	idx, err := region.New(highlights, Annotations(req.Annotations))
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	seg := segment.New(req.Buffer, req.Oracle, tab, idx, segment.Options{TabSize: opts.TabSize})
	res := &Result{
		RunID: runID,
		Title: req.Title,
		Theme: tab,
	}
	if e.Now != nil {
		res.Created = e.Now()
	} else {
		res.Created = time.Now()
	}

	log.Debug("exporting", zap.Int("blocks", len(blocks)), zap.Int("highlights", len(highlights)))
	last := 1
	for _, b := range blocks {
		br, err := seg.Run(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("export: block [%d,%d): %w", b.Start, b.End, err)
		}
		res.Blocks = append(res.Blocks, br)
		if k := len(br.Lines); k > 0 {
			last = max(last, br.Lines[k-1].Number)
		}
	}
	res.Annotations = seg.Annotations()
	res.GutterWidth = len(strconv.Itoa(last)) + 1
	log.Debug("exported", zap.Int("annotations", len(res.Annotations)))
	return res, nil
}

// Write exports req and renders it to w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, r Renderer, req Request) (*Result, error) {
	res, err := e.Export(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := r.Render(w, res); err != nil {
		return nil, fmt.Errorf("export: render: %w", err)
	}
	return res, nil
}

// Blocks picks the ranges to export from a buffer of length n.
//
// With IgnoreSelections the whole buffer is one block.  With MultiSelect
// (and not HighlightSelections) every selection of at least
// ValidSelectionSize is a block, if there are any.  Otherwise the first
// selection is the block when it is larger than ValidSelectionSize and
// selections are not being highlighted; failing that, the whole buffer.
func Blocks(n int, sels []Selection, opts Options) []segment.Block {
	whole := []segment.Block{{Start: 0, End: n}}
	if opts.IgnoreSelections {
		return whole
	}
	if opts.MultiSelect && !opts.HighlightSelections {
		var valid []Selection
		for _, s := range sels {
			s = clip(s, n)
			if !s.Empty() && s.Size() >= opts.ValidSelectionSize {
				valid = append(valid, s)
			}
		}
		if len(valid) > 0 {
			var blocks []segment.Block
			for _, s := range merge(valid) {
				blocks = append(blocks, segment.Block{Start: s.Start, End: s.End})
			}
			return blocks
		}
	}
	if len(sels) > 0 && !opts.HighlightSelections {
		if s := clip(sels[0], n); !s.Empty() && s.Size() > opts.ValidSelectionSize {
			return []segment.Block{{Start: s.Start, End: s.End}}
		}
	}
	return whole
}

// Highlights turns the non-empty selections into sorted, disjoint
// highlight regions.
func Highlights(n int, sels []Selection) []region.Highlight {
	var nonEmpty []Selection
	for _, s := range sels {
		if s = clip(s, n); !s.Empty() {
			nonEmpty = append(nonEmpty, s)
		}
	}
	var out []region.Highlight
	for _, s := range merge(nonEmpty) {
		out = append(out, region.Highlight{Start: s.Start, End: s.End})
	}
	return out
}

// Annotations returns a start-sorted copy of as, giving each annotation
// without an ID a fresh one.
func Annotations(as []region.Annotation) []region.Annotation {
	out := make([]region.Annotation, len(as))
	copy(out, as)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.New().String()
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func clip(s Selection, n int) Selection {
	s.Start = max(0, min(s.Start, n))
	s.End = max(0, min(s.End, n))
	return s
}

// merge sorts selections and joins overlapping ones.
func merge(sels []Selection) []Selection {
	sorted := append([]Selection(nil), sels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	var out []Selection
	for _, s := range sorted {
		if k := len(out); k > 0 && s.Start < out[k-1].End {
			out[k-1].End = max(out[k-1].End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}
