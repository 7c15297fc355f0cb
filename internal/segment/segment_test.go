package segment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cptaffe/exporthtml/internal/region"
	"github.com/cptaffe/exporthtml/internal/scope"
	"github.com/cptaffe/exporthtml/style"
)

// scopeStyles resolves every scope to a style named after it.
type scopeStyles struct{}

func (scopeStyles) Resolve(sc string, _ int, _ scope.Oracle) (style.Resolved, error) {
	return style.Resolved{Selector: sc}, nil
}

type failingResolver struct{ err error }

func (r failingResolver) Resolve(string, int, scope.Oracle) (style.Resolved, error) {
	return style.Resolved{}, r.err
}

// flakyOracle answers differently the second time position 2 is queried.
type flakyOracle struct{ seen map[int]int }

func (o *flakyOracle) ScopeAt(pos int) string {
	o.seen[pos]++
	switch {
	case pos < 2:
		return "a"
	case o.seen[pos] == 1:
		return "b"
	}
	return "c"
}

func (o *flakyOracle) Score(int, string) int { return 0 }

func newSegmenter(t *testing.T, text string, spans []scope.Span, hl []region.Highlight, an []region.Annotation) *Segmenter {
	t.Helper()
	idx, err := region.New(hl, an)
	require.NoError(t, err)
	oracle := scope.NewTable("", nil, scope.Layer{Spans: spans})
	return New(scope.NewText(text), oracle, scopeStyles{}, idx, Options{TabSize: 4})
}

func run(t *testing.T, s *Segmenter, b Block) *Result {
	t.Helper()
	res, err := s.Run(context.Background(), b)
	require.NoError(t, err)
	return res
}

func TestHighlightSpanningLines(t *testing.T) {
	s := newSegmenter(t, "abcdefghi\nabcdefghi\n", nil, []region.Highlight{{Start: 5, End: 12}}, nil)
	st := &ScanState{LineNumber: 1}

	l1, err := s.scanLine(st, 0, 0, 10, 0)
	require.NoError(t, err)
	require.Equal(t, []style.Segment{
		{Start: 0, End: 5, Column: 0, Text: "abcde"},
		{Start: 5, End: 10, Column: 5, Text: "fghi", Highlighted: true},
	}, l1.Segments)
	require.NotNil(t, st.PendingHighlight)
	require.Equal(t, region.Highlight{Start: 5, End: 12}, *st.PendingHighlight)
	hl, _ := s.index.Remaining()
	require.Zero(t, hl)

	l2, err := s.scanLine(st, 0, 10, 20, 0)
	require.NoError(t, err)
	require.Equal(t, []style.Segment{
		{Start: 10, End: 12, Column: 0, Text: "ab", Highlighted: true},
		{Start: 12, End: 20, Column: 2, Text: "cdefghi"},
	}, l2.Segments)
	require.Nil(t, st.PendingHighlight)
}

func TestHighlightSpanningBlocks(t *testing.T) {
	s := newSegmenter(t, "abcdefghij\nklmnopqrst\n", nil, []region.Highlight{{Start: 3, End: 15}}, nil)

	first := run(t, s, Block{0, 6})
	require.Equal(t, []style.Segment{
		{Start: 0, End: 3, Column: 0, Text: "abc"},
		{Start: 3, End: 6, Column: 3, Text: "def", Highlighted: true},
	}, first.Lines[0].Segments)

	second := run(t, s, Block{11, 22})
	require.Equal(t, []style.Segment{
		{Start: 11, End: 15, Column: 0, Text: "klmn", Highlighted: true},
		{Start: 15, End: 22, Column: 4, Text: "opqrst"},
	}, second.Lines[0].Segments)
	require.Nil(t, s.highlight)
}

func TestHighlightEndingBetweenBlocks(t *testing.T) {
	s := newSegmenter(t, "abcdefghij\nklmnopqrst\n", nil, []region.Highlight{{Start: 3, End: 8}}, nil)
	run(t, s, Block{0, 5})
	second := run(t, s, Block{11, 22})
	require.Equal(t, []style.Segment{
		{Start: 11, End: 22, Column: 0, Text: "klmnopqrst"},
	}, second.Lines[0].Segments)
}

func TestWhitespaceRunsJoinNextRun(t *testing.T) {
	s := newSegmenter(t, "   foo\n", []scope.Span{
		{Start: 0, End: 2, Scope: "a"},
		{Start: 2, End: 3, Scope: "b"},
		{Start: 3, End: 6, Scope: "c"},
	}, nil, nil)

	res := run(t, s, Block{0, 7})
	require.Len(t, res.Lines, 1)
	require.Equal(t, []style.Segment{
		{Start: 0, End: 7, Column: 0, Text: "   foo", Style: style.Resolved{Selector: "c"}},
	}, res.Lines[0].Segments)
}

func TestWhitespaceFlushedWhenOverlayChanges(t *testing.T) {
	s := newSegmenter(t, "  x", nil, []region.Highlight{{Start: 2, End: 3}}, nil)
	res := run(t, s, Block{0, 3})
	require.Equal(t, []style.Segment{
		{Start: 0, End: 2, Column: 0, Text: "  ", WhitespaceOnly: true},
		{Start: 2, End: 3, Column: 2, Text: "x", Highlighted: true},
	}, res.Lines[0].Segments)
}

func TestTrailingWhitespaceStaysOnItsLine(t *testing.T) {
	s := newSegmenter(t, "x  \ny", []scope.Span{{Start: 0, End: 1, Scope: "id"}}, nil, nil)
	res := run(t, s, Block{0, 5})
	require.Len(t, res.Lines, 2)
	require.Equal(t, []style.Segment{
		{Start: 0, End: 1, Column: 0, Text: "x", Style: style.Resolved{Selector: "id"}},
		{Start: 1, End: 4, Column: 1, Text: "  ", WhitespaceOnly: true},
	}, res.Lines[0].Segments)
	require.Equal(t, "y", res.Lines[1].Text())
}

func TestTabsExpandAgainstLineStart(t *testing.T) {
	s := newSegmenter(t, "\tx", []scope.Span{
		{Start: 0, End: 1, Scope: "ws"},
		{Start: 1, End: 2, Scope: "id"},
	}, nil, nil)
	res := run(t, s, Block{0, 2})
	require.Equal(t, []style.Segment{
		{Start: 0, End: 2, Column: 0, Text: "    x", Style: style.Resolved{Selector: "id"}},
	}, res.Lines[0].Segments)

	s = newSegmenter(t, "ab\tc", nil, nil, nil)
	res = run(t, s, Block{2, 4})
	require.Equal(t, []style.Segment{
		{Start: 2, End: 4, Column: 2, Text: "  c"},
	}, res.Lines[0].Segments)
}

func TestAnnotationAcrossLines(t *testing.T) {
	s := newSegmenter(t, "ab\ncd\nef\n", nil, nil, []region.Annotation{{Start: 1, End: 7, ID: "n", Comment: "note"}})
	res := run(t, s, Block{0, 9})
	require.Len(t, res.Lines, 3)

	require.False(t, res.Lines[0].ContinuesAnnotation)
	require.Equal(t, []style.Segment{
		{Start: 0, End: 1, Column: 0, Text: "a"},
		{Start: 1, End: 3, Column: 1, Text: "b", AnnotationID: "n", AnnotationStart: true},
	}, res.Lines[0].Segments)

	require.True(t, res.Lines[1].ContinuesAnnotation)
	require.Equal(t, []style.Segment{
		{Start: 3, End: 6, Column: 0, Text: "cd", AnnotationID: "n"},
	}, res.Lines[1].Segments)

	require.True(t, res.Lines[2].ContinuesAnnotation)
	require.Equal(t, []style.Segment{
		{Start: 6, End: 7, Column: 0, Text: "e", AnnotationID: "n", AnnotationEnd: true},
		{Start: 7, End: 9, Column: 1, Text: "f"},
	}, res.Lines[2].Segments)

	require.Equal(t, []style.AnnotationEntry{
		{ID: "n", Block: 0, Line: 1, Column: 2, Comment: "note"},
	}, s.Annotations())
}

func TestAnnotationClosedAtBlockEnd(t *testing.T) {
	s := newSegmenter(t, "aaaa\nbbbb\n", nil, nil, []region.Annotation{{Start: 2, End: 8, ID: "x"}})
	res := run(t, s, Block{0, 5})
	require.Equal(t, []style.Segment{
		{Start: 0, End: 2, Column: 0, Text: "aa"},
		{Start: 2, End: 5, Column: 2, Text: "aa", AnnotationID: "x", AnnotationStart: true, AnnotationEnd: true},
	}, res.Lines[0].Segments)
}

func TestBlockLineNumbers(t *testing.T) {
	s := newSegmenter(t, "aaa\nbbb\nccc\n", nil, nil, nil)
	first := run(t, s, Block{4, 8})
	require.Equal(t, 0, first.Index)
	require.Len(t, first.Lines, 1)
	require.Equal(t, style.Line{
		Number: 2, Start: 4, End: 8,
		Segments: []style.Segment{{Start: 4, End: 8, Text: "bbb"}},
	}, first.Lines[0])

	second := run(t, s, Block{8, 12})
	require.Equal(t, 1, second.Index)
	require.Equal(t, 3, second.Lines[0].Number)
}

func TestRunErrors(t *testing.T) {
	idx, err := region.New(nil, nil)
	require.NoError(t, err)

	t.Run("oracle changes its answer", func(t *testing.T) {
		s := New(scope.NewText("abcd"), &flakyOracle{seen: map[int]int{}}, scopeStyles{}, idx, Options{})
		_, err := s.Run(context.Background(), Block{0, 4})
		require.ErrorIs(t, err, ErrSegmentation)
		var se *Error
		require.ErrorAs(t, err, &se)
		require.Equal(t, 2, se.Pos)
		require.Equal(t, 1, se.Line)
	})

	t.Run("resolver fails", func(t *testing.T) {
		boom := errors.New("boom")
		s := New(scope.NewText("ab"), scope.NewTable("", nil), failingResolver{boom}, idx, Options{})
		_, err := s.Run(context.Background(), Block{0, 2})
		require.ErrorIs(t, err, ErrSegmentation)
		require.ErrorIs(t, err, boom)
	})

	t.Run("block outside buffer", func(t *testing.T) {
		s := New(scope.NewText("ab"), scope.NewTable("", nil), scopeStyles{}, idx, Options{})
		_, err := s.Run(context.Background(), Block{1, 5})
		require.ErrorIs(t, err, ErrSegmentation)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := New(scope.NewText("ab"), scope.NewTable("", nil), scopeStyles{}, idx, Options{})
		_, err := s.Run(ctx, Block{0, 2})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestFailedBlockKeepsNoAnnotations(t *testing.T) {
	idx, err := region.New(nil, []region.Annotation{{Start: 0, End: 1, ID: "a"}})
	require.NoError(t, err)
	s := New(scope.NewText("abcd"), &flakyOracle{seen: map[int]int{}}, scopeStyles{}, idx, Options{})
	_, err = s.Run(context.Background(), Block{0, 4})
	require.Error(t, err)
	require.Empty(t, s.Annotations())
}

func TestExpander(t *testing.T) {
	e := NewExpander(4)
	require.Equal(t, 4, e.NextTabStop(0))
	require.Equal(t, 8, e.NextTabStop(5))

	got, col := e.Expand("a\tb\t", 0)
	require.Equal(t, "a   b   ", got)
	require.Equal(t, 8, col)

	got, col = e.Expand("世\t", 1)
	require.Equal(t, "世 ", got)
	require.Equal(t, 4, col)

	require.Equal(t, 3, e.Width("abc", 7))
	require.Equal(t, DefaultTabSize, NewExpander(0).width)
}

// pairs draws up to max non-overlapping [start,end) ranges within [0,n].
func pairs(t *rapid.T, n, max int, label string) [][2]int {
	pts := rapid.SliceOfN(rapid.IntRange(0, n), 0, 2*max).Draw(t, label)
	sort.Ints(pts)
	uniq := pts[:0]
	for _, p := range pts {
		if len(uniq) == 0 || p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}
	var out [][2]int
	for i := 0; i+1 < len(uniq); i += 2 {
		out = append(out, [2]int{uniq[i], uniq[i+1]})
	}
	return out
}

func TestSegmentsCoverLines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringOfN(rapid.RuneFrom([]rune{'a', 'b', ' ', '\t', '\n', 'é', '世'}), 1, 60, -1).Draw(t, "text")
		buf := scope.NewText(text)
		n := buf.Len()

		var spans []scope.Span
		for i, p := range pairs(t, n, 6, "spans") {
			spans = append(spans, scope.Span{Start: p[0], End: p[1], Scope: fmt.Sprintf("s%d", i%3)})
		}
		var hls []region.Highlight
		for _, p := range pairs(t, n, 3, "highlights") {
			hls = append(hls, region.Highlight{Start: p[0], End: p[1]})
		}
		var ans []region.Annotation
		byID := map[string]region.Annotation{}
		for i, p := range pairs(t, n, 3, "annotations") {
			a := region.Annotation{Start: p[0], End: p[1], ID: fmt.Sprintf("a%d", i)}
			ans = append(ans, a)
			byID[a.ID] = a
		}
		idx, err := region.New(hls, ans)
		if err != nil {
			t.Fatalf("region.New: %v", err)
		}
		tabSize := rapid.IntRange(1, 8).Draw(t, "tab")
		s := New(buf, scope.NewTable("src", nil, scope.Layer{Spans: spans}), scopeStyles{}, idx, Options{TabSize: tabSize})

		res, err := s.Run(context.Background(), Block{0, n})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		inHighlight := func(p int) bool {
			for _, h := range hls {
				if h.Start <= p && p < h.End {
					return true
				}
			}
			return false
		}
		starts, ends := map[string]int{}, map[string]int{}
		pos := 0
		for _, l := range res.Lines {
			if l.Start != pos {
				t.Fatalf("line %d starts at %d, want %d", l.Number, l.Start, pos)
			}
			at := l.Start
			for _, seg := range l.Segments {
				if seg.Start != at || seg.End <= seg.Start {
					t.Fatalf("line %d: segment [%d,%d) at %d", l.Number, seg.Start, seg.End, at)
				}
				for p := seg.Start; p < seg.End; p++ {
					if inHighlight(p) != seg.Highlighted {
						t.Fatalf("segment [%d,%d) highlighted=%v disagrees at %d", seg.Start, seg.End, seg.Highlighted, p)
					}
				}
				if seg.AnnotationID != "" {
					a := byID[seg.AnnotationID]
					if seg.Start < a.Start || seg.End > a.End {
						t.Fatalf("segment [%d,%d) outside annotation %s [%d,%d)", seg.Start, seg.End, a.ID, a.Start, a.End)
					}
					if seg.AnnotationStart {
						starts[a.ID]++
					}
					if seg.AnnotationEnd {
						ends[a.ID]++
					}
				}
				at = seg.End
			}
			if at != l.End {
				t.Fatalf("line %d: segments end at %d, line ends at %d", l.Number, at, l.End)
			}
			content := buf.Substr(l.Start, l.End)
			if len(content) > 0 && content[len(content)-1] == '\n' {
				content = content[:len(content)-1]
			}
			want, _ := NewExpander(tabSize).Expand(content, 0)
			if l.Text() != want {
				t.Fatalf("line %d text %q, want %q", l.Number, l.Text(), want)
			}
			pos = l.End
		}
		if pos != n {
			t.Fatalf("lines end at %d, buffer length %d", pos, n)
		}
		for id := range byID {
			if starts[id] != 1 || ends[id] != 1 {
				t.Fatalf("annotation %s: %d starts, %d ends", id, starts[id], ends[id])
			}
		}
		if len(s.Annotations()) != len(ans) {
			t.Fatalf("annotation table has %d entries, want %d", len(s.Annotations()), len(ans))
		}
	})
}
