package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/cptaffe/exporthtml/internal/export"
	"github.com/cptaffe/exporthtml/internal/theme"
	"github.com/cptaffe/exporthtml/style"
)

// ANSI renders escape-coded text for previewing an export in a terminal.
type ANSI struct {
	// Profile limits the colors used; termenv.Ascii writes plain text.
	Profile termenv.Profile
	Numbers bool
}

// NewANSI returns an ANSI renderer for the color profile of stdout.
func NewANSI(numbers bool) *ANSI {
	return &ANSI{Profile: termenv.ColorProfile(), Numbers: numbers}
}

func (a *ANSI) FileExtension() string { return ".ans" }

func (a *ANSI) Render(w io.Writer, res *export.Result) error {
	if res == nil || res.Theme == nil {
		return fmt.Errorf("render: empty result")
	}
	p := a.Profile
	fg, _ := res.Theme.Special(theme.Foreground)
	gfg, _ := res.Theme.Special(theme.GutterForeground)
	gbg, _ := res.Theme.Special(theme.Gutter)

	var sb strings.Builder
	for i, blk := range res.Blocks {
		if i > 0 {
			sb.WriteString("\n")
			sb.WriteString(p.String("...").Foreground(p.Color(fg.Hex())).String())
			sb.WriteString("\n\n")
		}
		for _, l := range blk.Lines {
			if a.Numbers {
				num := fmt.Sprintf("%*d ", res.GutterWidth, l.Number)
				sb.WriteString(p.String(num).Foreground(p.Color(gfg.Hex())).Background(p.Color(gbg.Hex())).String())
			}
			a.line(&sb, res.Theme, l)
			sb.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// line writes l's segments.  Neighbouring segments that render alike share
// one escape sequence.
func (a *ANSI) line(sb *strings.Builder, tab *theme.Table, l style.Line) {
	var (
		run strings.Builder
		cur style.Resolved
	)
	flush := func() {
		if run.Len() > 0 {
			sb.WriteString(a.styled(run.String(), cur))
			run.Reset()
		}
	}
	for _, seg := range l.Segments {
		if seg.Text == "" {
			continue
		}
		rs := seg.Style
		if seg.Highlighted {
			rs = tab.Highlight(rs)
		}
		if seg.WhitespaceOnly {
			flush()
			s := a.Profile.String(seg.Text)
			if seg.Highlighted && rs.Background != nil {
				s = s.Background(a.Profile.Color(rs.Background.Hex()))
			}
			sb.WriteString(s.String())
			continue
		}
		if run.Len() > 0 && !rs.Equal(cur) {
			flush()
		}
		cur = rs
		run.WriteString(seg.Text)
	}
	flush()
}

func (a *ANSI) styled(text string, rs style.Resolved) string {
	p := a.Profile
	s := p.String(text).Foreground(p.Color(rs.Foreground.Hex()))
	if rs.Background != nil {
		s = s.Background(p.Color(rs.Background.Hex()))
	}
	if rs.Bold {
		s = s.Bold()
	}
	if rs.Italic {
		s = s.Italic()
	}
	if rs.Underline {
		s = s.Underline()
	}
	return s.String()
}
