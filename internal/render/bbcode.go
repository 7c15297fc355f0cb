package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/cptaffe/exporthtml/internal/export"
	"github.com/cptaffe/exporthtml/internal/theme"
	"github.com/cptaffe/exporthtml/style"
)

// bbTag matches text a forum would read as markup.
var bbTag = regexp.MustCompile(`(\[/?)((?:code|pre|table|tr|td|th|b|i|u|sup|color|url|img|list|trac|center|quote|size|li|ul|ol|youtube|gvideo)(?:=[^\]]+)?)(\])`)

// BBCode renders forum markup.  Selections, underline and annotations have
// no BBCode form and are dropped.
type BBCode struct {
	Numbers bool
}

func (b *BBCode) FileExtension() string { return ".txt" }

// Render writes res as one [pre] block.
func (b *BBCode) Render(w io.Writer, res *export.Result) error {
	if res == nil || res.Theme == nil {
		return fmt.Errorf("render: empty result")
	}
	fg, _ := res.Theme.Special(theme.Foreground)
	bg, _ := res.Theme.Special(theme.Background)
	gfg, _ := res.Theme.Special(theme.GutterForeground)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[pre=%s]", bg.Hex())
	for i, blk := range res.Blocks {
		if i > 0 {
			fmt.Fprintf(&sb, "\n[color=%s]...[/color]\n\n", fg.Hex())
		}
		for _, l := range blk.Lines {
			if b.Numbers {
				fmt.Fprintf(&sb, "[color=%s]%*d [/color]", gfg.Hex(), res.GutterWidth, l.Number)
			}
			for _, seg := range l.Segments {
				writeBBSegment(&sb, seg)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("[/pre]\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeBBSegment(sb *strings.Builder, seg style.Segment) {
	if seg.Text == "" {
		return
	}
	if seg.WhitespaceOnly {
		sb.WriteString(seg.Text)
		return
	}
	color := seg.Style.Foreground.Hex()
	code := fmt.Sprintf("[color=%s]%s[/color]", color, escapeBB(seg.Text, color))
	if seg.Style.Italic {
		code = "[i]" + code + "[/i]"
	}
	if seg.Style.Bold {
		code = "[b]" + code + "[/b]"
	}
	sb.WriteString(code)
}

// escapeBB breaks up tags in s by closing and reopening the surrounding
// color around the tag name.
func escapeBB(s, color string) string {
	return bbTag.ReplaceAllStringFunc(s, func(m string) string {
		g := bbTag.FindStringSubmatch(m)
		return g[1] + "[/color][color=" + color + "]" + g[2] + "[/color][color=" + color + "]" + g[3]
	})
}
