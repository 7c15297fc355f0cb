// Package render writes export results as HTML, BBCode or ANSI text.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	strftime "github.com/ncruces/go-strftime"

	"github.com/cptaffe/exporthtml/internal/export"
	"github.com/cptaffe/exporthtml/internal/theme"
	"github.com/cptaffe/exporthtml/rgba"
	"github.com/cptaffe/exporthtml/style"
)

// DefaultDateTimeFormat is the strftime layout of the page header date.
const DefaultDateTimeFormat = "%m/%d/%y %I:%M:%S"

// HTML renders a standalone HTML page.
type HTML struct {
	// TableMode lays lines out as table rows instead of a <pre> block.
	TableMode bool
	// Numbers shows the line number gutter.
	Numbers bool
	// Header prints the date and title above the code.
	Header bool
	// DisableNbsp keeps runs of spaces as plain spaces.
	DisableNbsp bool
	// DateTimeFormat is a strftime layout; DefaultDateTimeFormat when empty.
	DateTimeFormat string
}

// DefaultHTML returns the renderer the CLI uses when nothing is configured.
func DefaultHTML() *HTML {
	return &HTML{TableMode: true, Numbers: true, Header: true, DateTimeFormat: DefaultDateTimeFormat}
}

func (h *HTML) FileExtension() string { return ".html" }

// page holds the colors used throughout one rendering.
type page struct {
	fg, bg         rgba.Color
	gutter, gfg    rgba.Color
	tab            *theme.Table
	comments       map[string]string
	nbsp           bool
	openAnnotation string
}

func newPage(res *export.Result, nbsp bool) *page {
	p := &page{tab: res.Theme, nbsp: nbsp, comments: make(map[string]string, len(res.Annotations))}
	p.fg, _ = res.Theme.Special(theme.Foreground)
	p.bg, _ = res.Theme.Special(theme.Background)
	p.gutter, _ = res.Theme.Special(theme.Gutter)
	p.gfg, _ = res.Theme.Special(theme.GutterForeground)
	for _, a := range res.Annotations {
		p.comments[a.ID] = a.Comment
	}
	return p
}

// Render writes res as an HTML page.
func (h *HTML) Render(w io.Writer, res *export.Result) error {
	if res == nil || res.Theme == nil {
		return fmt.Errorf("render: empty result")
	}
	p := newPage(res, !h.DisableNbsp)
	var sb strings.Builder

	title := html.EscapeString(res.Title)
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n<style type=\"text/css\">\n%s</style>\n</head>\n", title, h.css(p))
	sb.WriteString(`<body class="code_page code_text">`)
	sb.WriteString("\n")

	if h.TableMode {
		h.writeTables(&sb, p, res)
	} else {
		h.writeCode(&sb, p, res)
	}
	writeCommentTable(&sb, res)

	sb.WriteString("</body>\n</html>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func (h *HTML) css(p *page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "body { background-color: %s; color: %s; margin: 0; }\n", p.bg.Hex(), p.fg.Hex())
	sb.WriteString("pre, code, table.code_page { font-family: Consolas, Monaco, monospace; font-size: 12pt; }\n")
	sb.WriteString("pre.code_page { white-space: pre; margin: 0; padding: 0.5em; }\n")
	sb.WriteString("table.code_page { border-collapse: collapse; }\n")
	fmt.Fprintf(&sb, ".code_gutter { background-color: %s; color: %s; padding-right: 0.5em; text-align: right; }\n", p.gutter.Hex(), p.gfg.Hex())
	sb.WriteString(".code_line { white-space: pre; }\n")
	sb.WriteString(".annotation { border-bottom: 1px dotted; cursor: help; }\n")
	fmt.Fprintf(&sb, "#comment_table { margin: 1em 0.5em; border-collapse: collapse; color: %s; }\n", p.fg.Hex())
	sb.WriteString("#comment_table td, #comment_table th { padding: 0.2em 0.6em; text-align: left; vertical-align: top; }\n")
	return sb.String()
}

func (h *HTML) fileInfo(res *export.Result) string {
	layout := h.DateTimeFormat
	if layout == "" {
		layout = DefaultDateTimeFormat
	}
	return html.EscapeString(strftime.Format(layout, res.Created)) + " " + html.EscapeString(res.Title)
}

func (h *HTML) writeTables(sb *strings.Builder, p *page, res *export.Result) {
	for i, b := range res.Blocks {
		if i > 0 {
			writeDivider(sb, p)
		}
		sb.WriteString(`<table cellspacing="0" cellpadding="0" class="code_page">`)
		sb.WriteString("\n")
		if h.Header && i == 0 {
			fmt.Fprintf(sb, `<tr><td colspan="2" style="background: %s"><div id="file_info"><span style="color: %s">%s</span>`+"\n\n</div></td></tr>\n",
				p.bg.Hex(), p.fg.Hex(), h.fileInfo(res))
		}
		for _, l := range b.Lines {
			sb.WriteString("<tr>")
			if h.Numbers {
				fmt.Fprintf(sb, `<td valign="top" id="L_%d_%d" class="code_text code_gutter">%s</td>`,
					b.Index, l.Number, p.gutterText(l.Number, res.GutterWidth))
			}
			fmt.Fprintf(sb, `<td valign="top" class="code_text code_line" style="background-color: %s;"><div id="C_%d_%d">`,
				p.bg.Hex(), b.Index, l.Number)
			p.writeLine(sb, l)
			sb.WriteString("\n</div></td></tr>\n")
		}
		sb.WriteString("</table>\n")
	}
}

func (h *HTML) writeCode(sb *strings.Builder, p *page, res *export.Result) {
	sb.WriteString(`<pre class="code_page"><code class="code_page">`)
	if h.Header {
		fmt.Fprintf(sb, `<span id="file_info" style="color: %s; background: %s">%s</span>`+"\n\n",
			p.fg.Hex(), p.bg.Hex(), h.fileInfo(res))
	}
	for i, b := range res.Blocks {
		if i > 0 {
			writeDivider(sb, p)
		}
		for _, l := range b.Lines {
			if h.Numbers {
				fmt.Fprintf(sb, `<span id="L_%d_%d" class="code_text code_gutter">%s</span>`,
					b.Index, l.Number, p.gutterText(l.Number, res.GutterWidth))
			}
			fmt.Fprintf(sb, `<span id="C_%d_%d" class="code_line">`, b.Index, l.Number)
			p.writeLine(sb, l)
			sb.WriteString("</span>\n")
		}
	}
	sb.WriteString("</code></pre>\n")
}

func writeDivider(sb *strings.Builder, p *page) {
	fmt.Fprintf(sb, "\n<span style=\"color: %s\">...</span>\n\n", p.fg.Hex())
}

func (p *page) gutterText(n, width int) string {
	s := fmt.Sprintf("%*d ", width, n)
	if p.nbsp {
		s = strings.ReplaceAll(s, " ", "&nbsp;")
	}
	return s
}

// writeLine writes the segments of l.  An annotation crossing lines is
// closed at the end of each line and reopened on the next.
func (p *page) writeLine(sb *strings.Builder, l style.Line) {
	p.openAnnotation = ""
	for i, seg := range l.Segments {
		if seg.AnnotationID != p.openAnnotation {
			p.closeAnnotation(sb)
			if seg.AnnotationID != "" {
				fmt.Fprintf(sb, `<span class="annotation" title="%s">`, html.EscapeString(p.comments[seg.AnnotationID]))
				p.openAnnotation = seg.AnnotationID
			}
		}
		p.writeSegment(sb, seg, i == 0)
		if seg.AnnotationEnd {
			p.closeAnnotation(sb)
		}
	}
	p.closeAnnotation(sb)
}

func (p *page) closeAnnotation(sb *strings.Builder) {
	if p.openAnnotation != "" {
		sb.WriteString("</span>")
		p.openAnnotation = ""
	}
}

func (p *page) writeSegment(sb *strings.Builder, seg style.Segment, lineStart bool) {
	text := encode(seg.Text, p.nbsp, lineStart)
	if text == "" {
		return
	}
	if seg.WhitespaceOnly {
		if seg.Highlighted {
			fmt.Fprintf(sb, `<span style="background-color: %s;">%s</span>`, p.tab.Highlight(seg.Style).Background.Hex(), text)
		} else {
			sb.WriteString(text)
		}
		return
	}
	rs := seg.Style
	if seg.Highlighted {
		rs = p.tab.Highlight(rs)
	}
	sb.WriteString(`<span style="`)
	if rs.Background != nil {
		fmt.Fprintf(sb, "background-color: %s; ", rs.Background.Hex())
	}
	fmt.Fprintf(sb, "color: %s;", rs.Foreground.Hex())
	if rs.Bold {
		sb.WriteString(" font-weight: bold;")
	}
	if rs.Italic {
		sb.WriteString(" font-style: italic;")
	}
	if rs.Underline {
		sb.WriteString(" text-decoration: underline;")
	}
	sb.WriteString(`">`)
	sb.WriteString(text)
	sb.WriteString("</span>")
}

// encode escapes s for HTML, writing non-ASCII runes as character
// references.  With nbsp set, a space followed by another space becomes
// &nbsp;, as does a space opening the line.
func encode(s string, nbsp, lineStart bool) string {
	var sb strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		switch {
		case r == '&':
			sb.WriteString("&amp;")
		case r == '<':
			sb.WriteString("&lt;")
		case r == '>':
			sb.WriteString("&gt;")
		case r == '"':
			sb.WriteString("&quot;")
		case r == ' ' && nbsp && ((i == 0 && lineStart) || (i+1 < len(rs) && rs[i+1] == ' ')):
			sb.WriteString("&nbsp;")
		case r > 0x7e:
			fmt.Fprintf(&sb, "&#%d;", r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func writeCommentTable(sb *strings.Builder, res *export.Result) {
	if len(res.Annotations) == 0 {
		return
	}
	sb.WriteString(`<div id="comment_list"><table id="comment_table"><tr><th>Line/Col</th><th>Comments</th></tr>`)
	sb.WriteString("\n")
	for _, a := range res.Annotations {
		fmt.Fprintf(sb, `<tr><td class="annotation_link"><a href="#C_%d_%d">Line %d Col %d</a></td><td class="annotation_comment">%s</td></tr>`+"\n",
			a.Block, a.Line, a.Line, a.Column, html.EscapeString(a.Comment))
	}
	sb.WriteString("</table></div>\n")
}
