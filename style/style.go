// Package style defines the value types passed between the theme table, the
// line segmenter and the renderers.
//
// ThemeRule is what a theme file declares; Resolved is what a scope turns
// into once the table has picked a rule.  Segment and Line are the
// segmenter's output and are never mutated after they are produced.  Format
// serialises rules and segments into a compact text form, handy for debugging
// a theme against a buffer.
package style

import (
	"fmt"
	"strings"

	"github.com/cptaffe/exporthtml/rgba"
)

// ThemeRule is one selector-to-style mapping.  Seq is the rule's registration
// index; equal-score matches are broken in favour of the lower Seq.
type ThemeRule struct {
	Seq        int
	Selector   string      // e.g. "comment.line", "source.go string"
	Foreground *rgba.Color // nil: page foreground
	Background *rgba.Color // nil: no background
	Bold       bool
	Italic     bool
	Underline  bool
}

// Resolved is the style a scope resolves to.  Colors are always opaque.
type Resolved struct {
	Foreground rgba.Color
	Background *rgba.Color
	Bold       bool
	Italic     bool
	Underline  bool
	Selector   string // winning rule's selector, "" for the fallback
}

// Equal reports whether r and b render identically (Selector is ignored).
func (r Resolved) Equal(b Resolved) bool {
	if (r.Background == nil) != (b.Background == nil) {
		return false
	}
	if r.Background != nil && *r.Background != *b.Background {
		return false
	}
	return r.Foreground == b.Foreground &&
		r.Bold == b.Bold &&
		r.Italic == b.Italic &&
		r.Underline == b.Underline
}

// Segment is a styled run of one line.  Start and End are buffer rune
// offsets; End is exclusive.  Text is tab-expanded and never contains the
// line's newline.
type Segment struct {
	Start  int
	End    int // exclusive
	Column int // display column of Start within its line
	Text   string
	Style  Resolved

	Highlighted bool

	AnnotationID    string // "" outside annotations
	AnnotationStart bool   // first segment of the annotation
	AnnotationEnd   bool   // last segment of the annotation

	// WhitespaceOnly segments carry no style of their own; renderers emit
	// them as plain text.
	WhitespaceOnly bool
}

// Line is one buffer line of an export block.  Start and End cover the
// line including its newline, and the segments of a line cover [Start,End)
// exactly; the newline is counted in the last segment's range but not in its
// Text.
type Line struct {
	Number   int // 1-based buffer row
	Start    int
	End      int // exclusive
	Segments []Segment

	// ContinuesAnnotation is set when the line begins inside an annotation
	// opened on an earlier line.
	ContinuesAnnotation bool
}

// Text returns the line's tab-expanded text.
func (l Line) Text() string {
	var sb strings.Builder
	for _, s := range l.Segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// AnnotationEntry is one row of the annotation table: where an annotation
// was first rendered and what it says.
type AnnotationEntry struct {
	ID      string
	Block   int // 0-based export block
	Line    int // 1-based buffer row
	Column  int // 1-based display column
	Comment string
}

// Format serialises rules and line segments into a line-oriented text form:
//
//	:comment.line fg=#75715E italic
//	0 12 comment.line
//
// Rule lines carry the selector and its attributes; segment lines carry the
// start offset, the rune length and the winning selector ("-" when no rule
// matched, "~" for unstyled whitespace).
func Format(rules []ThemeRule, lines []Line) string {
	var sb strings.Builder
	for _, r := range rules {
		writeRuleLine(&sb, r)
	}
	for _, l := range lines {
		for _, s := range l.Segments {
			name := s.Style.Selector
			switch {
			case s.WhitespaceOnly:
				name = "~"
			case name == "":
				name = "-"
			}
			fmt.Fprintf(&sb, "%d %d %s", s.Start, s.End-s.Start, name)
			if s.Highlighted {
				sb.WriteString(" hl")
			}
			if s.AnnotationID != "" {
				fmt.Fprintf(&sb, " @%s", s.AnnotationID)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func writeRuleLine(sb *strings.Builder, r ThemeRule) {
	fmt.Fprintf(sb, ":%s", r.Selector)
	if r.Foreground != nil {
		fmt.Fprintf(sb, " fg=%s", r.Foreground)
	}
	if r.Background != nil {
		fmt.Fprintf(sb, " bg=%s", r.Background)
	}
	if r.Bold {
		sb.WriteString(" bold")
	}
	if r.Italic {
		sb.WriteString(" italic")
	}
	if r.Underline {
		sb.WriteString(" underline")
	}
	sb.WriteByte('\n')
}
