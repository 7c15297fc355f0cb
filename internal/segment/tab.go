package segment

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// DefaultTabSize is used when Options.TabSize is not positive.
const DefaultTabSize = 4

// Expander expands tabs against display columns.  Wide runes count as their
// terminal width.
type Expander struct {
	width int
}

// NewExpander returns an Expander with the given tab width.
func NewExpander(width int) Expander {
	if width < 1 {
		width = DefaultTabSize
	}
	return Expander{width: width}
}

// NextTabStop returns the first tab stop after col.
func (e Expander) NextTabStop(col int) int {
	return col + e.width - col%e.width
}

// Expand replaces tabs in s, which starts at display column col, and
// returns the expanded text and the column after it.
func (e Expander) Expand(s string, col int) (string, int) {
	if !strings.ContainsRune(s, '\t') {
		for _, r := range s {
			col += runewidth.RuneWidth(r)
		}
		return s, col
	}
	var sb strings.Builder
	sb.Grow(len(s) + e.width)
	for _, r := range s {
		if r == '\t' {
			next := e.NextTabStop(col)
			sb.WriteString(strings.Repeat(" ", next-col))
			col = next
			continue
		}
		sb.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return sb.String(), col
}

// Width returns the display width of s starting at column col.
func (e Expander) Width(s string, col int) int {
	_, end := e.Expand(s, col)
	return end - col
}
