// Package scope provides the scope capabilities the exporter consumes: an
// Oracle that names the scope stack at a buffer position and scores theme
// selectors against it, and a Buffer of raw text.
//
// A scope stack is a space-separated list of dot-separated scope names,
// outermost first: "source.go string.quoted.double.go".
package scope

// Oracle answers scope queries for one buffer snapshot.  Both methods must
// be deterministic for a fixed snapshot.
type Oracle interface {
	// ScopeAt returns the scope stack at pos.
	ScopeAt(pos int) string
	// Score returns the specificity of selector against the scope stack at
	// pos; 0 means no match.
	Score(pos int, selector string) int
}

// Buffer is raw text addressed by rune offset.
type Buffer interface {
	Len() int
	Substr(start, end int) string
}

// Text is a Buffer over an in-memory string.
type Text []rune

// NewText returns s as a Buffer.
func NewText(s string) Text {
	return Text([]rune(s))
}

func (t Text) Len() int { return len(t) }

// Substr returns the text in [start,end), clipped to the buffer.
func (t Text) Substr(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(t) {
		end = len(t)
	}
	if start >= end {
		return ""
	}
	return string(t[start:end])
}

// RowCol returns the 0-based row and rune column of pos.
func RowCol(b Buffer, pos int) (row, col int) {
	if t, ok := b.(Text); ok {
		for i := 0; i < pos && i < len(t); i++ {
			if t[i] == '\n' {
				row++
				col = 0
			} else {
				col++
			}
		}
		return row, col
	}
	for _, r := range b.Substr(0, pos) {
		if r == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return row, col
}

// LineStart returns the offset of the first rune of the line containing pos.
func LineStart(b Buffer, pos int) int {
	for pos > 0 && b.Substr(pos-1, pos) != "\n" {
		pos--
	}
	return pos
}

// LineEnd returns the offset one past the newline ending the line that
// contains pos, or Len() for the final line.
func LineEnd(b Buffer, pos int) int {
	n := b.Len()
	for pos < n {
		if b.Substr(pos, pos+1) == "\n" {
			return pos + 1
		}
		pos++
	}
	return n
}
