package render

import (
	"fmt"
	"io"

	"github.com/cptaffe/exporthtml/internal/export"
	"github.com/cptaffe/exporthtml/style"
)

// Styles dumps the theme rules and segment table in the style.Format text
// form, for checking a theme against a buffer.
type Styles struct{}

func (Styles) FileExtension() string { return ".styles" }

func (Styles) Render(w io.Writer, res *export.Result) error {
	if res == nil || res.Theme == nil {
		return fmt.Errorf("render: empty result")
	}
	var lines []style.Line
	for _, b := range res.Blocks {
		lines = append(lines, b.Lines...)
	}
	_, err := io.WriteString(w, style.Format(res.Theme.Rules(), lines))
	return err
}
