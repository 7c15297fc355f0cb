package theme

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/cptaffe/exporthtml/internal/scope"
)

// FromChroma builds a Spec from one of chroma's builtin styles, e.g.
// "monokai".  Each scoped token type becomes a rule; a rule only carries a
// background when it differs from the page background.
func FromChroma(name string) (Spec, error) {
	s := styles.Get(name)
	if s == nil || (s == styles.Fallback && !strings.EqualFold(name, styles.Fallback.Name)) {
		return Spec{}, fmt.Errorf("unknown chroma style %q", name)
	}

	page := s.Get(chroma.Background)
	spec := Spec{Name: s.Name, Specials: make(map[string]string)}
	if page.Colour.IsSet() {
		spec.Specials[Foreground] = page.Colour.String()
	}
	if page.Background.IsSet() {
		spec.Specials[Background] = page.Background.String()
	}
	if ln := s.Get(chroma.LineNumbers); ln.Colour.IsSet() {
		spec.Specials[GutterForeground] = ln.Colour.String()
		if ln.Background.IsSet() {
			spec.Specials[Gutter] = ln.Background.String()
		}
	}
	if hl := s.Get(chroma.LineHighlight); hl.Background.IsSet() {
		spec.Specials[Selection] = hl.Background.String()
	}

	for _, tt := range scope.TokenTypes() {
		e := s.Get(tt)
		r := RuleSpec{Scope: scope.TokenScope(tt)}
		if e.Colour.IsSet() {
			r.Foreground = e.Colour.String()
		}
		if e.Background.IsSet() && e.Background != page.Background {
			r.Background = e.Background.String()
		}
		var font []string
		if e.Bold == chroma.Yes {
			font = append(font, "bold")
		}
		if e.Italic == chroma.Yes {
			font = append(font, "italic")
		}
		if e.Underline == chroma.Yes {
			font = append(font, "underline")
		}
		r.FontStyle = strings.Join(font, " ")
		if r.Foreground == "" && r.Background == "" && r.FontStyle == "" {
			continue
		}
		spec.Rules = append(spec.Rules, r)
	}
	return spec, nil
}

// ChromaStyles lists the builtin style names.
func ChromaStyles() []string {
	return styles.Names()
}
