// Package theme resolves scopes to styles.
//
// A Table is built once per export run from a Spec: every color is parsed,
// translucent colors are flattened against the page background, and the
// optional filter chain is applied, so everything downstream of the table
// sees opaque colors only.  Resolutions are cached per exact scope string for
// the lifetime of the table.
package theme

import (
	"context"
	"errors"
	"fmt"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/cptaffe/exporthtml/internal/scope"
	"github.com/cptaffe/exporthtml/logger"
	"github.com/cptaffe/exporthtml/rgba"
	"github.com/cptaffe/exporthtml/style"
)

// Special color names.
const (
	Foreground          = "foreground"
	Background          = "background"
	Gutter              = "gutter"
	GutterForeground    = "gutterForeground"
	Selection           = "selection"
	SelectionForeground = "selectionForeground"
)

// ErrNegativeScore is returned by Resolve when the oracle reports a score
// below zero.
var ErrNegativeScore = errors.New("negative selector score")

// RuleSpec is a theme rule as written in a theme file.
type RuleSpec struct {
	Scope      string `toml:"scope" yaml:"scope"`
	Foreground string `toml:"foreground,omitempty" yaml:"foreground,omitempty"`
	Background string `toml:"background,omitempty" yaml:"background,omitempty"`
	FontStyle  string `toml:"font_style,omitempty" yaml:"font_style,omitempty"` // "bold italic underline"
}

// Spec is an unparsed theme.
type Spec struct {
	Name     string            `toml:"name" yaml:"name"`
	Filters  string            `toml:"filters,omitempty" yaml:"filters,omitempty"`
	Specials map[string]string `toml:"specials" yaml:"specials"`
	Rules    []RuleSpec        `toml:"rules" yaml:"rules"`
}

// Table is a parsed theme with a resolution cache.  A Table is not safe for
// concurrent use by multiple export runs; build one per run.
type Table struct {
	name     string
	rules    []style.ThemeRule
	exact    map[string]int
	specials map[string]rgba.Color
	cache    *gocache.Cache
	log      *zap.Logger
}

// New parses spec into a Table.  Any unparseable color aborts construction
// with an error matching rgba.ErrInvalidColorSpec.
func New(ctx context.Context, spec Spec) (*Table, error) {
	filters, err := rgba.ParseFilters(spec.Filters)
	if err != nil {
		return nil, fmt.Errorf("theme %q: %w", spec.Name, err)
	}

	t := &Table{
		name:     spec.Name,
		exact:    make(map[string]int),
		specials: make(map[string]rgba.Color),
		cache:    gocache.New(gocache.NoExpiration, 0),
		log:      logger.L(ctx).With(zap.String("theme", spec.Name)),
	}

	page := rgba.White
	if s, ok := spec.Specials[Background]; ok {
		c, err := rgba.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("theme %q: special %s: %w", spec.Name, Background, err)
		}
		page = rgba.CompositeOver(c, rgba.White)
	}
	flatten := func(s string) (rgba.Color, error) {
		c, err := rgba.Parse(s)
		if err != nil {
			return rgba.Color{}, err
		}
		return filters.Apply(rgba.CompositeOver(c, page)), nil
	}

	for name, s := range spec.Specials {
		if name == Background {
			continue
		}
		c, err := flatten(s)
		if err != nil {
			return nil, fmt.Errorf("theme %q: special %s: %w", spec.Name, name, err)
		}
		t.specials[name] = c
	}
	t.specials[Background] = filters.Apply(page)
	if _, ok := t.specials[Foreground]; !ok {
		t.specials[Foreground] = filters.Apply(rgba.Black)
	}
	fg, bg := t.specials[Foreground], t.specials[Background]
	if _, ok := t.specials[Gutter]; !ok {
		t.specials[Gutter] = bg
	}
	if _, ok := t.specials[GutterForeground]; !ok {
		t.specials[GutterForeground] = fg
	}
	if _, ok := t.specials[Selection]; !ok {
		t.specials[Selection] = rgba.CompositeOver(rgba.Color{R: fg.R, G: fg.G, B: fg.B, A: 0x40}, bg)
	}

	for i, rs := range spec.Rules {
		r := style.ThemeRule{Seq: i, Selector: rs.Scope}
		if rs.Foreground != "" {
			c, err := flatten(rs.Foreground)
			if err != nil {
				return nil, fmt.Errorf("theme %q: rule %d %q foreground: %w", spec.Name, i, rs.Scope, err)
			}
			r.Foreground = &c
		}
		if rs.Background != "" {
			c, err := flatten(rs.Background)
			if err != nil {
				return nil, fmt.Errorf("theme %q: rule %d %q background: %w", spec.Name, i, rs.Scope, err)
			}
			r.Background = &c
		}
		if err := applyFontStyle(&r, rs.FontStyle); err != nil {
			return nil, fmt.Errorf("theme %q: rule %d %q: %w", spec.Name, i, rs.Scope, err)
		}
		if _, ok := t.exact[r.Selector]; !ok {
			t.exact[r.Selector] = len(t.rules)
		}
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// Name returns the theme's name.
func (t *Table) Name() string { return t.name }

// Rules returns a copy of the parsed rules in registration order.
func (t *Table) Rules() []style.ThemeRule {
	return append([]style.ThemeRule(nil), t.rules...)
}

// Special returns a named special color.  Foreground, Background, Gutter,
// GutterForeground and Selection are always present; SelectionForeground
// only if the theme sets it.
func (t *Table) Special(name string) (rgba.Color, bool) {
	c, ok := t.specials[name]
	return c, ok
}

// Resolve returns the style for scope, the scope stack at pos.
//
// A rule whose selector equals scope wins outright.  Otherwise every rule is
// scored by oracle and the strictly highest score wins, so of equal scores
// the earliest-registered rule is kept.  With no positive score the page
// foreground is used with no background.
func (t *Table) Resolve(scopeName string, pos int, oracle scope.Oracle) (style.Resolved, error) {
	if v, ok := t.cache.Get(scopeName); ok {
		return v.(style.Resolved), nil
	}

	var win *style.ThemeRule
	if i, ok := t.exact[scopeName]; ok {
		win = &t.rules[i]
	} else {
		best := 0
		for i := range t.rules {
			s := oracle.Score(pos, t.rules[i].Selector)
			if s < 0 {
				return style.Resolved{}, fmt.Errorf("selector %q at %d scored %d: %w", t.rules[i].Selector, pos, s, ErrNegativeScore)
			}
			if s > best {
				best, win = s, &t.rules[i]
			}
		}
	}

	res := style.Resolved{Foreground: t.specials[Foreground]}
	if win != nil {
		res.Selector = win.Selector
		if win.Foreground != nil {
			res.Foreground = *win.Foreground
		}
		if win.Background != nil {
			bg := *win.Background
			res.Background = &bg
		}
		res.Bold, res.Italic, res.Underline = win.Bold, win.Italic, win.Underline
	}
	t.cache.Set(scopeName, res, gocache.NoExpiration)
	t.log.Debug("resolved scope", zap.String("scope", scopeName), zap.String("selector", res.Selector))
	return res, nil
}

// Highlight returns r as drawn inside a selection: the selection background,
// and the selection foreground if the theme sets one.
func (t *Table) Highlight(r style.Resolved) style.Resolved {
	bg := t.specials[Selection]
	r.Background = &bg
	if fg, ok := t.specials[SelectionForeground]; ok {
		r.Foreground = fg
	}
	return r
}
