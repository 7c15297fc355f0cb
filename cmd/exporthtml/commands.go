package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cptaffe/exporthtml/internal/export"
	"github.com/cptaffe/exporthtml/internal/region"
	"github.com/cptaffe/exporthtml/internal/render"
	"github.com/cptaffe/exporthtml/internal/scope"
	"github.com/cptaffe/exporthtml/internal/theme"
	"github.com/cptaffe/exporthtml/logger"
)

func (a *app) htmlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "html FILE",
		Short: "Export FILE as a standalone HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.export(cmd, args[0], a.settings.HTML())
		},
	}
	f := cmd.Flags()
	f.Bool("table-mode", true, "lay lines out as table rows")
	f.Bool("header", true, "print the date and file name above the code")
	f.Bool("disable-nbsp", false, "keep runs of spaces as plain spaces")
	f.String("date-format", render.DefaultDateTimeFormat, "strftime layout of the header date")
	for key, name := range map[string]string{
		"table_mode":       "table-mode",
		"header":           "header",
		"disable_nbsp":     "disable-nbsp",
		"date_time_format": "date-format",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(name))
	}
	return cmd
}

func (a *app) bbcodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bbcode FILE",
		Short: "Export FILE as BBCode for forum posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.export(cmd, args[0], &render.BBCode{Numbers: a.settings.Numbers})
		},
	}
}

func (a *app) ansiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ansi FILE",
		Short: "Preview FILE's export in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.export(cmd, args[0], render.NewANSI(a.settings.Numbers))
		},
	}
}

func (a *app) stylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles FILE",
		Short: "Print the theme rules and the styled segments of FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.export(cmd, args[0], render.Styles{})
		},
	}
}

func (a *app) scopesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scopes FILE",
		Short: "Print the scope spans of FILE as a layer file",
		Long: `scopes prints the composed scope spans of each exported block in the
layer file form read by --layer, with offsets relative to the block.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sels, err := parseSelections(a.selects)
			if err != nil {
				return err
			}
			w, done, err := a.output(cmd)
			if err != nil {
				return err
			}
			for _, b := range export.Blocks(src.text.Len(), sels, a.settings.ExportOptions()) {
				if _, err := io.WriteString(w, scope.Format(src.oracle.Base(), src.oracle.Spans(), b.Start, b.End)); err != nil {
					return done(err)
				}
			}
			return done(nil)
		},
	}
}

func (a *app) themesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List the built-in themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range theme.ChromaStyles() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// source is a tokenized input file.
type source struct {
	text   scope.Text
	oracle *scope.Table
}

func (a *app) source(ctx context.Context, path string) (*source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := a.settings
	var overlays []scope.Layer
	for _, lp := range s.Layers {
		b, err := os.ReadFile(lp)
		if err != nil {
			return nil, err
		}
		l, err := scope.ParseLayer(string(b))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", lp, err)
		}
		if l.Name == "" {
			l.Name = lp
		}
		overlays = append(overlays, l)
	}

	text := string(data)
	lexer := scope.Lexer(s.Language, path, text)
	tab, err := scope.Tokenize(lexer, text, s.LayerOrder, overlays...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.L(ctx).Debug("tokenized",
		zap.String("file", path),
		zap.String("lang", scope.LanguageID(lexer)),
		zap.Int("spans", len(tab.Spans())))
	return &source{text: scope.NewText(text), oracle: tab}, nil
}

func (a *app) request(ctx context.Context, path string) (export.Request, error) {
	src, err := a.source(ctx, path)
	if err != nil {
		return export.Request{}, err
	}
	spec, err := theme.Load(a.settings.Theme)
	if err != nil {
		return export.Request{}, err
	}
	if f := a.settings.Filter; f != "" {
		spec.Filters = strings.Trim(spec.Filters+";"+f, ";")
	}
	sels, err := parseSelections(a.selects)
	if err != nil {
		return export.Request{}, err
	}
	var notes []region.Annotation
	if a.annotations != "" {
		f, err := os.Open(a.annotations)
		if err != nil {
			return export.Request{}, err
		}
		defer f.Close()
		if notes, err = export.ReadAnnotations(f); err != nil {
			return export.Request{}, fmt.Errorf("%s: %w", a.annotations, err)
		}
	}
	return export.Request{
		Title:       path,
		Buffer:      src.text,
		Oracle:      src.oracle,
		Theme:       spec,
		Selections:  sels,
		Annotations: notes,
		Options:     a.settings.ExportOptions(),
	}, nil
}

func (a *app) export(cmd *cobra.Command, path string, r export.Renderer) error {
	ctx := cmd.Context()
	req, err := a.request(ctx, path)
	if err != nil {
		return err
	}
	w, done, err := a.output(cmd)
	if err != nil {
		return err
	}
	res, err := (&export.Exporter{}).Write(ctx, w, r, req)
	if err := done(err); err != nil {
		return err
	}
	logger.L(ctx).Info("exported",
		zap.String("file", path),
		zap.String("run", res.RunID),
		zap.String("theme", res.Theme.Name()),
		zap.Int("blocks", len(res.Blocks)),
		zap.Int("annotations", len(res.Annotations)))
	return nil
}

// output returns where to write and a func that finishes the write given
// its error.  A failed write to --out removes the partial file.
func (a *app) output(cmd *cobra.Command) (io.Writer, func(error) error, error) {
	if a.out == "" {
		return cmd.OutOrStdout(), func(err error) error { return err }, nil
	}
	f, err := os.Create(a.out)
	if err != nil {
		return nil, nil, err
	}
	return f, func(err error) error {
		if err = errors.Join(err, f.Close()); err != nil {
			return errors.Join(err, os.Remove(f.Name()))
		}
		return nil
	}, nil
}

// parseSelections parses "start:end" rune ranges.
func parseSelections(args []string) ([]export.Selection, error) {
	var sels []export.Selection
	for _, arg := range args {
		lo, hi, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("selection %q: want start:end", arg)
		}
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("selection %q: %w", arg, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("selection %q: %w", arg, err)
		}
		if start < 0 || end < start {
			return nil, fmt.Errorf("selection %q: bad range", arg)
		}
		sels = append(sels, export.Selection{Start: start, End: end})
	}
	return sels, nil
}
