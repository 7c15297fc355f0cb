package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cptaffe/exporthtml/internal/config"
	"github.com/cptaffe/exporthtml/logger"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	v           *viper.Viper
	cfgFile     string
	verbose     bool
	selects     []string
	annotations string
	out         string

	settings config.Settings
	log      *zap.Logger
}

// flagKeys maps config keys to the persistent flags that override them.
var flagKeys = map[string]string{
	"theme":                "theme",
	"language":             "lang",
	"filter":               "filter",
	"tab_size":             "tab-size",
	"numbers":              "numbers",
	"multi_select":         "multi-select",
	"highlight_selections": "highlight-selections",
	"ignore_selections":    "ignore-selections",
	"valid_selection_size": "valid-selection-size",
	"layers":               "layer",
	"layer_order":          "layer-order",
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "exporthtml",
		Short: "Export syntax-highlighted source as HTML, BBCode or ANSI text",
		Long: `exporthtml tokenizes a source file, resolves every scope against a color
theme and writes the styled result.  Themes are chroma style names or
.toml, .yaml and .styles theme files.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ./.exporthtml.yaml, then ~/.config/exporthtml/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	pf.String("theme", "", "chroma style name or theme file")
	pf.String("lang", "", "source language (default: guessed from the file)")
	pf.String("filter", "", `color filters, e.g. "grayscale;brightness(1.1)"`)
	pf.Int("tab-size", 4, "tab width in columns")
	pf.Bool("numbers", true, "show line numbers")
	pf.Bool("multi-select", false, "export every selection as its own block")
	pf.Bool("highlight-selections", false, "export the whole file with selections highlighted")
	pf.Bool("ignore-selections", false, "export the whole file and ignore selections")
	pf.Int("valid-selection-size", 4, "smallest selection exported on its own")
	pf.StringArray("layer", nil, "scope layer file composed over the lexer's scopes (repeatable)")
	pf.StringSlice("layer-order", nil, `scope layer names, highest priority first ("lexer" is the lexer)`)
	pf.StringArrayVarP(&a.selects, "select", "s", nil, "rune range start:end to export or highlight (repeatable)")
	pf.StringVar(&a.annotations, "annotations", "", "YAML file of annotations")
	pf.StringVarP(&a.out, "out", "o", "", "output file (default: stdout)")
	for key, name := range flagKeys {
		_ = a.v.BindPFlag(key, pf.Lookup(name))
	}

	root.AddCommand(
		a.htmlCmd(),
		a.bbcodeCmd(),
		a.ansiCmd(),
		a.stylesCmd(),
		a.scopesCmd(),
		a.themesCmd(),
	)
	return root
}

// setup installs the logger and loads settings before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	l, err := logger.New(a.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(l)
	a.log = l
	cmd.SetContext(logger.NewContext(cmd.Context(), l))

	s, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.settings = s
	l.Debug("loaded settings",
		zap.String("config", a.v.ConfigFileUsed()),
		zap.String("theme", s.Theme),
		zap.Int("layers", len(s.Layers)))
	return nil
}
