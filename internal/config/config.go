// Package config provides the exporter's settings, their defaults and the
// viper wiring that fills them from a config file, the environment and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/cptaffe/exporthtml/internal/export"
	"github.com/cptaffe/exporthtml/internal/render"
	"github.com/cptaffe/exporthtml/rgba"
)

// EnvPrefix prefixes environment overrides, e.g. EXPORTHTML_TAB_SIZE.
const EnvPrefix = "EXPORTHTML"

// Settings holds every exporter option.
type Settings struct {
	TabSize             int    `mapstructure:"tab_size"`
	Numbers             bool   `mapstructure:"numbers"`
	TableMode           bool   `mapstructure:"table_mode"`
	Header              bool   `mapstructure:"header"`
	HighlightSelections bool   `mapstructure:"highlight_selections"`
	MultiSelect         bool   `mapstructure:"multi_select"`
	IgnoreSelections    bool   `mapstructure:"ignore_selections"`
	ValidSelectionSize  int    `mapstructure:"valid_selection_size"`
	Filter              string `mapstructure:"filter"`   // e.g. "grayscale;brightness(1.1)"
	Theme               string `mapstructure:"theme"`    // chroma style name or theme file
	Language            string `mapstructure:"language"` // "" guesses from file name and content
	DisableNbsp         bool   `mapstructure:"disable_nbsp"`
	DateTimeFormat      string `mapstructure:"date_time_format"` // strftime layout

	// LayerOrder ranks scope layers, highest priority first; "*" places
	// layers not named.  The lexer's layer is named "lexer".
	LayerOrder []string `mapstructure:"layer_order"`
	// Layers are scope layer files composed over the lexer's scopes.
	Layers []string `mapstructure:"layers"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Settings {
	return Settings{
		TabSize:            4,
		Numbers:            true,
		TableMode:          true,
		Header:             true,
		ValidSelectionSize: export.DefaultValidSelectionSize,
		Theme:              "monokai",
		DateTimeFormat:     render.DefaultDateTimeFormat,
	}
}

// SetDefaults registers Defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("tab_size", d.TabSize)
	v.SetDefault("numbers", d.Numbers)
	v.SetDefault("table_mode", d.TableMode)
	v.SetDefault("header", d.Header)
	v.SetDefault("highlight_selections", d.HighlightSelections)
	v.SetDefault("multi_select", d.MultiSelect)
	v.SetDefault("ignore_selections", d.IgnoreSelections)
	v.SetDefault("valid_selection_size", d.ValidSelectionSize)
	v.SetDefault("filter", d.Filter)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("language", d.Language)
	v.SetDefault("disable_nbsp", d.DisableNbsp)
	v.SetDefault("date_time_format", d.DateTimeFormat)
	v.SetDefault("layer_order", d.LayerOrder)
	v.SetDefault("layers", d.Layers)
}

// Load fills settings from v.  Config file lookup order:
//  1. file, if not empty
//  2. ./.exporthtml.yaml
//  3. ~/.config/exporthtml/config.yaml
//
// A missing config file is not an error unless file names it.
func Load(v *viper.Viper, file string) (Settings, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	switch {
	case file != "":
		v.SetConfigFile(file)
	case exists(".exporthtml.yaml"):
		v.SetConfigFile(".exporthtml.yaml")
	default:
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "exporthtml"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks settings for errors.
func (s Settings) Validate() error {
	if s.TabSize < 1 || s.TabSize > 32 {
		return fmt.Errorf("tab_size must be between 1 and 32, got %d", s.TabSize)
	}
	if s.ValidSelectionSize < 0 {
		return fmt.Errorf("valid_selection_size must not be negative, got %d", s.ValidSelectionSize)
	}
	if s.Theme == "" {
		return errors.New("theme is required")
	}
	if _, err := rgba.ParseFilters(s.Filter); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if s.Header && s.DateTimeFormat == "" {
		return errors.New("date_time_format is required with header")
	}
	for i, name := range s.LayerOrder {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("layer_order %d: name is required", i)
		}
	}
	return nil
}

// ExportOptions returns the block selection options.
func (s Settings) ExportOptions() export.Options {
	return export.Options{
		TabSize:             s.TabSize,
		IgnoreSelections:    s.IgnoreSelections,
		MultiSelect:         s.MultiSelect,
		HighlightSelections: s.HighlightSelections,
		ValidSelectionSize:  s.ValidSelectionSize,
	}
}

// HTML returns the configured HTML renderer.
func (s Settings) HTML() *render.HTML {
	return &render.HTML{
		TableMode:      s.TableMode,
		Numbers:        s.Numbers,
		Header:         s.Header,
		DisableNbsp:    s.DisableNbsp,
		DateTimeFormat: s.DateTimeFormat,
	}
}
