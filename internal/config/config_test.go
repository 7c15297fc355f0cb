package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/cptaffe/exporthtml/internal/export"
)

// isolate points the home and working directories at an empty temp dir.
func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	s, err := Load(viper.New(), "")
	require.NoError(t, err)

	d := Defaults()
	require.Equal(t, d.TabSize, s.TabSize)
	require.Equal(t, d.Theme, s.Theme)
	require.Equal(t, d.DateTimeFormat, s.DateTimeFormat)
	require.True(t, s.TableMode)
	require.True(t, s.Numbers)
	require.Equal(t, export.DefaultValidSelectionSize, s.ValidSelectionSize)
	require.Empty(t, s.LayerOrder)
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tab_size: 8
theme: dracula
table_mode: false
filter: grayscale
layer_order: [semantic, "*", lexer]
layers: [a.layer]
`), 0o644))

	s, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, 8, s.TabSize)
	require.Equal(t, "dracula", s.Theme)
	require.False(t, s.TableMode)
	require.Equal(t, "grayscale", s.Filter)
	require.Equal(t, []string{"semantic", "*", "lexer"}, s.LayerOrder)
	require.Equal(t, []string{"a.layer"}, s.Layers)
	require.True(t, s.Header, "unset keys keep their defaults")
}

func TestLoadLocalFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".exporthtml.yaml"), []byte("multi_select: true\n"), 0o644))
	s, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.True(t, s.MultiSelect)
}

func TestLoadUserFile(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, ".config", "exporthtml")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("numbers: false\n"), 0o644))
	s, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.False(t, s.Numbers)
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("EXPORTHTML_TAB_SIZE", "2")
	t.Setenv("EXPORTHTML_THEME", "github")
	s, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, 2, s.TabSize)
	require.Equal(t, "github", s.Theme)
}

func TestLoadFlags(t *testing.T) {
	isolate(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("tab-size", 4, "")
	require.NoError(t, fs.Parse([]string{"--tab-size=3"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("tab_size", fs.Lookup("tab-size")))
	s, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, 3, s.TabSize)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)
	_, err := Load(viper.New(), filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tab_size: 0\n"), 0o644))
	_, err = Load(viper.New(), bad)
	require.ErrorContains(t, err, "tab_size")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"defaults", func(*Settings) {}, ""},
		{"tab too large", func(s *Settings) { s.TabSize = 64 }, "tab_size"},
		{"negative selection size", func(s *Settings) { s.ValidSelectionSize = -1 }, "valid_selection_size"},
		{"no theme", func(s *Settings) { s.Theme = "" }, "theme"},
		{"bad filter", func(s *Settings) { s.Filter = "blur(2)" }, "filter"},
		{"no date format", func(s *Settings) { s.DateTimeFormat = "" }, "date_time_format"},
		{"no date format without header", func(s *Settings) { s.DateTimeFormat = ""; s.Header = false }, ""},
		{"blank layer", func(s *Settings) { s.LayerOrder = []string{"lexer", " "} }, "layer_order 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestConversions(t *testing.T) {
	s := Defaults()
	s.MultiSelect = true
	s.DisableNbsp = true

	opts := s.ExportOptions()
	require.True(t, opts.MultiSelect)
	require.Equal(t, 4, opts.TabSize)

	h := s.HTML()
	require.True(t, h.TableMode)
	require.True(t, h.DisableNbsp)
	require.Equal(t, s.DateTimeFormat, h.DateTimeFormat)
}
