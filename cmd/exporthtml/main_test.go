package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptaffe/exporthtml/internal/export"
)

const goSource = "package main\n\n// hello\nfunc main() {\n\tprintln(\"<hi>\")\n}\n"

// run executes the CLI in an empty home and working directory and returns
// what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestHTML(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	out := filepath.Join(t.TempDir(), "main.html")
	_, err := run(t, "html", src, "--theme", "monokai", "-o", out)
	require.NoError(t, err)

	page, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<!DOCTYPE html>")
	assert.Contains(t, string(page), "&lt;hi&gt;")
	assert.Contains(t, string(page), `id="L_0_6"`)
	assert.Contains(t, string(page), "color: #75715E;")
}

func TestHTMLCodeModeFlags(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	out, err := run(t, "html", src, "--table-mode=false", "--header=false", "--numbers=false")
	require.NoError(t, err)
	assert.Contains(t, out, `<pre class="code_page">`)
	assert.NotContains(t, out, `id="file_info"`)
	assert.NotContains(t, out, `id="L_0_1"`)
}

func TestBBCodeSelection(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	out, err := run(t, "bbcode", src, "--select", "14:22")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "[pre="))
	assert.Contains(t, out, "// hello")
	assert.NotContains(t, out, "package")
	assert.Contains(t, out, " 3 [/color]")
}

func TestAnnotations(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	notes := writeFile(t, "notes.yaml", "- start: 0\n  end: 7\n  comment: the package clause\n")
	out, err := run(t, "html", src, "--annotations", notes)
	require.NoError(t, err)
	assert.Contains(t, out, `title="the package clause"`)
	assert.Contains(t, out, "Line 1 Col 1")
}

func TestStylesAndFilter(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	theme := writeFile(t, "mine.styles", "@foreground #FF0000\n@background #FFFFFF\n:comment fg=#00FF00 italic\n")
	out, err := run(t, "styles", src, "--theme", theme, "--filter", "grayscale")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.True(t, strings.HasPrefix(lines[0], ":comment fg=#"))
	assert.NotEqual(t, ":comment fg=#00FF00 italic", lines[0], "grayscale applied")
	assert.Contains(t, out, " comment")
}

func TestScopesWithLayer(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	layer := writeFile(t, "semantic.layer", "@semantic\n8 4 entity.name.package\n")
	out, err := run(t, "scopes", src, "--layer", layer, "--layer-order", "semantic,lexer")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "@source.go\n0 7 keyword.control.import.go\n"))
	assert.Contains(t, out, "8 4 ")
	assert.Contains(t, out, "entity.name.package\n")
}

func TestANSI(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	out, err := run(t, "ansi", src, "--numbers=false")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestThemes(t *testing.T) {
	out, err := run(t, "themes")
	require.NoError(t, err)
	assert.Contains(t, strings.Fields(out), "monokai")
}

func TestErrors(t *testing.T) {
	src := writeFile(t, "main.go", goSource)
	tests := [][]string{
		{"html"},
		{"html", filepath.Join(t.TempDir(), "missing.go")},
		{"html", src, "--select", "5"},
		{"html", src, "--theme", "no-such-theme"},
		{"html", src, "--tab-size", "0"},
		{"html", src, "--filter", "blur(1)"},
		{"html", src, "--layer", filepath.Join(t.TempDir(), "missing.layer")},
	}
	for _, args := range tests {
		_, err := run(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestOutputRemovedOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.html")
	a := &app{out: path}

	w, done, err := a.output(newRootCmd())
	require.NoError(t, err)
	_, err = io.WriteString(w, "<!DOCTYPE")
	require.NoError(t, err)
	boom := errors.New("render failed")
	require.ErrorIs(t, done(boom), boom)
	assert.NoFileExists(t, path)

	w, done, err = a.output(newRootCmd())
	require.NoError(t, err)
	_, err = io.WriteString(w, "ok")
	require.NoError(t, err)
	require.NoError(t, done(nil))
	assert.FileExists(t, path)
}

func TestParseSelections(t *testing.T) {
	sels, err := parseSelections([]string{"1:4", " 10 : 20 "})
	require.NoError(t, err)
	require.Equal(t, []export.Selection{{Start: 1, End: 4}, {Start: 10, End: 20}}, sels)

	for _, bad := range []string{"4", "a:1", "1:b", "5:2", "-1:3"} {
		_, err := parseSelections([]string{bad})
		assert.Error(t, err, bad)
	}
}
