package theme

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cptaffe/exporthtml/style"
)

// Load resolves a theme reference: a path to a theme file, or else the name
// of a built-in chroma style.
func Load(ref string) (Spec, error) {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".toml", ".yaml", ".yml", ".styles":
		return LoadFile(ref)
	}
	if _, err := os.Stat(ref); err == nil {
		return LoadFile(ref)
	}
	return FromChroma(ref)
}

// LoadFile reads a theme file, picking the format by extension: .toml,
// .yaml/.yml or .styles.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var spec Spec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&spec); err != nil {
			return Spec{}, fmt.Errorf("%s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return Spec{}, fmt.Errorf("%s: %w", path, err)
		}
	case ".styles":
		spec = ParseStyles(string(data))
	default:
		return Spec{}, fmt.Errorf("%s: unknown theme format %q", path, ext)
	}
	if spec.Name == "" {
		spec.Name = name
	}
	return spec, nil
}

// ParseStyles parses the compact line-oriented theme format:
//
//	# comment
//	@background #272822
//	@filters brightness(1.1)
//	:comment fg=#75715E italic
//	:source.go string fg=#E6DB74 bg=#272822 bold
//
// "@name value" lines set specials ("@name" and "@filters" are reserved);
// ":selector attrs" lines add rules in order.  The selector is every leading
// field that is not an attribute.  Malformed lines are skipped.
func ParseStyles(content string) Spec {
	spec := Spec{Specials: make(map[string]string)}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, ":"):
			if r, ok := parseRuleLine(line[1:]); ok {
				spec.Rules = append(spec.Rules, r)
			}
		case strings.HasPrefix(line, "@"):
			key, value, _ := strings.Cut(line[1:], " ")
			key, value = strings.TrimSpace(key), strings.TrimSpace(value)
			if key == "" || value == "" {
				continue
			}
			switch key {
			case "name":
				spec.Name = value
			case "filters":
				spec.Filters = value
			default:
				spec.Specials[key] = value
			}
		}
	}
	return spec
}

// parseRuleLine parses "selector [attr ...]" (after the leading ':' is
// stripped).
func parseRuleLine(line string) (RuleSpec, bool) {
	var r RuleSpec
	var sel, font []string
	for _, tok := range strings.Fields(line) {
		switch {
		case tok == "bold" || tok == "italic" || tok == "underline":
			font = append(font, tok)
		case strings.HasPrefix(tok, "fg="):
			r.Foreground = tok[3:]
		case strings.HasPrefix(tok, "bg="):
			r.Background = tok[3:]
		default:
			sel = append(sel, tok)
		}
	}
	if len(sel) == 0 {
		return RuleSpec{}, false
	}
	r.Scope = strings.Join(sel, " ")
	r.FontStyle = strings.Join(font, " ")
	return r, true
}

func applyFontStyle(r *style.ThemeRule, fontStyle string) error {
	for _, f := range strings.Fields(fontStyle) {
		switch f {
		case "bold":
			r.Bold = true
		case "italic":
			r.Italic = true
		case "underline":
			r.Underline = true
		default:
			return fmt.Errorf("unknown font style %q", f)
		}
	}
	return nil
}
