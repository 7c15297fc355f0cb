package rgba

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is one named color transform, optionally parameterized.
type Filter struct {
	Name string
	Arg  float64
}

// Filters is an ordered filter chain.
type Filters []Filter

var filterArity = map[string]bool{
	"grayscale":  false,
	"sepia":      false,
	"invert":     false,
	"brightness": true,
	"saturation": true,
}

// ParseFilters reads a chain such as "grayscale;brightness(1.1);saturation(0.8)".
// Empty entries are ignored.
func ParseFilters(s string) (Filters, error) {
	var fs Filters
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, arg, hasArg := part, "", false
		if i := strings.IndexByte(part, '('); i >= 0 {
			if !strings.HasSuffix(part, ")") {
				return nil, fmt.Errorf("filter %q: missing ')'", part)
			}
			name, arg, hasArg = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:len(part)-1]), true
		}
		name = strings.ToLower(name)
		wantArg, ok := filterArity[name]
		if !ok {
			return nil, fmt.Errorf("unknown color filter %q", name)
		}
		f := Filter{Name: name}
		switch {
		case wantArg && !hasArg:
			return nil, fmt.Errorf("filter %q needs an argument", name)
		case !wantArg && hasArg && arg != "":
			return nil, fmt.Errorf("filter %q takes no argument", name)
		case wantArg:
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", name, err)
			}
			if v < 0 {
				return nil, fmt.Errorf("filter %q: negative argument %v", name, v)
			}
			f.Arg = v
		}
		fs = append(fs, f)
	}
	return fs, nil
}

// Apply runs c through each filter in order.
func (fs Filters) Apply(c Color) Color {
	for _, f := range fs {
		c = f.Apply(c)
	}
	return c
}

// Apply runs c through f.  brightness(x) targets luminance*x.
func (f Filter) Apply(c Color) Color {
	switch f.Name {
	case "grayscale":
		return Grayscale(c)
	case "sepia":
		return Sepia(c)
	case "invert":
		return Invert(c)
	case "brightness":
		l := luma(float64(c.R), float64(c.G), float64(c.B))
		return Brightness(c, l*f.Arg-l)
	case "saturation":
		return Saturation(c, f.Arg)
	}
	return c
}

func (f Filter) String() string {
	if filterArity[f.Name] {
		return f.Name + "(" + strconv.FormatFloat(f.Arg, 'g', -1, 64) + ")"
	}
	return f.Name
}

func (fs Filters) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, ";")
}
