package scope

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLayer parses a scope layer file, the form Format writes:
//
//	# comments and blank lines are ignored
//	@semantic
//	10 3 variable.parameter
//
// An "@name" line names the layer; the last one wins.  Every other line is
// "start length scope" in rune offsets, where a '+' in scope separates
// stacked names.
func ParseLayer(content string) (Layer, error) {
	var l Layer
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "@") {
			if name := strings.TrimSpace(line[1:]); name != "" {
				l.Name = name
			}
			continue
		}
		sp, err := parseSpanLine(line)
		if err != nil {
			return Layer{}, fmt.Errorf("layer line %d: %w", i+1, err)
		}
		l.Spans = append(l.Spans, sp)
	}
	return l, nil
}

// parseSpanLine parses "start length scope".
func parseSpanLine(line string) (Span, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Span{}, fmt.Errorf("want \"start length scope\", got %q", line)
	}
	start, err := strconv.Atoi(fields[0])
	if err != nil || start < 0 {
		return Span{}, fmt.Errorf("bad start %q", fields[0])
	}
	length, err := strconv.Atoi(fields[1])
	if err != nil || length <= 0 {
		return Span{}, fmt.Errorf("bad length %q", fields[1])
	}
	return Span{Start: start, End: start + length, Scope: strings.ReplaceAll(fields[2], "+", " ")}, nil
}

// ParseOrder returns the layer names of the "@name" lines in content,
// highest priority first.  "*" stands for every layer not named.
func ParseOrder(content string) []string {
	var order []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "@") {
			if name := strings.TrimSpace(line[1:]); name != "" {
				order = append(order, name)
			}
		}
	}
	return order
}

// Format writes the spans overlapping [q0,q1) as a layer file named name,
// with offsets relative to q0.  Spans are clipped to the range.  A stacked
// scope is written with its parts joined by '+' so it stays one field.
func Format(name string, spans []Span, q0, q1 int) string {
	var sb strings.Builder
	if name != "" {
		fmt.Fprintf(&sb, "@%s\n", name)
	}
	for _, s := range spans {
		if s.End <= q0 || s.Start >= q1 {
			continue
		}
		start := max(s.Start, q0)
		end := min(s.End, q1)
		fmt.Fprintf(&sb, "%d %d %s\n", start-q0, end-start, strings.Join(strings.Fields(s.Scope), "+"))
	}
	return sb.String()
}
