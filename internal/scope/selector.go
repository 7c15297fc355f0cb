package scope

import "strings"

// maxDepth caps the stack depth used for weighting so scores fit in an int.
const maxDepth = 16

// Score returns the specificity of selector against a scope stack.
//
// A selector is a comma-separated list of alternatives; the best-scoring
// alternative wins.  Each alternative is a space-separated descendant path,
// optionally followed by " - " exclusions.  Path parts match stack entries in
// order, each as a dot-segment prefix ("string" matches "string.quoted"), and
// a matched part contributes its segment count weighted by 8^depth of the
// entry it matched.  0 means no match.
func Score(stack, selector string) int {
	scopes := strings.Fields(stack)
	best := 0
	for _, alt := range strings.Split(selector, ",") {
		if s := scoreAlternative(scopes, alt); s > best {
			best = s
		}
	}
	return best
}

func scoreAlternative(scopes []string, alt string) int {
	parts := strings.Split(alt, " - ")
	s := scorePath(scopes, strings.Fields(parts[0]))
	if s == 0 {
		return 0
	}
	for _, ex := range parts[1:] {
		if scorePath(scopes, strings.Fields(ex)) > 0 {
			return 0
		}
	}
	return s
}

// scorePath matches parts right to left so each part takes the deepest
// entry still available.
func scorePath(scopes, parts []string) int {
	if len(parts) == 0 {
		return 0
	}
	score := 0
	j := len(scopes) - 1
	for i := len(parts) - 1; i >= 0; i-- {
		for j >= 0 && !prefixMatch(parts[i], scopes[j]) {
			j--
		}
		if j < 0 {
			return 0
		}
		score += (strings.Count(parts[i], ".") + 1) * weight(j)
		j--
	}
	return score
}

func prefixMatch(part, scope string) bool {
	return scope == part || strings.HasPrefix(scope, part+".")
}

func weight(depth int) int {
	if depth > maxDepth {
		depth = maxDepth
	}
	return 1 << (3 * depth)
}
