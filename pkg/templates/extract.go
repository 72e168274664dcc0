package templates

import (
	"regexp"
	"sort"
)

// Placeholders are bare identifiers only. A dotted tail like {{item.name}}
// is tolerated by the scanner but only the leading identifier is reported,
// so {{item.name}} counts as a reference to "item".
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)((?:\.[a-zA-Z_][a-zA-Z0-9_]*)*)\s*\}\}`)

// ExtractVariables returns the distinct placeholder identifiers referenced
// by text, sorted lexicographically.
func ExtractVariables(text string) []string {
	return ExtractContentVariables("", text)
}

// ExtractContentVariables scans subject and body independently and returns
// the union of their placeholder identifiers, deduplicated and sorted.
func ExtractContentVariables(subject, body string) []string {
	seen := make(map[string]struct{})
	for _, text := range []string{subject, body} {
		if text == "" {
			continue
		}
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}
