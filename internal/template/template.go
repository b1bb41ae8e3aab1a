// Package template implements the {{variable}} placeholder syntax used by
// prompt templates. Substitution is a single pass: inserted values are not
// re-scanned, and an unterminated {{ is left verbatim.
package template

import "strings"

// Render replaces every {{identifier}} placeholder in template with the
// matching value from data, or the empty string when the identifier is
// missing. Identifiers are whitespace-trimmed and matched non-greedily, so
// one placeholder never spans another.
func Render(template string, data map[string]string) string {
	if template == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			// unterminated placeholder, keep the tail as-is
			b.WriteString(rest)
			return b.String()
		}

		b.WriteString(rest[:open])
		name := strings.TrimSpace(rest[open+2 : open+2+end])
		b.WriteString(data[name])
		rest = rest[open+2+end+2:]
	}
}

// ExtractVariables returns the distinct placeholder identifiers referenced
// by template, in first-seen order. Callers must treat the result as a set.
func ExtractVariables(template string) []string {
	var names []string
	seen := make(map[string]struct{})

	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			return names
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			return names
		}

		name := strings.TrimSpace(rest[open+2 : open+2+end])
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		rest = rest[open+2+end+2:]
	}
}
