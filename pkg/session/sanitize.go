package session

import (
	"strings"
	"unicode"
)

// maxFieldRunes caps project and task after stripping, before any
// duplicate check or persistence happens.
const maxFieldRunes = 100

func stripUnsafe(s string, keepLayout bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<', '>', '"', '\'', '&', '\\':
			continue
		}
		if unicode.IsControl(r) {
			if keepLayout && (r == '\n' || r == '\t') {
				b.WriteRune(r)
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeField canonicalizes a project or task name: unsafe characters
// stripped, surrounding whitespace trimmed, length capped. Validation and
// uniqueness are always evaluated on this form.
func SanitizeField(s string) string {
	s = strings.TrimSpace(stripUnsafe(s, false))
	runes := []rune(s)
	if len(runes) > maxFieldRunes {
		s = strings.TrimSpace(string(runes[:maxFieldRunes]))
	}
	return s
}

// SanitizeNotes strips the same unsafe characters but keeps newlines and
// tabs and applies no length cap.
func SanitizeNotes(s string) string {
	return strings.TrimSpace(stripUnsafe(s, true))
}

// timerKey folds case and whitespace so "Work / Email" and "work /EMAIL"
// identify the same timer.
func timerKey(project, task string) string {
	fold := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), "")
	}
	return fold(project) + ":" + fold(task)
}
