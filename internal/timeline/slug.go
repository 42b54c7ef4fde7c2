package timeline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// danishLower performs locale-aware case folding for scene identifiers.
// The festival data is Danish, so å/ø/æ survive folding and are substituted
// explicitly below.
var danishLower = cases.Lower(language.Danish)

// Slugify normalizes a scene identifier for matching: case-folded,
// Danish letters substituted with ASCII, runs of non-alphanumerics
// collapsed to a single "-", leading/trailing separators trimmed.
//
// Both sides of a match go through this, so "Main Stage" and "main stage"
// resolve to the same column and "Bøgescenen" matches "bogescenen".
func Slugify(s string) string {
	s = danishLower.String(s)
	s = strings.NewReplacer("å", "a", "ø", "o", "æ", "ae").Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	return b.String()
}
