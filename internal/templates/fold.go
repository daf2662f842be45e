package templates

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var numbering = regexp.MustCompile(`^(?:(?:section|part|step)\s+)?(?:\d+(?:\.\d+)*|[ivxlc]+|[a-z])\s*[.):\-–]\s+|^\d+(?:\.\d+)*\s+`)

// FoldSection normalises a section name or heading for comparison: case
// folding, numbering and punctuation removal, "&" to "and", and naive singular
// forms. Two names with the same fold are the same section.
func FoldSection(text string) string {
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "*_#:"))
	text = cases.Fold().String(text)
	for {
		stripped := numbering.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = stripped
	}
	text = strings.ReplaceAll(text, "&", " and ")
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = singular(f)
	}
	return strings.Join(fields, " ")
}

func singular(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	default:
		return word
	}
}
