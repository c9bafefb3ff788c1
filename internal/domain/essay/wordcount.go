// Package essay provides text measurement helpers for writing submissions.
package essay

import (
	"regexp"
	"strings"
)

// wordPattern counts tokens the way IELTS examiners do: contractions,
// hyphenated words, numbers with decimals or thousand separators, and
// possessives each count once. Alternation order matters under
// leftmost-first matching.
var wordPattern = regexp.MustCompile(`(?:[a-zA-Z]+(?:'[a-zA-Z]+)*|\d+(?:[.,]\d+)*|[a-zA-Z]\.+)(?:-[a-zA-Z]+)*`)

// CountWords counts words in text using IELTS-compliant rules. This is the
// count enforced against a task's minimum at submit time.
func CountWords(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return len(wordPattern.FindAllString(text, -1))
}
