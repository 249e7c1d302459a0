// Package corpus provides the external collaborators the similarity core
// consumes: text tokenisation, the line-oriented corpus file format, and
// ground-truth handling for evaluating scan output.
package corpus

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it on non-alphanumeric boundaries.
// No stemming or stop-word removal is applied: near-duplicate detection
// compares surface text, and collapsing word forms would inflate shingle
// overlap between unrelated documents.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
