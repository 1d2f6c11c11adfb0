package snippet

import (
	"regexp"
	"strings"
	"unicode"
)

// MinMatchLength is the shortest trimmed snippet worth searching for.
// Anything shorter would match essentially everywhere.
const MinMatchLength = 2

// stopwords are common English function words excluded from keyword matching
var stopwords = map[string]bool{
	"the": true, "and": true, "of": true, "in": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "this": true,
	"that": true, "was": true, "were": true, "been": true, "have": true,
	"has": true,
}

// Word is a single token of a snippet with its stopword flag
type Word struct {
	Text     string
	Stopword bool
}

// Normalized holds the matching-ready variants of a claimed source snippet.
// All variants must pass through regexp.QuoteMeta before being embedded in
// a pattern; Quoted* fields carry the escaped forms.
type Normalized struct {
	Raw      string
	Trimmed  string
	Folded   string // lower-cased
	Stripped string // punctuation removed, whitespace collapsed
	Words    []Word
	TooShort bool
}

// QuotedTrimmed returns the trimmed snippet with regex metacharacters escaped
func (n Normalized) QuotedTrimmed() string {
	return regexp.QuoteMeta(n.Trimmed)
}

// ContentWords returns the non-stopword tokens in order
func (n Normalized) ContentWords() []string {
	var out []string
	for _, w := range n.Words {
		if !w.Stopword {
			out = append(out, w.Text)
		}
	}
	return out
}

// WordTexts returns every token in order
func (n Normalized) WordTexts() []string {
	out := make([]string, len(n.Words))
	for i, w := range n.Words {
		out[i] = w.Text
	}
	return out
}

// Normalize prepares a claimed snippet for the match strategy chain.
// Callers must check TooShort and skip matching entirely when it is set;
// a zero- or one-character pattern would match everywhere.
func Normalize(raw string) Normalized {
	trimmed := strings.TrimSpace(raw)

	n := Normalized{
		Raw:     raw,
		Trimmed: trimmed,
		Folded:  strings.ToLower(trimmed),
	}

	if len(trimmed) < MinMatchLength {
		n.TooShort = true
		return n
	}

	n.Stripped = stripPunctuation(trimmed)

	for _, token := range splitWords(trimmed) {
		lower := strings.ToLower(token)
		n.Words = append(n.Words, Word{
			Text:     lower,
			Stopword: stopwords[lower],
		})
	}

	return n
}

// IsStopword reports whether a lower-case token is a stopword
func IsStopword(token string) bool {
	return stopwords[token]
}

// stripPunctuation removes punctuation and collapses runs of whitespace
func stripPunctuation(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation dropped
		}
	}
	return strings.TrimSpace(b.String())
}

// splitWords splits on any non-alphanumeric boundary
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
