package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

var sentenceEnd = regexp.MustCompile(`([!.?؟⸮]+)[ \t\n]+|\n+`)

// Segmenter splits text into sentences.
type Segmenter struct{}

// Sentences splits after runs of terminal punctuation followed by
// whitespace, and at line breaks. The punctuation stays with its sentence.
func (Segmenter) Sentences(text string) []string {
	var out []string
	last := 0
	for _, m := range sentenceEnd.FindAllStringSubmatchIndex(text, -1) {
		end := m[0]
		if m[2] >= 0 {
			end = m[3]
		}
		if s := strings.TrimSpace(text[last:end]); s != "" {
			out = append(out, s)
		}
		last = m[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

// Tokenizer splits text into words.
type Tokenizer struct{}

// Words returns runs of letters, marks, digits, '_' and ZWNJ as words. Any
// other non-space rune is returned as a token of its own.
func (Tokenizer) Words(text string) []string {
	var tokens []string
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, trimJoiners(text[start:i]))
			start = -1
		}
		if !unicode.IsSpace(r) {
			tokens = append(tokens, string(r))
		}
	}
	if start >= 0 {
		tokens = append(tokens, trimJoiners(text[start:]))
	}
	return filterEmpty(tokens)
}

func isWordRune(r rune) bool {
	return r == '_' || r == zwnj || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r)
}

// trimJoiners drops ZWNJ at word edges; it only has meaning inside a word.
func trimJoiners(w string) string {
	return strings.Trim(w, string(zwnj))
}

func filterEmpty(tokens []string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
