package wordcloud

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// wordPattern matches a word character followed by at least one more word
// character or apostrophe, so single letters are not counted.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_][\p{L}\p{M}\p{N}_'\x{200c}]+`)

// WordCount is one entry of a frequency table.
type WordCount struct {
	Word  string
	Count int
}

// Frequencies counts words in corpus. Purely numeric words and a trailing
// "'s" are dropped. The result keeps at most maxWords entries, most frequent
// first, ties in order of first appearance. maxWords <= 0 keeps everything.
func Frequencies(corpus string, maxWords int) []WordCount {
	index := make(map[string]int)
	var counts []WordCount
	for _, w := range wordPattern.FindAllString(corpus, -1) {
		w = strings.TrimSuffix(w, "'s")
		if w == "" || isNumeric(w) {
			continue
		}
		i, ok := index[w]
		if !ok {
			i = len(counts)
			index[w] = i
			counts = append(counts, WordCount{Word: w})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if maxWords > 0 && len(counts) > maxWords {
		counts = counts[:maxWords]
	}
	return counts
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func toMap(counts []WordCount) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Word] = c.Count
	}
	return m
}
