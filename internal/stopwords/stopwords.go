// Package stopwords loads the set of low-information words excluded from
// word frequency output.
package stopwords

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed stopwords_fa.txt
var defaultList string

// Normalizer canonicalizes words so that lookups match regardless of
// character variants.
type Normalizer interface {
	Normalize(text string) string
}

// Set is an immutable set of normalized stopwords.
type Set struct {
	words map[string]struct{}
	norm  Normalizer
}

// Load reads one stopword per line. Blank lines and lines starting with '#'
// are skipped. Every entry is normalized with n.
func Load(r io.Reader, n Normalizer) (*Set, error) {
	s := &Set{words: make(map[string]struct{}), norm: n}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if w := s.normalize(line); w != "" {
			s.words[w] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stopwords: %w", err)
	}
	return s, nil
}

// LoadFile loads a stopword list from disk.
func LoadFile(path string, n Normalizer) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stopwords: %w", err)
	}
	defer f.Close()
	return Load(f, n)
}

// Default returns the embedded Persian stopword list.
func Default(n Normalizer) *Set {
	s, err := Load(strings.NewReader(defaultList), n)
	if err != nil {
		// reading from a string cannot fail
		panic(err)
	}
	return s
}

// New builds a set from words in memory.
func New(n Normalizer, words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words)), norm: n}
	for _, w := range words {
		if w = s.normalize(strings.TrimSpace(w)); w != "" {
			s.words[w] = struct{}{}
		}
	}
	return s
}

// Contains normalizes token the same way entries were normalized at load time
// and reports membership.
func (s *Set) Contains(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[s.normalize(token)]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

func (s *Set) normalize(w string) string {
	if s.norm == nil {
		return w
	}
	return s.norm.Normalize(w)
}
