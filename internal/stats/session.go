// Package stats computes chat statistics over a loaded transcript: who answers
// questions most often, and the normalized word corpus behind the word cloud.
//
// Every function here is pure with respect to the transcript. A Session can be
// shared by concurrent callers as long as its collaborators are safe for
// concurrent use, which the textproc implementations are.
package stats

import (
	"github.com/stellarlinkco/chatstats/internal/textproc"
)

// Normalizer canonicalizes script-specific character variants.
type Normalizer interface {
	Normalize(text string) string
}

// Tokenizer splits text into word tokens.
type Tokenizer interface {
	Words(text string) []string
}

// Segmenter splits text into sentences.
type Segmenter interface {
	Sentences(text string) []string
}

// Shaper reshapes and reorders right-to-left text for rendering.
type Shaper interface {
	Reshape(text string) string
	RenderOrder(text string) string
}

// Stopwords reports whether a token is excluded from the corpus. Contains is
// expected to normalize the token the way the set's entries were normalized.
type Stopwords interface {
	Contains(token string) bool
}

// Options configures a Session. Nil collaborators fall back to the textproc
// implementations; nil Stopwords filters nothing.
type Options struct {
	Normalizer Normalizer
	Tokenizer  Tokenizer
	Segmenter  Segmenter
	Shaper     Shaper
	Stopwords  Stopwords
}

// Session bundles the stopword set and text capabilities used by one
// analysis. It holds no mutable state.
type Session struct {
	normalizer Normalizer
	tokenizer  Tokenizer
	segmenter  Segmenter
	shaper     Shaper
	stopwords  Stopwords
}

func NewSession(opts Options) *Session {
	s := &Session{
		normalizer: opts.Normalizer,
		tokenizer:  opts.Tokenizer,
		segmenter:  opts.Segmenter,
		shaper:     opts.Shaper,
		stopwords:  opts.Stopwords,
	}
	if s.normalizer == nil {
		s.normalizer = textproc.NewNormalizer()
	}
	if s.tokenizer == nil {
		s.tokenizer = textproc.Tokenizer{}
	}
	if s.segmenter == nil {
		s.segmenter = textproc.Segmenter{}
	}
	if s.shaper == nil {
		s.shaper = textproc.Shaper{}
	}
	return s
}

func (s *Session) isStopword(token string) bool {
	return s.stopwords != nil && s.stopwords.Contains(token)
}
