package stats

import (
	"strings"

	"github.com/stellarlinkco/chatstats/internal/transcript"
)

// BuildCorpus assembles the word cloud text. Only messages exported as a flat
// string take part; structured bodies are left out. Stopwords are dropped,
// each message contributes " " followed by its remaining tokens joined by
// single spaces, and the whole corpus is then normalized, reshaped and put in
// visual order.
func (s *Session) BuildCorpus(t *transcript.Transcript) string {
	if t == nil {
		return ""
	}

	var sb strings.Builder
	for _, msg := range t.Messages {
		if !msg.Text.IsPlain() {
			continue
		}
		tokens := s.tokenizer.Words(msg.Text.Plain)
		kept := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if s.isStopword(tok) {
				continue
			}
			kept = append(kept, tok)
		}
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(kept, " "))
	}

	corpus := s.normalizer.Normalize(sb.String())
	corpus = s.shaper.Reshape(corpus)
	return s.shaper.RenderOrder(corpus)
}
