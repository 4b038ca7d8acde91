package stats

import (
	"github.com/stellarlinkco/chatstats/internal/transcript"
)

// Summary holds headline counts for a transcript.
type Summary struct {
	Messages          int `json:"messages" yaml:"messages"`
	PlainMessages     int `json:"plain_messages" yaml:"plain_messages"`
	Questions         int `json:"questions" yaml:"questions"`
	QuestionSentences int `json:"question_sentences" yaml:"question_sentences"`
	Replies           int `json:"replies" yaml:"replies"`
	Answers           int `json:"answers" yaml:"answers"`
	Senders           int `json:"senders" yaml:"senders"`
}

func (s *Session) Summarize(t *transcript.Transcript) Summary {
	var sum Summary
	if t == nil {
		return sum
	}

	flags := QuestionFlags(t)
	senders := make(map[string]struct{})
	for _, msg := range t.Messages {
		sum.Messages++
		if msg.Text.IsPlain() {
			sum.PlainMessages++
		}
		if sender := msg.Sender(); sender != "" {
			senders[sender] = struct{}{}
		}

		if !flags.IsQuestion(msg.ID) {
			continue
		}
		sum.Questions++
		for _, sentence := range s.segmenter.Sentences(transcript.Resolve(msg.Text)) {
			if IsQuestion(sentence) {
				sum.QuestionSentences++
			}
		}
	}
	sum.Senders = len(senders)

	for _, msg := range t.Messages {
		target, ok := msg.ReplyTarget()
		if !ok {
			continue
		}
		sum.Replies++
		if flags.IsQuestion(target) {
			sum.Answers++
		}
	}
	return sum
}
