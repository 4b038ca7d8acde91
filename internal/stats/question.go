package stats

import (
	"strings"

	"github.com/stellarlinkco/chatstats/internal/transcript"
)

// questionMarks holds the Latin and the Arabic/Persian question mark.
const questionMarks = "?؟"

// IsQuestion reports whether text holds an interrogative sentence. A sentence
// is interrogative when it contains a question mark, so checking the whole
// text gives the same answer as checking sentence by sentence.
func IsQuestion(text string) bool {
	return strings.ContainsAny(text, questionMarks)
}

// Flags records, per message id, whether the message asked a question.
type Flags map[int64]bool

// IsQuestion looks up a message id. Ids that were never seen, such as
// dangling reply targets, are not questions.
func (f Flags) IsQuestion(id int64) bool {
	asked, ok := f[id]
	if !ok {
		return false
	}
	return asked
}

// QuestionFlags resolves every message and flags the ones asking a question.
func QuestionFlags(t *transcript.Transcript) Flags {
	if t == nil {
		return Flags{}
	}
	flags := make(Flags, len(t.Messages))
	for _, msg := range t.Messages {
		flags[msg.ID] = IsQuestion(transcript.Resolve(msg.Text))
	}
	return flags
}
