package stats

import (
	"sort"

	"github.com/stellarlinkco/chatstats/internal/transcript"
)

// UserCount is one row of the answerer ranking.
type UserCount struct {
	Sender string `json:"sender" yaml:"sender"`
	Count  int    `json:"count" yaml:"count"`
}

// Answerers lists, in transcript order, the sender of every reply whose
// target message asked a question. A sender appears once per answer.
// Replies without a sender, such as those from deleted accounts, are skipped.
func Answerers(t *transcript.Transcript) []string {
	if t == nil {
		return nil
	}
	flags := QuestionFlags(t)

	var answerers []string
	for _, msg := range t.Messages {
		target, ok := msg.ReplyTarget()
		if !ok {
			continue
		}
		if !flags.IsQuestion(target) {
			continue
		}
		sender := msg.Sender()
		if sender == "" {
			continue
		}
		answerers = append(answerers, sender)
	}
	return answerers
}

// TopUsers ranks senders by how many questions they answered. Counts are
// descending; equal counts keep the order in which senders first answered.
// At most topN rows are returned.
func TopUsers(t *transcript.Transcript, topN int) []UserCount {
	if topN <= 0 {
		return []UserCount{}
	}
	return rank(Answerers(t), topN)
}

func rank(entries []string, topN int) []UserCount {
	index := make(map[string]int)
	counts := make([]UserCount, 0)
	for _, sender := range entries {
		i, ok := index[sender]
		if !ok {
			i = len(counts)
			index[sender] = i
			counts = append(counts, UserCount{Sender: sender})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > topN {
		counts = counts[:topN]
	}
	return counts
}
