package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMalformedInput marks transcripts that are missing required data.
var ErrMalformedInput = errors.New("malformed transcript")

// MalformedInputError points at the offending message.
type MalformedInputError struct {
	Index  int // position in messages, -1 for the document itself
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedInput, e.Reason)
	}
	return fmt.Sprintf("%s: message %d: %s", ErrMalformedInput, e.Index, e.Reason)
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// Transcript is an exported chat. It is read-only once loaded.
type Transcript struct {
	Name     string    `json:"name,omitempty"`
	Type     string    `json:"type,omitempty"`
	ID       int64     `json:"id,omitempty"`
	Messages []Message `json:"messages"`
}

// Message is one exported chat message.
type Message struct {
	ID               int64  `json:"id"`
	Type             string `json:"type,omitempty"`
	Date             string `json:"date,omitempty"`
	From             string `json:"from,omitempty"`
	FromID           string `json:"from_id,omitempty"`
	Actor            string `json:"actor,omitempty"`
	ReplyToMessageID *int64 `json:"reply_to_message_id,omitempty"`
	Text             Text   `json:"text"`
}

// Sender returns the display name of whoever produced the message. Service
// messages carry an actor instead of a sender.
func (m Message) Sender() string {
	if m.From != "" {
		return m.From
	}
	return m.Actor
}

// ReplyTarget returns the id of the message this one replies to.
func (m Message) ReplyTarget() (int64, bool) {
	if m.ReplyToMessageID == nil || *m.ReplyToMessageID == 0 {
		return 0, false
	}
	return *m.ReplyToMessageID, true
}

// ReplyTo is a helper for building replies in code.
func ReplyTo(id int64) *int64 {
	return &id
}

// Load reads a transcript export from disk.
func Load(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Decode parses a transcript export. Each message must carry an id and a text
// field; anything else is optional.
func Decode(r io.Reader) (*Transcript, error) {
	var doc struct {
		Name     string            `json:"name"`
		Type     string            `json:"type"`
		ID       int64             `json:"id"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &MalformedInputError{Index: -1, Reason: err.Error()}
	}
	if doc.Messages == nil {
		return nil, &MalformedInputError{Index: -1, Reason: "missing messages"}
	}

	t := &Transcript{
		Name:     doc.Name,
		Type:     doc.Type,
		ID:       doc.ID,
		Messages: make([]Message, 0, len(doc.Messages)),
	}
	for i, raw := range doc.Messages {
		msg, err := decodeMessage(raw)
		if err != nil {
			return nil, &MalformedInputError{Index: i, Reason: err.Error()}
		}
		t.Messages = append(t.Messages, msg)
	}
	return t, nil
}

func decodeMessage(raw json.RawMessage) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Message{}, err
	}
	if _, ok := fields["id"]; !ok {
		return Message{}, errors.New("missing id")
	}
	text, ok := fields["text"]
	if !ok || len(bytes.TrimSpace(text)) == 0 {
		return Message{}, errors.New("missing text")
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
