package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TextKind tells which shape a message body was exported in.
type TextKind int

const (
	TextPlain TextKind = iota
	TextFragments
)

// FragmentKind tells which shape a single fragment has.
type FragmentKind int

const (
	// FragmentString is a bare JSON string inside the fragment list.
	FragmentString FragmentKind = iota
	// FragmentEntity is an object such as {"type":"bold","text":"hi"}.
	FragmentEntity
	// FragmentUnknown is any other JSON value. It contributes no characters.
	FragmentUnknown
)

// Fragment is one piece of a structured message body.
type Fragment struct {
	Kind    FragmentKind
	Type    string // entity type, empty for string fragments
	Text    string
	HasText bool
}

// Text is a message body: either a plain string or an ordered run of fragments.
type Text struct {
	Kind      TextKind
	Plain     string
	Fragments []Fragment
}

// PlainText builds a plain string body.
func PlainText(s string) Text {
	return Text{Kind: TextPlain, Plain: s}
}

// FragmentText builds a structured body.
func FragmentText(fragments ...Fragment) Text {
	return Text{Kind: TextFragments, Fragments: fragments}
}

// StringFragment builds a bare string fragment.
func StringFragment(s string) Fragment {
	return Fragment{Kind: FragmentString, Text: s, HasText: true}
}

// EntityFragment builds an object fragment carrying text.
func EntityFragment(entityType, text string) Fragment {
	return Fragment{Kind: FragmentEntity, Type: entityType, Text: text, HasText: true}
}

// IsPlain reports whether the body was exported as a flat string.
func (t Text) IsPlain() bool {
	return t.Kind == TextPlain
}

// Resolve flattens a body into a single string. Plain bodies are returned as is;
// fragments are concatenated in order without separators, and fragments without
// text are skipped.
func Resolve(t Text) string {
	if t.Kind == TextPlain {
		return t.Plain
	}
	var sb strings.Builder
	for _, f := range t.Fragments {
		if f.HasText {
			sb.WriteString(f.Text)
		}
	}
	return sb.String()
}

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("text is null")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = PlainText(s)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		fragments := make([]Fragment, 0, len(raw))
		for _, r := range raw {
			fragments = append(fragments, decodeFragment(r))
		}
		*t = FragmentText(fragments...)
		return nil
	default:
		return fmt.Errorf("text must be a string or a list, got %s", truncate(string(data), 20))
	}
}

func decodeFragment(raw json.RawMessage) Fragment {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Fragment{Kind: FragmentUnknown}
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Fragment{Kind: FragmentUnknown}
		}
		return StringFragment(s)
	case '{':
		var obj struct {
			Type string  `json:"type"`
			Text *string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			// e.g. "text" holding a non-string; treat as a marker with no text
			return Fragment{Kind: FragmentEntity}
		}
		f := Fragment{Kind: FragmentEntity, Type: obj.Type}
		if obj.Text != nil {
			f.Text = *obj.Text
			f.HasText = true
		}
		return f
	default:
		return Fragment{Kind: FragmentUnknown}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
