// Package report renders analysis results for terminals, files and chat.
package report

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stellarlinkco/chatstats/internal/stats"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is the outcome of one analysis run.
type Report struct {
	Transcript  string            `json:"transcript" yaml:"transcript"`
	Chat        string            `json:"chat,omitempty" yaml:"chat,omitempty"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	TopUsers    []stats.UserCount `json:"top_users" yaml:"top_users"`
	Summary     *stats.Summary    `json:"summary,omitempty" yaml:"summary,omitempty"`
	WordCloud   string            `json:"wordcloud,omitempty" yaml:"wordcloud,omitempty"`
}

// Write renders r in the given format.
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return r.writeText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func (r *Report) writeText(w io.Writer) error {
	title := r.Chat
	if title == "" {
		title = r.Transcript
	}
	fmt.Fprintf(w, "Chat: %s\n", title)

	if r.Summary != nil {
		s := r.Summary
		fmt.Fprintf(w, "Messages: %d (%d plain text), senders: %d\n", s.Messages, s.PlainMessages, s.Senders)
		fmt.Fprintf(w, "Questions: %d, replies: %d, answers: %d\n", s.Questions, s.Replies, s.Answers)
	}

	switch {
	case r.Summary == nil && len(r.TopUsers) == 0:
		// ranking skipped
	case len(r.TopUsers) == 0:
		fmt.Fprintln(w, "Top answerers: none")
	default:
		fmt.Fprintln(w, "Top answerers:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for i, u := range r.TopUsers {
			fmt.Fprintf(tw, "  %d.\t%s\t%d\n", i+1, u.Sender, u.Count)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if r.WordCloud != "" {
		fmt.Fprintf(w, "Word cloud: %s\n", r.WordCloud)
	}
	return nil
}

// TelegramHTML renders the ranking using the HTML subset Telegram accepts.
func (r *Report) TelegramHTML() string {
	var sb strings.Builder
	title := r.Chat
	if title == "" {
		title = r.Transcript
	}
	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(title))
	if r.Summary != nil {
		fmt.Fprintf(&sb, "%d messages, %d questions, %d answers\n",
			r.Summary.Messages, r.Summary.Questions, r.Summary.Answers)
	}
	if len(r.TopUsers) == 0 {
		sb.WriteString("\nNo answered questions yet.")
		return sb.String()
	}
	sb.WriteString("\n<b>Top answerers</b>\n")
	for i, u := range r.TopUsers {
		fmt.Fprintf(&sb, "%d. %s: <code>%d</code>\n", i+1, html.EscapeString(u.Sender), u.Count)
	}
	return strings.TrimRight(sb.String(), "\n")
}
