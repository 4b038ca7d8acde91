package textproc

import (
	"strings"

	"github.com/01walid/goarabic"
	"golang.org/x/text/unicode/bidi"
)

// Shaper prepares Arabic-script text for renderers that draw glyphs left to
// right without contextual shaping.
type Shaper struct{}

// Reshape replaces letters with their contextual presentation forms.
func (Shaper) Reshape(text string) string {
	if !hasRTL(text) {
		return text
	}
	return goarabic.ToGlyph(text)
}

// RenderOrder converts logical order to visual order, line by line, using
// the Unicode bidirectional algorithm. Right-to-left runs are reversed and,
// when a line's first strong character is right-to-left, so is the order of
// its runs. Left-to-right runs such as Latin words and digits keep their order.
func (Shaper) RenderOrder(text string) string {
	if !hasRTL(text) {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = visualLine(line)
	}
	return strings.Join(lines, "\n")
}

func visualLine(line string) string {
	var p bidi.Paragraph
	if _, err := p.SetString(line); err != nil {
		return line
	}
	o, err := p.Order()
	if err != nil || o.NumRuns() == 0 {
		return line
	}

	runs := make([]string, o.NumRuns())
	for i := range runs {
		r := o.Run(i)
		s := r.String()
		if r.Direction() == bidi.RightToLeft {
			s = bidi.ReverseString(s)
		}
		runs[i] = s
	}
	if baseRTL(line) {
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	}
	return strings.Join(runs, "")
}

func isRTL(r rune) bool {
	p, _ := bidi.LookupRune(r)
	switch p.Class() {
	case bidi.R, bidi.AL:
		return true
	}
	return false
}

func hasRTL(s string) bool {
	for _, r := range s {
		if isRTL(r) {
			return true
		}
	}
	return false
}

func baseRTL(s string) bool {
	for _, r := range s {
		p, _ := bidi.LookupRune(r)
		switch p.Class() {
		case bidi.R, bidi.AL:
			return true
		case bidi.L:
			return false
		}
	}
	return false
}
