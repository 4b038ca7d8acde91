// Package textproc holds the script-aware text capabilities the analytics
// pipelines depend on: normalization, sentence and word segmentation, and
// reshaping of Arabic-script text for rendering.
package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	zwnj    = '‌'
	tatweel = 'ـ'
)

var spaceRun = regexp.MustCompile(`[ \t\r\n\f\v\x{00a0}]+`)

// letterFolds maps Arabic code points to their Persian counterparts.
var letterFolds = map[rune]rune{
	'ك': 'ک',
	'ي': 'ی',
	'ى': 'ی',
	'ە': 'ه',
}

// Normalizer canonicalizes Persian text.
type Normalizer struct {
	// PersianDigits folds ASCII and Arabic-Indic digits to Persian digits.
	PersianDigits bool
}

// NewNormalizer returns a Normalizer with digit folding enabled.
func NewNormalizer() *Normalizer {
	return &Normalizer{PersianDigits: true}
}

func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	t := transform.Chain(
		norm.NFC,
		runes.Remove(runes.Predicate(isDiacritic)),
		runes.Map(n.fold),
	)
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	out = spaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func (n *Normalizer) fold(r rune) rune {
	if f, ok := letterFolds[r]; ok {
		return f
	}
	if n.PersianDigits {
		switch {
		case r >= '0' && r <= '9':
			return '۰' + (r - '0')
		case r >= '٠' && r <= '٩':
			return '۰' + (r - '٠')
		}
	}
	return r
}

// isDiacritic matches Arabic harakat, the superscript alef and tatweel.
func isDiacritic(r rune) bool {
	switch {
	case r >= 'ً' && r <= 'ٟ':
		return true
	case r == 'ٰ', r == tatweel:
		return true
	}
	return false
}
