package postprocess

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	labelColon = regexp.MustCompile(`(\p{L}+):`)
	slashPair  = regexp.MustCompile(`(\p{L}+)/(\p{L}+)`)
	dashJoined = regexp.MustCompile(`([\p{L}\p{N}]+)-([\p{L}\p{N}]+)`)
	digitRun   = regexp.MustCompile(`\b\d{4,}\b`)
)

const (
	maxPasses   = 8
	maskDigit   = "X"
	longRunSize = 8
)

// SymbolCleaner removes punctuation that is not spoken aloud. Sentence
// punctuation (. , ? !) is kept.
type SymbolCleaner struct {
	orReplacement string
}

func NewSymbolCleaner(orWord string) *SymbolCleaner {
	if orWord == "" {
		orWord = "or"
	}
	return &SymbolCleaner{orReplacement: "${1} " + orWord + " ${2}"}
}

// Clean drops label colons ("Ref:" -> "Ref"), joins slash pairs with the
// locale's "or" word and turns dash-joined codes into space-joined ones.
// Chained forms like "IP-2024-8847362" are rewritten until stable.
func (c *SymbolCleaner) Clean(text string) string {
	text = labelColon.ReplaceAllString(text, "${1}")
	text = replaceUntilStable(slashPair, text, c.orReplacement)
	return replaceUntilStable(dashJoined, text, "${1} ${2}")
}

func replaceUntilStable(re *regexp.Regexp, text, repl string) string {
	for range maxPasses {
		next := re.ReplaceAllString(text, repl)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// Redactor partially masks long digit runs such as phone and IC numbers.
type Redactor struct {
	markers []string
}

func NewRedactor(markers []string) *Redactor {
	return &Redactor{markers: markers}
}

// Redact masks every run of four or more digits that is not a currency
// amount. The first three digits stay visible, four when the run is longer
// than eight digits; the rest become X.
func (r *Redactor) Redact(text string) string {
	locs := digitRun.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	var sb strings.Builder
	prev := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		sb.WriteString(text[prev:start])
		run := text[start:end]
		if r.isAmount(text[:start]) {
			sb.WriteString(run)
		} else {
			sb.WriteString(MaskDigits(run))
		}
		prev = end
	}
	sb.WriteString(text[prev:])
	return sb.String()
}

// isAmount reports whether before ends with a currency marker, allowing
// whitespace between the marker and the number.
func (r *Redactor) isAmount(before string) bool {
	trimmed := strings.TrimRightFunc(before, unicode.IsSpace)
	for _, m := range r.markers {
		if m == "" || !strings.HasSuffix(trimmed, m) {
			continue
		}
		// "RM" must not be the tail of a longer word such as "FIRM".
		rest := strings.TrimSuffix(trimmed, m)
		if prev, _ := utf8.DecodeLastRuneInString(rest); unicode.IsLetter(prev) && unicode.IsLetter(firstRune(m)) {
			continue
		}
		return true
	}
	return false
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

// MaskDigits masks a digit run; runs shorter than four are returned as is.
func MaskDigits(run string) string {
	if len(run) < 4 {
		return run
	}
	visible := 3
	if len(run) > longRunSize {
		visible = 4
	}
	return run[:visible] + strings.Repeat(maskDigit, len(run)-visible)
}
