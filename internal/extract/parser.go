package extract

import (
	"strings"
	"unicode"
)

// Launch is the ticker and free text announced after the trigger phrase
type Launch struct {
	Symbol         string
	AdditionalText string
}

// ParseLaunch looks for "<trigger> ... $TICKER +remainder" in text.
//
// The trigger is compared case-insensitively. After the trigger, on the same
// line, every whitespace character directly followed by '$' opens a candidate
// ticker. The ticker is the longest run of non-space characters that is then
// followed by optional whitespace and a '+'. The remainder is the rest of that
// line, which must hold at least one character and is then trimmed, so an
// all-blank remainder yields empty text. Candidates are tried left to right.
func ParseLaunch(trigger, text string) (Launch, bool) {
	runes := []rune(text)
	pattern := []rune(strings.ToLower(trigger))
	if len(pattern) == 0 {
		return Launch{}, false
	}

	for start := 0; start+len(pattern) <= len(runes); start++ {
		if !hasPrefixFold(runes[start:], pattern) {
			continue
		}
		if launch, ok := parseAfterTrigger(runes, start+len(pattern)); ok {
			return launch, true
		}
	}
	return Launch{}, false
}

func parseAfterTrigger(runes []rune, pos int) (Launch, bool) {
	for i := pos; i+1 < len(runes); i++ {
		if unicode.IsSpace(runes[i]) && runes[i+1] == '$' {
			if launch, ok := parseTicker(runes, i+2); ok {
				return launch, true
			}
		}
		// The gap between trigger and ticker never spans lines.
		if runes[i] == '\n' {
			return Launch{}, false
		}
	}
	return Launch{}, false
}

func parseTicker(runes []rune, start int) (Launch, bool) {
	end := start
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}

	for stop := end; stop > start; stop-- {
		plus := stop
		if stop == end {
			for plus < len(runes) && unicode.IsSpace(runes[plus]) {
				plus++
			}
		}
		if plus >= len(runes) || runes[plus] != '+' {
			continue
		}

		remainder := restOfLine(runes, plus+1)
		if remainder == "" {
			continue
		}
		return Launch{
			Symbol:         strings.ToUpper(string(runes[start:stop])),
			AdditionalText: strings.TrimSpace(remainder),
		}, true
	}
	return Launch{}, false
}

func restOfLine(runes []rune, start int) string {
	end := start
	for end < len(runes) && runes[end] != '\n' {
		end++
	}
	return string(runes[start:end])
}

func hasPrefixFold(runes, prefix []rune) bool {
	if len(runes) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if unicode.ToLower(runes[i]) != r {
			return false
		}
	}
	return true
}
