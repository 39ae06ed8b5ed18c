package access

import (
	"strings"
	"unicode"
)

// MagicWord is one line of the magic words file: "word[ group]", where the
// first run of spaces or tabs separates the word from the group name.
// Lines starting with '#' are inactive.
type MagicWord struct {
	Word   string
	Group  string
	Active bool
}

// ParseMagicWords parses magic-word file lines. Blank lines are skipped.
func ParseMagicWords(lines []string) []MagicWord {
	words := make([]MagicWord, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		active := !strings.HasPrefix(line, "#")
		if !active {
			line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
		word, group := line, ""
		if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
			word, group = line[:i], strings.TrimSpace(line[i:])
		}
		if word == "" {
			continue
		}
		words = append(words, MagicWord{Word: word, Group: group, Active: active})
	}
	return words
}

// NormalizeMagicWord lower-cases w and drops all whitespace.
func NormalizeMagicWord(w string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, w)
}
