package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// controlCharRegex matches characters that would corrupt terminal output
var controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)

// Excerpt splits the recorded line of s into the text before the match, the
// match itself and the text after it, trimmed to roughly width runes of
// context on each side. Tabs become spaces and control characters are dropped.
func Excerpt(s MatchSpan, width int) (before, match, after string) {
	if s.Start < 0 || s.End() > len(s.Text) {
		return clean(s.Text), "", ""
	}
	before = clean(s.Text[:s.Start])
	match = clean(s.Text[s.Start:s.End()])
	after = clean(s.Text[s.End():])

	if width > 0 {
		if utf8.RuneCountInString(before) > width {
			r := []rune(before)
			before = "…" + strings.TrimLeft(string(r[len(r)-width:]), " ")
		} else {
			before = strings.TrimLeft(before, " ")
		}
		if utf8.RuneCountInString(after) > width {
			r := []rune(after)
			after = string(r[:width]) + "…"
		}
	}
	return before, match, after
}

// Highlight renders the excerpt of s with the match passed through mark
func Highlight(s MatchSpan, width int, mark func(string) string) string {
	before, match, after := Excerpt(s, width)
	return before + mark(match) + after
}

// Preview returns how the line of s would read with only s replaced
func Preview(m Matcher, s MatchSpan, replacement string) string {
	line, _ := m.Rewrite(s.Text, []MatchSpan{s}, replacement)
	return clean(line)
}

func clean(text string) string {
	text = strings.ReplaceAll(text, "\t", "    ")
	return controlCharRegex.ReplaceAllString(text, "")
}
