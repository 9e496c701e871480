package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"
)

// RegexTimeout bounds a single regex evaluation
const RegexTimeout = time.Second

// guardedLineSize is the line length above which regex evaluation runs under
// RegexTimeout. RE2 is linear in its input, so shorter lines run inline.
const guardedLineSize = 64 * 1024

// ErrTimeout is returned by ExecuteWithTimeout when fn does not finish in time
var ErrTimeout = errors.New("operation timed out")

// Matcher finds pattern occurrences in one line and rewrites selected ones.
// A Matcher is chosen once per request and is safe for concurrent use.
type Matcher interface {
	// Match returns the non-overlapping spans of line in ascending offset order.
	Match(line string, lineNo int) []MatchSpan
	// Rewrite replaces the spans, sorted by Start, in one left-to-right pass
	// over line. Spans that no longer match are left untouched. It returns
	// the new line and the number of spans applied.
	Rewrite(line string, spans []MatchSpan, replacement string) (string, int)
	IsRegex() bool
	String() string
}

// NewMatcher compiles the matching strategy for a pattern
func NewMatcher(pattern string, regex, caseSensitive bool) (Matcher, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	if !regex {
		return &literalMatcher{pattern: pattern, caseSensitive: caseSensitive}, nil
	}

	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
	}
	return &regexMatcher{re: re, pattern: pattern, timeout: RegexTimeout}, nil
}

// ExecuteWithTimeout runs fn in its own goroutine and stops waiting after timeout.
// A panic inside fn is recovered and reported as an error.
func ExecuteWithTimeout(fn func(), timeout time.Duration) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		fn()
		done <- nil
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeout
	}
}

// literalMatcher compares with ordinal or simple case folding
type literalMatcher struct {
	pattern       string
	caseSensitive bool
}

func (m *literalMatcher) IsRegex() bool { return false }

func (m *literalMatcher) String() string {
	return fmt.Sprintf("literal %q", m.pattern)
}

func (m *literalMatcher) Match(line string, lineNo int) []MatchSpan {
	var spans []MatchSpan
	pos := 0
	for pos <= len(line) {
		start, end := m.index(line[pos:])
		if start < 0 {
			break
		}
		spans = append(spans, MatchSpan{
			Line:     lineNo,
			Text:     line,
			Start:    pos + start,
			Length:   end - start,
			Selected: true,
		})
		pos += end
	}
	return spans
}

// index returns the byte range of the first occurrence in s, or -1
func (m *literalMatcher) index(s string) (int, int) {
	if m.caseSensitive {
		i := strings.Index(s, m.pattern)
		if i < 0 {
			return -1, -1
		}
		return i, i + len(m.pattern)
	}
	for i := 0; i < len(s); {
		if n, ok := prefixFold(s[i:], m.pattern); ok {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// equal reports whether segment is exactly one occurrence of the pattern
func (m *literalMatcher) equal(segment string) bool {
	if m.caseSensitive {
		return segment == m.pattern
	}
	n, ok := prefixFold(segment, m.pattern)
	return ok && n == len(segment)
}

func (m *literalMatcher) Rewrite(line string, spans []MatchSpan, replacement string) (string, int) {
	var b strings.Builder
	b.Grow(len(line))

	cursor, applied := 0, 0
	for _, s := range spans {
		if s.Start < cursor || s.End() > len(line) || !m.equal(line[s.Start:s.End()]) {
			continue
		}
		b.WriteString(line[cursor:s.Start])
		b.WriteString(replacement)
		cursor = s.End()
		applied++
	}
	if applied == 0 {
		return line, 0
	}
	b.WriteString(line[cursor:])
	return b.String(), applied
}

// prefixFold reports whether s starts with pattern under simple case folding
// and returns the number of bytes of s consumed.
func prefixFold(s, pattern string) (int, bool) {
	i := 0
	for _, pr := range pattern {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if !equalFoldRune(sr, pr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	if a < utf8.RuneSelf && b < utf8.RuneSelf {
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		return a == b
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

// regexMatcher uses RE2 with case folding at the option level
type regexMatcher struct {
	re       *regexp.Regexp
	pattern  string
	timeout  time.Duration
	timeouts atomic.Int64
}

// Timeouts returns how many evaluations were abandoned after RegexTimeout
func (m *regexMatcher) Timeouts() int64 {
	return m.timeouts.Load()
}

func (m *regexMatcher) IsRegex() bool { return true }

func (m *regexMatcher) String() string {
	return fmt.Sprintf("regex /%s/", m.pattern)
}

func (m *regexMatcher) Match(line string, lineNo int) []MatchSpan {
	locs := m.findAll(line)
	if len(locs) == 0 {
		return nil
	}
	spans := make([]MatchSpan, 0, len(locs))
	for _, loc := range locs {
		if loc[1] == loc[0] {
			continue
		}
		spans = append(spans, MatchSpan{
			Line:     lineNo,
			Text:     line,
			Start:    loc[0],
			Length:   loc[1] - loc[0],
			Selected: true,
		})
	}
	return spans
}

// findAll evaluates the regex, under the timeout for long lines. A timeout
// yields no matches.
func (m *regexMatcher) findAll(line string) [][]int {
	if len(line) <= guardedLineSize {
		return m.re.FindAllStringIndex(line, -1)
	}
	result := make(chan [][]int, 1)
	err := ExecuteWithTimeout(func() {
		result <- m.re.FindAllStringIndex(line, -1)
	}, m.timeout)
	if err != nil {
		m.timeouts.Add(1)
		return nil
	}
	return <-result
}

func (m *regexMatcher) Rewrite(line string, spans []MatchSpan, replacement string) (string, int) {
	var b strings.Builder
	b.Grow(len(line))

	cursor, applied := 0, 0
	for _, s := range spans {
		if s.Start < cursor || s.Start < 0 || s.End() > len(line) {
			continue
		}
		segment := line[s.Start:s.End()]
		loc := m.re.FindStringSubmatchIndex(segment)
		if loc == nil || loc[0] != 0 || loc[1] != len(segment) {
			// the text changed since the search
			continue
		}
		b.WriteString(line[cursor:s.Start])
		b.Write(m.re.ExpandString(nil, replacement, segment, loc))
		cursor = s.End()
		applied++
	}
	if applied == 0 {
		return line, 0
	}
	b.WriteString(line[cursor:])
	return b.String(), applied
}
