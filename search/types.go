package search

import (
	"errors"
	"fmt"
)

// Request validation and replace policy errors
var (
	ErrEmptyPattern   = errors.New("search pattern is empty")
	ErrInvalidRoot    = errors.New("start directory does not exist")
	ErrNotReplaceable = errors.New("result comes from inside a container and cannot be rewritten")
)

// Request describes one search invocation
type Request struct {
	Root          string
	Masks         []string
	Pattern       string
	Regex         bool
	CaseSensitive bool
	Recurse       bool

	// Archives makes the walker yield container files (.zip, .mbox, .pdf)
	// and searches their entries.
	Archives bool
	// SkipDirs lists directory base names that are never entered.
	SkipDirs []string
	// MaxFileSize skips larger files; 0 means no limit.
	MaxFileSize int64
}

// MatchSpan is one occurrence of the pattern inside one line.
// Start and Length are byte offsets into Text.
type MatchSpan struct {
	Line     int    `json:"line"`
	Text     string `json:"text"`
	Start    int    `json:"start"`
	Length   int    `json:"length"`
	Selected bool   `json:"selected"`
}

// End returns the offset just past the match
func (s MatchSpan) End() int {
	return s.Start + s.Length
}

// Matched returns the matched substring of the recorded line
func (s MatchSpan) Matched() string {
	if s.Start < 0 || s.End() > len(s.Text) {
		return ""
	}
	return s.Text[s.Start:s.End()]
}

// SearchResult holds every match found in one file or container entry
type SearchResult struct {
	Path     string      `json:"path"`
	Entry    string      `json:"entry,omitempty"`
	Encoding Encoding    `json:"encoding"`
	Matches  []MatchSpan `json:"matches"`
}

// Replaceable reports whether the replace engine may rewrite this result
func (r SearchResult) Replaceable() bool {
	return r.Entry == ""
}

// DisplayPath returns the path with the container entry appended
func (r SearchResult) DisplayPath() string {
	if r.Entry == "" {
		return r.Path
	}
	return fmt.Sprintf("%s!%s", r.Path, r.Entry)
}

// SelectedCount returns how many spans are marked for replacement
func (r SearchResult) SelectedCount() int {
	n := 0
	for _, m := range r.Matches {
		if m.Selected {
			n++
		}
	}
	return n
}

// SetSelected marks every span of the result
func (r *SearchResult) SetSelected(selected bool) {
	for i := range r.Matches {
		r.Matches[i].Selected = selected
	}
}
