package search

import (
	"regexp"
	"strings"
)

// DefaultMask matches every file name that contains a dot
const DefaultMask = "*.*"

// GlobSet is a compiled list of file-name masks combined with logical OR
type GlobSet struct {
	masks    []string
	patterns []*regexp.Regexp
}

// SplitMasks splits a raw mask string on ';', ',' and '|', dropping blanks
func SplitMasks(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ',' || r == '|'
	})
	masks := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			masks = append(masks, f)
		}
	}
	return masks
}

// CompileMasks compiles a raw mask string such as "*.go;*.md"
func CompileMasks(raw string) *GlobSet {
	return NewGlobSet(SplitMasks(raw))
}

// NewGlobSet compiles masks; entries may themselves contain separators.
// An empty list compiles to DefaultMask.
func NewGlobSet(masks []string) *GlobSet {
	var flat []string
	for _, m := range masks {
		flat = append(flat, SplitMasks(m)...)
	}
	if len(flat) == 0 {
		flat = []string{DefaultMask}
	}

	gs := &GlobSet{masks: flat}
	for _, m := range flat {
		gs.patterns = append(gs.patterns, regexp.MustCompile(globToRegexp(m)))
	}
	return gs
}

// globToRegexp translates '*' and '?' and quotes everything else
func globToRegexp(mask string) string {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range mask {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// Match reports whether name matches any mask
func (g *GlobSet) Match(name string) bool {
	for _, p := range g.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// Masks returns the normalized mask list
func (g *GlobSet) Masks() []string {
	return append([]string(nil), g.masks...)
}

// String joins the masks with ';'
func (g *GlobSet) String() string {
	return strings.Join(g.masks, ";")
}
