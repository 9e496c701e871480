package search

import (
	"slices"
	"testing"
)

func TestSplitMasks(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"*.cs;*.xaml", []string{"*.cs", "*.xaml"}},
		{" *.go , *.md | *.txt ", []string{"*.go", "*.md", "*.txt"}},
		{";;,|", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := SplitMasks(tt.raw); !slices.Equal(got, tt.want) {
			t.Errorf("SplitMasks(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestGlobSetMatch(t *testing.T) {
	tests := []struct {
		masks string
		name  string
		want  bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "MAIN.GO", true},
		{"*.go", "main.go.bak", false},
		{"*.go", "main_go", false},
		{"file?.txt", "file1.txt", true},
		{"file?.txt", "file10.txt", false},
		{"*.cs;*.xaml", "App.xaml", true},
		{"*.cs;*.xaml", "App.json", false},
		{"[ab].txt", "[ab].txt", true},
		{"[ab].txt", "a.txt", false},
		{"{ab}.md", "{ab}.md", true},
		{"{ab}.md", "a.md", false},
		{"a+b.txt", "a+b.txt", true},
		{"", "notes.txt", true},
		{"", "Makefile", false},
		{"*", "Makefile", true},
	}
	for _, tt := range tests {
		gs := CompileMasks(tt.masks)
		if got := gs.Match(tt.name); got != tt.want {
			t.Errorf("CompileMasks(%q).Match(%q) = %v, want %v", tt.masks, tt.name, got, tt.want)
		}
	}
}

func TestNewGlobSetDefaultsAndFlattens(t *testing.T) {
	if got := NewGlobSet(nil).Masks(); !slices.Equal(got, []string{DefaultMask}) {
		t.Errorf("empty masks = %q, want default", got)
	}
	gs := NewGlobSet([]string{"*.go;*.md", " ", "*.txt"})
	if got := gs.String(); got != "*.go;*.md;*.txt" {
		t.Errorf("String() = %q", got)
	}
}
