package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"find-replace/config"
	"find-replace/logging"
	"find-replace/search"
)

func testModel(t *testing.T, replacement string) model {
	t.Helper()
	m, err := search.NewMatcher("foo", false, false)
	if err != nil {
		t.Fatal(err)
	}
	s := config.DefaultSettings()
	s.Replacement = replacement
	req := search.Request{Root: t.TempDir(), Pattern: "foo", Recurse: true}
	return newModel(context.Background(), search.NewEngine(logging.Discard()), req, m, s)
}

func send(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		if m, ok = next.(model); !ok {
			t.Fatalf("Update returned %T", next)
		}
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleResults(matcher search.Matcher) []tea.Msg {
	line := "foo and foo"
	return []tea.Msg{
		resultMsg{search.SearchResult{Path: "/a.txt", Matches: matcher.Match(line, 1)}},
		resultMsg{search.SearchResult{Path: "/b.zip", Entry: "in.txt", Matches: matcher.Match("foo", 3)}},
		runDoneMsg{search.Outcome{State: search.StateCompleted, Progress: search.Progress{Scanned: 4, Matched: 2, Spans: 3}}},
	}
}

func TestModelCollectsResults(t *testing.T) {
	m := testModel(t, "")
	m = send(t, m, sampleResults(m.matcher)...)

	if m.loading {
		t.Error("still loading after runDoneMsg")
	}
	if len(m.results) != 2 || len(m.rows) != 3 {
		t.Fatalf("results %d rows %d", len(m.results), len(m.rows))
	}
	if spans, files := m.selectedTotal(); spans != 2 || files != 1 {
		t.Errorf("selectedTotal = %d, %d", spans, files)
	}

	view := send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40}).View()
	for _, want := range []string{"/a.txt", "/b.zip!in.txt", "[x]", "[-]", "2 match(es) selected in 1 file(s)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelDescribesContainers(t *testing.T) {
	m := testModel(t, "")
	m = send(t, m, tea.WindowSizeMsg{Width: 300, Height: 40})
	if strings.Contains(m.View(), "containers (") {
		t.Error("containers described without archives")
	}
	m.req.Archives = true
	if !strings.Contains(m.View(), "containers (mbox, pdf, zip)") {
		t.Error("container extensions missing from the header")
	}
}

func TestModelToggleAndNavigate(t *testing.T) {
	m := testModel(t, "")
	m = send(t, m, sampleResults(m.matcher)...)

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.results[0].Matches[0].Selected {
		t.Error("space did not deselect the first match")
	}

	m = send(t, m, runes("a"))
	if m.results[0].SelectedCount() != 2 {
		t.Error("toggle file did not select every match")
	}
	m = send(t, m, runes("a"))
	if m.results[0].SelectedCount() != 0 {
		t.Error("toggle file did not clear a fully selected file")
	}

	// container matches cannot be selected
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Fatalf("cursor = %d", m.cursor)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.results[1].Matches[0].Selected {
		t.Error("container match toggled")
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	if m.cursor != 0 {
		t.Errorf("cursor after page up = %d", m.cursor)
	}
}

func TestModelReplaceFlow(t *testing.T) {
	m := testModel(t, "")
	m = send(t, m, sampleResults(m.matcher)...)

	// no replacement yet: r asks for one
	m = send(t, m, runes("r"))
	if m.mode != modeInput {
		t.Fatalf("mode = %v, want input", m.mode)
	}
	m = send(t, m, runes("bar"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeConfirm || m.replacement != "bar" || !m.hasReplacement {
		t.Fatalf("after input: mode %v replacement %q", m.mode, m.replacement)
	}
	if !strings.Contains(m.bottomStatus(), `with "bar"`) {
		t.Errorf("confirm prompt = %q", m.bottomStatus())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeBrowse {
		t.Errorf("declining left mode %v", m.mode)
	}

	// the replacement is remembered; esc backs out of the prompt
	m = send(t, m, runes("r"))
	if m.mode != modeConfirm {
		t.Fatalf("mode = %v, want confirm", m.mode)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeBrowse {
		t.Errorf("esc left mode %v", m.mode)
	}

	m = send(t, m, replaceDoneMsg{outcome: search.ReplaceOutcome{FilesModified: 1, Replacements: 2}})
	if !strings.Contains(m.bottomStatus(), "2 replacement(s) in 1 file(s)") {
		t.Errorf("status = %q", m.bottomStatus())
	}
	m = send(t, m, replaceDoneMsg{
		outcome: search.ReplaceOutcome{Errors: []string{"/a.txt: permission denied"}},
		err:     errors.New("boom"),
	})
	if !strings.Contains(m.bottomStatus(), "/a.txt: permission denied") || m.err == nil {
		t.Errorf("status = %q err = %v", m.bottomStatus(), m.err)
	}
}

func TestModelReplaceIgnoredWhileLoading(t *testing.T) {
	m := testModel(t, "x")
	m = send(t, m, runes("r"))
	if m.mode != modeBrowse {
		t.Errorf("mode = %v while loading", m.mode)
	}
}

func TestModelSearchError(t *testing.T) {
	m := testModel(t, "")
	m = send(t, m, searchErrMsg{search.ErrInvalidRoot})
	if m.loading || !errors.Is(m.err, search.ErrInvalidRoot) {
		t.Errorf("loading %v err %v", m.loading, m.err)
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Error("error not shown")
	}
}

func TestModelQuit(t *testing.T) {
	m := testModel(t, "")
	next, cmd := m.Update(runes("q"))
	if cmd == nil || !next.(model).quitting {
		t.Error("q did not quit")
	}
	if got := next.(model).View(); got != "Goodbye!\n" {
		t.Errorf("View = %q", got)
	}
}

func TestModelSecondReplaceDoesNotReapply(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.txt": "foo x\n"})
	path := filepath.Join(root, "a.txt")

	engine := search.NewEngine(logging.Discard())
	matcher, err := search.NewMatcher("foo", false, false)
	if err != nil {
		t.Fatal(err)
	}
	s := config.DefaultSettings()
	s.Replacement = "foobar"
	req := search.Request{Root: root, Pattern: "foo", Recurse: true}
	m := newModel(context.Background(), engine, req, matcher, s)
	m.settingsPath = filepath.Join(t.TempDir(), "settings.yaml")

	run, err := engine.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	for res := range run.Results() {
		m = send(t, m, resultMsg{res})
	}
	outcome, _ := run.Wait()
	m = send(t, m, runDoneMsg{outcome})

	replaceOnce := func(m model) model {
		t.Helper()
		m = send(t, m, runes("r"))
		if m.mode != modeConfirm {
			return m
		}
		m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.mode != modeReplacing {
			t.Fatalf("mode = %v after confirming", m.mode)
		}
		return send(t, m, m.runReplace()())
	}

	m = replaceOnce(m)
	if m.replaceOutcome == nil || m.replaceOutcome.Replacements != 1 {
		t.Fatalf("first replace = %+v", m.replaceOutcome)
	}
	if spans, _ := m.selectedTotal(); spans != 0 {
		t.Errorf("%d span(s) still selected after replace", spans)
	}

	m = replaceOnce(m)
	if m.mode != modeBrowse {
		t.Errorf("second r entered mode %v with nothing selected", m.mode)
	}
	if b, _ := os.ReadFile(path); string(b) != "foobar x\n" {
		t.Errorf("file = %q, want a single replacement", b)
	}

	// forcing another run still leaves the file alone
	m = send(t, m, m.runReplace()())
	if m.replaceOutcome.Replacements != 0 {
		t.Errorf("forced replace = %+v", m.replaceOutcome)
	}
	if b, _ := os.ReadFile(path); string(b) != "foobar x\n" {
		t.Errorf("file = %q after forced replace", b)
	}
}

func TestClearAppliedKeepsFailedFiles(t *testing.T) {
	m := testModel(t, "")
	m = send(t, m, sampleResults(m.matcher)...)
	m = send(t, m, resultMsg{search.SearchResult{Path: "/c.txt", Matches: m.matcher.Match("foo", 1)}})

	m = send(t, m, replaceDoneMsg{outcome: search.ReplaceOutcome{
		FilesModified: 1, Replacements: 2, Errors: []string{"/c.txt: permission denied"},
	}})
	if m.results[0].SelectedCount() != 0 {
		t.Error("replaced file still selected")
	}
	if m.results[2].SelectedCount() != 1 {
		t.Error("failed file was deselected")
	}

	m = send(t, m, replaceDoneMsg{err: context.Canceled})
	if spans, _ := m.selectedTotal(); spans != 0 {
		t.Errorf("%d span(s) selected after an interrupted replace", spans)
	}
}
