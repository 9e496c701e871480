package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"find-replace/config"
	"find-replace/search"
)

var startWall time.Time

// Styles (shared with the CLI usage/version output)
var (
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7"))

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a9b1d6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7aa2f7")).
			Bold(true)

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1a1b26")).
			Background(lipgloss.Color("#e0af68"))

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#292e42"))
)

// uiMode is what the keyboard currently drives
type uiMode int

const (
	modeBrowse uiMode = iota
	modeInput
	modeConfirm
	modeReplacing
)

// row points at one match of one result
type row struct {
	file int
	span int
}

type model struct {
	ctx      context.Context
	engine   *search.Engine
	req      search.Request
	matcher  search.Matcher
	settings config.Settings

	// Results and navigation
	run           *search.Run
	results       []search.SearchResult
	rows          []row
	cursor        int
	contentScroll int

	// Session and timing
	loading    bool
	progress   search.Progress
	outcome    search.Outcome
	searchTime time.Duration
	quitting   bool
	err        error

	// Replacement
	mode            uiMode
	replacement     string
	hasReplacement  bool
	input           textinput.Model
	confirmSelected string // "yes" or "no"
	replaceOutcome  *search.ReplaceOutcome
	settingsPath    string

	// Window size
	width  int
	height int

	spinner      spinner.Model
	memUsageText string // e.g., " • Heap XXX MB • CPU YY%"
}

func newModel(ctx context.Context, engine *search.Engine, req search.Request, m search.Matcher, s config.Settings) model {
	ti := textinput.New()
	ti.Placeholder = "replacement"
	ti.Prompt = "Replace with: "
	ti.CharLimit = 512

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff"))),
	)

	return model{
		ctx:             ctx,
		engine:          engine,
		req:             req,
		matcher:         m,
		settings:        s,
		loading:         true,
		replacement:     s.Replacement,
		hasReplacement:  s.Replacement != "",
		input:           ti,
		confirmSelected: "yes",
		spinner:         sp,
	}
}

// Messages for TUI updates
type runStartedMsg struct{ run *search.Run }

type resultMsg struct{ result search.SearchResult }

type runDoneMsg struct{ outcome search.Outcome }

type searchErrMsg struct{ err error }

type replaceDoneMsg struct {
	outcome search.ReplaceOutcome
	err     error
}

type memUsageMsg struct{ Text string }

type progressTick struct{}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.startSearch(), m.spinner.Tick, pollProgress(), m.memUsageTick())
}

func (m model) startSearch() tea.Cmd {
	return func() tea.Msg {
		run, err := m.engine.Search(m.ctx, m.req)
		if err != nil {
			return searchErrMsg{err}
		}
		return runStartedMsg{run}
	}
}

// waitForResult delivers the next result, or the outcome once the stream closes
func waitForResult(run *search.Run) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-run.Results()
		if !ok {
			outcome, _ := run.Wait()
			return runDoneMsg{outcome}
		}
		return resultMsg{res}
	}
}

func (m model) runReplace() tea.Cmd {
	results := m.results
	replacement := m.replacement
	settings := m.settings
	settings.Replacement = replacement
	settingsPath := m.settingsPath
	return func() tea.Msg {
		if settingsPath != "" {
			_ = config.SaveSettings(settingsPath, settings)
		}
		ro, err := m.engine.Replace(m.ctx, m.matcher, results, replacement)
		return replaceDoneMsg{ro, err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case runStartedMsg:
		m.run = msg.run
		return m, waitForResult(m.run)

	case searchErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case resultMsg:
		idx := len(m.results)
		m.results = append(m.results, msg.result)
		for i := range msg.result.Matches {
			m.rows = append(m.rows, row{file: idx, span: i})
		}
		return m, waitForResult(m.run)

	case runDoneMsg:
		m.outcome = msg.outcome
		m.progress = msg.outcome.Progress
		m.searchTime = msg.outcome.Elapsed
		m.loading = false
		if msg.outcome.State == search.StateFailed {
			m.err = msg.outcome.Err
		}
		return m, nil

	case replaceDoneMsg:
		m.mode = modeBrowse
		m.replaceOutcome = &msg.outcome
		if msg.err != nil {
			m.err = msg.err
		}
		m.clearApplied(msg.outcome, msg.err)
		return m, nil

	case spinner.TickMsg:
		if !m.loading && m.mode != modeReplacing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case memUsageMsg:
		m.memUsageText = msg.Text
		return m, m.memUsageTick()

	case progressTick:
		if m.run != nil {
			m.progress = m.run.Progress()
		}
		if !m.loading {
			return m, nil
		}
		return m, pollProgress()
	}

	if m.mode == modeInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeInput:
		switch {
		case msg.String() == "ctrl+c":
			return m.quit()
		case key.Matches(msg, keys.Cancel):
			m.mode = modeBrowse
			m.input.Blur()
			return m, nil
		case key.Matches(msg, keys.Enter):
			m.replacement = m.input.Value()
			m.hasReplacement = true
			m.input.Blur()
			m.mode = modeConfirm
			m.confirmSelected = "yes"
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case modeConfirm:
		switch {
		case msg.String() == "ctrl+c":
			return m.quit()
		case key.Matches(msg, keys.Left):
			m.confirmSelected = "yes"
		case key.Matches(msg, keys.Right):
			m.confirmSelected = "no"
		case key.Matches(msg, keys.Yes):
			return m.startReplace()
		case key.Matches(msg, keys.No), key.Matches(msg, keys.Cancel):
			m.mode = modeBrowse
		case key.Matches(msg, keys.Enter):
			if m.confirmSelected == "yes" {
				return m.startReplace()
			}
			m.mode = modeBrowse
		}
		return m, nil

	case modeReplacing:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Cancel):
		if m.loading && m.run != nil {
			m.run.Cancel()
		}
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.PageUp):
		m.moveCursor(-10)
	case key.Matches(msg, keys.PageDown):
		m.moveCursor(10)
	case key.Matches(msg, keys.Toggle):
		m.toggleCurrent()
	case key.Matches(msg, keys.ToggleAll):
		m.toggleFile()
	case key.Matches(msg, keys.Replace):
		if m.loading || len(m.results) == 0 {
			return m, nil
		}
		if spans, _ := m.selectedTotal(); spans == 0 {
			return m, nil
		}
		m.replaceOutcome = nil
		if !m.hasReplacement {
			m.mode = modeInput
			m.input.SetValue(m.replacement)
			return m, m.input.Focus()
		}
		m.mode = modeConfirm
		m.confirmSelected = "yes"
	}
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	if m.run != nil {
		m.run.Cancel()
	}
	m.quitting = true
	return m, tea.Quit
}

func (m model) startReplace() (tea.Model, tea.Cmd) {
	m.mode = modeReplacing
	return m, tea.Batch(m.runReplace(), m.spinner.Tick)
}

func (m *model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.rows)-1, m.cursor+delta))
}

// toggleCurrent flips the match under the cursor
func (m *model) toggleCurrent() {
	if m.cursor >= len(m.rows) {
		return
	}
	r := m.rows[m.cursor]
	res := &m.results[r.file]
	if !res.Replaceable() {
		return
	}
	res.Matches[r.span].Selected = !res.Matches[r.span].Selected
}

// toggleFile selects every match of the current file, or clears them when
// they are all selected already.
func (m *model) toggleFile() {
	if m.cursor >= len(m.rows) {
		return
	}
	res := &m.results[m.rows[m.cursor].file]
	if !res.Replaceable() {
		return
	}
	res.SetSelected(res.SelectedCount() < len(res.Matches))
}

// clearApplied deselects the spans of files the replace went through, so a
// second replace cannot rewrite them again. Files listed in the outcome errors
// stay selected; after an interrupted replace nothing stays selected.
func (m *model) clearApplied(outcome search.ReplaceOutcome, err error) {
	for i := range m.results {
		res := &m.results[i]
		if !res.Replaceable() {
			continue
		}
		failed := err == nil && slices.ContainsFunc(outcome.Errors, func(e string) bool {
			return strings.HasPrefix(e, res.Path+": ")
		})
		if !failed {
			res.SetSelected(false)
		}
	}
}

// selectedTotal counts the matches that a replace would touch
func (m model) selectedTotal() (spans, files int) {
	for _, r := range m.results {
		if !r.Replaceable() {
			continue
		}
		if n := r.SelectedCount(); n > 0 {
			spans += n
			files++
		}
	}
	return spans, files
}

func (m model) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 120
	}
	if height <= 0 {
		height = 30
	}

	if m.quitting {
		return "Goodbye!\n"
	}

	var headerLines []string

	logoTop := " █▀▀ ▄▀█ █▀█"
	logoBottom := fmt.Sprintf(" █▀  █▀█ █▀▄  v%s", version)
	if len(logoTop) < len(logoBottom) {
		logoTop += strings.Repeat(" ", len(logoBottom)-len(logoTop))
	}
	logo := lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Align(lipgloss.Left).Render(logoTop + "\n" + logoBottom)
	headerLines = append(headerLines, "", logo, "")

	headerLines = append(headerLines, subHeaderStyle.Render(wrapTextWithIndent("🔍 Searching: ", m.matcher.String(), width-4)))

	var containerExts []string
	if m.req.Archives {
		containerExts = m.engine.Containers.Extensions()
	}
	targetDesc := m.req.Root + " • " + config.GetFileTypeDescription(strings.Join(m.req.Masks, ";"), containerExts)
	if !m.req.Recurse {
		targetDesc += " • top directory only"
	}
	targetStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	headerLines = append(headerLines, targetStyled.Render(wrapTextWithIndent("📁 Target: ", targetDesc, width-4)))

	engine := fmt.Sprintf("⚙️ Engine: Workers %d%s", m.engine.Workers, m.memUsageText)
	engineStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7"))
	headerLines = append(headerLines, engineStyled.Render(engine))

	var elapsed time.Duration
	if m.loading {
		elapsed = time.Since(startWall)
	} else {
		elapsed = m.searchTime
	}
	status := fmt.Sprintf("⏱️ %.1fs • Scanned %d files • Matched %d files • %d matches",
		elapsed.Seconds(), m.progress.Scanned, len(m.results), len(m.rows))
	headerLines = append(headerLines, lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")).Render(status))

	searchInfo := strings.Join(headerLines, "\n")
	headerHeight := strings.Count(searchInfo, "\n") + 1

	var parts []string
	parts = append(parts, searchInfo)

	switch {
	case m.loading:
		parts = append(parts, m.spinner.View()+" "+infoStyle.Render("Searching... (esc to stop)"))
	case m.err != nil:
		parts = append(parts, errorStyle.Render("Error: "+m.err.Error()))
	case m.outcome.State == search.StateCanceled:
		parts = append(parts, warningStyle.Render("Search canceled, showing partial results"))
	default:
		parts = append(parts, "")
	}

	boxOuterWidth := width - 4
	chromeHeight := 4
	contentHeight := height - headerHeight - 1 - 1 - 1 - chromeHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	lines, cursorLine := m.renderRows(boxOuterWidth - 6)
	if len(lines) == 0 {
		if m.loading {
			lines = []string{"Searching..."}
		} else {
			lines = []string{"No results found."}
		}
	}

	// keep the cursor inside the window
	scroll := m.contentScroll
	if cursorLine < scroll {
		scroll = cursorLine
	}
	if cursorLine >= scroll+contentHeight {
		scroll = cursorLine - contentHeight + 1
	}
	maxStart := max(0, len(lines)-contentHeight)
	scroll = max(0, min(scroll, maxStart))
	end := min(len(lines), scroll+contentHeight)
	window := strings.Join(lines[scroll:end], "\n")
	parts = append(parts, appStyle.Width(boxOuterWidth).Height(contentHeight).Render(window))

	parts = append(parts, m.bottomStatus())

	var help string
	switch m.mode {
	case modeInput:
		help = helpLine(keys.Enter, keys.Cancel)
	case modeConfirm:
		help = helpLine(keys.Left, keys.Right, keys.Enter)
	case modeReplacing:
		help = "replacing..."
	default:
		if m.loading {
			help = helpLine(keys.Up, keys.Down, keys.Toggle, keys.Cancel, keys.Quit)
		} else {
			help = helpLine(keys.Up, keys.Down, keys.Toggle, keys.ToggleAll, keys.Replace, keys.Quit)
		}
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Align(lipgloss.Center).
		Render("🔚 " + help)
	parts = append(parts, footer)

	return strings.Join(parts, "\n")
}

// renderRows draws one line per file header and per match. It returns the
// index of the line that holds the cursor.
func (m model) renderRows(width int) ([]string, int) {
	var lines []string
	cursorLine := 0
	excerpt := max(10, (width-20)/2)

	for i, r := range m.rows {
		res := m.results[r.file]
		if r.span == 0 {
			header := res.DisplayPath()
			if res.Encoding != search.EncodingUTF8 {
				header += " (" + res.Encoding.String() + ")"
			}
			if !res.Replaceable() {
				header += " 🔒"
			}
			lines = append(lines, fileStyle.Render(header))
		}

		s := res.Matches[r.span]
		box := "[ ]"
		switch {
		case !res.Replaceable():
			box = "[-]"
		case s.Selected:
			box = "[x]"
		}
		text := search.Highlight(s, excerpt, func(t string) string { return matchStyle.Render(t) })
		line := fmt.Sprintf("  %s %s %s", box, separatorStyle.Render(fmt.Sprintf("%5d:%-3d", s.Line, s.Start+1)), text)
		if i == m.cursor {
			cursorLine = len(lines)
			line = cursorStyle.Render("›" + line[1:])
		}
		lines = append(lines, line)
	}
	return lines, cursorLine
}

func (m model) bottomStatus() string {
	switch m.mode {
	case modeInput:
		return m.input.View()

	case modeConfirm:
		spans, files := m.selectedTotal()
		yesSel := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1a1b26")).
			Background(lipgloss.Color("#9ece6a")).
			Padding(0, 1)
		yesUn := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Padding(0, 1)
		noSel := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c0caf5")).
			Background(lipgloss.Color("#414868")).
			Padding(0, 1)
		noUn := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")).
			Padding(0, 1)

		var yesBtn, noBtn string
		if m.confirmSelected == "no" {
			yesBtn = yesUn.Render("[ Yes ]")
			noBtn = noSel.Render("[ No ]")
		} else {
			yesBtn = yesSel.Render("[ Yes ]")
			noBtn = noUn.Render("[ No ]")
		}
		q := fmt.Sprintf("Replace %d match(es) in %d file(s) with %q? ", spans, files, m.replacement)
		return infoStyle.Render(q) + yesBtn + "    " + noBtn

	case modeReplacing:
		return m.spinner.View() + " " + infoStyle.Render("Replacing...")
	}

	if m.replaceOutcome != nil {
		if m.replaceOutcome.Success() {
			return successStyle.Render("✅ " + m.replaceOutcome.String())
		}
		msg := "❌ " + m.replaceOutcome.String()
		if len(m.replaceOutcome.Errors) > 0 {
			msg += ": " + m.replaceOutcome.Errors[0]
		}
		return errorStyle.Render(msg)
	}
	if !m.loading && len(m.rows) > 0 {
		spans, files := m.selectedTotal()
		return infoStyle.Render(fmt.Sprintf("%d match(es) selected in %d file(s)", spans, files))
	}
	return ""
}

func wrapTextWithIndent(prefix, text string, width int) string {
	prefixWidth := lipgloss.Width(prefix)
	indent := strings.Repeat(" ", prefixWidth)
	wrapped := lipgloss.NewStyle().Width(width - prefixWidth).Render(text)
	return prefix + strings.ReplaceAll(wrapped, "\n", "\n"+indent)
}

func joinBullets(parts []string) string {
	return strings.Join(parts, " • ")
}

func (m model) memUsageTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		mem, cpu := sampleMemoryAndCPU()
		return memUsageMsg{Text: fmt.Sprintf(" • Heap %5.1f MB • Total %5.1f MB • CPU %5.1f%%",
			float64(mem.heap)/(1024*1024), float64(mem.rss)/(1024*1024), cpu)}
	})
}

func pollProgress() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(time.Time) tea.Msg {
		return progressTick{}
	})
}
