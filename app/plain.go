package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"find-replace/search"
)

// Color codes for terminal output
const (
	RED    = "\033[31m"
	GREEN  = "\033[32m"
	YELLOW = "\033[33m"
	BLUE   = "\033[34m"
	GRAY   = "\033[90m"
	BOLD   = "\033[1m"
	NC     = "\033[0m" // No Color
)

// excerptWidth is the context kept on each side of a match
const excerptWidth = 60

// getTerminalWidth returns the terminal width, defaulting to 80 if unable to detect
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// plainPrinter streams results as text, for pipes and scripts
type plainPrinter struct {
	out            io.Writer
	color          bool
	width          int
	replacement    string
	hasReplacement bool
	apply          bool
}

func (p *plainPrinter) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + NC
}

// createSeparator creates a separator line that fits the terminal width
func (p *plainPrinter) createSeparator() string {
	width := p.width
	if width <= 0 || width > 120 {
		width = 120
	}
	return p.paint(GRAY, strings.Repeat("━", width))
}

// run searches, prints every result as it arrives and optionally replaces.
// Exit codes follow grep: 0 matches, 1 none, 2 trouble.
func (p *plainPrinter) run(ctx context.Context, engine *search.Engine, req search.Request, m search.Matcher) int {
	run, err := engine.Search(ctx, req)
	if err != nil {
		fmt.Fprintf(p.out, "%s\n", p.paint(RED, "Error: "+err.Error()))
		return 2
	}

	var results []search.SearchResult
	for res := range run.Results() {
		results = append(results, res)
		p.printResult(m, res)
	}

	outcome, err := run.Wait()
	fmt.Fprintln(p.out, p.createSeparator())
	switch outcome.State {
	case search.StateFailed:
		fmt.Fprintf(p.out, "%s\n", p.paint(RED, "Error: "+err.Error()))
		return 2
	case search.StateCanceled:
		fmt.Fprintf(p.out, "%s\n", p.paint(YELLOW, "Search canceled"))
	}
	fmt.Fprintf(p.out, "%s\n", p.paint(GRAY, fmt.Sprintf("%d match(es) in %d of %d file(s), %.2fs",
		outcome.Progress.Spans, outcome.Progress.Matched, outcome.Progress.Scanned, outcome.Elapsed.Seconds())))

	if len(results) == 0 {
		return 1
	}
	if outcome.State == search.StateCanceled || !p.hasReplacement {
		return 0
	}
	if !p.apply {
		fmt.Fprintf(p.out, "%s\n", p.paint(YELLOW, "Dry run: add --yes to write the replacements"))
		return 0
	}

	ro, err := engine.Replace(ctx, m, results, p.replacement)
	p.printOutcome(ro)
	if err != nil || !ro.Success() {
		return 2
	}
	return 0
}

func (p *plainPrinter) printResult(m search.Matcher, res search.SearchResult) {
	header := res.DisplayPath()
	if res.Encoding != search.EncodingUTF8 {
		header += " (" + res.Encoding.String() + ")"
	}
	fmt.Fprintf(p.out, "%s\n", p.paint(BOLD+BLUE, header))

	for _, s := range res.Matches {
		line := search.Highlight(s, excerptWidth, func(t string) string { return p.paint(BOLD+RED, t) })
		fmt.Fprintf(p.out, "  %s %s\n", p.paint(GRAY, fmt.Sprintf("%5d:%-3d", s.Line, s.Start+1)), line)
		if p.hasReplacement && res.Replaceable() {
			fmt.Fprintf(p.out, "  %s %s\n", p.paint(GRAY, "      =>  "), p.paint(GREEN, search.Preview(m, s, p.replacement)))
		}
	}
}

func (p *plainPrinter) printOutcome(ro search.ReplaceOutcome) {
	if ro.Success() {
		fmt.Fprintf(p.out, "%s\n", p.paint(GREEN, "✅ "+ro.String()))
		return
	}
	fmt.Fprintf(p.out, "%s\n", p.paint(RED, "❌ "+ro.String()))
	for _, e := range ro.Errors {
		fmt.Fprintf(p.out, "  %s\n", p.paint(RED, e))
	}
}
