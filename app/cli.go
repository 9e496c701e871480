package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"find-replace/config"
	"find-replace/logging"
	"find-replace/search"
)

var version = "0.3"

// Arguments for CLI flags (used to seed the TUI or the plain printer)
type Arguments struct {
	Pattern        string
	Directory      string
	Masks          string
	Regex          bool
	CaseSensitive  bool
	NoRecurse      bool
	Archives       bool
	SkipCommon     bool
	Replacement    string
	HasReplacement bool
	Yes            bool
	Plain          bool
	LogFile        string
	Debug          bool
	Help           bool
	Version        bool
}

// parseArguments parses command line args
func parseArguments(args []string) (*Arguments, error) {
	result := &Arguments{}

	expectMasks := false
	expectReplace := false
	expectLog := false
	onlyPositional := false
	var positional []string

	for _, a := range args {
		if expectMasks {
			result.Masks = a
			expectMasks = false
			continue
		}
		if expectReplace {
			result.Replacement = a
			result.HasReplacement = true
			expectReplace = false
			continue
		}
		if expectLog {
			result.LogFile = a
			expectLog = false
			continue
		}
		if onlyPositional {
			positional = append(positional, a)
			continue
		}
		switch a {
		case "--masks", "-m":
			expectMasks = true
		case "--regex", "-e":
			result.Regex = true
		case "--case", "-c":
			result.CaseSensitive = true
		case "--no-recurse":
			result.NoRecurse = true
		case "--archives", "-z":
			result.Archives = true
		case "--skip-common":
			result.SkipCommon = true
		case "--replace", "-r":
			expectReplace = true
		case "--yes", "-y":
			result.Yes = true
		case "--plain":
			result.Plain = true
		case "--log":
			expectLog = true
		case "--debug":
			result.Debug = true
		case "--help", "-h":
			result.Help = true
		case "--version", "-v":
			result.Version = true
		case "--":
			onlyPositional = true
		default:
			if strings.HasPrefix(a, "-") && len(a) > 1 {
				return nil, fmt.Errorf("unknown flag %s", a)
			}
			positional = append(positional, a)
		}
	}

	switch {
	case expectMasks:
		return nil, errors.New("--masks needs a value")
	case expectReplace:
		return nil, errors.New("--replace needs a value")
	case expectLog:
		return nil, errors.New("--log needs a value")
	}

	if len(positional) > 2 {
		return nil, fmt.Errorf("unexpected argument %q", positional[2])
	}
	if len(positional) > 0 {
		result.Pattern = positional[0]
	}
	if len(positional) > 1 {
		result.Directory = positional[1]
	}
	return result, nil
}

// mergeSettings fills what the command line left out from saved settings.
// Without a pattern on the command line the saved search is repeated,
// including its switches.
func mergeSettings(args *Arguments, s config.Settings) config.Settings {
	merged := s
	if args.Directory != "" {
		merged.Directory = args.Directory
	}
	if args.Masks != "" {
		merged.Masks = args.Masks
	}
	if args.HasReplacement {
		merged.Replacement = args.Replacement
	}

	if args.Pattern != "" {
		merged.Pattern = args.Pattern
		merged.Regex = args.Regex
		merged.CaseSensitive = args.CaseSensitive
		merged.Recurse = !args.NoRecurse
		merged.Archives = args.Archives
		return merged
	}

	merged.Regex = merged.Regex || args.Regex
	merged.CaseSensitive = merged.CaseSensitive || args.CaseSensitive
	merged.Archives = merged.Archives || args.Archives
	if args.NoRecurse {
		merged.Recurse = false
	}
	return merged
}

// buildRequest turns merged settings into a search request
func buildRequest(s config.Settings, skipCommon bool) search.Request {
	req := search.Request{
		Root:          s.Directory,
		Masks:         search.SplitMasks(s.Masks),
		Pattern:       s.Pattern,
		Regex:         s.Regex,
		CaseSensitive: s.CaseSensitive,
		Recurse:       s.Recurse,
		Archives:      s.Archives,
	}
	if skipCommon {
		req.SkipDirs = config.CommonSkipDirs
	}
	return req
}

// showUsage (styled)
func showUsage() {
	fmt.Println()
	logoTop := " █▀▀ ▄▀█ █▀█"
	logoBottom := fmt.Sprintf(" █▀  █▀█ █▀▄  v%s", version)
	if len(logoTop) < len(logoBottom) {
		logoTop += strings.Repeat(" ", len(logoBottom)-len(logoTop))
	}
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Render(logoTop + "\n" + logoBottom))
	fmt.Println()

	fmt.Println(subHeaderStyle.Render("USAGE"))
	fmt.Println(infoStyle.Render(wrapTextWithIndent("  far ", "[flags] <pattern> [dir]", 100)))
	fmt.Println()

	fmt.Println(subHeaderStyle.Render("FLAGS"))
	fmt.Println(infoStyle.Render("  --masks, -m M        File masks separated by ; , or | (default *.*)"))
	fmt.Println(infoStyle.Render("  --regex, -e          Treat the pattern as a regular expression"))
	fmt.Println(infoStyle.Render("  --case, -c           Case-sensitive matching"))
	fmt.Println(infoStyle.Render("  --no-recurse         Search the top directory only"))
	fmt.Println(infoStyle.Render("  --archives, -z       Search inside .zip, .mbox and .pdf files (read only)"))
	fmt.Println(infoStyle.Render("  --skip-common        Skip .git, node_modules, vendor and similar directories"))
	fmt.Println(infoStyle.Render("  --replace, -r T      Replacement text; $1 or ${name} refer to regex groups"))
	fmt.Println(infoStyle.Render("                       (write ${1}x, not $1x, when a letter or digit follows)"))
	fmt.Println(infoStyle.Render("  --yes, -y            Replace every match without reviewing"))
	fmt.Println(infoStyle.Render("  --plain              Print results instead of the interactive view"))
	fmt.Println(infoStyle.Render("  --log FILE           Write a log file"))
	fmt.Println(infoStyle.Render("  --debug              Log debug messages"))
	fmt.Println(infoStyle.Render("  --help, -h           Show help"))
	fmt.Println(infoStyle.Render("  --version, -v        Show version"))
	fmt.Println()

	fmt.Println(subHeaderStyle.Render("EXAMPLES"))
	fmt.Println(infoStyle.Render("  far TODO ./src --masks '*.go;*.md'"))
	fmt.Println(infoStyle.Render("  far -e '(\\w+)@old\\.com' -r '$1@new.com' ~/mail"))
	fmt.Println(infoStyle.Render("  far --plain -z invoice ~/Documents"))
	fmt.Println()
	fmt.Println(infoStyle.Render("  Without a pattern the last search is repeated."))
	fmt.Println()
}

// showVersion
func showVersion() {
	fmt.Println(successStyle.Render("far v" + version))
}

// Run parses CLI arguments and starts the TUI or the plain printer.
// Returns a process exit code.
func Run() int {
	args, err := parseArguments(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 2
	}
	if args.Help {
		showUsage()
		return 0
	}
	if args.Version {
		showVersion()
		return 0
	}

	settingsPath := config.DefaultSettingsPath()
	settings := mergeSettings(args, config.LoadSettings(settingsPath))
	if settings.Pattern == "" {
		showUsage()
		return 2
	}

	logger := logging.Discard()
	if args.LogFile != "" {
		if logger, err = logging.NewFile(args.LogFile); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
			return 2
		}
		defer logger.Close()
	}
	if args.Debug {
		logger.SetLevel(logging.LevelDebug)
	}

	req := buildRequest(settings, args.SkipCommon)
	m, err := search.NewMatcher(req.Pattern, req.Regex, req.CaseSensitive)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 2
	}

	// settings are a convenience; a failed save never stops the search
	if err := config.SaveSettings(settingsPath, settings); err != nil {
		logger.Debugf("saving settings: %v", err)
	}

	engine := search.NewEngine(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args.Plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		p := &plainPrinter{
			out:            os.Stdout,
			color:          term.IsTerminal(int(os.Stdout.Fd())),
			width:          getTerminalWidth(),
			replacement:    settings.Replacement,
			hasReplacement: args.HasReplacement,
			apply:          args.Yes,
		}
		return p.run(ctx, engine, req, m)
	}

	tm := newModel(ctx, engine, req, m, settings)
	tm.settingsPath = settingsPath
	if args.HasReplacement {
		tm.replacement = args.Replacement
		tm.hasReplacement = true
	}
	startWall = time.Now()
	prog := tea.NewProgram(tm, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Println("Error:", err)
		return 1
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+fm.err.Error()))
		return 1
	}
	return 0
}
