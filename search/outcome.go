package search

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// State is the lifecycle stage of a search run
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCanceled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether the run has finished
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// Progress is a snapshot of a run's counters
type Progress struct {
	Scanned int64 // files opened and fully processed
	Matched int64 // results emitted
	Spans   int64 // matches inside emitted results
}

// Outcome is the terminal report of a search run
type Outcome struct {
	State    State
	Err      error
	Progress Progress
	Elapsed  time.Duration
}

// ReplaceOutcome summarizes one replace invocation
type ReplaceOutcome struct {
	FilesModified int
	Replacements  int
	Errors        []string
}

// Success reports whether every file was processed without error
func (o ReplaceOutcome) Success() bool {
	return len(o.Errors) == 0
}

// String formats the outcome for display
func (o ReplaceOutcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d replacement(s) in %d file(s)", o.Replacements, o.FilesModified)
	if !o.Success() {
		fmt.Fprintf(&b, ", %d error(s)", len(o.Errors))
	}
	return b.String()
}

// tally is the private accumulator of one replace worker
type tally struct {
	files        int
	replacements int
	errors       []string
}

func (t *tally) fileDone(applied int) {
	if applied > 0 {
		t.files++
		t.replacements += applied
	}
}

func (t *tally) fail(path string, err error) {
	t.errors = append(t.errors, fmt.Sprintf("%s: %v", path, err))
}

// mergeTallies combines worker tallies once every worker has returned
func mergeTallies(tallies []tally) ReplaceOutcome {
	var out ReplaceOutcome
	for _, t := range tallies {
		out.FilesModified += t.files
		out.Replacements += t.replacements
		out.Errors = append(out.Errors, t.errors...)
	}
	sort.Strings(out.Errors)
	return out
}
