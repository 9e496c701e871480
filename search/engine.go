package search

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/transform"

	"find-replace/logging"
)

const (
	// DefaultWorkers is the size of the search and replace worker pools
	DefaultWorkers = 8
	// queueSize bounds the paths waiting for a worker
	queueSize = 256
	// resultBuffer is how many results may wait for the caller
	resultBuffer = 64
)

// Engine runs searches and replacements over the local filesystem
type Engine struct {
	Workers    int
	Containers *ContainerRegistry
	Logger     *logging.Logger
}

// NewEngine creates an engine with the default pool size and containers
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		Workers:    DefaultWorkers,
		Containers: NewContainerRegistry(),
		Logger:     logger,
	}
}

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return DefaultWorkers
}

// Run is one search invocation. Results arrive in completion order and the
// channel is closed when the run reaches a terminal state.
type Run struct {
	id       string
	results  chan SearchResult
	state    atomic.Int32
	scanned  atomic.Int64
	matched  atomic.Int64
	spans    atomic.Int64
	cancel   context.CancelFunc
	done     chan struct{}
	started  time.Time
	outcome  Outcome
	doneOnce sync.Once
}

// ID returns the run identifier used in logs
func (r *Run) ID() string { return r.id }

// Results returns the result stream
func (r *Run) Results() <-chan SearchResult { return r.results }

// State returns the current lifecycle stage
func (r *Run) State() State { return State(r.state.Load()) }

// Progress returns the current counters
func (r *Run) Progress() Progress {
	return Progress{
		Scanned: r.scanned.Load(),
		Matched: r.matched.Load(),
		Spans:   r.spans.Load(),
	}
}

// Cancel stops the run; results already emitted stay in the stream
func (r *Run) Cancel() { r.cancel() }

// Done is closed once the run is terminal
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run is terminal. The error is set only for
// StateFailed.
func (r *Run) Wait() (Outcome, error) {
	<-r.done
	return r.outcome, r.outcome.Err
}

// emit hands a result to the caller unless the run was canceled
func (r *Run) emit(ctx context.Context, res SearchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case r.results <- res:
		r.matched.Add(1)
		r.spans.Add(int64(len(res.Matches)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Run) finish(outcome Outcome) {
	r.doneOnce.Do(func() {
		r.outcome = outcome
		r.state.Store(int32(outcome.State))
		close(r.results)
		close(r.done)
	})
}

// Search validates req and starts a run. Validation errors are returned
// before any work starts.
func (e *Engine) Search(ctx context.Context, req Request) (*Run, error) {
	if req.Pattern == "" {
		return nil, ErrEmptyPattern
	}
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, req.Root, err)
	}
	// WalkDir does not descend into a root that is itself a symlink
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, req.Root, err)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, req.Root)
	}
	m, err := NewMatcher(req.Pattern, req.Regex, req.CaseSensitive)
	if err != nil {
		return nil, err
	}

	globs := NewGlobSet(req.Masks)
	walker := NewFileWalker(root, globs, req.Recurse, req.SkipDirs, req.MaxFileSize)
	if req.Archives {
		walker.WithContainers(e.Containers.Extensions()...)
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		id:      uuid.NewString(),
		results: make(chan SearchResult, resultBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
		started: time.Now(),
	}
	run.state.Store(int32(StateIdle))

	e.Logger.Infof("search %s: %s in %s (masks %s, recurse %t, archives %t)",
		run.id, m, root, globs, req.Recurse, req.Archives)

	run.state.Store(int32(StateRunning))
	go e.execute(runCtx, run, req, walker, globs, m)
	return run, nil
}

// execute runs the producer and the worker pool until the walk is exhausted,
// a worker fails, or ctx is canceled.
func (e *Engine) execute(ctx context.Context, run *Run, req Request, walker *FileWalker, globs *GlobSet, m Matcher) {
	defer run.cancel()

	g, gctx := errgroup.WithContext(ctx)
	paths := make(chan string, queueSize)

	g.Go(func() error {
		defer close(paths)
		for p := range walker.Files(gctx) {
			select {
			case paths <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return gctx.Err()
	})

	for range e.workers() {
		g.Go(func() error {
			for p := range paths {
				if err := e.searchFile(gctx, run, req, globs, m, p); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()

	outcome := Outcome{Progress: run.Progress(), Elapsed: time.Since(run.started)}
	switch {
	case err == nil:
		outcome.State = StateCompleted
	case ctx.Err() != nil:
		outcome.State = StateCanceled
	default:
		outcome.State = StateFailed
		outcome.Err = err
	}

	if tm, ok := m.(interface{ Timeouts() int64 }); ok {
		if n := tm.Timeouts(); n > 0 {
			e.Logger.Debugf("search %s: %d regex evaluation(s) timed out", run.id, n)
		}
	}
	if outcome.Err != nil {
		e.Logger.Errorf("search %s failed: %v", run.id, outcome.Err)
	} else {
		e.Logger.Infof("search %s %s: %d scanned, %d matched, %d spans in %s",
			run.id, outcome.State, outcome.Progress.Scanned, outcome.Progress.Matched,
			outcome.Progress.Spans, outcome.Elapsed.Round(time.Millisecond))
	}
	run.finish(outcome)
}

// searchFile scans one path. Unreadable files are skipped; only unexpected
// errors and cancellation are returned.
func (e *Engine) searchFile(ctx context.Context, run *Run, req Request, globs *GlobSet, m Matcher, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	emit := func(res SearchResult) error { return run.emit(ctx, res) }

	var err error
	if c, ok := e.Containers.Lookup(p); ok && req.Archives {
		err = c.Scan(ctx, p, globs, m, emit)
	} else {
		err = scanFile(ctx, p, m, emit)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if isSkippable(err) {
			e.Logger.Debugf("search %s: skipping %s: %v", run.id, p, err)
			run.scanned.Add(1)
			return nil
		}
		return fmt.Errorf("%s: %w", p, err)
	}
	run.scanned.Add(1)
	return nil
}

// scanFile matches a plain file with its detected encoding. Nothing is
// emitted when the scan is interrupted.
func scanFile(ctx context.Context, p string, m Matcher, emit func(SearchResult) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := SniffEncoding(f)
	if err != nil {
		return err
	}
	dec, err := enc.NewDecoder(f)
	if err != nil {
		return err
	}
	spans, err := matchText(ctx, dec, m)
	if err != nil {
		return err
	}
	dropCache(f)

	if len(spans) == 0 {
		return nil
	}
	return emit(SearchResult{Path: p, Encoding: enc, Matches: spans})
}

// isSkippable reports whether err is a per-file access or format problem
func isSkippable(err error) bool {
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &pathErr),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, transform.ErrShortSrc),
		errors.Is(err, ErrMalformedContainer),
		errors.Is(err, zip.ErrChecksum),
		errors.Is(err, zip.ErrFormat),
		errors.Is(err, zip.ErrAlgorithm):
		return true
	}
	return false
}
