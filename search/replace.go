package search

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"
)

// replaceJob is every selected span of one file
type replaceJob struct {
	path     string
	encoding Encoding
	spans    []MatchSpan
}

// Replace rewrites the selected spans of results with replacement, which may
// reference capture groups when m is a regex matcher. Container results are
// ignored. Per-file failures are collected in the outcome; on cancellation the
// partial outcome is returned with ctx.Err().
func (e *Engine) Replace(ctx context.Context, m Matcher, results []SearchResult, replacement string) (ReplaceOutcome, error) {
	if m == nil {
		return ReplaceOutcome{}, errors.New("replace: no matcher")
	}

	jobs := e.replaceJobs(results)
	if len(jobs) == 0 {
		return ReplaceOutcome{}, ctx.Err()
	}
	e.Logger.Infof("replace: %d file(s) with %s", len(jobs), m)

	queue := make(chan replaceJob)
	tallies := make([]tally, e.workers())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := range tallies {
		t := &tallies[i]
		g.Go(func() error {
			for job := range queue {
				if err := gctx.Err(); err != nil {
					return err
				}
				applied, err := replaceFile(gctx, m, job, replacement)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					e.Logger.Warnf("replace: %s: %v", job.path, err)
					t.fail(job.path, err)
					continue
				}
				t.fileDone(applied)
			}
			return nil
		})
	}

	err := g.Wait()
	outcome := mergeTallies(tallies)
	e.Logger.Infof("replace: %s", outcome)
	return outcome, err
}

// replaceJobs keeps the selected spans of replaceable results, one job per
// path so that no file is handled by two workers.
func (e *Engine) replaceJobs(results []SearchResult) []replaceJob {
	byPath := make(map[string]*replaceJob)
	var order []string
	for _, r := range results {
		if !r.Replaceable() {
			e.Logger.Debugf("replace: ignoring %s: %v", r.DisplayPath(), ErrNotReplaceable)
			continue
		}
		job, ok := byPath[r.Path]
		if !ok {
			job = &replaceJob{path: r.Path, encoding: r.Encoding}
			byPath[r.Path] = job
			order = append(order, r.Path)
		}
		for _, s := range r.Matches {
			if s.Selected {
				job.spans = append(job.spans, s)
			}
		}
	}

	jobs := make([]replaceJob, 0, len(order))
	for _, p := range order {
		if job := byPath[p]; len(job.spans) > 0 {
			jobs = append(jobs, *job)
		}
	}
	return jobs
}

// replaceFile applies one job and returns the number of spans replaced. The
// file is written only when at least one span was applied.
func replaceFile(ctx context.Context, m Matcher, job replaceJob, replacement string) (int, error) {
	set, err := readLineSet(ctx, job.path, job.encoding)
	if err != nil {
		return 0, err
	}

	byLine := make(map[int][]MatchSpan)
	for _, s := range job.spans {
		byLine[s.Line] = append(byLine[s.Line], s)
	}

	applied := 0
	for _, lineNo := range slices.Sorted(maps.Keys(byLine)) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if lineNo < 1 || lineNo > len(set.lines) {
			continue
		}
		spans := byLine[lineNo]
		slices.SortStableFunc(spans, func(a, b MatchSpan) int {
			return cmp.Compare(a.Start, b.Start)
		})
		line, n := m.Rewrite(set.lines[lineNo-1], spans, replacement)
		if n > 0 {
			set.lines[lineNo-1] = line
			applied += n
		}
	}

	if applied == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := writeLineSet(job.path, job.encoding, set); err != nil {
		return 0, err
	}
	return applied, nil
}
