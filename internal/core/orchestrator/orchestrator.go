// Package orchestrator runs an ordered set of checks against one batch and
// aggregates the outcomes into a Summary.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/check"
	"stream-quality/internal/metrics"
	"stream-quality/internal/utils/logger"
)

type Runner struct {
	checks      []check.Check
	parallelism int
	log         *logger.Logger
	rec         *metrics.Recorder
	now         func() time.Time
	newID       func() string
}

type Option func(*Runner)

// WithParallelism bounds how many checks evaluate at once. n <= 0 means one per CPU.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		r.parallelism = n
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) {
		r.rec = rec
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func New(checks []check.Check, opts ...Option) *Runner {
	r := &Runner{
		checks: append([]check.Check(nil), checks...),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.parallelism <= 0 {
		r.parallelism = runtime.NumCPU()
	}
	return r
}

func (r *Runner) Checks() []check.Check {
	return append([]check.Check(nil), r.checks...)
}

// Run evaluates every check exactly once. A check that errors or panics is
// recorded as a failed outcome and never stops its siblings. Results keep
// registration order. If ctx is cancelled before every check has run, Run
// returns ctx's error and no summary.
func (r *Runner) Run(ctx context.Context, b *batch.Batch) (check.Summary, error) {
	results := make([]check.Outcome, len(r.checks))

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	skipped := false
	for i, c := range r.checks {
		if ctx.Err() != nil {
			skipped = true
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.evaluate(ctx, c, b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return check.Summary{}, err
	}
	if skipped {
		return check.Summary{}, ctx.Err()
	}

	s := check.NewSummary(r.newID(), results, r.now())
	r.rec.ObserveSummary(s)
	r.log.Infof("run %s: %d/%d checks passed (pass rate %.2f%%)", s.RunID, s.Passed, s.Total, s.PassRate*100)
	return s, nil
}

func (r *Runner) evaluate(ctx context.Context, c check.Check, b *batch.Batch) (out check.Outcome) {
	start := time.Now()
	faulted := false
	defer func() {
		if p := recover(); p != nil {
			faulted = true
			r.log.Errorf("check %s panicked: %v", c.Name(), p)
			out = check.Faulted(c, fmt.Sprint(p), r.now())
		}
		r.rec.ObserveCheck(out, time.Since(start), faulted)
	}()

	res, err := c.Evaluate(ctx, b)
	if err != nil {
		faulted = true
		r.log.Errorf("check %s: %v", c.Name(), err)
		return check.Faulted(c, err.Error(), r.now())
	}
	if res.Name == "" {
		res.Name = c.Name()
	}
	if res.Kind == "" {
		res.Kind = c.Kind()
	}
	if res.EvaluatedAt.IsZero() {
		res.EvaluatedAt = r.now()
	}
	if !res.Passed {
		r.log.Warnf("check %s failed: %s", res.Name, res.Text())
	}
	return res
}
