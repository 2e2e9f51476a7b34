// Package scheduler runs a job on a cron expression or a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Job func(ctx context.Context)

type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// New picks a cron scheduler when spec is set and an interval scheduler
// otherwise. It returns nil when neither is configured.
func New(spec string, interval time.Duration, job Job) (Scheduler, error) {
	switch {
	case spec != "":
		return NewCron(spec, job)
	case interval > 0:
		return NewInterval(interval, job), nil
	default:
		return nil, nil
	}
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron runs job on a five-field cron expression. A run that is still going
// when the next tick arrives causes that tick to be skipped.
type Cron struct {
	spec string
	job  Job
	c    *cron.Cron
}

func NewCron(spec string, job Job) (*Cron, error) {
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Cron{spec: spec, job: job}, nil
}

func (s *Cron) Start(ctx context.Context) error {
	s.c = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.c.AddFunc(s.spec, func() { s.job(ctx) }); err != nil {
		return err
	}
	s.c.Start()
	return nil
}

// Stop waits for a running job to finish or ctx to end.
func (s *Cron) Stop(ctx context.Context) error {
	if s.c == nil {
		return nil
	}
	select {
	case <-s.c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Interval struct {
	every time.Duration
	job   Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewInterval(every time.Duration, job Job) *Interval {
	return &Interval{every: every, job: job}
}

func (s *Interval) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.job(ctx)
			}
		}
	}()
	return nil
}

func (s *Interval) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
