package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/monitoring"
)

// Job is a named task run either every interval or daily at a clock time.
type Job struct {
	Name       string
	Every      time.Duration
	At         *model.Clock
	RunOnStart bool
	Run        func(ctx context.Context) error
}

func (j Job) next(now time.Time) time.Time {
	if j.At != nil {
		return j.At.Next(now)
	}
	return now.Add(j.Every)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler runs jobs sequentially.
type Scheduler struct {
	jobs  []Job
	log   logger.Logger
	clock Clock
}

// New validates the jobs and returns a Scheduler.
func New(log logger.Logger, jobs ...Job) (*Scheduler, error) {
	for _, j := range jobs {
		if j.Run == nil {
			return nil, fmt.Errorf("job %s: no run function", j.Name)
		}
		if j.At == nil && j.Every <= 0 {
			return nil, fmt.Errorf("job %s: interval must be positive", j.Name)
		}
	}
	if len(jobs) == 0 {
		return nil, errors.New("no jobs")
	}
	return &Scheduler{jobs: jobs, log: logger.OrNop(log), clock: realClock{}}, nil
}

// WithClock replaces the time source.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	now := s.clock.Now()
	next := make([]time.Time, len(s.jobs))
	for i, j := range s.jobs {
		if j.RunOnStart {
			if ctx.Err() != nil {
				return nil
			}
			s.runJob(ctx, j)
		}
		next[i] = j.next(now)
		s.log.Infof("job %s scheduled at %s", j.Name, next[i].Format(time.RFC3339))
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		earliest := next[0]
		for _, t := range next[1:] {
			if t.Before(earliest) {
				earliest = t
			}
		}
		wait := earliest.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(wait):
		}

		now = s.clock.Now()
		for i, j := range s.jobs {
			if now.Before(next[i]) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			s.runJob(ctx, j)
			next[i] = j.next(now)
		}
	}
}

// RunOnce runs the named job immediately.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.Name == name {
			return j.Run(ctx)
		}
	}
	return fmt.Errorf("unknown job %s", name)
}

func (s *Scheduler) runJob(ctx context.Context, j Job) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job %s panicked: %v", j.Name, r)
			s.log.Errorf("%v", err)
			monitoring.CaptureException(err, map[string]string{"job": j.Name})
		}
	}()
	start := s.clock.Now()
	if err := j.Run(ctx); err != nil {
		s.log.Errorf("job %s: %v", j.Name, err)
		monitoring.CaptureException(err, map[string]string{"job": j.Name})
		return
	}
	s.log.Debugw("job done", map[string]any{"job": j.Name, "took": s.clock.Now().Sub(start).String()})
}
