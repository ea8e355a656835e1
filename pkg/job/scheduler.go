package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HorseArcher567/applog/pkg/xlog"
)

var ErrStarted = errors.New("job scheduler already started")

type Scheduler struct {
	log    *xlog.Logger
	mu     sync.Mutex
	jobs   []*Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(log *xlog.Logger) *Scheduler {
	return &Scheduler{
		log: log,
	}
}

// AddJob registers a job. Jobs must be added before Start.
func (s *Scheduler) AddJob(job *Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job %q: %w", job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrStarted
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start starts all jobs in background goroutines and returns immediately.
// Use Stop to gracefully shut down the scheduler and wait for all jobs to finish.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrStarted
	}

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())

	s.log.Info("starting job scheduler", "jobCount", len(s.jobs))

	for _, job := range s.jobs {
		s.wg.Go(func() {
			if err := job.Run(ctx, s.log); err != nil {
				s.log.Error("job run failed", "name", job.Name, "error", err)
			}
		})
	}
	return nil
}

// Stop cancels all jobs and waits for them to finish.
// If ctx ends first it returns ctx.Err() and jobs may still be running.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	s.log.Info("shutting down job scheduler gracefully")
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("all jobs finished, scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("job scheduler shutdown timeout, some jobs may still be running")
		return ctx.Err()
	}
}

// RotationJob checks every interval whether an idle log file has aged out.
func RotationJob(interval time.Duration) *Job {
	return &Job{
		Name:     "log-rotation",
		Interval: interval,
		Func: func(_ context.Context, log *xlog.Logger) error {
			_, err := log.RotateIfDue()
			return err
		},
	}
}
