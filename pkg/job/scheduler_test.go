package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HorseArcher567/applog/pkg/xlog"
)

func newLogger(t *testing.T, opts ...xlog.Option) *xlog.Logger {
	t.Helper()
	log := xlog.New(opts...)
	if err := log.Setup(xlog.Config{AppName: "job", File: xlog.FileConfig{Dir: t.TempDir(), MaxAge: time.Hour}}); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestJobValidate(t *testing.T) {
	noop := func(context.Context, *xlog.Logger) error { return nil }
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"ok", Job{Name: "a", Func: noop}, false},
		{"no name", Job{Func: noop}, true},
		{"no func", Job{Name: "a"}, true},
		{"negative interval", Job{Name: "a", Func: noop, Interval: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.job.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(newLogger(t))

	var once, ticks atomic.Int32
	if err := s.AddJob(&Job{Name: "once", Func: func(context.Context, *xlog.Logger) error {
		once.Add(1)
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddJob(&Job{Name: "tick", Interval: 5 * time.Millisecond, Func: func(context.Context, *xlog.Logger) error {
		ticks.Add(1)
		return errors.New("tick failure is logged, not fatal")
	}}); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrStarted) {
		t.Errorf("second Start() error = %v, want ErrStarted", err)
	}
	if err := s.AddJob(&Job{Name: "late", Func: func(context.Context, *xlog.Logger) error { return nil }}); !errors.Is(err, ErrStarted) {
		t.Errorf("AddJob() after Start error = %v, want ErrStarted", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if once.Load() != 1 {
		t.Errorf("once ran %d times, want 1", once.Load())
	}
	if ticks.Load() < 3 {
		t.Errorf("tick ran %d times, want at least 3", ticks.Load())
	}
}

func TestSchedulerStopTimeout(t *testing.T) {
	s := NewScheduler(newLogger(t))
	release := make(chan struct{})
	defer close(release)

	if err := s.AddJob(&Job{Name: "stuck", Func: func(context.Context, *xlog.Logger) error {
		<-release
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want DeadlineExceeded", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := NewScheduler(newLogger(t))
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestRotationJob(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC).UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()).UTC() }

	log := newLogger(t, xlog.WithClock(clock))
	log.Info("first period")
	first := log.ActiveFile()

	s := NewScheduler(log)
	if err := s.AddJob(RotationJob(5 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(context.Background())

	now.Add(int64(2 * time.Hour))
	deadline := time.Now().Add(2 * time.Second)
	for log.ActiveFile() == first && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if log.ActiveFile() == first {
		t.Fatal("idle log file was not rotated")
	}
}
