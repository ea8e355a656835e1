package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/HorseArcher567/applog/pkg/forward"
	"github.com/HorseArcher567/applog/pkg/job"
	"github.com/HorseArcher567/applog/pkg/viewer"
	"github.com/HorseArcher567/applog/pkg/xlog"
	"golang.org/x/sync/errgroup"
)

// BeforeRunHook is executed before the services start. An error aborts Run.
type BeforeRunHook func(ctx context.Context, a *App) error

// ShutdownHook is executed after the services stop. Every hook runs even if an earlier one fails.
type ShutdownHook func(ctx context.Context, a *App) error

const shutdownTimeout = 10 * time.Second

// App owns the logger and the services built around it: the viewer,
// the alert forwarder and the job scheduler that keeps idle files rotating.
type App struct {
	framework Framework

	log     *xlog.Logger
	logOpts []xlog.Option

	viewer    *viewer.Server
	forwarder *forward.Forwarder
	publisher forward.Publisher
	scheduler *job.Scheduler

	beforeRunHooks []BeforeRunHook
	shutdownHooks  []ShutdownHook
}

// New creates an App and sets up its logger from the framework configuration.
// The log folder is resolved here, so a failure is reported before any service starts.
func New(framework *Framework, opts ...Option) (*App, error) {
	if framework == nil {
		return nil, errors.New("app: framework config cannot be nil")
	}

	a := &App{framework: framework.normalize()}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.initLogger(); err != nil {
		return nil, err
	}
	a.scheduler = job.NewScheduler(a.log)
	if err := a.scheduler.AddJob(job.RotationJob(a.framework.RotateInterval)); err != nil {
		a.log.Close()
		return nil, fmt.Errorf("app: rotation job: %w", err)
	}

	if a.framework.Viewer != nil {
		a.viewer = viewer.NewServer(a.log, *a.framework.Viewer)
	}
	if a.framework.Forward.Enabled {
		var fopts []forward.Option
		if a.publisher != nil {
			fopts = append(fopts, forward.WithPublisher(a.publisher))
		}
		a.forwarder = forward.New(a.log, a.framework.Forward, fopts...)
	}
	return a, nil
}

// MustNew 同 New（失败时 panic）
func MustNew(framework *Framework, opts ...Option) *App {
	a, err := New(framework, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *App) initLogger() error {
	if a.log == nil {
		a.log = xlog.New(a.logOpts...)
	}
	if a.log.Active() {
		return nil
	}
	if err := a.log.Setup(a.framework.Logger); err != nil {
		return fmt.Errorf("app: setup logger: %w", err)
	}
	return nil
}

// Logger returns the application logger.
func (a *App) Logger() *xlog.Logger {
	return a.log
}

// Viewer returns the viewer server, or nil when it is disabled.
func (a *App) Viewer() *viewer.Server {
	return a.viewer
}

// Forwarder returns the alert forwarder, or nil when forwarding is disabled.
func (a *App) Forwarder() *forward.Forwarder {
	return a.forwarder
}

// OnBeforeRun registers a hook to be executed before Run.
// Hooks are executed in registration order.
func (a *App) OnBeforeRun(h BeforeRunHook) *App {
	if h != nil {
		a.beforeRunHooks = append(a.beforeRunHooks, h)
	}
	return a
}

// OnShutdown registers a hook to be executed during shutdown.
func (a *App) OnShutdown(h ShutdownHook) *App {
	if h != nil {
		a.shutdownHooks = append(a.shutdownHooks, h)
	}
	return a
}

// AddJob registers a job on the scheduler. It must be called before Run.
func (a *App) AddJob(name string, interval time.Duration, fn job.Func) error {
	return a.scheduler.AddJob(&job.Job{
		Name:     name,
		Interval: interval,
		Func:     fn,
	})
}

// Run starts every enabled service and blocks until ctx is done, SIGINT or
// SIGTERM arrives, or a service fails.
//
// Execution order:
// 1) Run OnBeforeRun hooks;
// 2) Start the job scheduler, the viewer and the forwarder;
// 3) Wait for a shutdown signal or the first service error;
// 4) Stop the scheduler and release the forwarder;
// 5) Run OnShutdown hooks and close the logger.
//
// The logger is closed on return, whatever the outcome.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := a.log.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, h := range a.beforeRunHooks {
		if err := h(ctx, a); err != nil {
			return fmt.Errorf("app: before run hook: %w", err)
		}
	}

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("app: start job scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.viewer != nil {
		g.Go(func() error { return a.viewer.Run(gctx) })
	}
	if a.forwarder != nil {
		g.Go(func() error { return a.forwarder.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	a.log.Info("application started", "dir", a.log.Dir())
	runErr := g.Wait()
	if runErr != nil {
		a.log.Error("service stopped with error", "error", runErr)
	} else {
		a.log.Info("received shutdown signal, stopping all services")
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("app: stop job scheduler: %w", err))
	}
	if a.forwarder != nil {
		if err := a.forwarder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("app: close forwarder: %w", err))
		}
	}
	for _, h := range a.shutdownHooks {
		if err := h(ctx, a); err != nil {
			a.log.Error("shutdown hook failed", "error", err)
			errs = append(errs, err)
		}
	}

	a.log.Info("application shutdown complete")
	return errors.Join(errs...)
}
