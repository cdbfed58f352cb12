package app

import (
	"context"
	"errors"
	"time"

	"github.com/yanun0323/logs"
	"golang.org/x/time/rate"

	"trader/internal/config"
	"trader/internal/market"
	"trader/internal/obs"
	"trader/internal/scheduler"
	"trader/internal/trader"
)

const (
	ReloadTaskName = "config-reload"
	WatchTaskName  = "config-watch"

	_watchDebounce = 200 * time.Millisecond
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCatalog replaces the built-in capability catalog.
func WithCatalog(c *Catalog) RunnerOption {
	return func(r *Runner) { r.catalog = c }
}

// WithClock sets the clock shared by every capability.
func WithClock(c market.Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *obs.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// Runner drives one process lifetime: scheduler, composition, the init
// step, the work loop and the ordered shutdown.
type Runner struct {
	store   *config.Store
	catalog *Catalog
	clock   market.Clock
	metrics *obs.Metrics

	scheduler *scheduler.Scheduler
	container *Container
}

func NewRunner(store *config.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:   store,
		catalog: DefaultCatalog(),
		clock:   market.UTCClock{},
		metrics: obs.NewMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the runner's metrics sink.
func (r *Runner) Metrics() *obs.Metrics {
	return r.metrics
}

// Run blocks until ctx is cancelled or a fatal error occurs. Cancelling ctx
// is a clean shutdown and returns nil. Every fatal error is returned with
// its cause chain intact.
func (r *Runner) Run(ctx context.Context) error {
	settings := r.store.Load()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r.scheduler = scheduler.New(
		scheduler.WithBaseContext(ctx),
		scheduler.WithFaultHandler(func(terr *scheduler.TaskError) {
			r.metrics.IncTaskFault()
			cancel(terr)
		}),
	)
	interval := settings.Reload.Interval
	if interval <= 0 {
		interval = config.DefaultReloadInterval
	}
	if err := r.scheduler.Schedule(ReloadTaskName, interval, r.reloadTask); err != nil {
		return err
	}
	r.scheduler.Start()

	var watcher *config.Watcher
	if settings.Reload.Watch {
		watcher = config.NewWatcher(r.store, _watchDebounce, config.WithReload(func() error {
			if err := r.reloadTask(ctx); err != nil {
				r.metrics.IncTaskFault()
				cancel(&scheduler.TaskError{Task: WatchTaskName, Err: err})
				return err
			}
			return nil
		}))
		if err := watcher.Start(); err != nil {
			logs.Errorf("config: watch %s disabled, err: %+v", r.store.Path(), err)
			watcher = nil
		}
	}

	runErr := r.run(ctx)
	if closeErr := r.shutdown(watcher); closeErr != nil {
		logs.Errorf("shutdown: release resources, err: %+v", closeErr)
		if runErr == nil {
			runErr = closeErr
		}
	}
	return runErr
}

// run turns any panic that reaches it into an InitError so Run still shuts
// down. Capability panics in Initialize and Step are recovered by the Trader.
func (r *Runner) run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &trader.InitError{Capability: "composition", Err: trader.NewPanicError(p)}
		}
	}()

	container, err := Compose(r.catalog, NewDeps(r.store, r.clock),
		trader.WithClock(r.clock),
		trader.WithMetrics(r.metrics),
	)
	if err != nil {
		return err
	}
	r.container = container

	if err := container.Trader.Initialize(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return r.loop(ctx, container.Trader)
}

// loop calls Step back to back. Steps are never cancelled mid-flight; a
// cancelled ctx only prevents the next one.
func (r *Runner) loop(ctx context.Context, t *trader.Trader) error {
	stepCtx := context.WithoutCancel(ctx)
	pacer := newPacer()
	for {
		if err := stopCause(ctx); err != nil || ctx.Err() != nil {
			return err
		}

		if err := pacer.wait(ctx, r.store.Load().Loop.MinInterval); err != nil {
			continue
		}

		if err := t.Step(stepCtx); err != nil {
			return err
		}
	}
}

// stopCause returns the fault that cancelled ctx, or nil when ctx is live
// or was cancelled by the caller.
func stopCause(ctx context.Context) error {
	cause := context.Cause(ctx)
	var terr *scheduler.TaskError
	if errors.As(cause, &terr) {
		return cause
	}
	return nil
}

func (r *Runner) reloadTask(context.Context) error {
	if err := r.store.Reload(); err != nil {
		r.metrics.IncReloadFailure()
		if r.store.Load().Reload.FailureFatal {
			return err
		}
		logs.Errorf("config: reload failed, keeping version %d, err: %+v", r.store.Version(), err)
		return nil
	}
	r.metrics.IncReload()
	return nil
}

// shutdown stops the scheduler and waits for drain before anything is
// released, then closes in reverse construction order.
func (r *Runner) shutdown(watcher *config.Watcher) error {
	if r.container != nil {
		r.container.Trader.Shutdown()
	}

	r.scheduler.StopAndWait()
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logs.Errorf("config: stop watcher, err: %+v", err)
		}
	}

	var err error
	if r.container != nil {
		err = r.container.Close()
	}

	snap := r.metrics.Snapshot()
	logs.Infof("shutdown: steps=%d step_failures=%d orders_placed=%d orders_denied=%d reloads=%d reload_failures=%d task_faults=%d step_avg=%s step_max=%s",
		snap.Steps, snap.StepFailures, snap.OrdersPlaced, deniedTotal(snap), snap.Reloads, snap.ReloadFailures, snap.TaskFaults,
		snap.StepLatency.Avg, snap.StepLatency.Max)
	return err
}

func deniedTotal(snap obs.Snapshot) uint64 {
	var total uint64
	for _, n := range snap.OrdersDenied {
		total += n
	}
	return total
}

// pacer enforces the optional minimum interval between steps. A zero
// interval means no pacing.
type pacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

func newPacer() *pacer {
	return &pacer{}
}

func (p *pacer) wait(ctx context.Context, interval time.Duration) error {
	if interval != p.interval {
		p.interval = interval
		switch {
		case interval <= 0:
			p.limiter = nil
		case p.limiter == nil:
			p.limiter = rate.NewLimiter(rate.Every(interval), 1)
		default:
			p.limiter.SetLimit(rate.Every(interval))
		}
	}
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		// Wait fails fast when the next token is due after ctx's deadline.
		// No step may run before then, so block until ctx ends.
		if ctx.Err() == nil {
			<-ctx.Done()
		}
		return err
	}
	return nil
}
