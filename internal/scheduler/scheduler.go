package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yanun0323/logs"

	"trader/pkg/exception"
)

// Task is one invocation of a recurring job.
type Task func(ctx context.Context) error

// FaultHandler receives every escalated task failure. It is called on the
// scheduler's goroutine and must not block.
type FaultHandler func(err *TaskError)

// TaskError wraps a failed or panicked task invocation.
type TaskError struct {
	Task  string
	Err   error
	Panic any
	Stack []byte
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("scheduled task %q: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFaultHandler sets where task failures are escalated to.
func WithFaultHandler(fn FaultHandler) Option {
	return func(s *Scheduler) { s.onFault = fn }
}

// WithVerboseLog logs every cron lifecycle event.
func WithVerboseLog() Option {
	return func(s *Scheduler) { s.verbose = true }
}

// WithBaseContext sets the context handed to tasks. Stopping the scheduler
// never cancels it; an in-flight task always runs to completion.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Scheduler) { s.ctx = context.WithoutCancel(ctx) }
}

// Scheduler runs named tasks on fixed periods in its own goroutines,
// independent from the caller's loop.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	onFault FaultHandler
	verbose bool

	mu      sync.Mutex
	tasks   map[string]*entry
	started bool
	stopped atomic.Bool
}

type entry struct {
	name     string
	task     Task
	schedule *periodic
	id       cron.EntryID
	runs     atomic.Uint64
	faults   atomic.Uint64
}

// New creates a stopped scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		ctx:   context.Background(),
		tasks: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	logger := cronLogger{verbose: s.verbose}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	return s
}

// Schedule registers task to run every period. The first run happens one
// full period after Start (or after Schedule, when already started).
func (s *Scheduler) Schedule(name string, period time.Duration, task Task) error {
	if name == "" {
		return exception.ErrSchedulerEmptyName
	}
	if period <= 0 {
		return fmt.Errorf("schedule %q: %w", name, exception.ErrSchedulerInvalidPeriod)
	}
	if task == nil {
		return fmt.Errorf("schedule %q: %w", name, exception.ErrNilInstance)
	}
	if s.stopped.Load() {
		return fmt.Errorf("schedule %q: %w", name, exception.ErrSchedulerStopped)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[name]; ok {
		return fmt.Errorf("schedule %q: %w", name, exception.ErrSchedulerDuplicateTask)
	}

	e := &entry{
		name:     name,
		task:     task,
		schedule: &periodic{period: period},
	}
	if s.started {
		e.schedule.anchor = time.Now()
	}
	e.id = s.cron.Schedule(e.schedule, s.job(e))
	s.tasks[name] = e
	logs.Infof("scheduler: task %s registered, every %s", name, period)
	return nil
}

// Start begins running every registered task. Calling Start twice, or
// after StopAndWait, does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped.Load() {
		return
	}
	now := time.Now()
	for _, e := range s.tasks {
		e.schedule.anchor = now
	}
	s.started = true
	s.cron.Start()
	logs.Infof("scheduler: started with %d task(s)", len(s.tasks))
}

// StopAndWait prevents any further task invocation and blocks until every
// in-flight invocation has returned. It is safe to call more than once.
func (s *Scheduler) StopAndWait() {
	first := !s.stopped.Swap(true)
	<-s.cron.Stop().Done()
	if first {
		logs.Info("scheduler: stopped and drained")
	}
}

// Stopped reports whether StopAndWait has been called.
func (s *Scheduler) Stopped() bool {
	return s.stopped.Load()
}

// Runs returns how many times the named task has started.
func (s *Scheduler) Runs(name string) uint64 {
	s.mu.Lock()
	e := s.tasks[name]
	s.mu.Unlock()
	if e == nil {
		return 0
	}
	return e.runs.Load()
}

// Faults returns how many invocations of the named task were escalated.
func (s *Scheduler) Faults(name string) uint64 {
	s.mu.Lock()
	e := s.tasks[name]
	s.mu.Unlock()
	if e == nil {
		return 0
	}
	return e.faults.Load()
}

// Tasks returns the registered task names in sorted order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (s *Scheduler) job(e *entry) cron.Job {
	return cron.FuncJob(func() {
		if s.stopped.Load() {
			return
		}
		e.runs.Add(1)
		if terr := s.invoke(e); terr != nil {
			e.faults.Add(1)
			s.escalate(terr)
		}
	})
}

func (s *Scheduler) invoke(e *entry) (terr *TaskError) {
	defer func() {
		if r := recover(); r != nil {
			terr = &TaskError{
				Task:  e.name,
				Err:   fmt.Errorf("%w: %v", exception.ErrSchedulerTaskPanic, r),
				Panic: r,
				Stack: debug.Stack(),
			}
		}
	}()

	if err := e.task(s.ctx); err != nil {
		return &TaskError{Task: e.name, Err: err}
	}
	return nil
}

func (s *Scheduler) escalate(terr *TaskError) {
	logs.Errorf("scheduler: task %s failed, err: %+v", terr.Task, terr.Err)
	if s.onFault != nil {
		s.onFault(terr)
	}
}

// periodic fires on a fixed grid anchored at start time, so N periods
// always yield N activations regardless of how late each timer fired.
type periodic struct {
	period time.Duration
	anchor time.Time
}

func (p *periodic) Next(t time.Time) time.Time {
	if p.anchor.IsZero() || t.Before(p.anchor) {
		return t.Add(p.period)
	}
	n := t.Sub(p.anchor)/p.period + 1
	return p.anchor.Add(n * p.period)
}
