package exception

import "errors"

// Scheduler errors
var (
	ErrSchedulerStopped       = errors.New("scheduler: stopped")
	ErrSchedulerInvalidPeriod = errors.New("scheduler: period must be > 0")
	ErrSchedulerEmptyName     = errors.New("scheduler: empty task name")
	ErrSchedulerDuplicateTask = errors.New("scheduler: task already scheduled")
	ErrSchedulerTaskPanic     = errors.New("scheduler: task panicked")
)
