package common

import (
	"sync"
	"time"
)

// Runs a task at most once per period. The owner calls Execute on every
// tick of its own loop; the task only runs when the period has elapsed.
// The game orchestrator uses it to expire abandoned mode selections
type TimedExecutor struct {
	mu        sync.Mutex
	stopwatch Stopwatch
	task      func()
}

// The first Execute always runs the task
func NewTimedExecutor(timeout time.Duration, task func()) *TimedExecutor {
	return &TimedExecutor{stopwatch: NewStopwatch(timeout), task: task}
}

// Reports whether the task ran. The task runs outside the lock
func (te *TimedExecutor) Execute() bool {
	te.mu.Lock()
	stopped, _ := te.stopwatch.Stopped()
	if stopped {
		te.stopwatch.Start()
	}
	te.mu.Unlock()
	if stopped {
		te.task()
	}
	return stopped
}
