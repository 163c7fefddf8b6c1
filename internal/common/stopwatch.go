package common

import (
	"time"
)

// Measures time since Start and tells when Timeout has passed. Sessions
// use one for their play time and one for the mode selection deadline
type Stopwatch struct {
	Timeout   time.Duration
	startTime time.Time
	Running   bool
}

func NewStopwatch(timeout time.Duration) Stopwatch {
	return Stopwatch{timeout, time.Time{}, false}
}

func (s *Stopwatch) Start() {
	s.Running = true
	s.startTime = time.Now()
}

func (s *Stopwatch) Stop() {
	s.Running = false
}

// Time since the stopwatch was last started
func (s *Stopwatch) Elapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// How long ago the timeout expired. Negative while it has not
func (s *Stopwatch) TimeStopped() time.Duration {
	return time.Since(s.startTime.Add(s.Timeout))
}

// Whether the timeout expired, and if not how much is left.
// A stopwatch that is not running counts as expired
func (s *Stopwatch) Stopped() (bool, time.Duration) {
	if !s.Running {
		return true, 0
	}
	stopped := s.TimeStopped()
	if stopped >= 0 {
		return true, 0
	}
	return false, -stopped
}
