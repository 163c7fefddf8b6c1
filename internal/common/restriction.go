package common

import "time"

// At most Requests calls to an upstream inside any window of length Duration.
// A restriction with no requests does not limit anything
type Restriction struct {
	Requests int
	Duration time.Duration
}

// Decide whether a call made at now fits in the window, given the
// times of the previous calls, oldest first
func (rest *Restriction) Analyse(history []time.Time, now time.Time) Analysis {

	if rest.Requests <= 0 {
		return Analysis{true, 0}
	}
	// Walk back from the newest call until one falls out of the window
	count := 0
	for i := len(history) - 1; i >= 0; i-- {
		if now.Sub(history[i]) > rest.Duration {
			break
		}
		count++
	}
	if count < rest.Requests {
		return Analysis{true, 0}
	}

	// Full: wait until the oldest call inside the window leaves it
	oldest := history[len(history)-count]
	return Analysis{false, oldest.Add(rest.Duration).Sub(now)}
}
