package common

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

type RateLimiter struct {
	mu                   sync.Mutex
	restrictions         []Restriction          // Restrictions to consider
	history              []time.Time            // History of requests
	duration             time.Duration          // Min duration to wait for all restrictions to be lifted
	pendingVitalRequests map[uuid.UUID]struct{} // Set of pending vital requests
	stopwatch            Stopwatch              // Running while the upstream asks us to back off
	now                  func() time.Time
}

func NewRateLimiter(restrictions []Restriction) *RateLimiter {
	rl := &RateLimiter{
		pendingVitalRequests: map[uuid.UUID]struct{}{},
		now:                  time.Now,
	}
	// Restrictions are just a copy of the provided ones
	rl.restrictions = append([]Restriction(nil), restrictions...)
	// Duration
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	// Initialise a stopwatch
	rl.stopwatch.Timeout = rl.duration

	return rl
}

// Decide if request is allowed.
// If the request is not allowed but vital, execution
// will block here until it is allowed or the context is done
func (rl *RateLimiter) Allowed(ctx context.Context, vital bool) bool {

	// Give this request a unique identifier
	thisuuid := uuid.New()
	for {
		rl.mu.Lock()
		// Trim history first
		rl.trim()
		// Check if the restrictions allow this request
		analysis := rl.analyse()
		if analysis.allowed {
			_, pending := rl.pendingVitalRequests[thisuuid]
			if vital || len(rl.pendingVitalRequests) == 0 {
				log.Debug().Msg("Allowing request")
				if pending {
					delete(rl.pendingVitalRequests, thisuuid)
				}
				// Include this request in the history as it is allowed
				rl.history = append(rl.history, rl.now())
				rl.mu.Unlock()
				return true
			}
			// Request is not vital and the queue is not empty,
			// so we have to reject the request
			rl.mu.Unlock()
			log.Warn().Msg("Rejecting non vital request because restrictions allow it but vital queue is not empty")
			return false
		}
		if !vital {
			rl.mu.Unlock()
			log.Warn().Msg("Rejecting a non vital request because restrictions do not allow it")
			return false
		}

		// Request is vital and not allowed, so we need
		// to add it to the queue if not there
		rl.pendingVitalRequests[thisuuid] = struct{}{}
		rl.mu.Unlock()

		// and sleep for some time
		log.Warn().Str("request", thisuuid.String()).Dur("wait", analysis.wait).Msg("Vital request delayed")
		timer := time.NewTimer(analysis.wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			rl.mu.Lock()
			delete(rl.pendingVitalRequests, thisuuid)
			rl.mu.Unlock()
			return false
		case <-timer.C:
		}
	}
}

// The upstream told us we went over its limits, so hold every
// request until the longest restriction has elapsed
func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.stopwatch.Start()
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim() {
	currentTime := rl.now()
	// Find the index from which we need to keep the history.
	// Start searching at the end of the slice.
	// I assume times are stored in chronological order
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if currentTime.Sub(rl.history[i]) > rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse() Analysis {

	// Backing off after a 429
	if stopped, left := rl.stopwatch.Stopped(); !stopped {
		return Analysis{false, left}
	}
	rl.stopwatch.Stop()

	// Merge the analyses of each restriction
	currentTime := rl.now()
	var wait time.Duration = 0
	allowed := true
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history, currentTime)
		allowed = allowed && analysis.allowed
		if analysis.wait > wait {
			wait = analysis.wait
		}
	}
	return Analysis{allowed, wait}
}
