package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestrictionAllowsUnderLimit(t *testing.T) {
	now := time.Now()
	r := Restriction{Requests: 2, Duration: time.Second}
	analysis := r.Analyse([]time.Time{now.Add(-100 * time.Millisecond)}, now)
	assert.True(t, analysis.allowed)
	assert.Zero(t, analysis.wait)
}

func TestRestrictionEmptyHistory(t *testing.T) {
	r := Restriction{Requests: 1, Duration: time.Second}
	assert.True(t, r.Analyse(nil, time.Now()).allowed)
}

func TestRestrictionRejectsAndComputesWait(t *testing.T) {
	now := time.Now()
	r := Restriction{Requests: 2, Duration: time.Second}
	history := []time.Time{
		now.Add(-5 * time.Second),
		now.Add(-800 * time.Millisecond),
		now.Add(-200 * time.Millisecond),
	}
	analysis := r.Analyse(history, now)
	assert.False(t, analysis.allowed)
	assert.Equal(t, 200*time.Millisecond, analysis.wait)
}

func TestRateLimiterRejectsNonVitalOverLimit(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: time.Hour}})
	ctx := context.Background()
	assert.True(t, rl.Allowed(ctx, false))
	assert.False(t, rl.Allowed(ctx, false))
}

func TestRateLimiterVitalWaitsForContext(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: time.Hour}})
	require.True(t, rl.Allowed(context.Background(), true))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, rl.Allowed(ctx, true))
	assert.Empty(t, rl.pendingVitalRequests)
}

func TestRateLimiterVitalEventuallyAllowed(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: 30 * time.Millisecond}})
	ctx := context.Background()
	require.True(t, rl.Allowed(ctx, true))
	start := time.Now()
	assert.True(t, rl.Allowed(ctx, true))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRateLimiterBacksOffAfterRateLimit(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 100, Duration: time.Hour}})
	rl.ReceivedRateLimit()
	assert.False(t, rl.Allowed(context.Background(), false))
}

func TestStopwatch(t *testing.T) {
	s := NewStopwatch(time.Hour)
	stopped, _ := s.Stopped()
	assert.True(t, stopped, "a stopwatch that never started is stopped")

	s.Start()
	stopped, left := s.Stopped()
	assert.False(t, stopped)
	assert.Greater(t, left, 59*time.Minute)
	assert.Less(t, s.TimeStopped(), time.Duration(0))

	s.Timeout = 0
	stopped, _ = s.Stopped()
	assert.True(t, stopped)
}

func TestTimedExecutor(t *testing.T) {
	calls := 0
	te := NewTimedExecutor(time.Hour, func() { calls++ })
	assert.True(t, te.Execute())
	assert.False(t, te.Execute())
	assert.Equal(t, 1, calls)
}

func TestProxyRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "value", r.Header.Get("X-Test"))
			w.Write([]byte("hello"))
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	proxy := NewProxy(map[string]string{"X-Test": "value"}, nil, time.Second)
	var observed []int
	proxy.SetObserver(func(url string, code int, elapsed time.Duration) { observed = append(observed, code) })
	ctx := context.Background()

	data, err := proxy.Request(ctx, srv.URL+"/ok", true)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = proxy.Request(ctx, srv.URL+"/missing", true)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, DATA_NOT_FOUND, statusErr.Code)

	_, err = proxy.Request(ctx, srv.URL+"/limited", true)
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, RATE_LIMIT_EXCEEDED, statusErr.Code)

	assert.Equal(t, []int{200, 404, 429}, observed)
}
