package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geobot", Name: "sessions_started_total", Help: "Games started"},
		[]string{"mode"},
	)
	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geobot", Name: "sessions_ended_total", Help: "Games ended, by outcome"},
		[]string{"outcome"},
	)
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "geobot", Name: "sessions_active", Help: "Channels with a game in progress"})
	RoundsPlayed   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "geobot", Name: "rounds_played_total", Help: "Rounds whose results were posted"})

	Guesses = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geobot", Name: "guesses_total", Help: "Guesses received, by outcome"},
		[]string{"outcome"},
	)
	GuessScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geobot",
		Name:      "guess_score",
		Help:      "Score of accepted guesses",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	LocationSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geobot", Name: "location_samples_total", Help: "Location sampling attempts, by outcome"},
		[]string{"outcome"},
	)
	LocationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geobot", Name: "locations_served_total", Help: "Locations handed to games, by source"},
		[]string{"source"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geobot", Name: "upstream_requests_total", Help: "Requests to the maps platform"},
		[]string{"route", "status"},
	)
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geobot",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of requests to the maps platform",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Matches common.RequestObserver
func ObserveUpstream(route string, code int, elapsed time.Duration) {
	UpstreamRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	UpstreamDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
