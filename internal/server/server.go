package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"geobot/internal/geoguesser"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// Games currently running, as seen by the admin surface
type SessionLister interface {
	Sessions() []*geoguesser.Session
}

type Server struct {
	srv *http.Server
}

func New(addr string, checks map[string]Checker, sessions SessionLister) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(checks, sessions),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func NewRouter(checks map[string]Checker, sessions SessionLister) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth(checks))
	r.Get("/sessions", handleSessions(sessions))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	log.Info().Str("addr", s.srv.Addr).Msg("Admin server listening")

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}

type checkResult struct {
	Status string `json:"status"`
}

func handleHealth(checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]checkResult, len(checks))
		status := http.StatusOK

		for name, c := range checks {
			if err := c.Check(ctx); err != nil {
				log.Error().Err(err).Str("name", name).Msg("Health check failed")
				results[name] = checkResult{Status: "error"}
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = checkResult{Status: "ok"}
		}

		writeJSON(w, status, results)
	}
}

type sessionInfo struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	HostID    string    `json:"host_id"`
	Mode      string    `json:"mode"`
	State     string    `json:"state"`
	Round     int       `json:"round"`
	Rounds    int       `json:"rounds"`
	StartTime time.Time `json:"start_time"`
}

func handleSessions(sessions SessionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := sessions.Sessions()
		infos := make([]sessionInfo, 0, len(active))
		for _, session := range active {
			info := sessionInfo{
				ID:        session.ID.String(),
				ChannelID: session.ChannelID,
				HostID:    session.HostID,
				Mode:      session.Mode().String(),
				State:     session.State().String(),
				Rounds:    session.RoundCount(),
				StartTime: session.StartTime,
			}
			if round := session.CurrentRound(); round != nil {
				info.Round = round.Number
			}
			infos = append(infos, info)
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Could not write response")
	}
}
