// internal/httpserver/server.go
//
// HTTP server wiring for the astromatch backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, rate limit).
//   - Public endpoints: "/", "/health", "/settings", "/leaderboard", "/metrics".
//   - Game endpoints under /game (player cookie required, issued on first visit).
//   - Websocket event stream for renderers: GET /game/{id}/events.
//   - Background sweep of idle sessions.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so the player cookie works).
//   - The websocket route is mounted outside the request timeout.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/astromatch/internal/config"
	"github.com/robalobadob/astromatch/internal/deck"
	"github.com/robalobadob/astromatch/internal/match"
	"github.com/robalobadob/astromatch/internal/metrics"
	"github.com/robalobadob/astromatch/internal/scores"
	"github.com/robalobadob/astromatch/internal/store"
)

const sweepInterval = time.Minute

// ImageSource supplies candidate images for a deck.
type ImageSource interface {
	FetchImages(ctx context.Context, count int) ([]deck.Image, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Config    *config.Config
	Sessions  store.Store
	Scores    scores.Recorder
	Images    ImageSource
	Registry  *prometheus.Registry
	Scheduler match.Scheduler // nil uses the wall clock
}

// Server bundles the router and its collaborators.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	sessions store.Store
	scores   scores.Recorder
	images   ImageSource
	metrics  *metrics.Metrics
	sched    match.Scheduler
	origins  []string       // websocket origin patterns
	pending  sync.WaitGroup // score writes still in flight
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		sessions: d.Sessions,
		scores:   d.Scores,
		images:   d.Images,
		metrics:  metrics.New(reg),
		sched:    d.Scheduler,
		origins:  originPatterns(d.Config.Server.ClientOrigin),
	}
	if s.sched == nil {
		s.sched = match.RealScheduler{}
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.corsFromConfig)
	if d.Config.Server.RatePerSec > 0 {
		s.r.Use(rateLimit(newClientLimiter(rate.Limit(d.Config.Server.RatePerSec), d.Config.Server.RateBurst)))
	}

	// Websocket stream: no timeout, no JSON content type.
	s.r.With(s.withPlayer).Get("/game/{id}/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"astromatch-go","endpoints":["/health","/settings","POST /game/new","POST /game/{id}/flip","/leaderboard"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/settings", s.handleSettings)
		r.Get("/leaderboard", s.handleLeaderboard)

		// Game endpoints (player cookie issued on demand)
		g := r.With(s.withPlayer)
		g.Post("/game/new", s.handleNewGame)
		g.Get("/game/{id}", s.handleGetGame)
		g.Post("/game/{id}/flip", s.handleFlip)
		g.Post("/game/{id}/ready", s.handleReady)
		g.Delete("/game/{id}", s.handleAbandon)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found", r.URL.Path)
		})
	})

	s.r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Start serves HTTP on addr until ctx is cancelled, sweeping idle sessions
// in the background.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.sweep(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	err := srv.ListenAndServe()
	s.pending.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweep abandons idle sessions until ctx is done.
func (s *Server) sweep(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Sweep(s.cfg.Server.SessionIdle); n > 0 {
				log.Info().Int("sessions", n).Msg("swept idle sessions")
			}
			s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
		}
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromConfig enables credentialed CORS for the configured client origin.
func (s *Server) corsFromConfig(next http.Handler) http.Handler {
	origin := s.cfg.Server.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originPatterns turns the client origin into a websocket host pattern.
func originPatterns(origin string) []string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

// ------------------------------- helpers -----------------------------------

type errorRes struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Retry   bool   `json:"retry,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorRes{Error: code, Message: msg})
}
