package api

import (
	"net/http"
	"time"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game"
	"arena-shooter/internal/input"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// EngineInterface is the slice of the engine the API layer calls. Tests
// provide a fake; production passes *game.Engine.
type EngineInterface interface {
	// Snapshot returns the latest published tick (false before the first)
	Snapshot() (game.GameSnapshot, bool)
	// Stats returns operator counters
	Stats() game.EngineStats
	// Tuning returns the configuration the session runs with
	Tuning() config.Tuning
	// SubmitInput stores a client input sample for the next tick
	SubmitInput(s input.Sample)
	SetSpawning(enabled bool)
	SpawnEnemy() (game.EnemySnapshot, error)
	SetPaused(paused bool)
	// Restart ends the session and returns the new session id
	Restart() string
	Runs(n int) []game.RunResult
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine: fakeEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the running session (required)
	Engine EngineInterface

	// Logger receives request logs. Nil disables them.
	Logger *zap.Logger

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil. If both are nil,
	// DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost origins are allowed.
	CORSOrigins []string
}

type routerHandlers struct {
	engine EngineInterface
	log    *zap.Logger
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It has no side effects beyond creating a rate limiter when none is
// passed, so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Middleware - Order matters!
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	h := &routerHandlers{engine: cfg.Engine, log: logger}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/config", h.handleGetConfig)
		r.Get("/runs", h.handleGetRuns)

		r.Route("/director", func(r chi.Router) {
			r.Post("/spawning", h.handleSetSpawning)
			r.Post("/spawn", h.handleSpawn)
		})

		r.Route("/session", func(r chi.Router) {
			r.Post("/restart", h.handleRestart)
			r.Post("/pause", h.handlePause)
		})

		r.Post("/input", h.handleInput)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}

// requestLogger logs each request and feeds the HTTP metrics. The route
// pattern, not the raw path, is used as the endpoint label.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			endpoint := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					endpoint = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			RecordRequest(r.Method, endpoint, status, elapsed)

			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
				zap.String("requestId", middleware.GetReqID(r.Context())),
			)
		})
	}
}
