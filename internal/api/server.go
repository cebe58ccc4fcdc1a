package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown
const shutdownTimeout = 5 * time.Second

// ServerOptions configures NewServer.
type ServerOptions struct {
	Engine      EngineInterface
	Logger      *zap.Logger
	CORSOrigins []string
	RateLimit   *RateLimitConfig
}

// Server is the HTTP API plus the websocket hub.
type Server struct {
	engine      EngineInterface
	log         *zap.Logger
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
}

// NewServer wires the router and hub.
//
// Background work (the broadcast loop and the listener) only starts in
// Run, so tests can build a server and drive Router() through httptest.
func NewServer(opts ServerOptions) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rlCfg := DefaultRateLimitConfig
	if opts.RateLimit != nil {
		rlCfg = *opts.RateLimit
	}

	s := &Server{
		engine:      opts.Engine,
		log:         log.Named("api"),
		rateLimiter: NewIPRateLimiter(rlCfg),
	}
	s.hub = NewHub(opts.Engine, NewOriginChecker(opts.CORSOrigins), log.Named("ws"))
	s.router = NewRouter(RouterConfig{
		Engine:      opts.Engine,
		Logger:      s.log,
		RateLimiter: s.rateLimiter,
		CORSOrigins: opts.CORSOrigins,
	})
	s.router.Get("/ws", s.hub.HandleWebSocket)
	return s
}

// Run serves on addr and broadcasts snapshots until ctx is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.log.Info("API server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.rateLimiter.Stop()
	s.log.Info("API server stopped")
	return err
}

// Router returns the HTTP handler for use with httptest.
//
//	server := api.NewServer(api.ServerOptions{Engine: engine})
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Stop releases the rate limiter when Run was never called
func (s *Server) Stop() {
	s.rateLimiter.Stop()
}
