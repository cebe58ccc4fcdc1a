package api

import (
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics with bounded cardinality (no per-enemy or per-client labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one simulation step",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
	})

	liveEnemies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_enemies_live",
		Help: "Enemies currently checked out of the pool",
	})

	liveProjectiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_projectiles_live",
		Help: "Projectiles currently in flight",
	})

	spawnInterval = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_spawn_interval_seconds",
		Help: "Current director spawn interval",
	})

	playerHealth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_player_health_ratio",
		Help: "Player health normalized to [0, 1]",
	})

	sessionKills = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_session_kills",
		Help: "Enemies killed in the current session",
	})

	sessionShots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_session_shots",
		Help: "Projectiles fired in the current session",
	})

	sessionPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_session_paused",
		Help: "1 while scaled time is frozen",
	})

	// reason is one of: rate_limit, origin, ws_total_limit, ws_ip_limit
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_websocket_connections_active",
		Help: "Currently open websocket connections",
	})

	// direction is one of: sent, received, dropped
	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_websocket_messages_total",
		Help: "Websocket messages by direction",
	}, []string{"direction"})
)

// ObserveTick is installed as the engine's tick observer
func ObserveTick(s game.TickStats) {
	tickDuration.Observe(s.Duration.Seconds())
	liveEnemies.Set(float64(s.Live))
	liveProjectiles.Set(float64(s.Projectiles))
	spawnInterval.Set(s.Interval)
	playerHealth.Set(s.Health)
	sessionKills.Set(float64(s.Kills))
	sessionShots.Set(float64(s.Shots))
	if s.Paused {
		sessionPaused.Set(1)
	} else {
		sessionPaused.Set(0)
	}
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections sets the open websocket gauge
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

func countWSMessage(direction string) {
	wsMessagesTotal.WithLabelValues(direction).Inc()
}

// NewDebugServer builds the pprof and metrics server. It returns nil when
// the debug server is disabled. The listen address is forced to loopback
// unless ALLOW_DEBUG_EXTERNAL=true.
func NewDebugServer(cfg config.ObservabilityConfig, log *zap.Logger) *http.Server {
	if !cfg.Enabled {
		log.Info("debug server disabled")
		return nil
	}

	addr := cfg.ListenAddr
	if !isLoopback(addr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Warn("debug server forced to localhost", zap.String("requested", addr))
		addr = "127.0.0.1:6060"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
