package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"arena-shooter/internal/api"
	"arena-shooter/internal/config"
	"arena-shooter/internal/game"
	"arena-shooter/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "arena-shooter:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env from the repo root or the working directory; neither is required
	envFile := ""
	for _, p := range []string{"../.env", ".env"} {
		if err := godotenv.Load(p); err == nil {
			envFile = p
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	if envFile != "" {
		log.Info("loaded environment file", zap.String("path", envFile))
	}

	seed := game.SeedFrom(cfg.Tuning.Session.Seed)
	engine, err := game.NewEngine(game.Options{
		Tuning: cfg.Tuning,
		Seed:   seed,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	engine.SetTickObserver(api.ObserveTick)

	if cfg.Server.EventLog != "" {
		if err := engine.StartEventLog(cfg.Server.EventLog); err != nil {
			log.Warn("event log disabled", zap.Error(err))
		} else {
			log.Info("event log", zap.String("path", cfg.Server.EventLog))
			defer engine.StopEventLog()
		}
	}

	server := api.NewServer(api.ServerOptions{
		Engine:      engine,
		Logger:      log,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	debug := api.NewDebugServer(cfg.Observability, log.Named("debug"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Start()
	defer engine.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
	})
	if debug != nil {
		g.Go(func() error {
			log.Info("debug server listening", zap.String("addr", debug.Addr))
			if err := debug.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return debug.Close()
		})
	}

	log.Info("arena running",
		zap.String("session", engine.SessionID()),
		zap.Int64("seed", seed),
		zap.Int("port", cfg.Server.Port),
		zap.Int("tps", cfg.Tuning.Sim.TickRate),
	)

	err = g.Wait()
	log.Info("shutting down", zap.Uint64("ticks", engine.TickCount()), zap.Error(err))
	return err
}
