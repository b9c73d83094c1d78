package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/fitlog/internal/backend"
	"github.com/claude/fitlog/internal/config"
	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/logging"
	"github.com/claude/fitlog/internal/measurement"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/server"
	"github.com/claude/fitlog/internal/session"
	"github.com/claude/fitlog/internal/storage"
	"github.com/claude/fitlog/internal/template"
	"github.com/claude/fitlog/internal/workspace"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logging.Setup(logging.Params{
		Level:     cfg.Log.Level,
		JSON:      cfg.Log.Format == "json",
		FileName:  cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		ToStdout:  cfg.Log.Stdout,
	})
	log.Info("fitlog starting", "version", Version)

	if err := run(cfg, log, *migrateOnly); err != nil {
		log.Error("fitlog stopped with error", "error", err)
		_ = logCloser.Close()
		os.Exit(1)
	}
	if err := logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
	}
}

func run(cfg *config.Config, log *slog.Logger, migrateOnly bool) (err error) {
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations applied")

	if migrateOnly {
		log.Info("migrate-only: exiting")
		return nil
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn, cfg.Database.SimpleProtocol)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer db.Close()
	log.Info("database connected")

	reg := metrics.NewRegistry()
	m := metrics.NewManager("fitlog", "server", reg)

	workspaces := workspace.NewRegistry(db, session.Options{Log: log, Recorder: m}, log)
	defer workspaces.Shutdown()

	opts := server.Options{
		Store:          db,
		Templates:      template.NewService(db, log),
		Measurements:   measurement.NewService(db, log),
		Workspaces:     workspaces,
		Importer:       alpha.NewProvider(db, log),
		LoginPerMinute: cfg.Redis.LoginPerMinute,
		Metrics:        m,
		Gatherer:       reg,
		JWTSecret:      cfg.Auth.JWTSecret,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		Log:            log,
	}

	if cfg.Supabase.URL != "" {
		be, err := backend.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, log)
		if err != nil {
			return fmt.Errorf("creating backend client: %w", err)
		}
		opts.Backend = be
		log.Info("auth backend configured", "url", cfg.Supabase.URL)
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { err = multierr.Append(err, rdb.Close()) }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting redis %s: %w", cfg.Redis.Addr, err)
		}
		opts.RateLimiter = redis_rate.NewLimiter(rdb)
		log.Info("login rate limiting enabled", "per_minute", cfg.Redis.LoginPerMinute)
	}

	srv := server.New(opts)
	if cfg.Server.StaticDir != "" {
		srv.SetStatic(cfg.Server.StaticDir)
		log.Info("serving static files", "dir", cfg.Server.StaticDir)
	}

	var listener net.Listener
	if cfg.Tailscale.Enabled {
		ts := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := ts.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		defer func() { err = multierr.Append(err, ts.Close()) }()

		listener, err = ts.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
