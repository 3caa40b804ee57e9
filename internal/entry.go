// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/docstore"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/metrics"
	"github.com/starford/raido/internal/resource"
	"github.com/starford/raido/internal/schema"
	"github.com/starford/raido/internal/sse"
	pkgconfig "github.com/starford/raido/pkg/config"
)

var errConfigRequired = errors.New("config is required")

// newLogger builds the JSON logger. The returned LevelVar lets a config
// reload change verbosity without rebuilding the handler.
func newLogger(w io.Writer, level slog.Level) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})), lv
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, level := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := docstore.Open(cfg.SQLite.Path, schema.Default())
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	var m *metrics.Metrics
	if cfg.App.Metrics.Enabled {
		m = metrics.New()
	}

	engine := resource.New(store, schema.Default(),
		resource.WithNotifier(broker),
		resource.WithLimits(cfg.Query.DefaultLimit, cfg.Query.MaxLimit),
		resource.WithLogger(logger))

	r := newRouter(cfg, engine, store, broker, m)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if app.configPath != "" {
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, app.configPath, NewDefaultConfig,
				func(next *Config) {
					level.Set(next.App.LogLevel)
					logger.Info("Configuration reloaded",
						slog.String("log_level", next.App.LogLevel.String()))
					broker.Broadcast(sse.Event{
						Type: "config.reloaded",
						Data: map[string]string{"log_level": next.App.LogLevel.String()},
					})
				},
				func(err error) {
					logger.Warn("config reload failed", slog.String("error", err.Error()))
				})
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stop the config watcher once the server is down.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// pinger is satisfied by the document store.
type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(cfg *Config, engine *resource.Engine, db pinger, events http.Handler, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			writeHealth(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeHealth(w, http.StatusOK, "ok")
	})

	if m != nil {
		r.Handle(cfg.App.Metrics.Path, m.Handler())
	}

	r.Mount("/api", api.NewRouter(engine, api.Options{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      events,
		Metrics:     m,
	}))

	return r
}

func writeHealth(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, msg)
}

// RunMCP serves the resource tools over stdio until the client disconnects.
// Logs go to stderr since stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, _ := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	store, err := docstore.Open(cfg.SQLite.Path, schema.Default())
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	engine := resource.New(store, schema.Default(),
		resource.WithLimits(cfg.Query.DefaultLimit, cfg.Query.MaxLimit),
		resource.WithLogger(logger))

	logger.Info("Starting MCP server", slog.String("sqlite_path", cfg.SQLite.Path))
	if err := mcpserver.New(engine, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
