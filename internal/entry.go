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

	"github.com/starford/dataforge/internal/api"
	"github.com/starford/dataforge/internal/dashservice"
	"github.com/starford/dataforge/internal/importer"
	"github.com/starford/dataforge/internal/inbox"
	"github.com/starford/dataforge/internal/mcpserver"
	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/sse"
	"github.com/starford/dataforge/internal/state"
	"github.com/starford/dataforge/internal/storage"
)

// Run starts the HTTP server, the SSE stream and the inbox watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.logWriter(os.Stdout), cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.Bool("inbox_enabled", cfg.Inbox.Enabled),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	// SSE broker fed by every store transition.
	broker := sse.NewBroker(cfg.Events.LayoutThrottle)
	defer broker.Close()
	detach := broker.Attach(svc.Store())
	defer detach()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Inbox.Enabled {
		w := inbox.New(svc.Files(), svc, cfg.Inbox.Path,
			inbox.WithLogger(logger),
			inbox.WithCallback(func(path string, ds *models.DataSource) {
				broker.Publish(sse.Event{Type: sse.InboxImported, Data: map[string]any{
					"path":         path,
					"dataSourceId": ds.ID,
				}})
			}),
		)
		g.Go(func() error {
			if err := w.Watch(gCtx); err != nil {
				logger.Error("inbox watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.logWriter(os.Stderr), cfg.App.LogLevel)
	slog.SetDefault(logger)

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.String("workspace_path", cfg.Workspace.Path))
	if err := mcpserver.New(svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logWriter(def io.Writer) io.Writer {
	if a.logOutput != nil {
		return a.logOutput
	}
	return def
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// newService prepares the workspace and builds the dashboard service.
func newService(cfg *Config) (*dashservice.Service, error) {
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	return dashservice.NewService(state.NewStore(), files, importer.New()), nil
}
