package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/brayrpgs/portfolio/internal/app"
	"github.com/brayrpgs/portfolio/internal/config"
	"github.com/brayrpgs/portfolio/internal/handlers"
	"github.com/brayrpgs/portfolio/internal/i18n"
	"github.com/brayrpgs/portfolio/internal/middleware"
	"github.com/brayrpgs/portfolio/internal/observability"
	"github.com/brayrpgs/portfolio/internal/projects"
	"github.com/brayrpgs/portfolio/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, err := newServer(ctx, cfg, logger)
	if err != nil {
		config.Exitf("startup: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("portfolio listening",
		zap.String("addr", cfg.Addr),
		zap.Bool("dev", cfg.Dev),
		zap.String("dataset", cfg.Dataset),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
	logger.Info("portfolio stopped")
}

// newServer wires the portfolio from cfg. Background work (dataset fetches,
// session sweeping) stops when ctx is done.
func newServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (http.Handler, error) {
	table, err := i18n.Load(cfg.LocalesDir, string(i18n.Primary), []string{string(i18n.Primary), string(i18n.Secondary)})
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}
	tmpl, err := render.LoadTemplates(cfg.TemplatesDir, cfg.Dev)
	if err != nil {
		return nil, err
	}
	source, err := projects.NewSource(cfg.Dataset, cfg.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	ttl := cfg.DatasetTTL
	if cfg.Dev {
		// every new session sees dataset edits
		ttl = 0
	}
	loader := projects.NewLoader(source,
		projects.WithCacheTTL(ttl),
		projects.WithLogger(logger.Named("projects")),
	)

	orch := render.New(table, render.WithLogger(logger.Named("render")))
	engineLogger := logger.Named("app")
	registry := app.NewRegistry(func(lang i18n.Language) *app.Engine {
		e := app.NewEngine(orch, lang, app.WithLogger(engineLogger))
		e.Start(ctx, loader)
		return e
	},
		app.WithSessionTTL(cfg.Session.TTL),
		app.WithMaxSessions(cfg.Session.Max),
		app.WithRegistryLogger(engineLogger),
	)
	go registry.Run(ctx, cfg.Session.TTL/2)

	sessions := middleware.NewSessions(cfg.Session.SigningKey,
		middleware.WithSecureCookies(cfg.Session.Secure),
		middleware.WithSessionLogger(logger),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.TraceMiddleware)
	r.Use(observability.RequestLoggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	r.Get("/healthz", handlers.Healthz)
	r.Handle("/assets/*", middleware.AssetsWithCache(filepath.Join(cfg.PublicDir, "assets"), "/assets/"))

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTMX, sessions.Session, sessions.CSRF)
		handlers.New(registry, tmpl, handlers.WithLoadWait(cfg.FetchTimeout)).Routes(r)
	})
	return r, nil
}
