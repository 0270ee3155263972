// Honeytrap - scam engagement honeypot server
package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/honeytrap/internal/api"
	"github.com/ashureev/honeytrap/internal/chat"
	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/housekeeping"
	"github.com/ashureev/honeytrap/internal/metrics"
	"github.com/ashureev/honeytrap/internal/middleware"
	"github.com/ashureev/honeytrap/internal/pipeline"
	"github.com/ashureev/honeytrap/internal/report"
	"github.com/ashureev/honeytrap/internal/store"
	"github.com/ashureev/honeytrap/internal/transcript"
	"github.com/ashureev/honeytrap/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath, cfg.Session.DatabaseMaxRetries, cfg.Session.DatabaseRetryDelay)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	seed := cfg.RNGSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	engine := pipeline.NewEngine(cfg.Tuning, rand.New(rand.NewPCG(seed, seed>>1|1)))

	deliverer, closeDeliverer, err := newDeliverer(cfg.Report, logger)
	if err != nil {
		return err
	}
	defer closeDeliverer()
	dispatcher := report.NewDispatcher(deliverer, report.DispatcherConfig{
		QueueSize:  cfg.Report.QueueSize,
		MaxRetries: cfg.Report.MaxRetries,
		Timeout:    cfg.Report.Timeout,
	}, logger)

	transcripts, err := transcript.New(transcript.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	tracker := metrics.NewTracker()
	svc := pipeline.NewService(engine, repo, dispatcher, logger, transcripts, tracker)
	sm := chat.NewSessionManager()

	allowedOrigin := cfg.FrontendURL
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	auth := middleware.APIKey(cfg.APIKey)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{allowedOrigin}))

	api.NewHandler(svc, repo, tracker, api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst), logger).
		RegisterRoutes(r, auth)
	r.With(auth).Get("/ws/conversation", chat.NewHandler(svc, sm, allowedOrigin, cfg.IsDevelopment()).ServeHTTP)
	r.Handle("/*", web.Handler())

	// Websocket conversations are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(r, "honeytrap"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	worker := housekeeping.New(repo, dispatcher, svc, housekeeping.Config{
		Interval:   cfg.Session.HousekeepingInterval,
		Idle:       cfg.Session.IdleTimeout,
		MaxRetries: cfg.Session.DatabaseMaxRetries,
		RetryDelay: cfg.Session.DatabaseRetryDelay,
	}, func(sessionID string) {
		sm.CloseSession(sessionID)
		tracker.Forget(sessionID)
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Housekeeping worker started", "interval", cfg.Session.HousekeepingInterval, "idle", cfg.Session.IdleTimeout)
		return worker.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			slog.Warn("Pending reports abandoned", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// newDeliverer builds the report targets from configuration. With none
// configured, reports are logged and discarded.
func newDeliverer(cfg config.ReportConfig, logger *slog.Logger) (report.Deliverer, func(), error) {
	targets := report.NewFanout()
	var closers []func()
	if cfg.URL != "" {
		targets.Add(report.NewHTTPDeliverer(cfg.URL, cfg.Timeout))
	}
	if cfg.GRPCAddr != "" {
		d, err := report.NewGRPCDeliverer(report.GRPCConfig{
			Address: cfg.GRPCAddr,
			Method:  cfg.GRPCMethod,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		targets.Add(d)
		closers = append(closers, d.Close)
	}
	if !cfg.Enabled() {
		logger.Info("No report target configured, reports will only be logged")
		targets.Add(report.LogDeliverer{Logger: logger})
	}
	return targets, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
