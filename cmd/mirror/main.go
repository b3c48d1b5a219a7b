package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"pluspress/internal/auth"
	"pluspress/internal/blog/wordpress"
	"pluspress/internal/config"
	"pluspress/internal/domain"
	"pluspress/internal/embed"
	"pluspress/internal/headline"
	"pluspress/internal/metrics"
	"pluspress/internal/notifier"
	"pluspress/internal/render"
	"pluspress/internal/scheduler"
	"pluspress/internal/service"
	"pluspress/internal/source/plus"
	"pluspress/internal/storage/postgres"
	"pluspress/internal/templates"
)

const reauthorizeMessage = "The credentials have been revoked or expired, please re-run the application to re-authorize"

func main() {
	opts, err := config.ParseOptions(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}
	if opts == nil {
		return
	}

	logger := setupLogger("info")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.Apply(opts)

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, reauthorizeMessage)
			logger.Error("authorization failed", "error", err)
			os.Exit(1)
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("mirror failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	httpClient, err := auth.Client(ctx, auth.Config{
		ClientSecrets: cfg.Feed.ClientSecrets,
		TokenFile:     cfg.Feed.TokenFile,
		Scopes:        cfg.Feed.Scopes,
	}, auth.Prompt{In: os.Stdin, Out: os.Stdout}, logger)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	httpClient.Timeout = cfg.Feed.Timeout

	source := plus.New(plus.Config{
		BaseURL:    cfg.Feed.BaseURL,
		UserID:     cfg.Feed.UserID,
		Collection: cfg.Feed.Collection,
		PageSize:   cfg.Feed.PageSize,
	}, httpClient, logger)

	blog, err := wordpress.New(wordpress.Config{
		URL:      cfg.Blog.XMLRPCURL,
		BlogID:   cfg.Blog.BlogID,
		Username: cfg.Blog.Username,
		Password: cfg.Blog.Password,
		Timeout:  cfg.Blog.Timeout,
	}, logger)
	if err != nil {
		return err
	}
	defer blog.Close()

	renderer, err := newRenderer(cfg, blog, logger)
	if err != nil {
		return err
	}

	var (
		syncState service.SyncStateStore
		actions   service.ActionStore
		txManager service.TransactionManager
	)
	if cfg.Database.Enabled() {
		db, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("connected to database")

		syncState = postgres.NewSyncStateStore(db)
		actions = postgres.NewActionStore(db)
		txManager = postgres.NewTransactionManager(db)
	}

	var events service.Notifier
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := notifier.NewRabbitMQ(notifier.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	if cfg.Metrics.ListenAddr != "" {
		srv := serveMetrics(cfg.Metrics.ListenAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	syncService := service.NewSyncService(
		source,
		blog,
		renderer,
		syncState,
		actions,
		txManager,
		events,
		logger,
		cfg.Sync,
		cfg.Blog,
	)

	logger.Info("starting mirror",
		"source", source.Name(),
		"user_id", cfg.Feed.UserID,
		"blog", cfg.Blog.XMLRPCURL,
		"interval", cfg.Sync.Interval,
		"dry_run", cfg.Sync.DryRun,
	)

	return scheduler.NewScheduler(syncService, cfg.Sync.Interval, cfg.Sync.Timeout, logger).Start(ctx)
}

func newRenderer(cfg *config.Config, blog *wordpress.Client, logger *slog.Logger) (*render.Renderer, error) {
	endpoints := make([]embed.Endpoint, 0, len(cfg.Embed.Endpoints))
	for _, ep := range cfg.Embed.Endpoints {
		endpoints = append(endpoints, embed.Endpoint{URL: ep.URL, Schemes: ep.Schemes, Key: ep.Key})
	}
	consumer := embed.New(embed.Config{
		Endpoints: endpoints,
		Timeout:   cfg.Embed.Timeout,
	}, logger)

	tmpl, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	titles, err := headline.NewExtractor()
	if err != nil {
		return nil, err
	}

	// Dry runs must not upload media.
	var media render.MediaHost
	if !cfg.Sync.DryRun {
		media = blog
	}

	return render.New(consumer, media, tmpl, titles, logger, render.Config{
		IncludeLocation: cfg.Render.IncludeLocation,
	}), nil
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return srv
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
