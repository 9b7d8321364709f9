package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"mediagraph/internal/config"
	"mediagraph/internal/graph"
	"mediagraph/internal/queue"
	"mediagraph/internal/server"
	"mediagraph/internal/service"
	"mediagraph/internal/source/media"
	"mediagraph/internal/source/thepaper"
	"mediagraph/internal/storage/postgres"
	"mediagraph/internal/storage/rediscache"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	graphClient, err := graph.NewClient(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, logger)
	if err != nil {
		logger.Error("failed to connect to neo4j", "error", err)
		os.Exit(1)
	}
	defer graphClient.Close(context.Background())

	if err := graphClient.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to ensure graph indexes", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	statusStore := rediscache.NewStatusStore(redisClient, cfg.Sync.StatusTTL)

	jobs, err := queue.NewRabbitMQ(queue.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
		MaxRetries: cfg.RabbitMQ.MaxRetries,
		RetryDelay: cfg.RabbitMQ.RetryDelay,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer jobs.Close()

	sources := []service.MediaSource{
		media.NewBilibiliSource(db),
		media.NewDouyinSource(db),
		media.NewKuaishouSource(db),
		media.NewWeiboSource(db),
		media.NewXhsSource(db),
		media.NewTiebaSource(db),
		media.NewZhihuSource(db),
	}

	newsSource := thepaper.New(thepaper.Config{
		BaseURL:        cfg.Crawler.BaseURL,
		DetailBaseURL:  cfg.Crawler.DetailBaseURL,
		PageSize:       cfg.Crawler.PageSize,
		Timeout:        cfg.Crawler.Timeout,
		MaxAttempts:    cfg.Crawler.Retry.MaxAttempts,
		InitialBackoff: cfg.Crawler.Retry.InitialBackoff,
		MaxBackoff:     cfg.Crawler.Retry.MaxBackoff,
	}, logger)

	taskStore := postgres.NewTaskStore(db)
	itemStore := postgres.NewItemStore(db)

	syncService := service.NewSyncService(sources, graphClient, statusStore, logger, cfg.Sync)
	crawlService := service.NewCrawlService(newsSource, taskStore, itemStore, graphClient, jobs, logger, cfg.Crawler)
	queryService := service.NewGraphQueryService(graphClient, logger)

	srv := server.New(syncService, crawlService, queryService, jobs, db, graphClient.Ping, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.SetupRouter(),
	}

	go func() {
		logger.Info("starting http server", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
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
