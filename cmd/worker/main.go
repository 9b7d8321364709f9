package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"mediagraph/internal/config"
	"mediagraph/internal/graph"
	"mediagraph/internal/queue"
	"mediagraph/internal/scheduler"
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

	handler := func(ctx context.Context, job *queue.Job) error {
		switch job.Kind {
		case queue.JobMediaSync:
			if job.Platform != "" {
				_, err := syncService.SyncPlatform(ctx, job.Platform, job.Limit)
				return err
			}
			_, err := syncService.SyncAll(ctx, job.Limit)
			return err
		case queue.JobCrawl:
			return crawlService.RunTask(ctx, job.TaskID)
		case queue.JobTaskSync:
			_, err := crawlService.SyncTask(ctx, job.TaskID)
			return err
		default:
			return fmt.Errorf("unknown job kind %q", job.Kind)
		}
	}

	if cfg.Sync.Interval > 0 {
		sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, logger)
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler error", "error", err)
			}
		}()
	}

	logger.Info("worker started", "queue", cfg.RabbitMQ.QueueName)

	if err := jobs.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer error", "error", err)
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
