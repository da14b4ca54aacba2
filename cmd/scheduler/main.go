package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/leozw/domain-guardian/internal/config"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/leozw/domain-guardian/internal/queue"
	"github.com/leozw/domain-guardian/internal/scheduler"
	"github.com/leozw/domain-guardian/internal/storage/redis"
	"go.uber.org/zap"
)

// The scheduler only enqueues; workers run the sweeps.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.Redis.URL == "" {
		logger.Fatal("redis.url is required by the scheduler")
	}
	cache := redis.NewClient(cfg.Redis.URL, cfg.Redis.HealthTTL)
	defer cache.Close()

	jobQueue := queue.NewRedisQueue(cache.Client, cfg.Redis.QueueName)
	collector := metrics.NewCollector(cfg.Mimir)

	sched := scheduler.NewScheduler(logger)
	if err := scheduler.RegisterEnqueuers(sched, cfg.Scheduler, jobQueue, collector, cfg.Redis.QueueName); err != nil {
		logger.Fatal("Failed to register jobs", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go collector.StartRemoteWrite(ctx, logger)

	logger.Info("Scheduler started", zap.Strings("jobs", sched.Jobs()))
	sched.Start(ctx)
	logger.Info("Scheduler stopped")
}
