package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leozw/domain-guardian/internal/app"
	"github.com/leozw/domain-guardian/internal/config"
	"github.com/leozw/domain-guardian/internal/scheduler"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.Metrics.StartRemoteWrite(ctx, logger)

	var wg sync.WaitGroup
	switch cfg.Scheduler.Mode {
	case config.ModeInProcess:
		sched := scheduler.NewScheduler(logger)
		if err := scheduler.RegisterSweeps(sched, cfg.Scheduler, a.Monitor); err != nil {
			logger.Fatal("Failed to register sweeps", zap.Error(err))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Start(ctx)
		}()
		logger.Info("Worker started", zap.String("mode", cfg.Scheduler.Mode), zap.Strings("jobs", sched.Jobs()))
	default:
		if a.Queue == nil {
			logger.Fatal("Queue mode requires redis.url")
		}
		for i := 1; i <= max(cfg.Scheduler.WorkerCount, 1); i++ {
			w := scheduler.NewWorker(i, a.Queue, a.Monitor, cfg.Scheduler.PopTimeout, logger)
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Start(ctx)
			}()
		}
		logger.Info("Worker started", zap.String("mode", cfg.Scheduler.Mode), zap.Int("workers", cfg.Scheduler.WorkerCount))
	}

	<-ctx.Done()
	logger.Info("Shutting down worker...")
	wg.Wait()
	logger.Info("Worker exited")
}
