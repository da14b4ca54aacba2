package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/config"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/leozw/domain-guardian/internal/monitor"
	"github.com/leozw/domain-guardian/internal/queue"
	"go.uber.org/zap"
)

// Sweeper is the monitoring work behind each job type.
type Sweeper interface {
	RunHealthSweep(ctx context.Context) (*monitor.HealthSweepSummary, error)
	RunSSLExpirySweep(ctx context.Context) (*monitor.SSLSweepSummary, error)
	RunAnalyticsCollection(ctx context.Context) (*monitor.AnalyticsSummary, error)
	CheckDomain(ctx context.Context, domainID uuid.UUID) (*core.HealthCheckResult, error)
}

type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.Job, error)
}

type JobQueue interface {
	Push(ctx context.Context, job *queue.Job) error
	Length(ctx context.Context) (int64, error)
}

// Dispatch runs the sweep named by job.Type.
func Dispatch(ctx context.Context, sweeper Sweeper, job *queue.Job) error {
	var err error
	switch job.Type {
	case queue.JobHealthSweep:
		_, err = sweeper.RunHealthSweep(ctx)
	case queue.JobSSLExpirySweep:
		_, err = sweeper.RunSSLExpirySweep(ctx)
	case queue.JobAnalyticsCollection:
		_, err = sweeper.RunAnalyticsCollection(ctx)
	case queue.JobDomainCheck:
		id, perr := uuid.Parse(job.DomainID)
		if perr != nil {
			return fmt.Errorf("domain check job %s: bad domain id: %w", job.ID, core.ErrInvalidInput)
		}
		_, err = sweeper.CheckDomain(ctx, id)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
	return err
}

// RegisterSweeps wires the three cadences straight to the sweeper.
func RegisterSweeps(s *Scheduler, cfg config.SchedulerConfig, sweeper Sweeper) error {
	for _, j := range cadences(cfg) {
		job := &queue.Job{Type: j.jobType}
		if err := s.Register(j.jobType, j.spec, func(ctx context.Context) error {
			return Dispatch(ctx, sweeper, job)
		}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEnqueuers wires the three cadences to pushes onto q.
func RegisterEnqueuers(s *Scheduler, cfg config.SchedulerConfig, q JobQueue, collector *metrics.Collector, queueName string) error {
	for _, j := range cadences(cfg) {
		jobType := j.jobType
		if err := s.Register(jobType, j.spec, func(ctx context.Context) error {
			if err := q.Push(ctx, queue.NewJob(jobType)); err != nil {
				return fmt.Errorf("failed to enqueue %s: %w", jobType, err)
			}
			if n, err := q.Length(ctx); err == nil {
				collector.SetQueueLength(queueName, n)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

type cadence struct {
	jobType string
	spec    string
}

func cadences(cfg config.SchedulerConfig) []cadence {
	return []cadence{
		{queue.JobHealthSweep, cfg.HealthSweep},
		{queue.JobSSLExpirySweep, cfg.SSLExpirySweep},
		{queue.JobAnalyticsCollection, cfg.Analytics},
	}
}

// Worker consumes sweep jobs from the queue one at a time.
type Worker struct {
	id         int
	source     JobSource
	sweeper    Sweeper
	popTimeout time.Duration
	logger     *zap.Logger
}

func NewWorker(id int, source JobSource, sweeper Sweeper, popTimeout time.Duration, logger *zap.Logger) *Worker {
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	return &Worker{
		id:         id,
		source:     source,
		sweeper:    sweeper,
		popTimeout: popTimeout,
		logger:     logger.With(zap.Int("worker_id", id)),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info("Worker stopped")
			return
		}

		job, err := w.source.Pop(ctx, w.popTimeout)
		switch {
		case err == nil:
			_ = w.processJob(ctx, job)
		case errors.Is(err, queue.ErrTimeout):
		case ctx.Err() != nil:
		default:
			w.logger.Error("Failed to pop job", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job) (err error) {
	start := time.Now()
	logger := w.logger.With(zap.String("job_id", job.ID), zap.String("job_type", job.Type))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
			logger.Error("Job panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	logger.Debug("Processing job")
	if err = Dispatch(ctx, w.sweeper, job); err != nil {
		logger.Error("Job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return err
	}
	logger.Info("Job completed", zap.Duration("duration", time.Since(start)))
	return nil
}
