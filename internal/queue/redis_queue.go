package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrTimeout = errors.New("queue timeout")

// Job types, one per scheduled task plus the on-demand check.
const (
	JobHealthSweep         = "health_sweep"
	JobSSLExpirySweep      = "ssl_expiry_sweep"
	JobAnalyticsCollection = "analytics_collection"
	JobDomainCheck         = "domain_check"
)

type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	DomainID  string    `json:"domain_id,omitempty"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// PriorityUrgent pops ahead of every unprioritised job.
const PriorityUrgent = 1

func NewJob(jobType string) *Job {
	return &Job{ID: uuid.NewString(), Type: jobType, CreatedAt: time.Now().UTC()}
}

// NewDomainCheckJob builds an urgent on-demand check for one domain.
func NewDomainCheckJob(domainID uuid.UUID) *Job {
	job := NewJob(JobDomainCheck)
	job.DomainID = domainID.String()
	job.Priority = PriorityUrgent
	return job
}

type RedisQueue struct {
	client    redis.UniversalClient
	queueName string
}

func NewRedisQueue(client redis.UniversalClient, queueName string) *RedisQueue {
	if queueName == "" {
		queueName = "domain_sweeps"
	}
	return &RedisQueue{
		client:    client,
		queueName: queueName,
	}
}

func (q *RedisQueue) Push(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	// Lower score pops first; unprioritised jobs are FIFO by creation time.
	score := float64(job.Priority)
	if score == 0 {
		score = float64(job.CreatedAt.UnixNano())
	}

	err = q.client.ZAdd(ctx, q.queueName, redis.Z{
		Score:  score,
		Member: data,
	}).Err()

	if err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}

	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BZPopMin(ctx, timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}

	member, ok := result.Member.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected queue member type %T", result.Member)
	}

	var job Job
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *RedisQueue) Length(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.queueName).Result()
}
