package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("GUARDIAN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GUARDIAN_TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewJob(t *testing.T) {
	job := NewJob(JobHealthSweep)
	assert.Equal(t, JobHealthSweep, job.Type)
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Equal(t, "domain_sweeps", NewRedisQueue(nil, "").queueName)

	id := uuid.New()
	check := NewDomainCheckJob(id)
	assert.Equal(t, JobDomainCheck, check.Type)
	assert.Equal(t, id.String(), check.DomainID)
	assert.Equal(t, PriorityUrgent, check.Priority)
}

func TestRedisQueueOrdering(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	name := "test_sweeps_" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), name) })
	q := NewRedisQueue(client, name)

	first := NewJob(JobHealthSweep)
	second := NewJob(JobSSLExpirySweep)
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)
	urgent := NewDomainCheckJob(uuid.New())

	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))
	require.NoError(t, q.Push(ctx, urgent))

	n, err := q.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	for _, want := range []*Job{urgent, first, second} {
		got, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Type, got.Type)
	}

	_, err = q.Pop(ctx, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}
