package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	*redis.Client
	healthTTL time.Duration
}

// NewClient accepts a redis:// URL or a bare host:port.
func NewClient(redisURL string, healthTTL time.Duration) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}
	if healthTTL <= 0 {
		healthTTL = 5 * time.Minute
	}

	return &Client{Client: redis.NewClient(opt), healthTTL: healthTTL}
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

func healthKey(domainID uuid.UUID) string {
	return fmt.Sprintf("domain:health:%s", domainID)
}

func (c *Client) CacheDomainHealth(ctx context.Context, health *core.DomainHealth) error {
	return c.SetJSON(ctx, healthKey(health.DomainID), health, c.healthTTL)
}

func (c *Client) GetCachedDomainHealth(ctx context.Context, domainID uuid.UUID) (*core.DomainHealth, error) {
	var health core.DomainHealth
	if err := c.GetJSON(ctx, healthKey(domainID), &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) InvalidateDomainHealth(ctx context.Context, domainID uuid.UUID) error {
	return c.Del(ctx, healthKey(domainID)).Err()
}
