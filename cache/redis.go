package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/mbolis/survey-wolf/model"
)

type redisTemplates struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a cache shared by every bot instance using client.
func NewRedis(client *redis.Client, ttl time.Duration) Templates {
	return &redisTemplates{
		client: client,
		ttl:    ttl,
	}
}

func (c *redisTemplates) key(id int64) string {
	return fmt.Sprintf("template:%d", id)
}

func (c *redisTemplates) Get(ctx context.Context, id int64) (*model.Template, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t model.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *redisTemplates) Put(ctx context.Context, t *model.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(t.ID), data, c.ttl).Err()
}

func (c *redisTemplates) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
