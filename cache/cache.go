// Package cache keeps loaded templates around between interactions.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mbolis/survey-wolf/model"
)

// Templates caches templates by id. Get returns nil, nil on a miss.
type Templates interface {
	Get(ctx context.Context, id int64) (*model.Template, error)
	Put(ctx context.Context, t *model.Template) error
	Invalidate(ctx context.Context, id int64) error
}

type memoryTemplates struct {
	lru *lru.Cache[int64, *model.Template]
}

// NewMemory returns an in-process cache holding at most size templates.
// Templates are copied in and out, so callers may edit what they get.
func NewMemory(size int) (Templates, error) {
	c, err := lru.New[int64, *model.Template](size)
	if err != nil {
		return nil, err
	}
	return &memoryTemplates{lru: c}, nil
}

func (c *memoryTemplates) Get(_ context.Context, id int64) (*model.Template, error) {
	t, ok := c.lru.Get(id)
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (c *memoryTemplates) Put(_ context.Context, t *model.Template) error {
	c.lru.Add(t.ID, t.Clone())
	return nil
}

func (c *memoryTemplates) Invalidate(_ context.Context, id int64) error {
	c.lru.Remove(id)
	return nil
}
