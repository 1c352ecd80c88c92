package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// PaperCache caches a department's candidate-facing question set in Redis.
type PaperCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPaperCache creates a new PaperCache.
func NewPaperCache(rdb *redis.Client, ttl time.Duration) *PaperCache {
	return &PaperCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached paper, or ErrCacheMiss.
func (c *PaperCache) Get(ctx context.Context, departmentID int64) ([]model.QuestionForCandidate, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.DepartmentPaperKey(departmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var paper []model.QuestionForCandidate
	if err := json.Unmarshal(raw, &paper); err != nil {
		return nil, err
	}
	return paper, nil
}

// Set stores a department's paper.
func (c *PaperCache) Set(ctx context.Context, departmentID int64, paper []model.QuestionForCandidate) error {
	raw, err := json.Marshal(paper)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.DepartmentPaperKey(departmentID), raw, c.ttl).Err()
}

// Invalidate drops the cached papers of the given departments.
func (c *PaperCache) Invalidate(ctx context.Context, departmentIDs ...int64) error {
	if len(departmentIDs) == 0 {
		return nil
	}
	keys := make([]string, len(departmentIDs))
	for i, id := range departmentIDs {
		keys[i] = config.CacheKey.DepartmentPaperKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
