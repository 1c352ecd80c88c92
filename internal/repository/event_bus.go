package repository

import (
	"context"
	"encoding/json"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// EventBus fans exam lifecycle events out over Redis PubSub.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates a new EventBus.
func NewEventBus(rdb *redis.Client) *EventBus {
	return &EventBus{rdb: rdb}
}

// PublishExamEvent broadcasts an exam event to every subscriber.
func (b *EventBus) PublishExamEvent(ctx context.Context, ev model.ExamEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, config.CacheKey.ExamEventsChannel(), raw).Err()
}

// SubscribeExamEvents opens a subscription to exam events. Close it when done.
func (b *EventBus) SubscribeExamEvents(ctx context.Context) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.ExamEventsChannel())
}
