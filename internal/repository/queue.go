package repository

import (
	"context"
	"encoding/json"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// Queue pushes background jobs onto the Redis lists consumed by workers.
type Queue struct {
	rdb *redis.Client
}

// NewQueue creates a new Queue.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// EnqueueAudit queues an IP log entry for batched persistence.
func (q *Queue) EnqueueAudit(ctx context.Context, entry model.IPLog) error {
	return q.push(ctx, config.WorkerKey.AuditLogQueue, entry)
}

// EnqueueNotification queues an outbound message for delivery.
func (q *Queue) EnqueueNotification(ctx context.Context, n model.Notification) error {
	return q.push(ctx, config.WorkerKey.NotificationQueue, n)
}

func (q *Queue) push(ctx context.Context, queue string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, queue, raw).Err()
}
