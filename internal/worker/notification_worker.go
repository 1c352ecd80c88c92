package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	NotificationPollTimeout = 1 * time.Second
	NotificationMaxAttempts = 3
	NotificationRetryDelay  = 5 * time.Second
)

// NotificationWorker consumes notification_queue and hands each message to
// the Sender. OTP delivery happens here, off the request path.
type NotificationWorker struct {
	rdb    *redis.Client
	sender Sender
	log    zerolog.Logger
}

// NewNotificationWorker creates a new NotificationWorker.
func NewNotificationWorker(rdb *redis.Client, sender Sender, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		rdb:    rdb,
		sender: sender,
		log:    log.With().Str("component", "notification_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *NotificationWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, NotificationPollTimeout, config.WorkerKey.NotificationQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	if !w.deliver(ctx, result[1]) {
		time.Sleep(NotificationRetryDelay)
	}
}

// deliver sends one raw queue item. Failed items are requeued with an
// incremented attempt count until NotificationMaxAttempts is reached.
// It reports false when the item was requeued.
func (w *NotificationWorker) deliver(ctx context.Context, raw string) bool {
	var n model.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return true
	}

	err := w.sender.Send(ctx, n)
	if err == nil {
		return true
	}

	n.Attempts++
	entry := w.log.Error().Err(err).
		Str("channel", string(n.Channel)).
		Str("recipient", n.Recipient).
		Int("attempts", n.Attempts)
	if n.Attempts >= NotificationMaxAttempts {
		entry.Msg("Notification dropped after max attempts")
		return true
	}
	entry.Msg("Send error, requeueing")

	retry, _ := json.Marshal(n)
	w.rdb.RPush(ctx, config.WorkerKey.NotificationQueue, retry)
	return false
}

// drain sends what is left in the queue before shutdown.
func (w *NotificationWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.NotificationQueue).Result()
		if err != nil {
			break
		}
		if !w.deliver(ctx, result) {
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
