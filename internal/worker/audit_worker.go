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
	AuditBatchSize    = 50
	AuditBatchTimeout = 2 * time.Second
	AuditPollTimeout  = 1 * time.Second
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	InsertBatch(ctx context.Context, logs []model.IPLog) error
	Insert(ctx context.Context, l *model.IPLog) error
}

// AuditWorker drains audit_log_queue into ip_logs in batches, so login and
// demo registration never wait on the audit insert.
type AuditWorker struct {
	rdb   *redis.Client
	store AuditWriter
	log   zerolog.Logger
}

func NewAuditWorker(rdb *redis.Client, store AuditWriter, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		rdb:   rdb,
		store: store,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then flushes what it holds. Call in a goroutine.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	batch := make([]model.IPLog, 0, AuditBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AuditPollTimeout, config.WorkerKey.AuditLogQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var entry model.IPLog
			if err := json.Unmarshal([]byte(item[1]), &entry); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, entry)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-row fallback
// ----------------------------------------------------------------

// flushSafe writes the batch in one statement. On failure each entry is
// retried alone and entries that still fail go back on the queue.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []model.IPLog) {
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Audit batch persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk audit insert failed, using fallback")

	for i := range batch {
		if err := w.store.Insert(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).Str("event", batch[i].Event).Msg("Audit insert failed, requeueing")
			raw, _ := json.Marshal(batch[i])
			w.rdb.RPush(ctx, config.WorkerKey.AuditLogQueue, raw)
		}
	}
}
