package repository

import (
	"context"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository persists IP log audit entries.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// InsertBatch writes many entries with a single UNNEST insert.
func (r *AuditRepository) InsertBatch(ctx context.Context, logs []model.IPLog) error {
	if len(logs) == 0 {
		return nil
	}
	n := len(logs)
	userIDs := make([]*int64, n)
	guestIDs := make([]*int64, n)
	events := make([]string, n)
	succeeded := make([]bool, n)
	ips := make([]string, n)
	agents := make([]string, n)
	locations := make([]string, n)
	createdAts := make([]time.Time, n)
	for i, l := range logs {
		userIDs[i] = l.UserID
		guestIDs[i] = l.GuestID
		events[i] = l.Event
		succeeded[i] = l.Succeeded
		ips[i] = l.IP
		agents[i] = l.UserAgent
		locations[i] = l.Location
		createdAts[i] = l.CreatedAt
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO ip_logs (user_id, guest_id, event, succeeded, ip, user_agent, location, created_at)
		 SELECT * FROM UNNEST(
			$1::bigint[], $2::bigint[], $3::text[], $4::bool[],
			$5::text[], $6::text[], $7::text[], $8::timestamptz[]
		 )`,
		userIDs, guestIDs, events, succeeded, ips, agents, locations, createdAts,
	)
	return err
}

// Insert writes a single entry.
func (r *AuditRepository) Insert(ctx context.Context, l *model.IPLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ip_logs (user_id, guest_id, event, succeeded, ip, user_agent, location, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.UserID, l.GuestID, l.Event, l.Succeeded, l.IP, l.UserAgent, l.Location, l.CreatedAt,
	)
	return err
}

// ListByUser returns the most recent audit entries of a user.
func (r *AuditRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.IPLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, guest_id, event, succeeded, ip, user_agent, location, created_at
		 FROM ip_logs WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.IPLog{}
	for rows.Next() {
		var l model.IPLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.GuestID, &l.Event, &l.Succeeded, &l.IP,
			&l.UserAgent, &l.Location, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
