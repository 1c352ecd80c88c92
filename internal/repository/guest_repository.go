package repository

import (
	"context"
	"strings"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GuestRepository handles guest profiles and their demo sessions.
type GuestRepository struct {
	pool *pgxpool.Pool
}

// NewGuestRepository creates a new GuestRepository.
func NewGuestRepository(pool *pgxpool.Pool) *GuestRepository {
	return &GuestRepository{pool: pool}
}

const guestColumns = `id, name, email, phone, address, exam_interested, device_fingerprint,
	otp, is_verified, demo_used, demo_questions_attempted, created_at`

func scanGuest(row pgx.Row, g *model.GuestProfile) error {
	return row.Scan(&g.ID, &g.Name, &g.Email, &g.Phone, &g.Address, &g.ExamInterested,
		&g.DeviceFingerprint, &g.OTP, &g.IsVerified, &g.DemoUsed, &g.DemoQuestionsAttempted, &g.CreatedAt)
}

// Create inserts a guest profile. Returns a *DuplicateError when the email exists.
func (r *GuestRepository) Create(ctx context.Context, g *model.GuestProfile) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO guest_profiles (name, email, phone, address, exam_interested, device_fingerprint, otp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		g.Name, g.Email, g.Phone, g.Address, g.ExamInterested, g.DeviceFingerprint, g.OTP,
	).Scan(&g.ID, &g.CreatedAt)
	return mapPgError(err)
}

// GetByEmail retrieves a guest by email.
func (r *GuestRepository) GetByEmail(ctx context.Context, email string) (*model.GuestProfile, error) {
	g := &model.GuestProfile{}
	row := r.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guest_profiles WHERE email = $1`, email)
	if err := scanGuest(row, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ListPaginated returns guests, newest first, optionally filtered by name or email.
func (r *GuestRepository) ListPaginated(ctx context.Context, search string, limit, offset int) ([]model.GuestProfile, int, error) {
	where := ""
	var args []interface{}
	if s := strings.TrimSpace(search); s != "" {
		args = append(args, "%"+s+"%")
		where = ` WHERE name ILIKE $1 OR email ILIKE $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM guest_profiles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitPh := placeholder(args)
	args = append(args, offset)
	offsetPh := placeholder(args)

	rows, err := r.pool.Query(ctx,
		`SELECT `+guestColumns+` FROM guest_profiles`+where+
			` ORDER BY created_at DESC LIMIT `+limitPh+` OFFSET `+offsetPh, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	guests := []model.GuestProfile{}
	for rows.Next() {
		var g model.GuestProfile
		if err := scanGuest(rows, &g); err != nil {
			return nil, 0, err
		}
		guests = append(guests, g)
	}
	return guests, total, rows.Err()
}

// VerifyAndOpenSession marks the guest verified and creates its demo session.
// Returns ErrStateConflict when the guest was verified concurrently.
func (r *GuestRepository) VerifyAndOpenSession(ctx context.Context, guestID int64, s *model.DemoSession) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE guest_profiles SET is_verified = TRUE WHERE id = $1 AND is_verified = FALSE`, guestID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStateConflict
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO demo_sessions (id, guest_id, start_time, is_completed)
			 VALUES ($1, $2, $3, FALSE)`,
			s.ID, guestID, s.StartTime)
		return mapPgError(err)
	})
}

// GetSession retrieves a demo session together with its guest.
func (r *GuestRepository) GetSession(ctx context.Context, id uuid.UUID) (*model.DemoSession, *model.GuestProfile, error) {
	s := &model.DemoSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, guest_id, start_time, end_time, is_completed FROM demo_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.GuestID, &s.StartTime, &s.EndTime, &s.IsCompleted)
	if err != nil {
		return nil, nil, err
	}

	g := &model.GuestProfile{}
	row := r.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guest_profiles WHERE id = $1`, s.GuestID)
	if err := scanGuest(row, g); err != nil {
		return nil, nil, err
	}
	return s, g, nil
}

// CompleteSession records demo answers, consumes the guest's demo quota and
// closes the session in one transaction. Returns ErrStateConflict when the
// demo was already used.
func (r *GuestRepository) CompleteSession(ctx context.Context, sessionID uuid.UUID, guestID int64, answers []model.DemoAnswer, endTime time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var used bool
	if err := tx.QueryRow(ctx,
		`SELECT demo_used FROM guest_profiles WHERE id = $1 FOR UPDATE`, guestID,
	).Scan(&used); err != nil {
		return err
	}
	if used {
		return ErrStateConflict
	}

	if len(answers) > 0 {
		questionIDs := make([]int64, len(answers))
		answerIDs := make([]int64, len(answers))
		correct := make([]bool, len(answers))
		for i, a := range answers {
			questionIDs[i] = a.QuestionID
			answerIDs[i] = a.SelectedAnswerID
			correct[i] = a.IsCorrect
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO demo_answers (session_id, question_id, selected_answer_id, is_correct, answered_at)
			 SELECT $1, u.question_id, u.answer_id, u.is_correct, $5
			 FROM UNNEST($2::bigint[], $3::bigint[], $4::bool[]) AS u (question_id, answer_id, is_correct)`,
			sessionID, questionIDs, answerIDs, correct, endTime,
		); err != nil {
			return mapPgError(err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE guest_profiles SET demo_used = TRUE, demo_questions_attempted = $2 WHERE id = $1`,
		guestID, len(answers),
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE demo_sessions SET is_completed = TRUE, end_time = $2 WHERE id = $1`,
		sessionID, endTime,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ResetDemo restores a guest's demo quota and reopens its session.
// Returns pgx.ErrNoRows when the guest does not exist.
func (r *GuestRepository) ResetDemo(ctx context.Context, guestID int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE guest_profiles SET demo_used = FALSE, demo_questions_attempted = 0 WHERE id = $1`, guestID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM demo_answers WHERE session_id IN (SELECT id FROM demo_sessions WHERE guest_id = $1)`,
			guestID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE demo_sessions SET is_completed = FALSE, end_time = NULL, start_time = CURRENT_TIMESTAMP
			 WHERE guest_id = $1`, guestID)
		return err
	})
}
