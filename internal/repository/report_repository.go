package repository

import (
	"context"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository runs the aggregate queries behind admin reports.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// UserCounts returns total users, users who started an exam since, and users
// created since.
func (r *ReportRepository) UserCounts(ctx context.Context, since time.Time) (total, active, created int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT user_id) FROM exams WHERE start_time >= $1),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1)`, since,
	).Scan(&total, &active, &created)
	return total, active, created, err
}

// ExamCountsByDepartment returns per-department exam counts for exams started since.
func (r *ReportRepository) ExamCountsByDepartment(ctx context.Context, since time.Time) ([]model.ExamCountRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.name,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE e.status = 'completed'),
		        COALESCE(SUM(e.score) FILTER (WHERE e.status = 'completed'), 0)::float8
		 FROM exams e JOIN departments d ON d.id = e.department_id
		 WHERE e.start_time >= $1
		 GROUP BY d.name
		 ORDER BY d.name`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ExamCountRow{}
	for rows.Next() {
		var c model.ExamCountRow
		if err := rows.Scan(&c.Department, &c.Total, &c.Completed, &c.ScoreSum); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CompletedExams returns the department and score of exams completed since.
func (r *ReportRepository) CompletedExams(ctx context.Context, since time.Time) ([]model.CompletedExamRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.name, COALESCE(e.score, 0)::float8
		 FROM exams e JOIN departments d ON d.id = e.department_id
		 WHERE e.status = 'completed' AND e.end_time >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CompletedExamRow{}
	for rows.Next() {
		var c model.CompletedExamRow
		if err := rows.Scan(&c.Department, &c.Score); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AnswersByType aggregates answers of exams completed since by question type.
func (r *ReportRepository) AnswersByType(ctx context.Context, since time.Time) ([]model.TypeAnswerRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.question_type, COUNT(*), COUNT(*) FILTER (WHERE ea.is_correct)
		 FROM exam_answers ea
		 JOIN exams e ON e.id = ea.exam_id
		 JOIN questions q ON q.id = ea.question_id
		 WHERE e.status = 'completed' AND e.end_time >= $1
		 GROUP BY q.question_type
		 ORDER BY q.question_type`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TypeAnswerRow{}
	for rows.Next() {
		var t model.TypeAnswerRow
		if err := rows.Scan(&t.Type, &t.Total, &t.Correct); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
