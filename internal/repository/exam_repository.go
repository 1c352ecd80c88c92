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

// ExamRepository handles exam attempt data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `e.id, e.user_id, e.department_id, d.name, e.status, e.start_time, e.end_time, e.score::float8`

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.UserID, &e.DepartmentID, &e.DepartmentName, &e.Status,
		&e.StartTime, &e.EndTime, &e.Score)
}

// HasActive reports whether the user has any exam in the active state.
func (r *ExamRepository) HasActive(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exams WHERE user_id = $1 AND status = 'active')`, userID,
	).Scan(&exists)
	return exists, err
}

// Create inserts a new exam attempt.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exams (id, user_id, department_id, status, start_time)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, e.DepartmentID, e.Status, e.StartTime,
	)
	return err
}

// GetByID retrieves an exam joined with its department name.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+examColumns+`
		 FROM exams e JOIN departments d ON d.id = e.department_id
		 WHERE e.id = $1`, id)
	if err := scanExam(row, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListPaginated returns exams matching filter, newest first.
func (r *ExamRepository) ListPaginated(ctx context.Context, f model.ExamFilter, limit, offset int) ([]model.Exam, int, error) {
	var conds []string
	var args []interface{}
	if f.UserID > 0 {
		args = append(args, f.UserID)
		conds = append(conds, "e.user_id = "+placeholder(args))
	}
	if f.DepartmentID > 0 {
		args = append(args, f.DepartmentID)
		conds = append(conds, "e.department_id = "+placeholder(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, "e.status = "+placeholder(args))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitPh := placeholder(args)
	args = append(args, offset)
	offsetPh := placeholder(args)

	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+`
		 FROM exams e JOIN departments d ON d.id = e.department_id`+where+
			` ORDER BY e.start_time DESC LIMIT `+limitPh+` OFFSET `+offsetPh, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// Complete records the graded answers and closes the exam in one transaction.
// The exam row is locked first; if it is no longer active nothing is written
// and ErrStateConflict is returned.
func (r *ExamRepository) Complete(ctx context.Context, examID uuid.UUID, answers []model.ExamAnswer, score float64, endTime time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status model.ExamStatus
	err = tx.QueryRow(ctx, `SELECT status FROM exams WHERE id = $1 FOR UPDATE`, examID).Scan(&status)
	if err != nil {
		return err
	}
	if status != model.ExamStatusActive {
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
		_, err = tx.Exec(ctx,
			`INSERT INTO exam_answers (exam_id, question_id, selected_answer_id, is_correct, answered_at)
			 SELECT $1, u.question_id, u.answer_id, u.is_correct, $5
			 FROM UNNEST($2::bigint[], $3::bigint[], $4::bool[]) AS u (question_id, answer_id, is_correct)`,
			examID, questionIDs, answerIDs, correct, endTime,
		)
		if err != nil {
			return mapPgError(err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE exams SET status = 'completed', end_time = $2, score = $3 WHERE id = $1`,
		examID, endTime, score,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListAnswers returns the recorded answers of an exam.
func (r *ExamRepository) ListAnswers(ctx context.Context, examID uuid.UUID) ([]model.ExamAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_id, selected_answer_id, is_correct, answered_at
		 FROM exam_answers WHERE exam_id = $1 ORDER BY id ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.ExamAnswer{}
	for rows.Next() {
		var a model.ExamAnswer
		if err := rows.Scan(&a.ID, &a.ExamID, &a.QuestionID, &a.SelectedAnswerID, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// AnswerTypeRows aggregates an exam's recorded answers by question type.
func (r *ExamRepository) AnswerTypeRows(ctx context.Context, examID uuid.UUID) ([]model.TypeAnswerRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.question_type, COUNT(*), COUNT(*) FILTER (WHERE ea.is_correct)
		 FROM exam_answers ea JOIN questions q ON q.id = ea.question_id
		 WHERE ea.exam_id = $1
		 GROUP BY q.question_type
		 ORDER BY q.question_type`, examID)
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
