package repository

import (
	"context"
	"strings"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, department_id, question_type, content, media_url, created_by, created_at, updated_at`

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.DepartmentID, &q.QuestionType, &q.Content, &q.MediaURL,
		&q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
}

func (r *QuestionRepository) queryQuestions(ctx context.Context, query string, args ...interface{}) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachAnswers(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// attachAnswers loads the answers of questions in insertion order.
func (r *QuestionRepository) attachAnswers(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	ids := make([]int64, len(questions))
	index := make(map[int64]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		index[q.ID] = i
		questions[i].Answers = []model.Answer{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, text, is_correct
		 FROM answers WHERE question_id = ANY($1)
		 ORDER BY id ASC`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return err
		}
		i := index[a.QuestionID]
		questions[i].Answers = append(questions[i].Answers, a)
	}
	return rows.Err()
}

// ListByDepartment returns every question of a department with answers.
func (r *QuestionRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]model.Question, error) {
	return r.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE department_id = $1 ORDER BY id ASC`,
		departmentID)
}

// GetByIDs returns the questions with the given IDs. Unknown IDs are ignored.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	return r.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1) ORDER BY id ASC`, ids)
}

// ListIDsByType returns the IDs of every question of the given type.
func (r *QuestionRepository) ListIDsByType(ctx context.Context, t model.QuestionType) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM questions WHERE question_type = $1`, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByID retrieves a question with its answers.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	if err := scanQuestion(row, q); err != nil {
		return nil, err
	}
	questions := []model.Question{*q}
	if err := r.attachAnswers(ctx, questions); err != nil {
		return nil, err
	}
	return &questions[0], nil
}

// ListPaginated returns questions matching filter, newest first.
func (r *QuestionRepository) ListPaginated(ctx context.Context, f model.QuestionFilter, limit, offset int) ([]model.Question, int, error) {
	var conds []string
	var args []interface{}
	if f.DepartmentID > 0 {
		args = append(args, f.DepartmentID)
		conds = append(conds, "department_id = "+placeholder(args))
	}
	if f.QuestionType.Valid() {
		args = append(args, f.QuestionType)
		conds = append(conds, "question_type = "+placeholder(args))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, "content ILIKE "+placeholder(args))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitPh := placeholder(args)
	args = append(args, offset)
	offsetPh := placeholder(args)

	questions, err := r.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions`+where+
			` ORDER BY created_at DESC, id DESC LIMIT `+limitPh+` OFFSET `+offsetPh, args...)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// Create inserts a question and its answers in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (department_id, question_type, content, media_url, created_by)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at, updated_at`,
			q.DepartmentID, q.QuestionType, q.Content, q.MediaURL, q.CreatedBy,
		).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return err
		}
		for i := range q.Answers {
			a := &q.Answers[i]
			a.QuestionID = q.ID
			if err := tx.QueryRow(ctx,
				`INSERT INTO answers (question_id, text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
				q.ID, a.Text, a.IsCorrect,
			).Scan(&a.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update rewrites a question and reconciles its answers: options with a known
// ID are updated, options without one are inserted, and the rest are removed.
// Returns pgx.ErrNoRows when the question does not exist.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE questions
			 SET department_id = $1, question_type = $2, content = $3, media_url = $4,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE id = $5
			 RETURNING created_by, created_at, updated_at`,
			q.DepartmentID, q.QuestionType, q.Content, q.MediaURL, q.ID,
		).Scan(&q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return err
		}

		keep := make([]int64, 0, len(q.Answers))
		for i := range q.Answers {
			a := &q.Answers[i]
			a.QuestionID = q.ID
			if a.ID > 0 {
				tag, err := tx.Exec(ctx,
					`UPDATE answers SET text = $1, is_correct = $2 WHERE id = $3 AND question_id = $4`,
					a.Text, a.IsCorrect, a.ID, q.ID)
				if err != nil {
					return err
				}
				if tag.RowsAffected() == 1 {
					keep = append(keep, a.ID)
					continue
				}
			}
			if err := tx.QueryRow(ctx,
				`INSERT INTO answers (question_id, text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
				q.ID, a.Text, a.IsCorrect,
			).Scan(&a.ID); err != nil {
				return err
			}
			keep = append(keep, a.ID)
		}

		_, err = tx.Exec(ctx,
			`DELETE FROM answers WHERE question_id = $1 AND NOT (id = ANY($2))`, q.ID, keep)
		return err
	})
}

// Delete removes a question and returns the department it belonged to.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) (int64, error) {
	var departmentID int64
	err := r.pool.QueryRow(ctx,
		`DELETE FROM questions WHERE id = $1 RETURNING department_id`, id,
	).Scan(&departmentID)
	return departmentID, err
}

// CountByType returns the number of questions per type.
func (r *QuestionRepository) CountByType(ctx context.Context) (map[model.QuestionType]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT question_type, COUNT(*) FROM questions GROUP BY question_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.QuestionType]int)
	for rows.Next() {
		var t model.QuestionType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}
