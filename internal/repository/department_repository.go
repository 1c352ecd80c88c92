package repository

import (
	"context"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DepartmentRepository handles department data access.
type DepartmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository creates a new DepartmentRepository.
func NewDepartmentRepository(pool *pgxpool.Pool) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

// List returns all departments with their question counts, ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]model.Department, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.name, d.description, COUNT(q.id), d.created_at, d.updated_at
		 FROM departments d
		 LEFT JOIN questions q ON q.department_id = d.id
		 GROUP BY d.id
		 ORDER BY d.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := []model.Department{}
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.QuestionCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// GetByID retrieves a department by ID.
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*model.Department, error) {
	d := &model.Department{}
	err := r.pool.QueryRow(ctx,
		`SELECT d.id, d.name, d.description,
		        (SELECT COUNT(*) FROM questions q WHERE q.department_id = d.id),
		        d.created_at, d.updated_at
		 FROM departments d WHERE d.id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Description, &d.QuestionCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Create inserts a new department.
func (r *DepartmentRepository) Create(ctx context.Context, d *model.Department) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO departments (name, description)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		d.Name, d.Description,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// Update modifies a department. Returns pgx.ErrNoRows when it does not exist.
func (r *DepartmentRepository) Update(ctx context.Context, d *model.Department) error {
	return r.pool.QueryRow(ctx,
		`UPDATE departments SET name = $1, description = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3
		 RETURNING created_at, updated_at`,
		d.Name, d.Description, d.ID,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

// Delete removes a department and, by cascade, its questions.
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
