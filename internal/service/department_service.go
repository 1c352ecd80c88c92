package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DepartmentStore is the persistence used by DepartmentService.
type DepartmentStore interface {
	List(ctx context.Context) ([]model.Department, error)
	GetByID(ctx context.Context, id int64) (*model.Department, error)
	Create(ctx context.Context, d *model.Department) error
	Update(ctx context.Context, d *model.Department) error
	Delete(ctx context.Context, id int64) error
}

// DepartmentService handles department business logic.
type DepartmentService struct {
	repo   DepartmentStore
	papers PaperCache
	log    zerolog.Logger
}

// NewDepartmentService creates a new DepartmentService.
func NewDepartmentService(repo DepartmentStore, papers PaperCache, log zerolog.Logger) *DepartmentService {
	return &DepartmentService{
		repo:   repo,
		papers: papers,
		log:    log.With().Str("component", "department_service").Logger(),
	}
}

// List returns all departments.
func (s *DepartmentService) List(ctx context.Context) ([]model.Department, error) {
	return s.repo.List(ctx)
}

// Get returns a department by ID.
func (s *DepartmentService) Get(ctx context.Context, id int64) (*model.Department, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}
	return d, nil
}

// Create adds a department.
func (s *DepartmentService) Create(ctx context.Context, req *model.DepartmentRequest) (*model.Department, error) {
	d := &model.Department{Name: req.Name, Description: req.Description}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create department: %w", err)
	}
	s.log.Info().Int64("id", d.ID).Str("name", d.Name).Msg("Department created")
	return d, nil
}

// Update modifies a department.
func (s *DepartmentService) Update(ctx context.Context, id int64, req *model.DepartmentRequest) (*model.Department, error) {
	d := &model.Department{ID: id, Name: req.Name, Description: req.Description}
	if err := s.repo.Update(ctx, d); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("update department: %w", err)
	}
	return d, nil
}

// Delete removes a department together with its questions.
func (s *DepartmentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDepartmentNotFound
		}
		return fmt.Errorf("delete department: %w", err)
	}
	if err := s.papers.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("Paper cache invalidation failed")
	}
	s.log.Info().Int64("id", id).Msg("Department deleted")
	return nil
}
