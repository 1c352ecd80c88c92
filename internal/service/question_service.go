package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// QuestionStore is the persistence used by QuestionService.
type QuestionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Question, error)
	ListPaginated(ctx context.Context, f model.QuestionFilter, limit, offset int) ([]model.Question, int, error)
	Create(ctx context.Context, q *model.Question) error
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id int64) (int64, error)
}

// QuestionService handles question bank administration.
type QuestionService struct {
	repo        QuestionStore
	departments DepartmentReader
	papers      PaperCache
	log         zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(repo QuestionStore, departments DepartmentReader, papers PaperCache, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		repo:        repo,
		departments: departments,
		papers:      papers,
		log:         log.With().Str("component", "question_service").Logger(),
	}
}

// List returns questions matching filter with pagination.
func (s *QuestionService) List(ctx context.Context, f model.QuestionFilter, page, perPage int) ([]model.Question, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	questions, total, err := s.repo.ListPaginated(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return questions, buildPagination(page, perPage, total), nil
}

// Get returns a question with its answers, including the grading key.
func (s *QuestionService) Get(ctx context.Context, id int64) (*model.Question, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) fromRequest(ctx context.Context, req *model.QuestionRequest) (*model.Question, error) {
	if len(req.Answers) == 0 {
		return nil, ErrInvalidQuestion
	}
	if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department: %w", err)
	}

	q := &model.Question{
		DepartmentID: req.DepartmentID,
		QuestionType: req.QuestionType,
		Content:      req.Content,
		MediaURL:     req.MediaURL,
		Answers:      make([]model.Answer, len(req.Answers)),
	}
	for i, a := range req.Answers {
		q.Answers[i] = model.Answer{Text: a.Text, IsCorrect: a.IsCorrect}
		if a.ID != nil {
			q.Answers[i].ID = *a.ID
		}
	}
	return q, nil
}

// Create adds a question with its answers.
func (s *QuestionService) Create(ctx context.Context, req *model.QuestionRequest, createdBy int64) (*model.Question, error) {
	q, err := s.fromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	for i := range q.Answers {
		q.Answers[i].ID = 0
	}
	q.CreatedBy = &createdBy

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.invalidate(ctx, q.DepartmentID)
	s.log.Info().Int64("id", q.ID).Int64("department_id", q.DepartmentID).Msg("Question created")
	return q, nil
}

// Update rewrites a question and its answers.
func (s *QuestionService) Update(ctx context.Context, id int64, req *model.QuestionRequest) (*model.Question, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	q, err := s.fromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	q.ID = id

	if err := s.repo.Update(ctx, q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	s.invalidate(ctx, existing.DepartmentID, q.DepartmentID)
	return q, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id int64) error {
	departmentID, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	s.invalidate(ctx, departmentID)
	return nil
}

func (s *QuestionService) invalidate(ctx context.Context, departmentIDs ...int64) {
	if err := s.papers.Invalidate(ctx, departmentIDs...); err != nil {
		s.log.Warn().Err(err).Msg("Paper cache invalidation failed")
	}
}
