package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/repository"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ExamStore is the persistence used by ExamService.
type ExamStore interface {
	HasActive(ctx context.Context, userID int64) (bool, error)
	Create(ctx context.Context, e *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListPaginated(ctx context.Context, f model.ExamFilter, limit, offset int) ([]model.Exam, int, error)
	Complete(ctx context.Context, examID uuid.UUID, answers []model.ExamAnswer, score float64, endTime time.Time) error
	ListAnswers(ctx context.Context, examID uuid.UUID) ([]model.ExamAnswer, error)
	AnswerTypeRows(ctx context.Context, examID uuid.UUID) ([]model.TypeAnswerRow, error)
}

// QuestionReader is the read side of the question bank.
type QuestionReader interface {
	ListByDepartment(ctx context.Context, departmentID int64) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Question, error)
	ListIDsByType(ctx context.Context, t model.QuestionType) ([]int64, error)
}

// DepartmentReader looks up departments.
type DepartmentReader interface {
	GetByID(ctx context.Context, id int64) (*model.Department, error)
}

// PaperCache caches the candidate-facing question set of a department.
type PaperCache interface {
	Get(ctx context.Context, departmentID int64) ([]model.QuestionForCandidate, error)
	Set(ctx context.Context, departmentID int64, paper []model.QuestionForCandidate) error
	Invalidate(ctx context.Context, departmentIDs ...int64) error
}

// EventPublisher broadcasts exam lifecycle events.
type EventPublisher interface {
	PublishExamEvent(ctx context.Context, ev model.ExamEvent) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   model.Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// ExamService runs the exam lifecycle: start, fetch questions, submit, results.
type ExamService struct {
	exams       ExamStore
	questions   QuestionReader
	departments DepartmentReader
	papers      PaperCache
	events      EventPublisher
	now         func() time.Time
	log         zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams ExamStore,
	questions QuestionReader,
	departments DepartmentReader,
	papers PaperCache,
	events EventPublisher,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		exams:       exams,
		questions:   questions,
		departments: departments,
		papers:      papers,
		events:      events,
		now:         time.Now,
		log:         log.With().Str("component", "exam_service").Logger(),
	}
}

// Start opens a new active exam for the user in a department.
// The active-exam check and the insert are separate statements, so two
// concurrent starts by one user can both succeed.
func (s *ExamService) Start(ctx context.Context, userID, departmentID int64) (uuid.UUID, error) {
	active, err := s.exams.HasActive(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check active exam: %w", err)
	}
	if active {
		return uuid.Nil, ErrActiveExamExists
	}

	if _, err := s.departments.GetByID(ctx, departmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrDepartmentNotFound
		}
		return uuid.Nil, fmt.Errorf("get department: %w", err)
	}

	exam := &model.Exam{
		ID:           uuid.New(),
		UserID:       userID,
		DepartmentID: departmentID,
		Status:       model.ExamStatusActive,
		StartTime:    s.now(),
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return uuid.Nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int64("user_id", userID).
		Int64("department_id", departmentID).
		Msg("Exam started")

	s.publish(ctx, "exam_started", exam)
	return exam.ID, nil
}

// load fetches an exam and enforces that the actor owns it or is an admin.
func (s *ExamService) load(ctx context.Context, examID uuid.UUID, actor Actor) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return exam, nil
}

// FetchQuestions returns the department's questions for an active exam.
// Answers never carry their correctness flag.
func (s *ExamService) FetchQuestions(ctx context.Context, examID uuid.UUID, actor Actor) (*model.ExamQuestionsResponse, error) {
	exam, err := s.load(ctx, examID, actor)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusActive {
		return nil, ErrExamNotActive
	}

	paper, err := s.Paper(ctx, exam.DepartmentID)
	if err != nil {
		return nil, err
	}
	return &model.ExamQuestionsResponse{ExamID: exam.ID, Questions: paper}, nil
}

// Paper returns the candidate-facing question set of a department,
// served from cache when possible.
func (s *ExamService) Paper(ctx context.Context, departmentID int64) ([]model.QuestionForCandidate, error) {
	paper, err := s.papers.Get(ctx, departmentID)
	if err == nil {
		return paper, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.log.Warn().Err(err).Int64("department_id", departmentID).Msg("Paper cache read failed")
	}

	questions, err := s.questions.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	paper = make([]model.QuestionForCandidate, 0, len(questions))
	for i := range questions {
		paper = append(paper, questions[i].ForCandidate())
	}

	if err := s.papers.Set(ctx, departmentID, paper); err != nil {
		s.log.Warn().Err(err).Int64("department_id", departmentID).Msg("Paper cache write failed")
	}
	return paper, nil
}

// Submit grades the answers of an active exam and completes it.
// Invalid or repeated pairs are skipped but still count toward the
// denominator: the score is correct answers over submitted pairs.
func (s *ExamService) Submit(ctx context.Context, examID uuid.UUID, actor Actor, submitted []model.SubmittedAnswer) (float64, error) {
	exam, err := s.load(ctx, examID, actor)
	if err != nil {
		return 0, err
	}
	if exam.UserID != actor.UserID {
		return 0, ErrForbidden
	}
	if exam.Status != model.ExamStatusActive {
		return 0, ErrExamNotActive
	}

	ids := make([]int64, 0, len(submitted))
	for _, a := range submitted {
		ids = append(ids, a.QuestionID)
	}
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load answer key: %w", err)
	}

	graded := Grade(submitted, questions, exam.DepartmentID)
	correct := CountCorrect(graded)
	score := Percentage(correct, len(submitted))
	now := s.now()

	answers := make([]model.ExamAnswer, len(graded))
	for i, g := range graded {
		answers[i] = model.ExamAnswer{
			ExamID:           exam.ID,
			QuestionID:       g.QuestionID,
			SelectedAnswerID: g.AnswerID,
			IsCorrect:        g.IsCorrect,
			AnsweredAt:       now,
		}
	}

	if err := s.exams.Complete(ctx, exam.ID, answers, score, now); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return 0, ErrExamNotActive
		}
		return 0, fmt.Errorf("complete exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("submitted", len(submitted)).
		Int("recorded", len(graded)).
		Float64("score", score).
		Msg("Exam submitted")

	exam.Status = model.ExamStatusCompleted
	exam.EndTime = &now
	exam.Score = &score
	s.publish(ctx, "exam_completed", exam)
	return score, nil
}

// Results returns the summary and per-type breakdown of a completed exam.
func (s *ExamService) Results(ctx context.Context, examID uuid.UUID, actor Actor) (*model.ExamResults, error) {
	exam, err := s.load(ctx, examID, actor)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusCompleted {
		return nil, ErrExamNotCompleted
	}

	rows, err := s.exams.AnswerTypeRows(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("aggregate answers: %w", err)
	}
	breakdown := Breakdown(rows)

	summary := model.ExamSummary{Exam: *exam}
	for _, b := range breakdown {
		summary.TotalQuestions += b.Total
		summary.CorrectAnswers += b.Correct
	}
	return &model.ExamResults{Exam: summary, QuestionTypes: breakdown}, nil
}

// Get returns one exam with its recorded answers.
func (s *ExamService) Get(ctx context.Context, examID uuid.UUID, actor Actor) (*model.Exam, []model.ExamAnswer, error) {
	exam, err := s.load(ctx, examID, actor)
	if err != nil {
		return nil, nil, err
	}
	answers, err := s.exams.ListAnswers(ctx, exam.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list answers: %w", err)
	}
	return exam, answers, nil
}

// List returns exams matching filter with pagination.
func (s *ExamService) List(ctx context.Context, f model.ExamFilter, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	exams, total, err := s.exams.ListPaginated(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return exams, buildPagination(page, perPage, total), nil
}

func (s *ExamService) publish(ctx context.Context, kind string, exam *model.Exam) {
	ev := model.ExamEvent{
		Type:         kind,
		ExamID:       exam.ID,
		UserID:       exam.UserID,
		DepartmentID: exam.DepartmentID,
		Status:       exam.Status,
		Score:        exam.Score,
		OccurredAt:   s.now(),
	}
	if err := s.events.PublishExamEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Publish exam event failed")
	}
}
