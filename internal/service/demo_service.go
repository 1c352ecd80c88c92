package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/repository"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// GuestStore is the persistence used by DemoService.
type GuestStore interface {
	Create(ctx context.Context, g *model.GuestProfile) error
	GetByEmail(ctx context.Context, email string) (*model.GuestProfile, error)
	ListPaginated(ctx context.Context, search string, limit, offset int) ([]model.GuestProfile, int, error)
	VerifyAndOpenSession(ctx context.Context, guestID int64, s *model.DemoSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*model.DemoSession, *model.GuestProfile, error)
	CompleteSession(ctx context.Context, sessionID uuid.UUID, guestID int64, answers []model.DemoAnswer, endTime time.Time) error
	ResetDemo(ctx context.Context, guestID int64) error
}

// AuditSink receives IP log entries. Delivery is best effort.
type AuditSink interface {
	EnqueueAudit(ctx context.Context, entry model.IPLog) error
}

// Notifier queues outbound messages. Delivery is best effort.
type Notifier interface {
	EnqueueNotification(ctx context.Context, n model.Notification) error
}

const (
	msgOTPSent           = "OTP sent to your email. Please verify to continue."
	msgOTPVerified       = "OTP verified successfully."
	msgOTPAlreadyChecked = "OTP already verified."
)

// DemoService runs the login-free, single-use demo exam.
type DemoService struct {
	guests    GuestStore
	questions QuestionReader
	audit     AuditSink
	notifier  Notifier
	perType   int
	now       func() time.Time
	shuffle   func(n int, swap func(i, j int))
	log       zerolog.Logger
}

// NewDemoService creates a new DemoService. perType bounds the number of
// questions sampled per question type.
func NewDemoService(guests GuestStore, questions QuestionReader, audit AuditSink, notifier Notifier, perType int, log zerolog.Logger) *DemoService {
	return &DemoService{
		guests:    guests,
		questions: questions,
		audit:     audit,
		notifier:  notifier,
		perType:   perType,
		now:       time.Now,
		shuffle:   rand.Shuffle,
		log:       log.With().Str("component", "demo_service").Logger(),
	}
}

// Register creates a guest, issues a 6-digit code and queues its delivery.
// Audit and delivery failures are logged and never fail the registration.
func (s *DemoService) Register(ctx context.Context, req *model.GuestRegisterRequest, client model.ClientInfo) (*model.GuestRegisterResponse, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	guest := &model.GuestProfile{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Address:           req.Address,
		ExamInterested:    req.ExamInterested,
		DeviceFingerprint: req.DeviceFingerprint,
		OTP:               code,
	}
	if err := s.guests.Create(ctx, guest); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create guest: %w", err)
	}

	entry := model.IPLog{
		GuestID:   &guest.ID,
		Event:     model.EventDemoRegister,
		Succeeded: true,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Location:  client.Location,
		CreatedAt: s.now(),
	}
	if err := s.audit.EnqueueAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).Int64("guest_id", guest.ID).Msg("Audit enqueue failed")
	}

	n := model.Notification{
		Channel:   model.OTPTypeEmail,
		Recipient: guest.Email,
		Subject:   "Your demo verification code",
		Body:      fmt.Sprintf("Hello %s,\n\nYour verification code is %s.\n", guest.Name, code),
	}
	if err := s.notifier.EnqueueNotification(ctx, n); err != nil {
		s.log.Warn().Err(err).Int64("guest_id", guest.ID).Msg("OTP dispatch enqueue failed")
	}

	s.log.Info().Int64("guest_id", guest.ID).Msg("Guest registered")
	return &model.GuestRegisterResponse{Message: msgOTPSent, Email: guest.Email}, nil
}

// VerifyOTP checks a guest's code and opens the demo session on first success.
// A guest that is already verified gets the success message without a session id.
func (s *DemoService) VerifyOTP(ctx context.Context, email, code string) (*model.VerifyGuestOTPResponse, error) {
	guest, err := s.guests.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("get guest: %w", err)
	}

	if guest.IsVerified {
		return &model.VerifyGuestOTPResponse{Message: msgOTPAlreadyChecked}, nil
	}
	if guest.OTP != code {
		return nil, ErrInvalidOTP
	}

	session := &model.DemoSession{ID: uuid.New(), GuestID: guest.ID, StartTime: s.now()}
	if err := s.guests.VerifyAndOpenSession(ctx, guest.ID, session); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return &model.VerifyGuestOTPResponse{Message: msgOTPAlreadyChecked}, nil
		}
		return nil, fmt.Errorf("open demo session: %w", err)
	}

	s.log.Info().Int64("guest_id", guest.ID).Str("session_id", session.ID.String()).Msg("Demo session opened")
	return &model.VerifyGuestOTPResponse{Message: msgOTPVerified, SessionID: &session.ID}, nil
}

// gate loads a demo session and checks the guest may still take the demo.
func (s *DemoService) gate(ctx context.Context, sessionID uuid.UUID) (*model.DemoSession, *model.GuestProfile, error) {
	session, guest, err := s.guests.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrDemoSessionNotFound
		}
		return nil, nil, fmt.Errorf("get demo session: %w", err)
	}
	if !guest.IsVerified {
		return nil, nil, ErrGuestNotVerified
	}
	if guest.DemoUsed {
		return nil, nil, ErrDemoAlreadyUsed
	}
	return session, guest, nil
}

// Questions samples up to perType random questions of each type, in
// ascending type order. Each call draws a fresh sample.
func (s *DemoService) Questions(ctx context.Context, sessionID uuid.UUID) (*model.DemoQuestionsResponse, error) {
	session, _, err := s.gate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	picked := make([]int64, 0, s.perType*len(model.QuestionTypes))
	for _, t := range model.QuestionTypes {
		ids, err := s.questions.ListIDsByType(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("list questions of type %d: %w", t, err)
		}
		picked = append(picked, s.sample(ids)...)
	}

	questions, err := s.questions.GetByIDs(ctx, picked)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	out := make([]model.QuestionForCandidate, 0, len(picked))
	for _, id := range picked {
		if q, ok := byID[id]; ok {
			out = append(out, q.ForCandidate())
		}
	}
	return &model.DemoQuestionsResponse{SessionID: session.ID, Questions: out}, nil
}

// sample draws up to perType IDs without replacement.
func (s *DemoService) sample(ids []int64) []int64 {
	pool := append([]int64(nil), ids...)
	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > s.perType {
		pool = pool[:s.perType]
	}
	return pool
}

// Submit grades a demo attempt, consumes the guest's demo and closes the session.
func (s *DemoService) Submit(ctx context.Context, sessionID uuid.UUID, submitted []model.SubmittedAnswer) (*model.DemoResult, error) {
	session, guest, err := s.gate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(submitted))
	for _, a := range submitted {
		ids = append(ids, a.QuestionID)
	}
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	graded := Grade(submitted, questions, 0)
	now := s.now()
	answers := make([]model.DemoAnswer, len(graded))
	for i, g := range graded {
		answers[i] = model.DemoAnswer{
			SessionID:        session.ID,
			QuestionID:       g.QuestionID,
			SelectedAnswerID: g.AnswerID,
			IsCorrect:        g.IsCorrect,
			AnsweredAt:       now,
		}
	}

	if err := s.guests.CompleteSession(ctx, session.ID, guest.ID, answers, now); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrDemoAlreadyUsed
		}
		return nil, fmt.Errorf("complete demo session: %w", err)
	}

	correct := CountCorrect(graded)
	result := &model.DemoResult{
		TotalQuestions:  len(graded),
		CorrectAnswers:  correct,
		ScorePercentage: Percentage(correct, len(graded)),
	}
	s.log.Info().
		Int64("guest_id", guest.ID).
		Int("recorded", result.TotalQuestions).
		Float64("score", result.ScorePercentage).
		Msg("Demo submitted")
	return result, nil
}

// ListGuests returns guest profiles with pagination.
func (s *DemoService) ListGuests(ctx context.Context, search string, page, perPage int) ([]model.GuestProfile, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	guests, total, err := s.guests.ListPaginated(ctx, search, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return guests, buildPagination(page, perPage, total), nil
}

// ResetDemo lets a guest take the demo again.
func (s *DemoService) ResetDemo(ctx context.Context, guestID int64) error {
	if err := s.guests.ResetDemo(ctx, guestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGuestNotFound
		}
		return fmt.Errorf("reset demo: %w", err)
	}
	s.log.Info().Int64("guest_id", guestID).Msg("Demo reset")
	return nil
}
