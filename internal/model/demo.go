package model

import (
	"time"

	"github.com/google/uuid"
)

// GuestProfile is a login-free identity used for the demo flow.
type GuestProfile struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	Phone                  string    `json:"phone"`
	Address                string    `json:"address,omitempty"`
	ExamInterested         string    `json:"exam_interested,omitempty"`
	DeviceFingerprint      string    `json:"device_fingerprint,omitempty"`
	OTP                    string    `json:"-"`
	IsVerified             bool      `json:"is_verified"`
	DemoUsed               bool      `json:"demo_used"`
	DemoQuestionsAttempted int       `json:"demo_questions_attempted"`
	CreatedAt              time.Time `json:"created_at"`
}

// DemoSession is the single demo attempt of a guest.
type DemoSession struct {
	ID          uuid.UUID  `json:"id"`
	GuestID     int64      `json:"guest_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IsCompleted bool       `json:"is_completed"`
}

// DemoAnswer records a guest's choice within a demo session.
type DemoAnswer struct {
	SessionID        uuid.UUID `json:"session_id"`
	QuestionID       int64     `json:"question_id"`
	SelectedAnswerID int64     `json:"selected_answer_id"`
	IsCorrect        bool      `json:"is_correct"`
	AnsweredAt       time.Time `json:"answered_at"`
}

// GuestRegisterRequest is the payload for demo registration.
type GuestRegisterRequest struct {
	Name              string `json:"name" binding:"required,min=2,max=100"`
	Email             string `json:"email" binding:"required,email,max=254"`
	Phone             string `json:"phone" binding:"required,min=6,max=20"`
	Address           string `json:"address" binding:"omitempty,max=500"`
	ExamInterested    string `json:"exam_interested" binding:"omitempty,max=100"`
	DeviceFingerprint string `json:"device_fingerprint" binding:"omitempty,max=255"`
}

// GuestRegisterResponse is returned after demo registration.
type GuestRegisterResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// VerifyGuestOTPRequest is the payload for demo OTP verification.
type VerifyGuestOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,numeric,len=6"`
}

// VerifyGuestOTPResponse carries the demo session id on first verification.
type VerifyGuestOTPResponse struct {
	Message   string     `json:"message"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

// DemoQuestionsResponse wraps a sampled demo question set.
type DemoQuestionsResponse struct {
	SessionID uuid.UUID              `json:"session_id"`
	Questions []QuestionForCandidate `json:"questions"`
}

// DemoSubmitRequest is the payload for submitting demo answers.
type DemoSubmitRequest struct {
	SessionID uuid.UUID         `json:"session_id" binding:"required"`
	Answers   []SubmittedAnswer `json:"answers" binding:"required,dive"`
}

// DemoResult is returned after a demo submission.
type DemoResult struct {
	TotalQuestions  int     `json:"total_questions"`
	CorrectAnswers  int     `json:"correct_answers"`
	ScorePercentage float64 `json:"score_percentage"`
}
