package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam attempt.
type ExamStatus string

const (
	ExamStatusActive    ExamStatus = "active"
	ExamStatusPaused    ExamStatus = "paused"
	ExamStatusCompleted ExamStatus = "completed"
	ExamStatusExpired   ExamStatus = "expired"
)

// Exam is one attempt by one user at one department.
type Exam struct {
	ID             uuid.UUID  `json:"id"`
	UserID         int64      `json:"user_id"`
	DepartmentID   int64      `json:"department_id"`
	DepartmentName string     `json:"department_name,omitempty"`
	Status         ExamStatus `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Score          *float64   `json:"score,omitempty"`
}

// ExamAnswer records a candidate's choice and its correctness at submission time.
type ExamAnswer struct {
	ID               int64     `json:"id"`
	ExamID           uuid.UUID `json:"exam_id"`
	QuestionID       int64     `json:"question_id"`
	SelectedAnswerID int64     `json:"selected_answer_id"`
	IsCorrect        bool      `json:"is_correct"`
	AnsweredAt       time.Time `json:"answered_at"`
}

// StartExamRequest is the payload for starting an exam.
type StartExamRequest struct {
	DepartmentID int64 `json:"department_id" binding:"required,min=1"`
}

// StartExamResponse is returned after starting an exam.
type StartExamResponse struct {
	ExamID uuid.UUID `json:"exam_id"`
}

// SubmittedAnswer is a (question, answer) pair sent by a candidate.
// Pairs are not validated at binding: unknown or zero ids are skipped
// during grading instead of rejecting the whole submission.
type SubmittedAnswer struct {
	QuestionID int64 `json:"question_id"`
	AnswerID   int64 `json:"answer_id"`
}

// SubmitAnswersRequest is the payload for submitting exam answers.
type SubmitAnswersRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"required,dive"`
}

// SubmitExamResponse is returned after grading.
type SubmitExamResponse struct {
	Score float64 `json:"score"`
}

// ExamQuestionsResponse wraps the question set of an active exam.
type ExamQuestionsResponse struct {
	ExamID    uuid.UUID              `json:"exam_id"`
	Questions []QuestionForCandidate `json:"questions"`
}

// TypeBreakdown is the per question type aggregate of graded answers.
type TypeBreakdown struct {
	Type       QuestionType `json:"type"`
	Name       string       `json:"name"`
	Total      int          `json:"total"`
	Correct    int          `json:"correct"`
	Percentage float64      `json:"percentage"`
}

// ExamSummary is the exam part of a results payload.
type ExamSummary struct {
	Exam
	TotalQuestions int `json:"total_questions"`
	CorrectAnswers int `json:"correct_answers"`
}

// ExamResults is the payload returned for a completed exam.
type ExamResults struct {
	Exam          ExamSummary     `json:"exam"`
	QuestionTypes []TypeBreakdown `json:"question_types"`
}

// ExamFilter narrows an exam listing.
type ExamFilter struct {
	UserID       int64
	DepartmentID int64
	Status       ExamStatus
}

// ExamEvent is published when an exam changes state.
type ExamEvent struct {
	Type         string     `json:"type"`
	ExamID       uuid.UUID  `json:"exam_id"`
	UserID       int64      `json:"user_id"`
	DepartmentID int64      `json:"department_id"`
	Status       ExamStatus `json:"status"`
	Score        *float64   `json:"score,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}
