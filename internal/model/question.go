package model

import "time"

// QuestionType tags the format of a question.
type QuestionType int16

const (
	QuestionTypeMultipleChoice QuestionType = 1
	QuestionTypeTrueFalse      QuestionType = 2
	QuestionTypeFillBlank      QuestionType = 3
	QuestionTypeMatching       QuestionType = 4
	QuestionTypeSequence       QuestionType = 5
	QuestionTypeCaseStudy      QuestionType = 6
)

// QuestionTypes lists every type in ascending order.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeTrueFalse,
	QuestionTypeFillBlank,
	QuestionTypeMatching,
	QuestionTypeSequence,
	QuestionTypeCaseStudy,
}

// Name returns the display name of the question type.
func (t QuestionType) Name() string {
	switch t {
	case QuestionTypeMultipleChoice:
		return "Multiple Choice"
	case QuestionTypeTrueFalse:
		return "True/False"
	case QuestionTypeFillBlank:
		return "Fill in the Blanks"
	case QuestionTypeMatching:
		return "Matching"
	case QuestionTypeSequence:
		return "Sequence"
	case QuestionTypeCaseStudy:
		return "Case Study"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	return t >= QuestionTypeMultipleChoice && t <= QuestionTypeCaseStudy
}

// Question is a single item in a department's question bank.
type Question struct {
	ID           int64        `json:"id"`
	DepartmentID int64        `json:"department_id"`
	QuestionType QuestionType `json:"question_type"`
	Content      string       `json:"content"`
	MediaURL     *string      `json:"media_url,omitempty"`
	CreatedBy    *int64       `json:"created_by,omitempty"`
	Answers      []Answer     `json:"answers"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Answer is an option of a question. IsCorrect is the grading key.
type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// AnswerOption is an answer as shown to a candidate, without its correctness flag.
type AnswerOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionForCandidate is a question sent to a candidate before submission.
type QuestionForCandidate struct {
	ID           int64          `json:"id"`
	QuestionType QuestionType   `json:"question_type"`
	TypeName     string         `json:"question_type_name"`
	Content      string         `json:"content"`
	MediaURL     *string        `json:"media_url,omitempty"`
	Answers      []AnswerOption `json:"answers"`
}

// ForCandidate strips the grading key from q.
func (q *Question) ForCandidate() QuestionForCandidate {
	options := make([]AnswerOption, 0, len(q.Answers))
	for _, a := range q.Answers {
		options = append(options, AnswerOption{ID: a.ID, Text: a.Text})
	}
	return QuestionForCandidate{
		ID:           q.ID,
		QuestionType: q.QuestionType,
		TypeName:     q.QuestionType.Name(),
		Content:      q.Content,
		MediaURL:     q.MediaURL,
		Answers:      options,
	}
}

// AnswerInput is one answer option supplied when creating or updating a question.
// A nil ID inserts a new option; a known ID updates it in place.
type AnswerInput struct {
	ID        *int64 `json:"id" binding:"omitempty,min=1"`
	Text      string `json:"text" binding:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionRequest is the payload for creating or updating a question.
type QuestionRequest struct {
	DepartmentID int64         `json:"department_id" binding:"required,min=1"`
	QuestionType QuestionType  `json:"question_type" binding:"required,min=1,max=6"`
	Content      string        `json:"content" binding:"required"`
	MediaURL     *string       `json:"media_url" binding:"omitempty,url"`
	Answers      []AnswerInput `json:"answers" binding:"required,min=1,max=10,dive"`
}

// QuestionFilter narrows an admin question listing.
type QuestionFilter struct {
	DepartmentID int64
	QuestionType QuestionType
	Search       string
}
