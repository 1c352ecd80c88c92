package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type examFixture struct {
	svc    *ExamService
	store  *fakeExamStore
	papers *fakePaperCache
	events *fakeEvents
}

func newExamFixture() *examFixture {
	questions := &fakeQuestions{questions: bank()}
	f := &examFixture{
		store:  newFakeExamStore(questions),
		papers: newFakePaperCache(),
		events: &fakeEvents{},
	}
	departments := fakeDepartments{
		1: {ID: 1, Name: "Physics"},
		2: {ID: 2, Name: "Biology"},
	}
	f.svc = NewExamService(f.store, questions, departments, f.papers, f.events, zerolog.Nop())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

var (
	candidate = Actor{UserID: 7, Role: model.RoleUser}
	stranger  = Actor{UserID: 8, Role: model.RoleUser}
	admin     = Actor{UserID: 1, Role: model.RoleAdmin}
)

func TestExamService_Start(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture()

	id, err := f.svc.Start(ctx, candidate.UserID, 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	exam := f.store.exams[id]
	if exam.Status != model.ExamStatusActive || exam.DepartmentID != 1 || exam.Score != nil {
		t.Errorf("unexpected exam %+v", exam)
	}

	if _, err := f.svc.Start(ctx, candidate.UserID, 2); !errors.Is(err, ErrActiveExamExists) {
		t.Errorf("second Start err = %v, want ErrActiveExamExists", err)
	}
	if _, err := f.svc.Start(ctx, stranger.UserID, 42); !errors.Is(err, ErrDepartmentNotFound) {
		t.Errorf("Start unknown department err = %v, want ErrDepartmentNotFound", err)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != "exam_started" {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestExamService_FetchQuestions(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture()
	id, _ := f.svc.Start(ctx, candidate.UserID, 1)

	resp, err := f.svc.FetchQuestions(ctx, id, candidate)
	if err != nil {
		t.Fatalf("FetchQuestions: %v", err)
	}
	if len(resp.Questions) != 3 {
		t.Fatalf("got %d questions, want the 3 of department 1", len(resp.Questions))
	}
	for _, q := range resp.Questions {
		if len(q.Answers) != 2 {
			t.Errorf("question %d has %d answers", q.ID, len(q.Answers))
		}
	}

	// Second read is served from the cache.
	if _, err := f.svc.FetchQuestions(ctx, id, admin); err != nil {
		t.Fatalf("admin FetchQuestions: %v", err)
	}
	if f.papers.hits != 1 {
		t.Errorf("cache hits = %d, want 1", f.papers.hits)
	}

	if _, err := f.svc.FetchQuestions(ctx, id, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.FetchQuestions(ctx, uuid.New(), candidate); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("unknown exam err = %v, want ErrExamNotFound", err)
	}

	if _, err := f.svc.Submit(ctx, id, candidate, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.FetchQuestions(ctx, id, candidate); !errors.Is(err, ErrExamNotActive) {
		t.Errorf("completed exam err = %v, want ErrExamNotActive", err)
	}
}

func TestExamService_Submit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		answers   []model.SubmittedAnswer
		wantScore float64
		wantRows  int
	}{
		{
			name: "mixed with invalid pairs",
			answers: []model.SubmittedAnswer{
				{QuestionID: 1, AnswerID: 11}, // correct
				{QuestionID: 2, AnswerID: 22}, // wrong
				{QuestionID: 3, AnswerID: 31}, // correct
				{QuestionID: 4, AnswerID: 41}, // other department
				{QuestionID: 1, AnswerID: 12}, // repeat
				{QuestionID: 2, AnswerID: 99}, // foreign answer
			},
			wantScore: 33.33,
			wantRows:  3,
		},
		{
			name: "zero ids skipped but counted",
			answers: []model.SubmittedAnswer{
				{QuestionID: 0, AnswerID: 0},
				{QuestionID: 2, AnswerID: 21},
				{QuestionID: 3, AnswerID: 0},
				{QuestionID: 1, AnswerID: 11},
			},
			wantScore: 50,
			wantRows:  2,
		},
		{
			name: "unknown question counts as wrong",
			answers: []model.SubmittedAnswer{
				{QuestionID: 1, AnswerID: 11},
				{QuestionID: 999, AnswerID: 1},
			},
			wantScore: 50,
			wantRows:  1,
		},
		{name: "empty", wantScore: 0},
		{
			name:      "all correct",
			answers:   []model.SubmittedAnswer{{QuestionID: 2, AnswerID: 21}},
			wantScore: 100,
			wantRows:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExamFixture()
			id, _ := f.svc.Start(ctx, candidate.UserID, 1)

			score, err := f.svc.Submit(ctx, id, candidate, tt.answers)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if got := len(f.store.answers[id]); got != tt.wantRows {
				t.Errorf("recorded %d answers, want %d", got, tt.wantRows)
			}

			exam := f.store.exams[id]
			if exam.Status != model.ExamStatusCompleted || exam.EndTime == nil || *exam.Score != tt.wantScore {
				t.Errorf("exam not completed correctly: %+v", exam)
			}
			last := f.events.events[len(f.events.events)-1]
			if last.Type != "exam_completed" || last.Score == nil || *last.Score != tt.wantScore {
				t.Errorf("last event = %+v", last)
			}
		})
	}
}

func TestExamService_SubmitRejections(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture()
	id, _ := f.svc.Start(ctx, candidate.UserID, 1)

	if _, err := f.svc.Submit(ctx, id, stranger, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Submit(ctx, id, admin, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Submit(ctx, id, candidate, []model.SubmittedAnswer{{QuestionID: 1, AnswerID: 11}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, id, candidate, nil); !errors.Is(err, ErrExamNotActive) {
		t.Errorf("resubmit err = %v, want ErrExamNotActive", err)
	}
	if *f.store.exams[id].Score != 100 {
		t.Errorf("resubmission changed the score to %v", *f.store.exams[id].Score)
	}

	// A completed exam no longer blocks a new one.
	if _, err := f.svc.Start(ctx, candidate.UserID, 2); err != nil {
		t.Errorf("Start after completion: %v", err)
	}
}

func TestExamService_Results(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture()
	id, _ := f.svc.Start(ctx, candidate.UserID, 1)

	if _, err := f.svc.Results(ctx, id, candidate); !errors.Is(err, ErrExamNotCompleted) {
		t.Fatalf("Results before submit err = %v, want ErrExamNotCompleted", err)
	}

	answers := []model.SubmittedAnswer{
		{QuestionID: 3, AnswerID: 32},
		{QuestionID: 1, AnswerID: 11},
		{QuestionID: 2, AnswerID: 21},
	}
	if _, err := f.svc.Submit(ctx, id, candidate, answers); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err := f.svc.Results(ctx, id, admin)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if res.Exam.TotalQuestions != 3 || res.Exam.CorrectAnswers != 2 {
		t.Errorf("summary = %d/%d, want 2/3", res.Exam.CorrectAnswers, res.Exam.TotalQuestions)
	}
	if len(res.QuestionTypes) != 3 {
		t.Fatalf("got %d type groups, want 3", len(res.QuestionTypes))
	}
	for i, want := range []model.QuestionType{model.QuestionTypeMultipleChoice, model.QuestionTypeTrueFalse, model.QuestionTypeFillBlank} {
		if res.QuestionTypes[i].Type != want {
			t.Errorf("group %d type = %d, want %d", i, res.QuestionTypes[i].Type, want)
		}
	}
	if res.QuestionTypes[2].Percentage != 0 {
		t.Errorf("fill blank percentage = %v, want 0", res.QuestionTypes[2].Percentage)
	}

	if _, err := f.svc.Results(ctx, id, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger err = %v, want ErrForbidden", err)
	}
}

func TestExamService_List(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture()
	f.svc.Start(ctx, candidate.UserID, 1)
	f.svc.Start(ctx, stranger.UserID, 2)

	exams, page, err := f.svc.List(ctx, model.ExamFilter{UserID: candidate.UserID}, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(exams) != 1 || page.TotalItems != 1 || page.Page != 1 || page.PerPage != 10 {
		t.Errorf("List = %d exams, pagination %+v", len(exams), page)
	}
}
