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

// demoBank holds three multiple choice questions and one true/false question.
func demoBank() []model.Question {
	qs := bank()
	qs[2].QuestionType = model.QuestionTypeMultipleChoice
	return qs
}

func newDemoFixture(perType int) (*DemoService, *fakeGuestStore, *fakeQueue) {
	guests := newFakeGuestStore()
	queue := &fakeQueue{}
	svc := NewDemoService(guests, &fakeQuestions{questions: demoBank()}, queue, queue, perType, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	// Keep sampling deterministic: no shuffling.
	svc.shuffle = func(int, func(i, j int)) {}
	return svc, guests, queue
}

func registerAndVerify(t *testing.T, svc *DemoService, guests *fakeGuestStore, email string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	req := &model.GuestRegisterRequest{Name: "Guest", Email: email, Phone: "08123456789"}
	if _, err := svc.Register(ctx, req, model.ClientInfo{IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	g, _ := guests.GetByEmail(ctx, email)
	resp, err := svc.VerifyOTP(ctx, email, g.OTP)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if resp.SessionID == nil {
		t.Fatal("VerifyOTP returned no session id")
	}
	return *resp.SessionID
}

func TestDemoService_Register(t *testing.T) {
	ctx := context.Background()
	svc, guests, queue := newDemoFixture(10)
	req := &model.GuestRegisterRequest{Name: "Ana", Email: "ana@example.com", Phone: "08123456789"}

	resp, err := svc.Register(ctx, req, model.ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Email != req.Email || resp.Message == "" {
		t.Errorf("unexpected response %+v", resp)
	}

	g, _ := guests.GetByEmail(ctx, req.Email)
	if len(g.OTP) != 6 || g.IsVerified || g.DemoUsed {
		t.Errorf("unexpected guest %+v", g)
	}
	if len(queue.notifications) != 1 || queue.notifications[0].Recipient != req.Email {
		t.Errorf("notifications = %+v", queue.notifications)
	}
	if len(queue.audits) != 1 || queue.audits[0].Event != model.EventDemoRegister || *queue.audits[0].GuestID != g.ID {
		t.Errorf("audits = %+v", queue.audits)
	}

	if _, err := svc.Register(ctx, req, model.ClientInfo{}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Register err = %v, want ErrEmailTaken", err)
	}
}

func TestDemoService_RegisterSurvivesNotificationFailure(t *testing.T) {
	svc, _, queue := newDemoFixture(10)
	queue.notifyErr = errors.New("redis down")

	req := &model.GuestRegisterRequest{Name: "Ana", Email: "ana@example.com", Phone: "08123456789"}
	if _, err := svc.Register(context.Background(), req, model.ClientInfo{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestDemoService_VerifyOTP(t *testing.T) {
	ctx := context.Background()
	svc, guests, _ := newDemoFixture(10)
	req := &model.GuestRegisterRequest{Name: "Ana", Email: "ana@example.com", Phone: "08123456789"}
	svc.Register(ctx, req, model.ClientInfo{})
	g, _ := guests.GetByEmail(ctx, req.Email)

	wrong := "000000"
	if g.OTP == wrong {
		wrong = "111111"
	}
	if _, err := svc.VerifyOTP(ctx, req.Email, wrong); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("wrong code err = %v, want ErrInvalidOTP", err)
	}
	if _, err := svc.VerifyOTP(ctx, "nobody@example.com", g.OTP); !errors.Is(err, ErrGuestNotFound) {
		t.Errorf("unknown email err = %v, want ErrGuestNotFound", err)
	}

	first, err := svc.VerifyOTP(ctx, req.Email, g.OTP)
	if err != nil || first.SessionID == nil {
		t.Fatalf("first verify = %+v, %v", first, err)
	}
	again, err := svc.VerifyOTP(ctx, req.Email, wrong)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if again.SessionID != nil || again.Message != msgOTPAlreadyChecked {
		t.Errorf("second verify = %+v, want already-verified message without session", again)
	}
	if len(guests.sessions) != 1 {
		t.Errorf("opened %d sessions, want 1", len(guests.sessions))
	}
}

func TestDemoService_Questions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		perType int
		wantIDs []int64
	}{
		{"capped per type", 2, []int64{1, 3, 2}},
		{"fewer available than cap", 10, []int64{1, 3, 4, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, guests, _ := newDemoFixture(tt.perType)
			sessionID := registerAndVerify(t, svc, guests, "ana@example.com")

			resp, err := svc.Questions(ctx, sessionID)
			if err != nil {
				t.Fatalf("Questions: %v", err)
			}
			if len(resp.Questions) != len(tt.wantIDs) {
				t.Fatalf("got %d questions, want %d", len(resp.Questions), len(tt.wantIDs))
			}
			for i, q := range resp.Questions {
				if q.ID != tt.wantIDs[i] {
					t.Errorf("question %d = %d, want %d", i, q.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestDemoService_Gate(t *testing.T) {
	ctx := context.Background()
	svc, guests, _ := newDemoFixture(10)

	if _, err := svc.Questions(ctx, uuid.New()); !errors.Is(err, ErrDemoSessionNotFound) {
		t.Errorf("unknown session err = %v, want ErrDemoSessionNotFound", err)
	}

	// A session whose guest lost verification is rejected.
	sessionID := registerAndVerify(t, svc, guests, "ana@example.com")
	guests.guests[guests.sessions[sessionID].GuestID].IsVerified = false
	if _, err := svc.Questions(ctx, sessionID); !errors.Is(err, ErrGuestNotVerified) {
		t.Errorf("unverified guest err = %v, want ErrGuestNotVerified", err)
	}
}

func TestDemoService_SubmitIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, guests, _ := newDemoFixture(10)
	sessionID := registerAndVerify(t, svc, guests, "ana@example.com")

	answers := []model.SubmittedAnswer{
		{QuestionID: 1, AnswerID: 11},
		{QuestionID: 4, AnswerID: 42},
		{QuestionID: 2, AnswerID: 99},
	}
	res, err := svc.Submit(ctx, sessionID, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.TotalQuestions != 2 || res.CorrectAnswers != 1 || res.ScorePercentage != 50 {
		t.Errorf("result = %+v", res)
	}

	g := guests.guests[guests.sessions[sessionID].GuestID]
	if !g.DemoUsed || g.DemoQuestionsAttempted != 2 {
		t.Errorf("guest after submit = %+v", g)
	}
	if !guests.sessions[sessionID].IsCompleted {
		t.Error("session not completed")
	}

	if _, err := svc.Submit(ctx, sessionID, answers); !errors.Is(err, ErrDemoAlreadyUsed) {
		t.Errorf("second Submit err = %v, want ErrDemoAlreadyUsed", err)
	}
	if _, err := svc.Questions(ctx, sessionID); !errors.Is(err, ErrDemoAlreadyUsed) {
		t.Errorf("Questions after submit err = %v, want ErrDemoAlreadyUsed", err)
	}

	if err := svc.ResetDemo(ctx, g.ID); err != nil {
		t.Fatalf("ResetDemo: %v", err)
	}
	if _, err := svc.Submit(ctx, sessionID, nil); err != nil {
		t.Errorf("Submit after reset: %v", err)
	}
	if err := svc.ResetDemo(ctx, 999); !errors.Is(err, ErrGuestNotFound) {
		t.Errorf("ResetDemo unknown guest err = %v, want ErrGuestNotFound", err)
	}
}
