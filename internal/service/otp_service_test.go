package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/rs/zerolog"
)

func newOTPFixture() (*OTPService, *fakeOTPStore, *fakeQueue, *time.Time) {
	store := newFakeOTPStore()
	queue := &fakeQueue{}
	svc := NewOTPService(store, queue, 10*time.Minute, 5, zerolog.Nop())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, queue, &now
}

func TestOTPService_Request(t *testing.T) {
	ctx := context.Background()
	svc, store, queue, now := newOTPFixture()

	if err := svc.Request(ctx, model.OTPTypeEmail, "  Ana@Example.com "); err != nil {
		t.Fatalf("Request: %v", err)
	}
	o, err := store.Get(ctx, model.OTPTypeEmail, "ana@example.com")
	if err != nil {
		t.Fatalf("code not stored under normalized identifier: %v", err)
	}
	if len(o.Code) != 6 || !o.ExpiresAt.Equal(now.Add(10*time.Minute)) {
		t.Errorf("stored otp = %+v", o)
	}
	if len(queue.notifications) != 1 || queue.notifications[0].Recipient != "ana@example.com" {
		t.Errorf("notifications = %+v", queue.notifications)
	}

	if err := svc.Request(ctx, model.OTPTypeEmail, "ana@example.com"); !errors.Is(err, ErrOTPAlreadySent) {
		t.Errorf("second Request err = %v, want ErrOTPAlreadySent", err)
	}

	*now = now.Add(10 * time.Minute)
	if err := svc.Request(ctx, model.OTPTypeEmail, "ana@example.com"); err != nil {
		t.Errorf("Request after expiry: %v", err)
	}

	// Same identifier on another channel is independent.
	if err := svc.Request(ctx, model.OTPTypePhone, "ana@example.com"); err != nil {
		t.Errorf("Request on phone channel: %v", err)
	}
}

func TestOTPService_RequestDispatchFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, queue, _ := newOTPFixture()
	queue.notifyErr = errors.New("redis down")

	if err := svc.Request(ctx, model.OTPTypePhone, "08123456789"); !errors.Is(err, ErrNotificationFailed) {
		t.Fatalf("err = %v, want ErrNotificationFailed", err)
	}
	if len(store.codes) != 0 {
		t.Error("undelivered code was kept")
	}
}

func TestOTPService_Verify(t *testing.T) {
	ctx := context.Background()
	svc, store, _, now := newOTPFixture()
	const id = "ana@example.com"

	if err := svc.Verify(ctx, model.OTPTypeEmail, id, "123456"); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("Verify without code err = %v, want ErrOTPExpired", err)
	}

	svc.Request(ctx, model.OTPTypeEmail, id)
	o, _ := store.Get(ctx, model.OTPTypeEmail, id)
	wrong := "000000"
	if o.Code == wrong {
		wrong = "111111"
	}

	if err := svc.Verify(ctx, model.OTPTypeEmail, id, wrong); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("wrong code err = %v, want ErrInvalidOTP", err)
	}
	if o, _ := store.Get(ctx, model.OTPTypeEmail, id); o.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", o.Attempts)
	}

	if err := svc.Verify(ctx, model.OTPTypeEmail, "ANA@example.com", o.Code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	verified, _ := svc.IsVerified(ctx, model.OTPTypeEmail, id)
	if !verified {
		t.Error("identifier not marked verified")
	}
	if err := svc.Verify(ctx, model.OTPTypeEmail, id, o.Code); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("reused code err = %v, want ErrOTPExpired", err)
	}

	// Expired codes are rejected even when correct.
	svc.Request(ctx, model.OTPTypePhone, "08123456789")
	p, _ := store.Get(ctx, model.OTPTypePhone, "08123456789")
	*now = now.Add(11 * time.Minute)
	if err := svc.Verify(ctx, model.OTPTypePhone, "08123456789", p.Code); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("expired code err = %v, want ErrOTPExpired", err)
	}
}

func TestOTPService_MaxAttempts(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newOTPFixture()
	const id = "08123456789"

	svc.Request(ctx, model.OTPTypePhone, id)
	o, _ := store.Get(ctx, model.OTPTypePhone, id)
	wrong := "000000"
	if o.Code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 5; i++ {
		if err := svc.Verify(ctx, model.OTPTypePhone, id, wrong); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("attempt %d err = %v, want ErrInvalidOTP", i+1, err)
		}
	}
	if err := svc.Verify(ctx, model.OTPTypePhone, id, o.Code); !errors.Is(err, ErrOTPMaxAttempts) {
		t.Errorf("correct code after limit err = %v, want ErrOTPMaxAttempts", err)
	}
}
