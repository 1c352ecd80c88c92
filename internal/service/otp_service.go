package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/repository"
	"github.com/rs/zerolog"
)

// generateCode returns a uniformly random 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OTPStore keeps pending one-time codes.
type OTPStore interface {
	Get(ctx context.Context, otpType model.OTPType, identifier string) (*model.OTP, error)
	Save(ctx context.Context, o *model.OTP) error
	Delete(ctx context.Context, otpType model.OTPType, identifier string) error
	MarkVerified(ctx context.Context, otpType model.OTPType, identifier string, ttl time.Duration) error
	IsVerified(ctx context.Context, otpType model.OTPType, identifier string) (bool, error)
}

// OTPService issues and verifies one-time codes for email or phone identifiers.
// Unlike the demo flow it throttles requests and caps verification attempts.
type OTPService struct {
	store       OTPStore
	notifier    Notifier
	expiry      time.Duration
	maxAttempts int
	now         func() time.Time
	log         zerolog.Logger
}

// NewOTPService creates a new OTPService.
func NewOTPService(store OTPStore, notifier Notifier, expiry time.Duration, maxAttempts int, log zerolog.Logger) *OTPService {
	return &OTPService{
		store:       store,
		notifier:    notifier,
		expiry:      expiry,
		maxAttempts: maxAttempts,
		now:         time.Now,
		log:         log.With().Str("component", "otp_service").Logger(),
	}
}

func normalizeIdentifier(otpType model.OTPType, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if otpType == model.OTPTypeEmail {
		return strings.ToLower(identifier)
	}
	return identifier
}

// Request issues a new code unless a live one already exists.
// If the code cannot be queued for delivery it is discarded.
func (s *OTPService) Request(ctx context.Context, otpType model.OTPType, identifier string) error {
	identifier = normalizeIdentifier(otpType, identifier)
	now := s.now()

	existing, err := s.store.Get(ctx, otpType, identifier)
	switch {
	case err == nil && !existing.IsExpired(now):
		return ErrOTPAlreadySent
	case err != nil && !errors.Is(err, repository.ErrCacheMiss):
		return fmt.Errorf("get otp: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	o := &model.OTP{
		Identifier: identifier,
		Type:       otpType,
		Code:       code,
		ExpiresAt:  now.Add(s.expiry),
	}
	if err := s.store.Save(ctx, o); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	n := model.Notification{
		Channel:   otpType,
		Recipient: identifier,
		Subject:   "Your verification code",
		Body:      fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.expiry.Minutes())),
	}
	if err := s.notifier.EnqueueNotification(ctx, n); err != nil {
		s.log.Error().Err(err).Str("otp_type", string(otpType)).Msg("OTP dispatch enqueue failed")
		if delErr := s.store.Delete(ctx, otpType, identifier); delErr != nil {
			s.log.Warn().Err(delErr).Msg("Discard undelivered OTP failed")
		}
		return ErrNotificationFailed
	}
	return nil
}

// Verify checks a code. Each wrong guess consumes an attempt; once the limit
// is reached the code can no longer be verified.
func (s *OTPService) Verify(ctx context.Context, otpType model.OTPType, identifier, code string) error {
	identifier = normalizeIdentifier(otpType, identifier)
	now := s.now()

	o, err := s.store.Get(ctx, otpType, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return ErrOTPExpired
		}
		return fmt.Errorf("get otp: %w", err)
	}
	if o.IsExpired(now) {
		return ErrOTPExpired
	}
	if o.Attempts >= s.maxAttempts {
		return ErrOTPMaxAttempts
	}

	if o.Code != code {
		o.Attempts++
		if err := s.store.Save(ctx, o); err != nil {
			return fmt.Errorf("save otp: %w", err)
		}
		return ErrInvalidOTP
	}

	if err := s.store.Delete(ctx, otpType, identifier); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	if err := s.store.MarkVerified(ctx, otpType, identifier, s.expiry); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// IsVerified reports whether identifier passed verification within the expiry window.
func (s *OTPService) IsVerified(ctx context.Context, otpType model.OTPType, identifier string) (bool, error) {
	return s.store.IsVerified(ctx, otpType, normalizeIdentifier(otpType, identifier))
}
