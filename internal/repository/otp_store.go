package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// OTPStore keeps pending one-time codes in Redis, expiring with the code.
type OTPStore struct {
	rdb *redis.Client
}

// NewOTPStore creates a new OTPStore.
func NewOTPStore(rdb *redis.Client) *OTPStore {
	return &OTPStore{rdb: rdb}
}

// Get returns the pending code for (type, identifier), or ErrCacheMiss.
func (s *OTPStore) Get(ctx context.Context, otpType model.OTPType, identifier string) (*model.OTP, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.OTPKey(string(otpType), identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var o model.OTP
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Save stores the code until its expiry.
func (s *OTPStore) Save(ctx context.Context, o *model.OTP) error {
	ttl := time.Until(o.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.OTPKey(string(o.Type), o.Identifier), raw, ttl).Err()
}

// Delete removes the pending code.
func (s *OTPStore) Delete(ctx context.Context, otpType model.OTPType, identifier string) error {
	return s.rdb.Del(ctx, config.CacheKey.OTPKey(string(otpType), identifier)).Err()
}

// MarkVerified records a successful verification for ttl.
func (s *OTPStore) MarkVerified(ctx context.Context, otpType model.OTPType, identifier string, ttl time.Duration) error {
	return s.rdb.Set(ctx, config.CacheKey.OTPVerifiedKey(string(otpType), identifier), "1", ttl).Err()
}

// IsVerified reports whether the identifier was verified recently.
func (s *OTPStore) IsVerified(ctx context.Context, otpType model.OTPType, identifier string) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.OTPVerifiedKey(string(otpType), identifier)).Result()
	return n == 1, err
}
