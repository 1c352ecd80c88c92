package repository

import (
	"context"
	"errors"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps the current access and refresh token IDs of each user in Redis.
type TokenStore struct {
	rdb *redis.Client
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// Save registers the token IDs of a fresh login or refresh.
func (s *TokenStore) Save(ctx context.Context, userID int64, accessJTI string, accessTTL time.Duration, refreshJTI string, refreshTTL time.Duration) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.UserSessionKey(userID), accessJTI, accessTTL)
	pipe.Set(ctx, config.CacheKey.RefreshTokenKey(userID), refreshJTI, refreshTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// AccessJTI returns the current access token ID, or ErrCacheMiss.
func (s *TokenStore) AccessJTI(ctx context.Context, userID int64) (string, error) {
	return s.get(ctx, config.CacheKey.UserSessionKey(userID))
}

// RefreshJTI returns the current refresh token ID, or ErrCacheMiss.
func (s *TokenStore) RefreshJTI(ctx context.Context, userID int64) (string, error) {
	return s.get(ctx, config.CacheKey.RefreshTokenKey(userID))
}

// Revoke removes both token IDs so outstanding tokens stop working.
func (s *TokenStore) Revoke(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx,
		config.CacheKey.UserSessionKey(userID),
		config.CacheKey.RefreshTokenKey(userID),
	).Err()
}

func (s *TokenStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}
