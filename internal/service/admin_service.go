package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AccountStore is the account administration persistence.
type AccountStore interface {
	ListPaginated(ctx context.Context, f model.UserFilter, limit, offset int) ([]model.UserWithProfile, int, error)
	ResetDevice(ctx context.Context, userID int64) error
	UpdateAccess(ctx context.Context, userID int64, start, end time.Time) error
	ListDeviceLocks(ctx context.Context, lockedOnly bool, limit, offset int) ([]model.DeviceLock, int, error)
	UnlockDevice(ctx context.Context, lockID int64) error
}

// AuditReader reads persisted audit entries.
type AuditReader interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.IPLog, error)
}

// AdminService handles account administration: device resets, lock
// management, access windows and audit lookups.
type AdminService struct {
	accounts AccountStore
	audit    AuditReader
	tokens   TokenStore
	log      zerolog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(accounts AccountStore, audit AuditReader, tokens TokenStore, log zerolog.Logger) *AdminService {
	return &AdminService{
		accounts: accounts,
		audit:    audit,
		tokens:   tokens,
		log:      log.With().Str("component", "admin_service").Logger(),
	}
}

// ListUsers returns accounts with their profiles.
func (s *AdminService) ListUsers(ctx context.Context, f model.UserFilter, page, perPage int) ([]model.UserWithProfile, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	users, total, err := s.accounts.ListPaginated(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return users, buildPagination(page, perPage, total), nil
}

// ResetDevice unbinds the user's device, unlocks all their locks and ends
// their current session.
func (s *AdminService) ResetDevice(ctx context.Context, userID int64) error {
	if err := s.accounts.ResetDevice(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("reset device: %w", err)
	}
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Session revoke failed")
	}
	s.log.Info().Int64("user_id", userID).Msg("Device reset")
	return nil
}

// UpdateAccess sets the access window of a user.
func (s *AdminService) UpdateAccess(ctx context.Context, userID int64, start, end time.Time) error {
	if err := s.accounts.UpdateAccess(ctx, userID, start, end); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update access: %w", err)
	}
	return nil
}

// ListDeviceLocks returns device locks with pagination.
func (s *AdminService) ListDeviceLocks(ctx context.Context, lockedOnly bool, page, perPage int) ([]model.DeviceLock, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	locks, total, err := s.accounts.ListDeviceLocks(ctx, lockedOnly, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return locks, buildPagination(page, perPage, total), nil
}

// UnlockDevice clears one device lock.
func (s *AdminService) UnlockDevice(ctx context.Context, lockID int64) error {
	if err := s.accounts.UnlockDevice(ctx, lockID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDeviceLockNotFound
		}
		return fmt.Errorf("unlock device: %w", err)
	}
	s.log.Info().Int64("lock_id", lockID).Msg("Device unlocked")
	return nil
}

// UserIPLogs returns the latest audit entries of a user.
func (s *AdminService) UserIPLogs(ctx context.Context, userID int64, limit int) ([]model.IPLog, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.audit.ListByUser(ctx, userID, limit)
}
