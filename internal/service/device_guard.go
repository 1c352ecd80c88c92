package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DeviceLockReason is recorded on locks created by a fingerprint mismatch.
const DeviceLockReason = "Login attempt from unrecognized device"

// DeviceStore is the persistence used by DeviceGuard.
type DeviceStore interface {
	GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	BindFingerprint(ctx context.Context, userID int64, fingerprint string) (bool, error)
	LockDevice(ctx context.Context, userID int64, fingerprint, reason string) (*model.DeviceLock, error)
}

// DeviceGuard binds an account to the first device it logs in from.
type DeviceGuard struct {
	store DeviceStore
	log   zerolog.Logger
}

// NewDeviceGuard creates a new DeviceGuard.
func NewDeviceGuard(store DeviceStore, log zerolog.Logger) *DeviceGuard {
	return &DeviceGuard{
		store: store,
		log:   log.With().Str("component", "device_guard").Logger(),
	}
}

// Check accepts the login when no device is bound yet (binding the supplied
// one) or when the supplied fingerprint matches. On mismatch it locks the
// stored fingerprint and returns ErrDeviceMismatch.
func (g *DeviceGuard) Check(ctx context.Context, userID int64, supplied string) (*model.UserProfile, error) {
	profile, err := g.store.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		profile = &model.UserProfile{UserID: userID}
	}

	if profile.DeviceFingerprint == "" {
		bound, err := g.store.BindFingerprint(ctx, userID, supplied)
		if err != nil {
			return nil, fmt.Errorf("bind fingerprint: %w", err)
		}
		if bound {
			g.log.Info().Int64("user_id", userID).Msg("Device bound on first login")
			profile.DeviceFingerprint = supplied
			return profile, nil
		}
		// Another login bound a device first; compare against that one.
		if profile, err = g.store.GetProfile(ctx, userID); err != nil {
			return nil, fmt.Errorf("reload profile: %w", err)
		}
	}

	if profile.DeviceFingerprint == supplied {
		return profile, nil
	}

	if _, err := g.store.LockDevice(ctx, userID, profile.DeviceFingerprint, DeviceLockReason); err != nil {
		return nil, fmt.Errorf("lock device: %w", err)
	}
	g.log.Warn().Int64("user_id", userID).Msg("Login rejected: device mismatch")
	return nil, ErrDeviceMismatch
}
