package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestDeviceGuard_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("first login binds the device", func(t *testing.T) {
		store := newFakeUserStore()
		guard := NewDeviceGuard(store, zerolog.Nop())

		profile, err := guard.Check(ctx, 1, "fp-a")
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if profile.DeviceFingerprint != "fp-a" || store.profiles[1].DeviceFingerprint != "fp-a" {
			t.Errorf("fingerprint not bound: %+v", store.profiles[1])
		}
	})

	t.Run("same device passes", func(t *testing.T) {
		store := newFakeUserStore()
		guard := NewDeviceGuard(store, zerolog.Nop())
		guard.Check(ctx, 1, "fp-a")

		if _, err := guard.Check(ctx, 1, "fp-a"); err != nil {
			t.Fatalf("Check: %v", err)
		}
		if len(store.locks) != 0 {
			t.Errorf("unexpected locks %+v", store.locks)
		}
	})

	t.Run("other device is rejected and the stored one locked", func(t *testing.T) {
		store := newFakeUserStore()
		guard := NewDeviceGuard(store, zerolog.Nop())
		guard.Check(ctx, 1, "fp-a")

		for i := 0; i < 2; i++ {
			if _, err := guard.Check(ctx, 1, "fp-b"); !errors.Is(err, ErrDeviceMismatch) {
				t.Fatalf("Check err = %v, want ErrDeviceMismatch", err)
			}
		}
		if len(store.locks) != 1 {
			t.Fatalf("got %d locks, want exactly 1", len(store.locks))
		}
		lock := store.locks[0]
		if lock.DeviceFingerprint != "fp-a" || !lock.IsLocked || lock.LockedReason != DeviceLockReason {
			t.Errorf("lock = %+v", lock)
		}
		if store.profiles[1].DeviceFingerprint != "fp-a" {
			t.Error("bound fingerprint changed after mismatch")
		}
	})

	t.Run("concurrent first logins keep the winner", func(t *testing.T) {
		store := newFakeUserStore()
		store.bindRace = "fp-winner"
		guard := NewDeviceGuard(store, zerolog.Nop())

		if _, err := guard.Check(ctx, 1, "fp-loser"); !errors.Is(err, ErrDeviceMismatch) {
			t.Fatalf("Check err = %v, want ErrDeviceMismatch", err)
		}
		if store.profiles[1].DeviceFingerprint != "fp-winner" {
			t.Errorf("fingerprint = %q, want fp-winner", store.profiles[1].DeviceFingerprint)
		}
		if _, err := guard.Check(ctx, 1, "fp-winner"); err != nil {
			t.Errorf("winner Check: %v", err)
		}
	})
}
