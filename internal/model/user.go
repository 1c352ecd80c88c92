package model

import "time"

// Role is the account role of a user.
type Role string

const (
	RoleUser    Role = "user"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User is an account identity.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserProfile carries the paid access window and bound device of a user.
type UserProfile struct {
	UserID            int64      `json:"user_id"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	AccessStart       *time.Time `json:"access_start,omitempty"`
	AccessEnd         *time.Time `json:"access_end,omitempty"`
	DeviceFingerprint string     `json:"device_fingerprint,omitempty"`
}

// HasActiveAccess reports whether now falls inside the closed access window.
func (p *UserProfile) HasActiveAccess(now time.Time) bool {
	if p.AccessStart == nil || p.AccessEnd == nil {
		return false
	}
	return !now.Before(*p.AccessStart) && !now.After(*p.AccessEnd)
}

// UserWithProfile is the admin view of an account.
type UserWithProfile struct {
	User
	Profile         UserProfile `json:"profile"`
	HasActiveAccess bool        `json:"has_active_access"`
}

// DeviceLock marks a (user, fingerprint) pair as locked after a device mismatch.
type DeviceLock struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	IsLocked          bool      `json:"is_locked"`
	LockedReason      string    `json:"locked_reason"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IPLog is an audit entry for a login or demo registration attempt.
type IPLog struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	GuestID   *int64    `json:"guest_id,omitempty"`
	Event     string    `json:"event"`
	Succeeded bool      `json:"succeeded"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit events.
const (
	EventLogin         = "login"
	EventDemoRegister  = "demo_register"
	EventLoginFailed   = "login_failed"
	EventDeviceBlocked = "device_blocked"
)

// ClientInfo is the request origin recorded in audit entries.
type ClientInfo struct {
	IP        string
	UserAgent string
	Location  string
}

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email,max=254"`
	Username        string `json:"username" binding:"required,min=3,max=150"`
	Password        string `json:"password" binding:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
	FirstName       string `json:"first_name" binding:"omitempty,max=150"`
	LastName        string `json:"last_name" binding:"omitempty,max=150"`
}

// LoginRequest is the payload for account authentication.
type LoginRequest struct {
	Identifier        string `json:"identifier" binding:"required,max=254"`
	Password          string `json:"password" binding:"required,max=128"`
	DeviceFingerprint string `json:"device_fingerprint" binding:"required,max=255"`
}

// LoginResponse is returned after a successful login or refresh.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
}

// UserSummary is the public subset of a user returned to clients.
type UserSummary struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Role            Role   `json:"role"`
	HasActiveAccess bool   `json:"has_active_access"`
}

// RefreshRequest is the payload for exchanging a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserFilter narrows an admin user listing.
type UserFilter struct {
	Search string
	Role   Role
}

// UpdateAccessRequest sets the access window of a user.
type UpdateAccessRequest struct {
	AccessStart *time.Time `json:"access_start" binding:"required"`
	AccessEnd   *time.Time `json:"access_end" binding:"required,gtfield=AccessStart"`
}
