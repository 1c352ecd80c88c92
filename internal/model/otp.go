package model

import "time"

// OTPType is the channel an identifier belongs to.
type OTPType string

const (
	OTPTypeEmail OTPType = "email"
	OTPTypePhone OTPType = "phone"
)

// OTP is a pending one-time code of the standalone OTP subsystem.
type OTP struct {
	Identifier string    `json:"identifier"`
	Type       OTPType   `json:"otp_type"`
	Code       string    `json:"code"`
	Attempts   int       `json:"attempts"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired reports whether the code is no longer valid at now.
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OTPRequest is the payload for requesting a code.
type OTPRequest struct {
	Identifier string  `json:"identifier" binding:"required,max=254"`
	Type       OTPType `json:"otp_type" binding:"required,oneof=email phone"`
}

// OTPVerifyRequest is the payload for verifying a code.
type OTPVerifyRequest struct {
	Identifier string  `json:"identifier" binding:"required,max=254"`
	Type       OTPType `json:"otp_type" binding:"required,oneof=email phone"`
	Code       string  `json:"code" binding:"required,numeric,len=6"`
}

// Notification is a queued outbound message.
type Notification struct {
	Channel   OTPType `json:"channel"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
	Attempts  int     `json:"attempts,omitempty"`
}
