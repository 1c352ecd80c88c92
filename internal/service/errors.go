package service

import "errors"

// Domain errors. Handlers translate these into response codes.
var (
	// Authentication
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
	ErrInvalidTokenType   = errors.New("unexpected token type")

	// Authorization
	ErrForbidden      = errors.New("forbidden")
	ErrDeviceMismatch = errors.New("login attempt from unrecognized device")

	// Resources
	ErrDepartmentNotFound = errors.New("department not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrGuestNotFound      = errors.New("guest not found")
	ErrDeviceLockNotFound = errors.New("device lock not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidQuestion    = errors.New("question has no answers")

	// Exam lifecycle
	ErrExamNotFound     = errors.New("exam not found")
	ErrActiveExamExists = errors.New("user already has an active exam")
	ErrExamNotActive    = errors.New("exam is not active")
	ErrExamNotCompleted = errors.New("exam is not completed")

	// Demo flow
	ErrDemoSessionNotFound = errors.New("demo session not found")
	ErrGuestNotVerified    = errors.New("guest otp not verified")
	ErrDemoAlreadyUsed     = errors.New("demo already used")
	ErrInvalidOTP          = errors.New("invalid otp")

	// OTP subsystem
	ErrOTPAlreadySent     = errors.New("otp already sent")
	ErrOTPExpired         = errors.New("otp expired or not found")
	ErrOTPMaxAttempts     = errors.New("otp max attempts exceeded")
	ErrNotificationFailed = errors.New("failed to dispatch notification")
)
