package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"
	ErrDeviceMismatch  ErrCode = "DEVICE_MISMATCH"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound   ErrCode = "NOT_FOUND"
	ErrConflict   ErrCode = "CONFLICT"
	ErrEmailTaken ErrCode = "EMAIL_TAKEN"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrActiveExamExists ErrCode = "ACTIVE_EXAM_EXISTS"
	ErrExamNotActive    ErrCode = "EXAM_NOT_ACTIVE"
	ErrExamNotCompleted ErrCode = "EXAM_NOT_COMPLETED"

	// ─── Demo / OTP ────────────────────────────────────────────────────
	ErrInvalidOTP      ErrCode = "INVALID_OTP"
	ErrOTPExpired      ErrCode = "OTP_EXPIRED"
	ErrOTPNotVerified  ErrCode = "OTP_NOT_VERIFIED"
	ErrDemoAlreadyUsed ErrCode = "DEMO_ALREADY_USED"
	ErrOTPAlreadySent  ErrCode = "OTP_ALREADY_SENT"
	ErrOTPMaxAttempts  ErrCode = "OTP_MAX_ATTEMPTS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email/username or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrDeviceMismatch:
		return "Login attempt from unrecognized device. Contact an administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrEmailTaken:
		return "This email is already registered."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrActiveExamExists:
		return "You already have an active exam."
	case ErrExamNotActive:
		return "This exam is not active."
	case ErrExamNotCompleted:
		return "This exam has not been completed yet."

	// ─── Demo / OTP ────────────────────────────────────────────────────
	case ErrInvalidOTP:
		return "Invalid OTP."
	case ErrOTPExpired:
		return "OTP expired or not found."
	case ErrOTPNotVerified:
		return "OTP has not been verified."
	case ErrDemoAlreadyUsed:
		return "Demo has already been used."
	case ErrOTPAlreadySent:
		return "OTP already sent. Please wait before requesting a new one."
	case ErrOTPMaxAttempts:
		return "Maximum verification attempts exceeded."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
