package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// errorTable translates service sentinels into HTTP responses. Order matters
// only for errors that wrap one another.
var errorTable = []errorMapping{
	// Authentication
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
	{service.ErrInvalidTokenType, http.StatusUnauthorized, response.ErrTokenInvalid},

	// Authorization
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrDeviceMismatch, http.StatusForbidden, response.ErrDeviceMismatch},
	{service.ErrDemoAlreadyUsed, http.StatusForbidden, response.ErrDemoAlreadyUsed},
	{service.ErrGuestNotVerified, http.StatusForbidden, response.ErrOTPNotVerified},

	// Not found
	{service.ErrDepartmentNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrGuestNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrDeviceLockNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrExamNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrDemoSessionNotFound, http.StatusNotFound, response.ErrNotFound},

	// Conflicts and lifecycle
	{service.ErrEmailTaken, http.StatusConflict, response.ErrEmailTaken},
	{service.ErrUsernameTaken, http.StatusConflict, response.ErrConflict},
	{service.ErrActiveExamExists, http.StatusConflict, response.ErrActiveExamExists},
	{service.ErrExamNotActive, http.StatusConflict, response.ErrExamNotActive},
	{service.ErrExamNotCompleted, http.StatusConflict, response.ErrExamNotCompleted},

	// Validation
	{service.ErrInvalidQuestion, http.StatusBadRequest, response.ErrValidation},
	{service.ErrInvalidOTP, http.StatusBadRequest, response.ErrInvalidOTP},
	{service.ErrOTPExpired, http.StatusBadRequest, response.ErrOTPExpired},

	// Throttling
	{service.ErrOTPAlreadySent, http.StatusTooManyRequests, response.ErrOTPAlreadySent},
	{service.ErrOTPMaxAttempts, http.StatusTooManyRequests, response.ErrOTPMaxAttempts},
}

// failWithError writes the response for a service error. Unknown errors are
// logged and reported as INTERNAL_ERROR so no internal detail leaks.
func failWithError(c *gin.Context, log zerolog.Logger, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}

	log.Error().Err(err).
		Str("request_id", response.RequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled service error")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// parseInt64Param reads a positive integer path parameter, writing a 400 on failure.
func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads ?page= and ?per_page=. The service clamps the values.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return page, perPage
}

// clientInfo captures the request origin for audit entries.
func clientInfo(c *gin.Context) model.ClientInfo {
	return model.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Location:  c.GetHeader("X-Client-Location"),
	}
}
