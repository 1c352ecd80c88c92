package handler

import (
	"net/http"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/examportal/portal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// OTPHandler exposes the standalone OTP subsystem.
type OTPHandler struct {
	otpService *service.OTPService
	log        zerolog.Logger
}

// NewOTPHandler creates a new OTPHandler.
func NewOTPHandler(otpService *service.OTPService, log zerolog.Logger) *OTPHandler {
	return &OTPHandler{
		otpService: otpService,
		log:        log.With().Str("component", "otp_handler").Logger(),
	}
}

// Request godoc
// POST /api/v1/otp/request
// Issues a code for an identifier. Returns 429 while an earlier code is still live.
func (h *OTPHandler) Request(c *gin.Context) {
	var req model.OTPRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.otpService.Request(c.Request.Context(), req.Type, req.Identifier); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Accepted(c, gin.H{"message": "OTP sent."})
}

// Verify godoc
// POST /api/v1/otp/verify
func (h *OTPHandler) Verify(c *gin.Context) {
	var req model.OTPVerifyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.otpService.Verify(c.Request.Context(), req.Type, req.Identifier, req.Code); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "OTP verified successfully.", "verified": true})
}
