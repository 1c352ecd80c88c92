package handler

import (
	"net/http"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/examportal/portal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DemoHandler handles the login-free demo flow.
type DemoHandler struct {
	demoService *service.DemoService
	log         zerolog.Logger
}

// NewDemoHandler creates a new DemoHandler.
func NewDemoHandler(demoService *service.DemoService, log zerolog.Logger) *DemoHandler {
	return &DemoHandler{
		demoService: demoService,
		log:         log.With().Str("component", "demo_handler").Logger(),
	}
}

// Register godoc
// POST /api/v1/demo/register
// Creates a guest profile and queues the OTP email.
func (h *DemoHandler) Register(c *gin.Context) {
	var req model.GuestRegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.demoService.Register(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Created(c, resp)
}

// VerifyOTP godoc
// POST /api/v1/demo/verify-otp
// Verifies the guest's code and returns the demo session id on first success.
func (h *DemoHandler) VerifyOTP(c *gin.Context) {
	var req model.VerifyGuestOTPRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.demoService.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// GetQuestions godoc
// GET /api/v1/demo/questions?session_id=
// Returns a random sample of up to ten questions per type.
func (h *DemoHandler) GetQuestions(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	resp, err := h.demoService.Questions(c.Request.Context(), sessionID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// Submit godoc
// POST /api/v1/demo/submit
// Grades the demo attempt and consumes the guest's demo.
func (h *DemoHandler) Submit(c *gin.Context) {
	var req model.DemoSubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.demoService.Submit(c.Request.Context(), req.SessionID, req.Answers)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
