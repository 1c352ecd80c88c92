package handler

import (
	"net/http"
	"strconv"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/examportal/portal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminHandler handles account, device and guest administration.
type AdminHandler struct {
	adminService *service.AdminService
	demoService  *service.DemoService
	log          zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService, demoService *service.DemoService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		demoService:  demoService,
		log:          log.With().Str("component", "admin_handler").Logger(),
	}
}

// ─── Users ──────────────────────────────────────────────────────────────────

// ListUsers godoc
// GET /api/v1/admin/users?search=&role=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := model.UserFilter{
		Search: c.Query("search"),
		Role:   model.Role(c.Query("role")),
	}

	page, perPage := pageParams(c)
	users, pagination, err := h.adminService.ListUsers(c.Request.Context(), filter, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if users == nil {
		users = []model.UserWithProfile{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"users": users}, pagination)
}

// ResetDevice godoc
// POST /api/v1/admin/users/:id/reset-device
// Unbinds the user's device fingerprint and unlocks all of their device locks.
func (h *AdminHandler) ResetDevice(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.ResetDevice(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Device reset successfully."})
}

// UpdateAccess godoc
// PUT /api/v1/admin/users/:id/access
// Sets the paid access window of a user.
func (h *AdminHandler) UpdateAccess(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	var req model.UpdateAccessRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.adminService.UpdateAccess(c.Request.Context(), id, *req.AccessStart, *req.AccessEnd); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// UserIPLogs godoc
// GET /api/v1/admin/users/:id/ip-logs?limit=
func (h *AdminHandler) UserIPLogs(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.adminService.UserIPLogs(c.Request.Context(), id, limit)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if logs == nil {
		logs = []model.IPLog{}
	}

	response.Success(c, http.StatusOK, gin.H{"ip_logs": logs})
}

// ─── Device locks ───────────────────────────────────────────────────────────

// ListDeviceLocks godoc
// GET /api/v1/admin/device-locks?locked=true
func (h *AdminHandler) ListDeviceLocks(c *gin.Context) {
	lockedOnly := c.Query("locked") == "true"

	page, perPage := pageParams(c)
	locks, pagination, err := h.adminService.ListDeviceLocks(c.Request.Context(), lockedOnly, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if locks == nil {
		locks = []model.DeviceLock{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"device_locks": locks}, pagination)
}

// UnlockDevice godoc
// POST /api/v1/admin/device-locks/:id/unlock
func (h *AdminHandler) UnlockDevice(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.UnlockDevice(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Device unlocked successfully."})
}

// ─── Guests ─────────────────────────────────────────────────────────────────

// ListGuests godoc
// GET /api/v1/admin/guests?search=
func (h *AdminHandler) ListGuests(c *gin.Context) {
	page, perPage := pageParams(c)
	guests, pagination, err := h.demoService.ListGuests(c.Request.Context(), c.Query("search"), page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if guests == nil {
		guests = []model.GuestProfile{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"guests": guests}, pagination)
}

// ResetDemo godoc
// POST /api/v1/admin/guests/:id/reset-demo
// Lets a guest take the demo again.
func (h *AdminHandler) ResetDemo(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.demoService.ResetDemo(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Demo reset successfully."})
}
