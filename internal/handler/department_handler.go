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

// DepartmentHandler handles department endpoints.
type DepartmentHandler struct {
	departmentService *service.DepartmentService
	log               zerolog.Logger
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(departmentService *service.DepartmentService, log zerolog.Logger) *DepartmentHandler {
	return &DepartmentHandler{
		departmentService: departmentService,
		log:               log.With().Str("component", "department_handler").Logger(),
	}
}

// ListDepartments godoc
// GET /api/v1/departments
// Lists all departments with their question counts.
func (h *DepartmentHandler) ListDepartments(c *gin.Context) {
	departments, err := h.departmentService.List(c.Request.Context())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if departments == nil {
		departments = []model.Department{}
	}

	response.Success(c, http.StatusOK, gin.H{"departments": departments})
}

// GetDepartment godoc
// GET /api/v1/departments/:id
func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	department, err := h.departmentService.Get(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"department": department})
}

// CreateDepartment godoc
// POST /api/v1/admin/departments
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req model.DepartmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	department, err := h.departmentService.Create(c.Request.Context(), &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Created(c, gin.H{"department": department})
}

// UpdateDepartment godoc
// PUT /api/v1/admin/departments/:id
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	var req model.DepartmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	department, err := h.departmentService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"department": department})
}

// DeleteDepartment godoc
// DELETE /api/v1/admin/departments/:id
// Deletes a department together with its questions and answers.
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.departmentService.Delete(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
