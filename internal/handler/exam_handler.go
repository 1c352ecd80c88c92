package handler

import (
	"net/http"
	"strconv"

	"github.com/examportal/portal-backend/internal/middleware"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/examportal/portal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExamHandler handles the candidate exam lifecycle and the admin exam views.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// StartExam godoc
// POST /api/v1/exams/start
// Opens a new active exam for the caller. Fails with 409 if one is already active.
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	examID, err := h.examService.Start(c.Request.Context(), claims.UserID, req.DepartmentID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Created(c, model.StartExamResponse{ExamID: examID})
}

// ListMyExams godoc
// GET /api/v1/exams
// Lists the caller's exams, newest first.
func (h *ExamHandler) ListMyExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := pageParams(c)
	filter := model.ExamFilter{
		UserID: claims.UserID,
		Status: model.ExamStatus(c.Query("status")),
	}
	exams, pagination, err := h.examService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetQuestions godoc
// GET /api/v1/exams/:id/questions
// Returns the question set of an active exam without correctness flags.
func (h *ExamHandler) GetQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.examService.FetchQuestions(c.Request.Context(), examID, claims.Actor())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// SubmitExam godoc
// POST /api/v1/exams/:id/submit
// Grades the submitted answers and completes the exam.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.SubmitAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	score, err := h.examService.Submit(c.Request.Context(), examID, claims.Actor(), req.Answers)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, model.SubmitExamResponse{Score: score})
}

// GetResults godoc
// GET /api/v1/exams/:id/results
// Returns the summary and per question type breakdown of a completed exam.
func (h *ExamHandler) GetResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	results, err := h.examService.Results(c.Request.Context(), examID, claims.Actor())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, results)
}

// AdminListExams godoc
// GET /api/v1/admin/exams?user_id=&department_id=&status=
func (h *ExamHandler) AdminListExams(c *gin.Context) {
	var filter model.ExamFilter
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.UserID = id
	}
	if v := c.Query("department_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.DepartmentID = id
	}
	filter.Status = model.ExamStatus(c.Query("status"))

	page, perPage := pageParams(c)
	exams, pagination, err := h.examService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// AdminGetExam godoc
// GET /api/v1/admin/exams/:id
// Returns one exam with its recorded answers.
func (h *ExamHandler) AdminGetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	exam, answers, err := h.examService.Get(c.Request.Context(), examID, claims.Actor())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if answers == nil {
		answers = []model.ExamAnswer{}
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam, "answers": answers})
}
