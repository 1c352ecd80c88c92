package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/examportal/portal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	contentTypeCSV   = "text/csv; charset=utf-8"
	contentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHandler serves administrative statistics as JSON, CSV or Excel.
type ReportHandler struct {
	reportService *service.ReportService
	log           zerolog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		log:           log.With().Str("component", "report_handler").Logger(),
	}
}

// Participation godoc
// GET /api/v1/admin/reports/participation?days=30&format=json|csv|excel
func (h *ReportHandler) Participation(c *gin.Context) {
	var q model.ReportQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	report, err := h.reportService.Participation(c.Request.Context(), q.Days)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	h.render(c, q.Format, "participation_report", report,
		func(w io.Writer) error { return service.WriteParticipationCSV(w, report) },
		func(w io.Writer) error { return service.WriteParticipationExcel(w, report) },
	)
}

// PassRate godoc
// GET /api/v1/admin/reports/pass-rate?days=30&passing_score=70&format=json|csv|excel
func (h *ReportHandler) PassRate(c *gin.Context) {
	var q model.ReportQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	report, err := h.reportService.PassRate(c.Request.Context(), q.Days, q.PassingScore)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	h.render(c, q.Format, "pass_rate_report", report,
		func(w io.Writer) error { return service.WritePassRateCSV(w, report) },
		func(w io.Writer) error { return service.WritePassRateExcel(w, report) },
	)
}

// render writes the report in the requested format. Files are rendered into
// a buffer first so a rendering failure still produces a JSON error.
func (h *ReportHandler) render(
	c *gin.Context,
	format model.ReportFormat,
	name string,
	report interface{},
	writeCSV, writeExcel func(io.Writer) error,
) {
	var (
		write       func(io.Writer) error
		contentType string
		ext         string
	)
	switch format {
	case model.ReportFormatCSV:
		write, contentType, ext = writeCSV, contentTypeCSV, "csv"
	case model.ReportFormatExcel:
		write, contentType, ext = writeExcel, contentTypeExcel, "xlsx"
	default:
		response.Success(c, http.StatusOK, report)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.log.Error().Err(err).Str("report", name).Str("format", string(format)).Msg("Report rendering failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", name, time.Now().UTC().Format("20060102"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
