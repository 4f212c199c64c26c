package handler

import (
	"time"

	reportapp "github.com/erp/bizdesk/internal/application/report"
	"github.com/erp/bizdesk/internal/domain/report"
	"github.com/gin-gonic/gin"
)

// ReportHandler renders the tabular reports
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// ReportResponse is the JSON rendition of a report
type ReportResponse struct {
	report.Table
	GeneratedAt time.Time `json:"generated_at"`
}

// Render handles GET /reports/:kind?format=json|csv|pdf
func (h *ReportHandler) Render(c *gin.Context) {
	var query reportapp.ReportQuery
	if !h.bindQuery(c, &query) {
		return
	}

	out, err := h.reportService.Render(c.Request.Context(), c.Param("kind"), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if out.Table != nil {
		h.Success(c, ReportResponse{Table: *out.Table, GeneratedAt: out.GeneratedAt})
		return
	}
	sendFile(c, out.FileName, out.ContentType, out.Data, out.Format == reportapp.FormatCSV)
}
