package report

import (
	"time"

	"github.com/erp/bizdesk/internal/domain/report"
)

// Format is the output encoding of a report
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ReportQuery is bound from the report request query string. Dates use
// YYYY-MM-DD; Status is a comma separated list.
type ReportQuery struct {
	Format   string `form:"format" binding:"omitempty,oneof=json csv pdf"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Status   string `form:"status" binding:"max=200"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
}

// Output is a rendered report. Table is set for JSON; Data carries the CSV
// or PDF bytes otherwise.
type Output struct {
	Kind        report.Kind
	Format      Format
	ContentType string
	FileName    string
	Table       *report.Table
	Data        []byte
	GeneratedAt time.Time
}
