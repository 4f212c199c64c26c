package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/application/document"
	"github.com/erp/bizdesk/internal/domain/report"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPDFDisabled is returned for PDF reports when no printer is configured
var ErrPDFDisabled = shared.NewDomainError("PDF_DISABLED", "PDF rendering is not configured")

// Printer renders a formatted table to PDF
type Printer interface {
	RenderReportPDF(ctx context.Context, title, subtitle string, columns []string, rows [][]string, totals []string) (*document.Document, error)
}

// ReportService builds reports from the cached collections
type ReportService struct {
	cache   *cache.DataManager
	printer Printer
	display report.Formatter
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService creates a new ReportService. display formats PDF cells;
// CSV and JSON always use plain values.
func NewReportService(dm *cache.DataManager, printer Printer, display report.Formatter, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if display == nil {
		display = report.PlainFormatter{}
	}
	return &ReportService{
		cache:   dm,
		printer: printer,
		display: display,
		logger:  logger.Named("report-service"),
		now:     time.Now,
	}
}

// Render builds the report of the given kind in the requested format
func (s *ReportService) Render(ctx context.Context, kind string, query ReportQuery) (_ *Output, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "render",
		telemetry.SpanAttrReportKind, kind,
		telemetry.SpanAttrFormat, query.Format,
	)
	defer func() { telemetry.EndSpan(span, err) }()

	k, err := report.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	format := Format(strings.ToLower(query.Format))
	if format == "" {
		format = FormatJSON
	}
	filter, err := parseFilter(query)
	if err != nil {
		return nil, err
	}

	var fm report.Formatter = report.PlainFormatter{}
	if format == FormatPDF {
		if s.printer == nil {
			return nil, ErrPDFDisabled
		}
		fm = s.display
	}

	table, err := s.Table(ctx, k, filter, fm)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &Output{Kind: k, Format: format, GeneratedAt: now}
	base := fmt.Sprintf("%s-report-%s", k, now.Format("20060102"))
	switch format {
	case FormatJSON:
		out.ContentType = "application/json"
		out.FileName = base + ".json"
		out.Table = &table
	case FormatCSV:
		data, err := encodeCSV(table)
		if err != nil {
			return nil, err
		}
		out.ContentType = "text/csv; charset=utf-8"
		out.FileName = base + ".csv"
		out.Data = data
	case FormatPDF:
		doc, err := s.printer.RenderReportPDF(ctx, table.Title, subtitle(filter, fm), table.Columns, table.Rows, table.Totals)
		if err != nil {
			return nil, err
		}
		out.ContentType = document.ContentTypePDF
		out.FileName = base + ".pdf"
		out.Data = doc.Data
	default:
		return nil, shared.NewDomainError("INVALID_FORMAT", "Report format must be json, csv or pdf")
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRows, table.Len())
	s.logger.Debug("Report rendered",
		zap.String("kind", string(k)),
		zap.String("format", string(format)),
		zap.Int("rows", table.Len()))
	return out, nil
}

// Table builds a report table from the current cache snapshot
func (s *ReportService) Table(ctx context.Context, k report.Kind, filter report.Filter, fm report.Formatter) (report.Table, error) {
	if err := filter.Validate(); err != nil {
		return report.Table{}, err
	}
	switch k {
	case report.KindQuotes:
		quotes, err := s.cache.Quotes.Current(ctx)
		if err != nil {
			return report.Table{}, err
		}
		return report.QuoteReport(quotes, filter, fm), nil
	case report.KindOrders:
		orders, err := s.cache.Orders.Current(ctx)
		if err != nil {
			return report.Table{}, err
		}
		return report.OrderReport(orders, filter, fm), nil
	case report.KindClients:
		clients, err := s.cache.Clients.Current(ctx)
		if err != nil {
			return report.Table{}, err
		}
		quotes, err := s.cache.Quotes.Current(ctx)
		if err != nil {
			return report.Table{}, err
		}
		orders, err := s.cache.Orders.Current(ctx)
		if err != nil {
			return report.Table{}, err
		}
		return report.ClientReport(clients, quotes, orders, filter, fm), nil
	}
	return report.Table{}, report.ErrUnknownKind
}

func parseFilter(q ReportQuery) (report.Filter, error) {
	var f report.Filter
	var err error
	if q.From != "" {
		if f.From, err = time.Parse(time.DateOnly, q.From); err != nil {
			return f, shared.NewDomainError("INVALID_INPUT", "from must be a date in YYYY-MM-DD format")
		}
	}
	if q.To != "" {
		if f.To, err = time.Parse(time.DateOnly, q.To); err != nil {
			return f, shared.NewDomainError("INVALID_INPUT", "to must be a date in YYYY-MM-DD format")
		}
	}
	for _, status := range strings.Split(q.Status, ",") {
		if status = strings.TrimSpace(status); status != "" {
			f.Statuses = append(f.Statuses, status)
		}
	}
	if q.ClientID != "" {
		id, err := uuid.Parse(q.ClientID)
		if err != nil {
			return f, shared.NewDomainError("INVALID_INPUT", "client_id must be a UUID")
		}
		f.ClientID = &id
	}
	return f, nil
}

func subtitle(f report.Filter, fm report.Formatter) string {
	switch {
	case !f.From.IsZero() && !f.To.IsZero():
		return fm.Date(f.From) + " - " + fm.Date(f.To)
	case !f.From.IsZero():
		return fm.Date(f.From) + " -"
	case !f.To.IsZero():
		return "- " + fm.Date(f.To)
	}
	return ""
}

func encodeCSV(t report.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	if len(t.Totals) > 0 {
		if err := w.Write(t.Totals); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
