package report

import (
	"slices"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies one of the tabular reports
type Kind string

const (
	KindQuotes  Kind = "quotes"
	KindOrders  Kind = "orders"
	KindClients Kind = "clients"
)

// ErrUnknownKind is returned for a report kind that does not exist
var ErrUnknownKind = shared.NewDomainError("UNKNOWN_REPORT", "Unknown report kind")

// ParseKind parses a report kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindQuotes, KindOrders, KindClients:
		return k, nil
	}
	return "", ErrUnknownKind
}

// Filter restricts the rows of a report. Zero values mean unbounded.
type Filter struct {
	From     time.Time
	To       time.Time
	Statuses []string
	ClientID *uuid.UUID
}

// Validate rejects a range that ends before it starts
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && dayStart(f.To).Before(dayStart(f.From)) {
		return shared.NewDomainError("INVALID_PERIOD", "Report period ends before it starts")
	}
	return nil
}

// InRange reports whether t falls within the filter days. Both ends are
// inclusive whole days; the filter dates are read as calendar dates in t's
// location.
func (f Filter) InRange(t time.Time) bool {
	if !f.From.IsZero() && t.Before(dayIn(f.From, t.Location())) {
		return false
	}
	if !f.To.IsZero() && !t.Before(dayIn(f.To, t.Location()).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// MatchesStatus reports whether status is selected. An empty selection matches all.
func (f Filter) MatchesStatus(status string) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	return slices.ContainsFunc(f.Statuses, func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), status)
	})
}

// MatchesClient reports whether id is the selected client, if any
func (f Filter) MatchesClient(id uuid.UUID) bool {
	return f.ClientID == nil || *f.ClientID == id
}

func dayStart(t time.Time) time.Time {
	return dayIn(t, t.Location())
}

// dayIn returns midnight of t's calendar date in loc
func dayIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Formatter turns values into display cells
type Formatter interface {
	Money(v any) string
	Date(v any) string
	StatusLabel(kind, status string) string
	T(key string) string
}

// Table is a rendered report: header, body and an optional totals row
type Table struct {
	Kind    Kind       `json:"kind"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Totals  []string   `json:"totals,omitempty"`
}

// Len returns the number of body rows
func (t Table) Len() int {
	return len(t.Rows)
}

func headers(fm Formatter, keys ...string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fm.T("label." + k)
	}
	return out
}

// PlainFormatter produces machine-readable cells for CSV and JSON exports:
// plain decimals, ISO dates and raw status values.
type PlainFormatter struct{}

var plainHeaders = map[string]string{
	"label.number":      "number",
	"label.client":      "client",
	"label.name":        "name",
	"label.type":        "type",
	"label.document":    "document",
	"label.email":       "email",
	"label.phone":       "phone",
	"label.city":        "city",
	"label.issued_at":   "issued_at",
	"label.valid_until": "valid_until",
	"label.due_date":    "due_date",
	"label.status":      "status",
	"label.subtotal":    "subtotal",
	"label.discount":    "discount",
	"label.total":       "total",
	"label.quotes":      "quotes",
	"label.orders":      "orders",
	"label.approved":    "approved_total",
	"label.completed":   "completed_total",
	"report.quotes":     "quotes",
	"report.orders":     "orders",
	"report.clients":    "clients",
}

// Money implements Formatter
func (PlainFormatter) Money(v any) string {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.StringFixed(2)
	case *decimal.Decimal:
		if d == nil {
			return ""
		}
		return d.StringFixed(2)
	}
	return ""
}

// Date implements Formatter
func (PlainFormatter) Date(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(time.DateOnly)
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format(time.DateOnly)
	}
	return ""
}

// StatusLabel implements Formatter
func (PlainFormatter) StatusLabel(_, status string) string {
	return status
}

// T implements Formatter
func (PlainFormatter) T(key string) string {
	if h, ok := plainHeaders[key]; ok {
		return h
	}
	return key
}
