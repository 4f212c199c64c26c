package printing

import (
	"encoding/base64"
	"html/template"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/shopspring/decimal"
)

// CompanyInfo is the issuer block printed in every document header
type CompanyInfo struct {
	Name       string
	TaxID      string
	Email      string
	Phone      string
	Website    string
	Address    string
	FooterNote string
	// LogoURI is a data: URI so Chromium needs no network access
	LogoURI template.URL
}

// ClientInfo is the recipient block of quotes and orders
type ClientInfo struct {
	Name           string
	DocumentNumber string
	Email          string
	Phone          string
	ContactName    string
	Address        string
}

// LineRow is one printed item line
type LineRow struct {
	Position    int
	Kind        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// QuoteDocument is the view model of the quote template
type QuoteDocument struct {
	Company          CompanyInfo
	Client           ClientInfo
	Number           string
	Status           string
	IssuedAt         time.Time
	ValidUntil       time.Time
	Expired          bool
	Services         []LineRow
	Products         []LineRow
	ServicesSubtotal decimal.Decimal
	ProductsSubtotal decimal.Decimal
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
	Notes            string
	GeneratedAt      time.Time
}

// OrderDocument is the view model of the order template
type OrderDocument struct {
	Company      CompanyInfo
	Client       ClientInfo
	Number       string
	QuoteNumber  string
	Status       string
	IssuedAt     time.Time
	DueDate      *time.Time
	Items        []LineRow
	Total        decimal.Decimal
	Notes        string
	CancelReason string
	GeneratedAt  time.Time
}

// ReportDocument is the view model of the report template. Cells arrive
// already formatted.
type ReportDocument struct {
	Company     CompanyInfo
	Title       string
	Subtitle    string
	Columns     []string
	Rows        [][]string
	Totals      []string
	GeneratedAt time.Time
}

// NewCompanyInfo flattens settings into the header block. Settings may be nil
// before the company profile is filled in.
func NewCompanyInfo(s *company.Settings) CompanyInfo {
	if s == nil {
		return CompanyInfo{}
	}
	return CompanyInfo{
		Name:       s.Name,
		TaxID:      s.TaxID,
		Email:      s.Email,
		Phone:      s.Phone,
		Website:    s.Website,
		Address:    s.Address.OneLine(),
		FooterNote: s.FooterNote,
	}
}

// WithLogo embeds image bytes as a data URI
func (c CompanyInfo) WithLogo(contentType string, data []byte) CompanyInfo {
	if len(data) == 0 {
		return c
	}
	c.LogoURI = template.URL("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
	return c
}

// NewClientInfo builds the recipient block; a deleted client falls back to
// the name stored on the document.
func NewClientInfo(c *client.Client, fallbackName string) ClientInfo {
	if c == nil {
		return ClientInfo{Name: fallbackName}
	}
	return ClientInfo{
		Name:           c.Name,
		DocumentNumber: c.DocumentNumber,
		Email:          c.Email,
		Phone:          c.Phone,
		ContactName:    c.ContactName,
		Address:        c.Address.OneLine(),
	}
}

// NewQuoteDocument assembles the quote view model
func NewQuoteDocument(info CompanyInfo, c *client.Client, q *quote.Quote, now time.Time) QuoteDocument {
	services := q.Services()
	products := q.Products()
	return QuoteDocument{
		Company:          info,
		Client:           NewClientInfo(c, q.ClientName),
		Number:           q.QuoteNumber,
		Status:           q.Status.String(),
		IssuedAt:         q.CreatedAt,
		ValidUntil:       q.ValidUntil,
		Expired:          q.IsExpired(now),
		Services:         toRows(services),
		Products:         toRows(products),
		ServicesSubtotal: quote.SumAmounts(services),
		ProductsSubtotal: quote.SumAmounts(products),
		Subtotal:         q.Subtotal,
		Discount:         q.Discount,
		Total:            q.Total,
		Notes:            q.Notes,
		GeneratedAt:      now,
	}
}

// NewOrderDocument assembles the order view model. quoteNumber is empty for
// orders created without a quote.
func NewOrderDocument(info CompanyInfo, c *client.Client, o *order.Order, quoteNumber string, now time.Time) OrderDocument {
	return OrderDocument{
		Company:      info,
		Client:       NewClientInfo(c, o.ClientName),
		Number:       o.OrderNumber,
		QuoteNumber:  quoteNumber,
		Status:       o.Status.String(),
		IssuedAt:     o.CreatedAt,
		DueDate:      o.DueDate,
		Items:        toRows(o.Items),
		Total:        o.Total,
		Notes:        o.Notes,
		CancelReason: o.CancelReason,
		GeneratedAt:  now,
	}
}

func toRows(items []quote.LineItem) []LineRow {
	rows := make([]LineRow, 0, len(items))
	for i, item := range items {
		rows = append(rows, LineRow{
			Position:    i + 1,
			Kind:        string(item.Kind),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}
	return rows
}
