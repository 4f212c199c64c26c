package printing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// Formatter renders numbers, money, dates and status labels for one locale
type Formatter struct {
	tag        language.Tag
	unit       currency.Unit
	printer    *message.Printer
	title      cases.Caser
	dateLayout string
}

// NewFormatter creates a formatter for a BCP 47 locale and ISO 4217 currency
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}

	return &Formatter{
		tag:        tag,
		unit:       unit,
		printer:    message.NewPrinter(tag, message.Catalog(labels)),
		title:      cases.Title(tag),
		dateLayout: dateLayoutFor(tag),
	}, nil
}

// Locale returns the formatter language tag
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Money formats an amount with the currency symbol, e.g. "R$ 1.234,56"
func (f *Formatter) Money(v any) string {
	symbol := f.printer.Sprint(currency.Symbol(f.unit))
	return symbol + " " + f.Decimal(v, 2)
}

// Decimal formats a number with locale grouping and a fixed scale
func (f *Formatter) Decimal(v any, scale int) string {
	d := toDecimal(v).Round(int32(scale))
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(scale)))
}

// Quantity drops trailing zeros: 2.50 prints as "2,5" in pt-BR
func (f *Formatter) Quantity(v any) string {
	d := toDecimal(v).Round(4)
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(4)))
}

// Percent formats a fraction as a percentage: 0.15 -> "15%"
func (f *Formatter) Percent(v any, scale int) string {
	d := toDecimal(v).Mul(decimal.NewFromInt(100)).Round(int32(scale))
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(scale))) + "%"
}

// Date formats the calendar date using the locale's day/month order
func (f *Formatter) Date(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format(f.dateLayout)
}

// DateTime formats date and 24h time
func (f *Formatter) DateTime(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format(f.dateLayout + " 15:04")
}

// Title applies locale-aware title casing
func (f *Formatter) Title(s string) string {
	return f.title.String(s)
}

// StatusLabel translates a status of a document kind ("quote", "order", "item")
func (f *Formatter) StatusLabel(kind, status string) string {
	key := kind + "." + status
	if label := f.printer.Sprintf(key); label != key {
		return label
	}
	return f.Title(strings.ReplaceAll(status, "_", " "))
}

// T translates a template label key, returning the key when unknown
func (f *Formatter) T(key string) string {
	return f.printer.Sprintf(key)
}

func dateLayoutFor(tag language.Tag) string {
	base, _ := tag.Base()
	region, _ := tag.Region()
	switch {
	case base.String() == "en" && region.String() == "US":
		return "01/02/2006"
	case base.String() == "pt", base.String() == "es", base.String() == "en", base.String() == "fr":
		return "02/01/2006"
	}
	return "2006-01-02"
}

var labels = newLabelCatalog()

func newLabelCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, entries map[string]string) {
		for key, msg := range entries {
			// SetString only fails on malformed tags
			_ = b.SetString(tag, key, msg)
		}
	}

	set(language.English, map[string]string{
		"quote.draft":         "Draft",
		"quote.sent":          "Sent",
		"quote.approved":      "Approved",
		"quote.rejected":      "Rejected",
		"order.pending":       "Pending",
		"order.in_progress":   "In progress",
		"order.completed":     "Completed",
		"order.cancelled":     "Cancelled",
		"item.service":        "Service",
		"item.product":        "Product",
		"label.quote":         "Quote",
		"label.order":         "Order",
		"label.client":        "Client",
		"label.description":   "Description",
		"label.quantity":      "Qty",
		"label.unit_price":    "Unit price",
		"label.amount":        "Amount",
		"label.services":      "Services",
		"label.products":      "Products",
		"label.subtotal":      "Subtotal",
		"label.discount":      "Discount",
		"label.total":         "Total",
		"label.valid_until":   "Valid until",
		"label.due_date":      "Due date",
		"label.issued_at":     "Issued",
		"label.notes":         "Notes",
		"label.status":        "Status",
		"label.page":          "Page",
		"label.generated_at":  "Generated",
		"label.number":        "Number",
		"label.name":          "Name",
		"label.type":          "Type",
		"label.document":      "Document",
		"label.email":         "Email",
		"label.phone":         "Phone",
		"label.city":          "City",
		"label.quotes":        "Quotes",
		"label.orders":        "Orders",
		"label.approved":      "Approved",
		"label.completed":     "Completed",
		"label.period":        "Period",
		"client.individual":   "Individual",
		"client.organization": "Organization",
		"report.quotes":       "Quotes report",
		"report.orders":       "Orders report",
		"report.clients":      "Clients report",
	})
	set(language.Portuguese, map[string]string{
		"quote.draft":         "Rascunho",
		"quote.sent":          "Enviado",
		"quote.approved":      "Aprovado",
		"quote.rejected":      "Recusado",
		"order.pending":       "Pendente",
		"order.in_progress":   "Em andamento",
		"order.completed":     "Concluído",
		"order.cancelled":     "Cancelado",
		"item.service":        "Serviço",
		"item.product":        "Produto",
		"label.quote":         "Orçamento",
		"label.order":         "Pedido",
		"label.client":        "Cliente",
		"label.description":   "Descrição",
		"label.quantity":      "Qtd",
		"label.unit_price":    "Valor unitário",
		"label.amount":        "Valor",
		"label.services":      "Serviços",
		"label.products":      "Produtos",
		"label.subtotal":      "Subtotal",
		"label.discount":      "Desconto",
		"label.total":         "Total",
		"label.valid_until":   "Válido até",
		"label.due_date":      "Entrega",
		"label.issued_at":     "Emissão",
		"label.notes":         "Observações",
		"label.status":        "Situação",
		"label.page":          "Página",
		"label.generated_at":  "Gerado em",
		"label.number":        "Número",
		"label.name":          "Nome",
		"label.type":          "Tipo",
		"label.document":      "Documento",
		"label.email":         "E-mail",
		"label.phone":         "Telefone",
		"label.city":          "Cidade",
		"label.quotes":        "Orçamentos",
		"label.orders":        "Pedidos",
		"label.approved":      "Aprovados",
		"label.completed":     "Concluídos",
		"label.period":        "Período",
		"client.individual":   "Pessoa física",
		"client.organization": "Pessoa jurídica",
		"report.quotes":       "Relatório de orçamentos",
		"report.orders":       "Relatório de pedidos",
		"report.clients":      "Relatório de clientes",
	})
	return b
}
