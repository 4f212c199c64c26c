package report

import (
	"testing"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func newClient(t *testing.T, name string, typ client.ClientType) *client.Client {
	t.Helper()
	c, err := client.NewClient(client.Details{Type: typ, Name: name, Address: client.Address{City: "Curitiba"}})
	require.NoError(t, err)
	return c
}

func newQuote(t *testing.T, c *client.Client, created time.Time, price string, status quote.Status) *quote.Quote {
	t.Helper()
	item, err := quote.NewLineItem(quote.ItemKindService, "Work", decimal.NewFromInt(1), decimal.RequireFromString(price))
	require.NoError(t, err)
	q, err := quote.NewQuote(c.ID, c.Name, created.AddDate(0, 0, 10), []quote.LineItem{item})
	require.NoError(t, err)
	q.CreatedAt = created
	q.Status = status
	return q
}

func newOrder(t *testing.T, c *client.Client, created time.Time, price string, status order.Status) *order.Order {
	t.Helper()
	item, err := quote.NewLineItem(quote.ItemKindProduct, "Part", decimal.NewFromInt(1), decimal.RequireFromString(price))
	require.NoError(t, err)
	o, err := order.NewOrder(c.ID, c.Name, []quote.LineItem{item})
	require.NoError(t, err)
	o.CreatedAt = created
	o.Status = status
	return o
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Quotes ")
	require.NoError(t, err)
	assert.Equal(t, KindQuotes, k)

	_, err = ParseKind("invoices")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFilter_InRangeIsInclusiveOnBothDays(t *testing.T) {
	f := Filter{From: day(2026, 3, 1, 15), To: day(2026, 3, 31, 0)}

	assert.True(t, f.InRange(day(2026, 3, 1, 0)), "start of the first day")
	assert.True(t, f.InRange(time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)), "end of the last day")
	assert.False(t, f.InRange(day(2026, 2, 28, 23)))
	assert.False(t, f.InRange(day(2026, 4, 1, 0)))

	assert.True(t, Filter{}.InRange(day(1999, 1, 1, 0)), "unbounded")
	assert.True(t, Filter{To: day(2026, 3, 31, 0)}.InRange(day(2000, 1, 1, 0)))
}

func TestFilter_Validate(t *testing.T) {
	assert.NoError(t, Filter{From: day(2026, 3, 1, 12), To: day(2026, 3, 1, 8)}.Validate(), "same day")
	assert.Error(t, Filter{From: day(2026, 3, 2, 0), To: day(2026, 3, 1, 0)}.Validate())
	assert.NoError(t, Filter{}.Validate())
}

func TestFilter_Matches(t *testing.T) {
	id := uuid.New()
	f := Filter{Statuses: []string{"Approved", " sent"}, ClientID: &id}

	assert.True(t, f.MatchesStatus("approved"))
	assert.True(t, f.MatchesStatus("sent"))
	assert.False(t, f.MatchesStatus("draft"))
	assert.True(t, Filter{}.MatchesStatus("anything"))

	assert.True(t, f.MatchesClient(id))
	assert.False(t, f.MatchesClient(uuid.New()))
	assert.True(t, Filter{}.MatchesClient(uuid.New()))
}

func TestQuoteReport(t *testing.T) {
	acme := newClient(t, "Acme", client.ClientTypeOrganization)
	bob := newClient(t, "Bob", client.ClientTypeIndividual)

	discounted := newQuote(t, acme, day(2026, 3, 20, 10), "300", quote.StatusDraft)
	require.NoError(t, discounted.ApplyDiscount(decimal.NewFromInt(50)))
	discounted.Status = quote.StatusApproved

	quotes := []*quote.Quote{
		discounted,
		newQuote(t, bob, day(2026, 3, 5, 10), "100", quote.StatusDraft),
		newQuote(t, acme, day(2026, 2, 10, 10), "999", quote.StatusApproved),
	}

	table := QuoteReport(quotes, Filter{From: day(2026, 3, 1, 0), To: day(2026, 3, 31, 0)}, PlainFormatter{})

	assert.Equal(t, KindQuotes, table.Kind)
	assert.Equal(t, "quotes", table.Title)
	assert.Equal(t, []string{"number", "client", "issued_at", "valid_until", "status", "subtotal", "discount", "total"}, table.Columns)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, "Bob", table.Rows[0][1], "oldest first")
	assert.Equal(t, "2026-03-05", table.Rows[0][2])
	assert.Equal(t, "draft", table.Rows[0][4])
	assert.Equal(t, []string{"Acme", "2026-03-20", "2026-03-30", "approved", "300.00", "50.00", "250.00"}, table.Rows[1][1:])

	assert.Equal(t, []string{"total", "", "", "", "2", "400.00", "50.00", "350.00"}, table.Totals)
}

func TestQuoteReport_StatusAndClientFilter(t *testing.T) {
	acme := newClient(t, "Acme", client.ClientTypeOrganization)
	bob := newClient(t, "Bob", client.ClientTypeIndividual)
	quotes := []*quote.Quote{
		newQuote(t, acme, day(2026, 3, 1, 10), "10", quote.StatusApproved),
		newQuote(t, acme, day(2026, 3, 2, 10), "20", quote.StatusRejected),
		newQuote(t, bob, day(2026, 3, 3, 10), "30", quote.StatusApproved),
		nil,
	}

	table := QuoteReport(quotes, Filter{Statuses: []string{"approved"}, ClientID: &acme.ID}, PlainFormatter{})
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "10.00", table.Rows[0][7])
}

func TestQuoteReport_Empty(t *testing.T) {
	table := QuoteReport(nil, Filter{}, PlainFormatter{})
	assert.Equal(t, 0, table.Len())
	assert.NotNil(t, table.Rows)
	assert.Equal(t, "0", table.Totals[4])
	assert.Equal(t, "0.00", table.Totals[7])
}

func TestOrderReport_CancelledExcludedFromTotal(t *testing.T) {
	acme := newClient(t, "Acme", client.ClientTypeOrganization)
	due := day(2026, 4, 1, 0)
	orders := []*order.Order{
		newOrder(t, acme, day(2026, 3, 2, 9), "200", order.StatusCompleted),
		newOrder(t, acme, day(2026, 3, 1, 9), "75.5", order.StatusCancelled),
		newOrder(t, acme, day(2026, 3, 3, 9), "100", order.StatusInProgress),
	}
	orders[0].DueDate = &due

	table := OrderReport(orders, Filter{}, PlainFormatter{})

	require.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"number", "client", "issued_at", "due_date", "status", "total"}, table.Columns)
	assert.Equal(t, "cancelled", table.Rows[0][4])
	assert.Equal(t, "75.50", table.Rows[0][5])
	assert.Equal(t, "", table.Rows[0][3], "no due date")
	assert.Equal(t, "2026-04-01", table.Rows[1][3])
	assert.Equal(t, []string{"total", "", "", "", "3", "300.00"}, table.Totals)
}

func TestClientReport(t *testing.T) {
	acme := newClient(t, "acme", client.ClientTypeOrganization)
	bob := newClient(t, "Bob", client.ClientTypeIndividual)
	zed := newClient(t, "Zed", client.ClientTypeIndividual)

	quotes := []*quote.Quote{
		newQuote(t, acme, day(2026, 3, 1, 10), "100", quote.StatusApproved),
		newQuote(t, acme, day(2026, 3, 2, 10), "40", quote.StatusDraft),
		newQuote(t, bob, day(2026, 3, 3, 10), "60", quote.StatusApproved),
		newQuote(t, bob, day(2025, 1, 1, 10), "999", quote.StatusApproved),
	}
	orders := []*order.Order{
		newOrder(t, acme, day(2026, 3, 5, 10), "100", order.StatusCompleted),
		newOrder(t, bob, day(2026, 3, 6, 10), "60", order.StatusPending),
	}

	table := ClientReport([]*client.Client{zed, bob, acme}, quotes, orders,
		Filter{From: day(2026, 3, 1, 0), To: day(2026, 3, 31, 0)}, PlainFormatter{})

	require.Equal(t, 3, table.Len())
	assert.Len(t, table.Columns, 10)
	assert.Equal(t, []string{"acme", "organization", "", "", "", "Curitiba", "2", "1", "100.00", "100.00"}, table.Rows[0])
	assert.Equal(t, []string{"Bob", "individual", "", "", "", "Curitiba", "1", "1", "60.00", "0.00"}, table.Rows[1])
	assert.Equal(t, []string{"Zed", "individual", "", "", "", "Curitiba", "0", "0", "0.00", "0.00"}, table.Rows[2])
	assert.Equal(t, []string{"total", "", "", "", "", "", "3", "2", "160.00", "100.00"}, table.Totals)

	individuals := ClientReport([]*client.Client{zed, bob, acme}, quotes, orders,
		Filter{Statuses: []string{"individual"}}, PlainFormatter{})
	require.Equal(t, 2, individuals.Len())
	assert.Equal(t, "2", individuals.Rows[0][6], "unbounded period counts the 2025 quote")
}

type labelFormatter struct{ PlainFormatter }

func (labelFormatter) StatusLabel(kind, status string) string { return kind + ":" + status }
func (labelFormatter) T(key string) string { return "<" + key + ">" }

func TestReports_UseFormatter(t *testing.T) {
	acme := newClient(t, "Acme", client.ClientTypeOrganization)
	q := newQuote(t, acme, day(2026, 3, 1, 10), "10", quote.StatusSent)

	table := QuoteReport([]*quote.Quote{q}, Filter{}, labelFormatter{})
	assert.Equal(t, "<report.quotes>", table.Title)
	assert.Equal(t, "<label.number>", table.Columns[0])
	assert.Equal(t, "quote:sent", table.Rows[0][4])
}

func TestPlainFormatter(t *testing.T) {
	fm := PlainFormatter{}
	d := decimal.RequireFromString("1234.5")
	ts := day(2026, 7, 9, 13)

	assert.Equal(t, "1234.50", fm.Money(d))
	assert.Equal(t, "1234.50", fm.Money(&d))
	assert.Equal(t, "", fm.Money((*decimal.Decimal)(nil)))
	assert.Equal(t, "2026-07-09", fm.Date(ts))
	assert.Equal(t, "2026-07-09", fm.Date(&ts))
	assert.Equal(t, "", fm.Date((*time.Time)(nil)))
	assert.Equal(t, "", fm.Date(time.Time{}))
	assert.Equal(t, "in_progress", fm.StatusLabel("order", "in_progress"))
	assert.Equal(t, "total", fm.T("label.total"))
	assert.Equal(t, "label.unknown", fm.T("label.unknown"))
}

func TestFilter_InRangeUsesCalendarDates(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*3600)
	f := Filter{From: day(2026, 3, 1, 0), To: day(2026, 3, 1, 0)}

	assert.True(t, f.InRange(time.Date(2026, 3, 1, 22, 0, 0, 0, saoPaulo)), "late on the same local day")
	assert.False(t, f.InRange(time.Date(2026, 2, 28, 23, 0, 0, 0, saoPaulo)))
}
