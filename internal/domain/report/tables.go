package report

import (
	"slices"
	"strconv"
	"strings"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteReport lists quotes issued within the filter, oldest first. Totals
// sum every listed quote.
func QuoteReport(quotes []*quote.Quote, f Filter, fm Formatter) Table {
	selected := make([]*quote.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q == nil || !f.InRange(q.CreatedAt) || !f.MatchesStatus(string(q.Status)) || !f.MatchesClient(q.ClientID) {
			continue
		}
		selected = append(selected, q)
	}
	slices.SortStableFunc(selected, func(a, b *quote.Quote) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	t := Table{
		Kind:    KindQuotes,
		Title:   fm.T("report.quotes"),
		Columns: headers(fm, "number", "client", "issued_at", "valid_until", "status", "subtotal", "discount", "total"),
		Rows:    make([][]string, 0, len(selected)),
	}
	subtotal, discount, total := decimal.Zero, decimal.Zero, decimal.Zero
	for _, q := range selected {
		t.Rows = append(t.Rows, []string{
			q.QuoteNumber,
			q.ClientName,
			fm.Date(q.CreatedAt),
			fm.Date(q.ValidUntil),
			fm.StatusLabel("quote", string(q.Status)),
			fm.Money(q.Subtotal),
			fm.Money(q.Discount),
			fm.Money(q.Total),
		})
		subtotal = subtotal.Add(q.Subtotal)
		discount = discount.Add(q.Discount)
		total = total.Add(q.Total)
	}
	t.Totals = []string{
		fm.T("label.total"), "", "", "",
		strconv.Itoa(len(selected)),
		fm.Money(subtotal), fm.Money(discount), fm.Money(total),
	}
	return t
}

// OrderReport lists orders created within the filter, oldest first.
// Cancelled orders are listed but left out of the total.
func OrderReport(orders []*order.Order, f Filter, fm Formatter) Table {
	selected := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil || !f.InRange(o.CreatedAt) || !f.MatchesStatus(string(o.Status)) || !f.MatchesClient(o.ClientID) {
			continue
		}
		selected = append(selected, o)
	}
	slices.SortStableFunc(selected, func(a, b *order.Order) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	t := Table{
		Kind:    KindOrders,
		Title:   fm.T("report.orders"),
		Columns: headers(fm, "number", "client", "issued_at", "due_date", "status", "total"),
		Rows:    make([][]string, 0, len(selected)),
	}
	total := decimal.Zero
	for _, o := range selected {
		t.Rows = append(t.Rows, []string{
			o.OrderNumber,
			o.ClientName,
			fm.Date(o.CreatedAt),
			fm.Date(o.DueDate),
			fm.StatusLabel("order", string(o.Status)),
			fm.Money(o.Total),
		})
		if o.Status != order.StatusCancelled {
			total = total.Add(o.Total)
		}
	}
	t.Totals = []string{
		fm.T("label.total"), "", "", "",
		strconv.Itoa(len(selected)),
		fm.Money(total),
	}
	return t
}

type clientActivity struct {
	quotes    int
	orders    int
	approved  decimal.Decimal
	completed decimal.Decimal
}

// ClientReport summarizes quote and order activity per client, sorted by
// name. The period applies to the activity counted; Statuses selects client
// types. Clients without activity in the period are still listed.
func ClientReport(clients []*client.Client, quotes []*quote.Quote, orders []*order.Order, f Filter, fm Formatter) Table {
	activity := make(map[uuid.UUID]*clientActivity, len(clients))
	get := func(id uuid.UUID) *clientActivity {
		a, ok := activity[id]
		if !ok {
			a = &clientActivity{approved: decimal.Zero, completed: decimal.Zero}
			activity[id] = a
		}
		return a
	}
	for _, q := range quotes {
		if q == nil || !f.InRange(q.CreatedAt) {
			continue
		}
		a := get(q.ClientID)
		a.quotes++
		if q.Status == quote.StatusApproved {
			a.approved = a.approved.Add(q.Total)
		}
	}
	for _, o := range orders {
		if o == nil || !f.InRange(o.CreatedAt) {
			continue
		}
		a := get(o.ClientID)
		a.orders++
		if o.Status == order.StatusCompleted {
			a.completed = a.completed.Add(o.Total)
		}
	}

	selected := make([]*client.Client, 0, len(clients))
	for _, c := range clients {
		if c == nil || !f.MatchesStatus(string(c.Type)) || !f.MatchesClient(c.ID) {
			continue
		}
		selected = append(selected, c)
	}
	slices.SortStableFunc(selected, func(a, b *client.Client) int {
		return compareFold(a.Name, b.Name)
	})

	t := Table{
		Kind:    KindClients,
		Title:   fm.T("report.clients"),
		Columns: headers(fm, "name", "type", "document", "email", "phone", "city", "quotes", "orders", "approved", "completed"),
		Rows:    make([][]string, 0, len(selected)),
	}
	var quoteCount, orderCount int
	approved, completed := decimal.Zero, decimal.Zero
	for _, c := range selected {
		a := get(c.ID)
		t.Rows = append(t.Rows, []string{
			c.Name,
			fm.StatusLabel("client", string(c.Type)),
			c.DocumentNumber,
			c.Email,
			c.Phone,
			c.Address.City,
			strconv.Itoa(a.quotes),
			strconv.Itoa(a.orders),
			fm.Money(a.approved),
			fm.Money(a.completed),
		})
		quoteCount += a.quotes
		orderCount += a.orders
		approved = approved.Add(a.approved)
		completed = completed.Add(a.completed)
	}
	t.Totals = []string{
		fm.T("label.total"), "", "", "", "", "",
		strconv.Itoa(quoteCount),
		strconv.Itoa(orderCount),
		fm.Money(approved),
		fm.Money(completed),
	}
	return t
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
