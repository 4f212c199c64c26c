package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAllNewestFirst(ctx context.Context) ([]*order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ExistsByQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	args := m.Called(ctx, quoteID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ordersOnly struct {
	orders []*order.Order
}

func (s *ordersOnly) FetchClients(context.Context) ([]*client.Client, error) {
	return nil, nil
}

func (s *ordersOnly) FetchQuotes(context.Context) ([]*quote.Quote, error) {
	return nil, nil
}

func (s *ordersOnly) FetchOrders(context.Context) ([]*order.Order, error) {
	return s.orders, nil
}

func (s *ordersOnly) FetchCompanySettings(context.Context) (*company.Settings, error) {
	return nil, nil
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newOrder(t *testing.T, clientName string, status order.Status) *order.Order {
	t.Helper()
	item, err := quote.NewLineItem(quote.ItemKindService, "Install", decimal.NewFromInt(1), decimal.NewFromInt(80))
	require.NoError(t, err)
	o, err := order.NewOrder(uuid.New(), clientName, []quote.LineItem{item})
	require.NoError(t, err)
	if status == order.StatusInProgress || status == order.StatusCompleted {
		require.NoError(t, o.Start())
	}
	if status == order.StatusCompleted {
		require.NoError(t, o.Complete())
	}
	if status == order.StatusCancelled {
		require.NoError(t, o.Cancel("client gave up"))
	}
	o.ClearDomainEvents()
	return o
}

func copyOf(o *order.Order) *order.Order {
	c := *o
	c.Items = quote.CloneItems(o.Items)
	return &c
}

func setup(t *testing.T, orders ...*order.Order) (*OrderService, *MockOrderRepository, *recordingPublisher, *cache.DataManager) {
	t.Helper()
	repo := new(MockOrderRepository)
	dm := cache.NewDataManager(&ordersOnly{orders: orders})
	_, err := dm.InvalidateAll(context.Background())
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	svc := NewOrderService(repo, dm, nil)
	svc.now = func() time.Time { return testNow }
	svc.SetEventPublisher(publisher)
	return svc, repo, publisher, dm
}

func TestOrderService_Lifecycle(t *testing.T) {
	o := newOrder(t, "Acme", order.StatusPending)
	svc, repo, publisher, dm := setup(t, o)
	ctx := context.Background()
	repo.On("Save", ctx, mock.Anything).Return(nil)

	repo.On("FindByID", ctx, o.ID).Return(copyOf(o), nil).Once()
	started, err := svc.Start(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", started.Status)
	assert.NotNil(t, started.StartedAt)

	current, _ := dm.Orders.Find(o.ID.String())
	repo.On("FindByID", ctx, o.ID).Return(copyOf(current), nil).Once()
	completed, err := svc.Complete(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Status)

	current, _ = dm.Orders.Find(o.ID.String())
	repo.On("FindByID", ctx, o.ID).Return(copyOf(current), nil).Once()
	_, err = svc.Cancel(ctx, o.ID, CancelOrderRequest{Reason: "late"})
	assert.ErrorIs(t, err, shared.ErrInvalidState, "completed orders cannot be cancelled")

	assert.Equal(t, []string{order.EventTypeOrderStatusChanged, order.EventTypeOrderStatusChanged}, publisher.types)
}

func TestOrderService_Cancel_RequiresReason(t *testing.T) {
	o := newOrder(t, "Acme", order.StatusPending)
	svc, repo, _, _ := setup(t, o)
	ctx := context.Background()
	repo.On("FindByID", ctx, o.ID).Return(copyOf(o), nil)

	_, err := svc.Cancel(ctx, o.ID, CancelOrderRequest{Reason: "  "})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_REASON", domainErr.Code)
}

func TestOrderService_SaveFailureRollsBack(t *testing.T) {
	o := newOrder(t, "Acme", order.StatusPending)
	svc, repo, publisher, dm := setup(t, o)
	ctx := context.Background()
	repo.On("FindByID", ctx, o.ID).Return(copyOf(o), nil)
	repo.On("Save", ctx, mock.Anything).Return(shared.ErrConcurrencyConflict)

	_, err := svc.Start(ctx, o.ID)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	cached, _ := dm.Orders.Find(o.ID.String())
	assert.Equal(t, order.StatusPending, cached.Status)
	assert.Empty(t, publisher.types)
}

func TestOrderService_Delete(t *testing.T) {
	active := newOrder(t, "Acme", order.StatusInProgress)
	done := newOrder(t, "Acme", order.StatusCancelled)
	svc, repo, publisher, dm := setup(t, active, done)
	ctx := context.Background()

	repo.On("FindByID", ctx, active.ID).Return(copyOf(active), nil)
	assert.ErrorIs(t, svc.Delete(ctx, active.ID), shared.ErrInvalidState)

	repo.On("FindByID", ctx, done.ID).Return(copyOf(done), nil)
	repo.On("Delete", ctx, done.ID).Return(nil)
	require.NoError(t, svc.Delete(ctx, done.ID))

	remaining := dm.Orders.Get()
	require.Len(t, remaining, 1)
	assert.Equal(t, active.ID, remaining[0].ID)
	assert.Equal(t, []string{order.EventTypeOrderDeleted}, publisher.types)
}

func TestOrderService_Delete_FailureRestores(t *testing.T) {
	done := newOrder(t, "Acme", order.StatusCompleted)
	svc, repo, _, dm := setup(t, done)
	ctx := context.Background()
	repo.On("FindByID", ctx, done.ID).Return(copyOf(done), nil)
	repo.On("Delete", ctx, done.ID).Return(errors.New("fk violation"))

	require.Error(t, svc.Delete(ctx, done.ID))
	assert.Len(t, dm.Orders.Get(), 1)
}

func TestOrderService_GetByID(t *testing.T) {
	o := newOrder(t, "Acme", order.StatusPending)
	svc, repo, _, _ := setup(t, o)
	ctx := context.Background()

	resp, err := svc.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, resp.OrderNumber)

	missing := uuid.New()
	repo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)
	_, err = svc.GetByID(ctx, missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderService_List(t *testing.T) {
	overdue := newOrder(t, "Acme", order.StatusInProgress)
	past := testNow.AddDate(0, 0, -2)
	overdue.DueDate = &past
	orders := []*order.Order{
		overdue,
		newOrder(t, "Bruno", order.StatusPending),
		newOrder(t, "Acme", order.StatusCompleted),
	}
	svc, _, _, _ := setup(t, orders...)
	ctx := context.Background()

	all, total, err := svc.List(ctx, OrderListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.True(t, all[0].Overdue)
	assert.False(t, all[1].Overdue)

	yes := true
	late, _, err := svc.List(ctx, OrderListFilter{Overdue: &yes})
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, overdue.ID, late[0].ID)

	acme, total, err := svc.List(ctx, OrderListFilter{Search: "acme", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "completed", acme[0].Status)

	byClient, _, err := svc.List(ctx, OrderListFilter{ClientID: orders[1].ClientID.String()})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, "Bruno", byClient[0].ClientName)
}
