package client

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]client.Client, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]client.Client), args.Error(1)
}

func (m *MockClientRepository) FindAllNewestFirst(ctx context.Context) ([]*client.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*client.Client), args.Error(1)
}

func (m *MockClientRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClientRepository) ExistsByDocumentNumber(ctx context.Context, doc string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, doc, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// stubSource serves fixed snapshots to the DataManager
type stubSource struct {
	clients []*client.Client
	quotes  []*quote.Quote
	orders  []*order.Order
}

func (s *stubSource) FetchClients(context.Context) ([]*client.Client, error) {
	return s.clients, nil
}

func (s *stubSource) FetchQuotes(context.Context) ([]*quote.Quote, error) {
	return s.quotes, nil
}

func (s *stubSource) FetchOrders(context.Context) ([]*order.Order, error) {
	return s.orders, nil
}

func (s *stubSource) FetchCompanySettings(context.Context) (*company.Settings, error) {
	return nil, nil
}

// =============================================================================
// Helpers
// =============================================================================

func newTestClient(t *testing.T, name string, typ client.ClientType) *client.Client {
	t.Helper()
	email := strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@example.com"
	c, err := client.NewClient(client.Details{Type: typ, Name: name, Email: email})
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func setup(t *testing.T, src *stubSource) (*ClientService, *MockClientRepository, *MockEventPublisher, *cache.DataManager) {
	t.Helper()
	repo := new(MockClientRepository)
	publisher := new(MockEventPublisher)
	dm := cache.NewDataManager(src)
	_, err := dm.InvalidateAll(context.Background())
	require.NoError(t, err)

	svc := NewClientService(repo, dm, nil)
	svc.SetEventPublisher(publisher)
	return svc, repo, publisher, dm
}

func eventTypes(events []shared.DomainEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}

// =============================================================================
// Tests
// =============================================================================

func TestClientService_Create(t *testing.T) {
	svc, repo, publisher, dm := setup(t, &stubSource{})
	ctx := context.Background()

	repo.On("ExistsByDocumentNumber", ctx, "12345678900", (*uuid.UUID)(nil)).Return(false, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*client.Client")).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return assert.ObjectsAreEqual([]string{client.EventTypeClientCreated}, eventTypes(events))
	})).Return(nil)

	resp, err := svc.Create(ctx, CreateClientRequest{
		Type:           "individual",
		Name:           "  Ana Souza ",
		DocumentNumber: "123.456.789-00",
		Address:        AddressDTO{Street: "Rua A", Number: "10", City: "Curitiba"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", resp.Name)
	assert.Equal(t, "12345678900", resp.DocumentNumber)
	assert.Equal(t, "Rua A, 10, Curitiba", resp.FullAddress)

	cached := dm.Clients.Get()
	require.Len(t, cached, 1)
	assert.Equal(t, resp.ID, cached[0].ID)
	assert.False(t, dm.Clients.Pending(resp.ID.String()), "committed")
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestClientService_Create_DuplicateDocument(t *testing.T) {
	svc, repo, _, dm := setup(t, &stubSource{})
	ctx := context.Background()
	repo.On("ExistsByDocumentNumber", ctx, "999", (*uuid.UUID)(nil)).Return(true, nil)

	_, err := svc.Create(ctx, CreateClientRequest{Type: "organization", Name: "Acme", DocumentNumber: "999"})

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	assert.Empty(t, dm.Clients.Get())
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestClientService_Create_InvalidDetails(t *testing.T) {
	svc, repo, _, _ := setup(t, &stubSource{})

	_, err := svc.Create(context.Background(), CreateClientRequest{Type: "robot", Name: "R2"})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CLIENT_TYPE", domainErr.Code)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestClientService_Create_SaveFailureRollsBack(t *testing.T) {
	svc, repo, publisher, dm := setup(t, &stubSource{})
	ctx := context.Background()
	saveErr := errors.New("connection refused")

	var seenDuringSave int
	repo.On("Save", ctx, mock.Anything).Run(func(mock.Arguments) {
		seenDuringSave = len(dm.Clients.Get())
	}).Return(saveErr)

	_, err := svc.Create(ctx, CreateClientRequest{Type: "individual", Name: "Ana"})

	assert.ErrorIs(t, err, saveErr)
	assert.Equal(t, 1, seenDuringSave, "applied optimistically before persisting")
	assert.Empty(t, dm.Clients.Get(), "rolled back")
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestClientService_GetByID(t *testing.T) {
	cached := newTestClient(t, "Ana", client.ClientTypeIndividual)
	svc, repo, _, _ := setup(t, &stubSource{clients: []*client.Client{cached}})
	ctx := context.Background()

	resp, err := svc.GetByID(ctx, cached.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", resp.Name)
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)

	missing := uuid.New()
	repo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)
	_, err = svc.GetByID(ctx, missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestClientService_List(t *testing.T) {
	clients := []*client.Client{
		newTestClient(t, "Zeta Ltda", client.ClientTypeOrganization),
		newTestClient(t, "Ana", client.ClientTypeIndividual),
		newTestClient(t, "Acme", client.ClientTypeOrganization),
	}
	svc, _, _, _ := setup(t, &stubSource{clients: clients})
	ctx := context.Background()

	all, total, err := svc.List(ctx, ClientListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "Zeta Ltda", all[0].Name, "store order kept")

	orgs, total, err := svc.List(ctx, ClientListFilter{Type: "organization", PageSize: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Acme", orgs[0].Name)

	found, total, err := svc.List(ctx, ClientListFilter{Search: "ANA@"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Ana", found[0].Name)
}

func TestClientService_Update(t *testing.T) {
	existing := newTestClient(t, "Ana", client.ClientTypeIndividual)
	svc, repo, publisher, dm := setup(t, &stubSource{clients: []*client.Client{existing}})
	ctx := context.Background()

	fresh := *existing
	repo.On("FindByID", ctx, existing.ID).Return(&fresh, nil)
	repo.On("ExistsByDocumentNumber", ctx, "42", &existing.ID).Return(false, nil)
	repo.On("Save", ctx, &fresh).Return(nil)
	publisher.On("Publish", ctx, mock.Anything).Return(nil)

	name := "Ana Maria"
	doc := "4-2"
	resp, err := svc.Update(ctx, existing.ID, UpdateClientRequest{Name: &name, DocumentNumber: &doc})
	require.NoError(t, err)

	assert.Equal(t, "Ana Maria", resp.Name)
	assert.Equal(t, "ana@example.com", resp.Email, "unchanged fields kept")
	assert.Equal(t, 2, resp.Version)

	got, ok := dm.Clients.Find(existing.ID.String())
	require.True(t, ok)
	assert.Equal(t, "Ana Maria", got.Name)
	assert.Equal(t, "Ana", existing.Name, "previous snapshot untouched")
}

func TestClientService_Update_SaveFailureRestoresSnapshot(t *testing.T) {
	existing := newTestClient(t, "Ana", client.ClientTypeIndividual)
	svc, repo, _, dm := setup(t, &stubSource{clients: []*client.Client{existing}})
	ctx := context.Background()

	fresh := *existing
	repo.On("FindByID", ctx, existing.ID).Return(&fresh, nil)
	repo.On("Save", ctx, &fresh).Return(shared.ErrConcurrencyConflict)

	name := "Other"
	_, err := svc.Update(ctx, existing.ID, UpdateClientRequest{Name: &name})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	got, ok := dm.Clients.Find(existing.ID.String())
	require.True(t, ok)
	assert.Equal(t, "Ana", got.Name)
}

func TestClientService_Delete(t *testing.T) {
	existing := newTestClient(t, "Ana", client.ClientTypeIndividual)
	svc, repo, publisher, dm := setup(t, &stubSource{clients: []*client.Client{existing}})
	ctx := context.Background()

	repo.On("FindByID", ctx, existing.ID).Return(existing, nil)
	repo.On("Delete", ctx, existing.ID).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == client.EventTypeClientDeleted
	})).Return(nil)

	require.NoError(t, svc.Delete(ctx, existing.ID))
	assert.Empty(t, dm.Clients.Get())
	publisher.AssertExpectations(t)
}

func TestClientService_Delete_RejectsClientWithQuotes(t *testing.T) {
	existing := newTestClient(t, "Ana", client.ClientTypeIndividual)
	q, err := quote.NewQuote(existing.ID, existing.Name, time.Now().AddDate(0, 0, 7), nil)
	require.NoError(t, err)
	svc, repo, _, dm := setup(t, &stubSource{clients: []*client.Client{existing}, quotes: []*quote.Quote{q}})
	ctx := context.Background()
	repo.On("FindByID", ctx, existing.ID).Return(existing, nil)

	err = svc.Delete(ctx, existing.ID)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CLIENT_IN_USE", domainErr.Code)
	assert.Len(t, dm.Clients.Get(), 1)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestClientService_Delete_FailureRestoresPosition(t *testing.T) {
	first := newTestClient(t, "First", client.ClientTypeIndividual)
	second := newTestClient(t, "Second", client.ClientTypeIndividual)
	svc, repo, _, dm := setup(t, &stubSource{clients: []*client.Client{first, second}})
	ctx := context.Background()

	repo.On("FindByID", ctx, first.ID).Return(first, nil)
	repo.On("Delete", ctx, first.ID).Return(errors.New("timeout"))

	require.Error(t, svc.Delete(ctx, first.ID))
	cached := dm.Clients.Get()
	require.Len(t, cached, 2)
	assert.Equal(t, first.ID, cached[0].ID)
}

func TestClientService_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc, repo, publisher, dm := setup(t, &stubSource{})
	ctx := context.Background()
	repo.On("Save", ctx, mock.Anything).Return(nil)
	publisher.On("Publish", ctx, mock.Anything).Return(errors.New("handler failed"))

	_, err := svc.Create(ctx, CreateClientRequest{Type: "individual", Name: "Ana"})
	require.NoError(t, err)
	assert.Len(t, dm.Clients.Get(), 1)
}
