package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errStoreDown = errors.New("store unavailable")

// fakeSource serves fixed collections. A gated collection blocks every fetch
// until released; started receives one value per gated fetch.
type fakeSource struct {
	mu       sync.Mutex
	clients  []*client.Client
	quotes   []*quote.Quote
	orders   []*order.Order
	settings *company.Settings
	errs     map[Collection]error
	gates    map[Collection]chan struct{}
	calls    map[Collection]int
	started  chan Collection
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		errs:    make(map[Collection]error),
		gates:   make(map[Collection]chan struct{}),
		calls:   make(map[Collection]int),
		started: make(chan Collection, 16),
	}
}

func (f *fakeSource) block(c Collection) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[c] = gate
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.gates, c)
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeSource) fail(c Collection, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[c] = err
}

func (f *fakeSource) count(c Collection) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[c]
}

func (f *fakeSource) enter(ctx context.Context, c Collection) error {
	f.mu.Lock()
	f.calls[c]++
	gate := f.gates[c]
	err := f.errs[c]
	f.mu.Unlock()

	if gate != nil {
		f.started <- c
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeSource) FetchClients(ctx context.Context) ([]*client.Client, error) {
	if err := f.enter(ctx, CollectionClients); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*client.Client(nil), f.clients...), nil
}

func (f *fakeSource) FetchQuotes(ctx context.Context) ([]*quote.Quote, error) {
	if err := f.enter(ctx, CollectionQuotes); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*quote.Quote(nil), f.quotes...), nil
}

func (f *fakeSource) FetchOrders(ctx context.Context) ([]*order.Order, error) {
	if err := f.enter(ctx, CollectionOrders); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*order.Order(nil), f.orders...), nil
}

func (f *fakeSource) FetchCompanySettings(ctx context.Context) (*company.Settings, error) {
	if err := f.enter(ctx, CollectionCompanySettings); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}

type countingRecorder struct {
	nopRecorder
	deduped atomic.Int32
}

func (r *countingRecorder) FetchDeduplicated(context.Context, Collection) {
	r.deduped.Add(1)
}

func newTestClient(t *testing.T, name string) *client.Client {
	t.Helper()
	c, err := client.NewClient(client.Details{Type: client.ClientTypeIndividual, Name: name})
	require.NoError(t, err)
	return c
}

func newTestOrder(t *testing.T) *order.Order {
	t.Helper()
	item, err := quote.NewLineItem(quote.ItemKindService, "Installation", decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)
	o, err := order.NewOrder(uuid.New(), "Acme", []quote.LineItem{item})
	require.NoError(t, err)
	return o
}

func newTestQuote(t *testing.T) *quote.Quote {
	t.Helper()
	q, err := quote.NewQuote(uuid.New(), "Acme", time.Now().AddDate(0, 0, 30), nil)
	require.NoError(t, err)
	return q
}

func subscribeCounter(t *testing.T, dm *DataManager, c Collection) *atomic.Int32 {
	t.Helper()
	var n atomic.Int32
	_, err := dm.Subscribe(c, func() { n.Add(1) })
	require.NoError(t, err)
	return &n
}

func TestDataManager_InitialState(t *testing.T) {
	dm := NewDataManager(newFakeSource())

	assert.Empty(t, dm.GetData(CollectionClients))
	assert.NotNil(t, dm.GetData(CollectionClients))
	assert.Nil(t, dm.CompanySettings.Get())
	assert.False(t, dm.IsLoading(CollectionOrders))
	assert.Nil(t, dm.GetData(Collection("invoices")))
	assert.False(t, dm.IsLoading(Collection("invoices")))
}

func TestDataManager_ConcurrentLoadsFetchOnce(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	release := src.block(CollectionClients)
	rec := &countingRecorder{}
	dm := NewDataManager(src, WithRecorder(rec))
	notified := subscribeCounter(t, dm, CollectionClients)
	ctx := context.Background()

	first := make(chan []*client.Client, 1)
	go func() {
		v, err := dm.Clients.Load(ctx, false)
		assert.NoError(t, err)
		first <- v
	}()
	<-src.started
	assert.True(t, dm.IsLoading(CollectionClients))

	stale, err := dm.LoadData(ctx, CollectionClients, false)
	require.NoError(t, err)
	assert.Empty(t, stale)

	awaited := make(chan any, 1)
	go func() {
		v, err := dm.Await(ctx, CollectionClients)
		assert.NoError(t, err)
		awaited <- v
	}()
	require.Eventually(t, func() bool { return rec.deduped.Load() == 2 }, time.Second, time.Millisecond)

	release()

	assert.Len(t, <-first, 1)
	fresh := (<-awaited).([]*client.Client)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Ana", fresh[0].Name)
	assert.Equal(t, 2, src.count(CollectionClients))
	assert.Equal(t, int32(1), notified.Load())
	assert.False(t, dm.IsLoading(CollectionClients))
}

func TestDataManager_AwaitStartsFetchWhenIdle(t *testing.T) {
	src := newFakeSource()
	src.orders = []*order.Order{newTestOrder(t)}
	dm := NewDataManager(src)

	v, err := dm.Await(context.Background(), CollectionOrders)
	require.NoError(t, err)
	assert.Len(t, v, 1)
	assert.Equal(t, 1, src.count(CollectionOrders))
}

func TestDataManager_CurrentFetchesOnlyUntilLoaded(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	dm := NewDataManager(src)
	ctx := context.Background()
	assert.False(t, dm.Clients.Loaded())

	v, err := dm.Clients.Current(ctx)
	require.NoError(t, err)
	assert.Len(t, v, 1)
	assert.True(t, dm.Clients.Loaded())

	_, err = dm.Clients.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.count(CollectionClients))

	dm.Reset()
	assert.False(t, dm.Clients.Loaded())
}

func TestDataManager_AwaitHonoursContext(t *testing.T) {
	src := newFakeSource()
	release := src.block(CollectionQuotes)
	dm := NewDataManager(src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = dm.Quotes.Load(context.Background(), false)
	}()
	<-src.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := dm.Await(ctx, CollectionQuotes)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	<-done
}

func TestDataManager_UpdateLocalDataAddPrepends(t *testing.T) {
	src := newFakeSource()
	existing := newTestOrder(t)
	src.orders = []*order.Order{existing}
	dm := NewDataManager(src)
	_, err := dm.LoadData(context.Background(), CollectionOrders, false)
	require.NoError(t, err)

	added := newTestOrder(t)
	require.NoError(t, dm.UpdateLocalData(CollectionOrders, OpAdd, added, ""))

	got := dm.Orders.Get()
	require.Len(t, got, 2)
	assert.Same(t, added, got[0])
	assert.Same(t, existing, got[1])
	assert.Equal(t, 1, src.count(CollectionOrders))
}

func TestDataManager_UpdateMissingIDNotifiesOnce(t *testing.T) {
	src := newFakeSource()
	ana := newTestClient(t, "Ana")
	src.clients = []*client.Client{ana}
	dm := NewDataManager(src)
	_, err := dm.InvalidateAndReload(context.Background(), CollectionClients)
	require.NoError(t, err)

	a := subscribeCounter(t, dm, CollectionClients)
	b := subscribeCounter(t, dm, CollectionClients)

	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpUpdate, newTestClient(t, "Bia"), "missing"))

	got := dm.Clients.Get()
	require.Len(t, got, 1)
	assert.Same(t, ana, got[0])
	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestDataManager_UpdateAndDeleteByID(t *testing.T) {
	src := newFakeSource()
	ana, bia := newTestClient(t, "Ana"), newTestClient(t, "Bia")
	src.clients = []*client.Client{ana, bia}
	dm := NewDataManager(src)
	_, err := dm.LoadData(context.Background(), CollectionClients, true)
	require.NoError(t, err)

	renamed := *bia
	renamed.Name = "Beatriz"
	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpUpdate, &renamed, bia.ID.String()))
	got := dm.Clients.Get()
	require.Len(t, got, 2)
	assert.Equal(t, "Beatriz", got[1].Name)

	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpDelete, nil, ana.ID.String()))
	got = dm.Clients.Get()
	require.Len(t, got, 1)
	assert.Equal(t, bia.ID, got[0].ID)

	// delete of an unknown id still succeeds
	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpDelete, nil, uuid.NewString()))
	assert.Len(t, dm.Clients.Get(), 1)
}

func TestDataManager_UpdateLocalDataSettingsReplaces(t *testing.T) {
	dm := NewDataManager(newFakeSource())
	notified := subscribeCounter(t, dm, CollectionCompanySettings)

	s, err := company.NewSettings(company.Profile{Name: "Acme Ltda"})
	require.NoError(t, err)

	require.NoError(t, dm.UpdateLocalData(CollectionCompanySettings, OpDelete, s, ""))
	assert.Same(t, s, dm.CompanySettings.Get())

	require.NoError(t, dm.UpdateLocalData(CollectionCompanySettings, OpUpdate, nil, ""))
	assert.Nil(t, dm.CompanySettings.Get())
	assert.Equal(t, int32(2), notified.Load())
}

func TestDataManager_UpdateLocalDataRejectsBadInput(t *testing.T) {
	dm := NewDataManager(newFakeSource())

	err := dm.UpdateLocalData(CollectionClients, OpAdd, newTestOrder(t), "")
	assert.ErrorIs(t, err, ErrItemType)

	err = dm.UpdateLocalData(CollectionQuotes, OpAdd, nil, "")
	assert.ErrorIs(t, err, ErrItemType)

	err = dm.UpdateLocalData(CollectionCompanySettings, OpAdd, "acme", "")
	assert.ErrorIs(t, err, ErrItemType)

	err = dm.UpdateLocalData(Collection("invoices"), OpAdd, nil, "")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestDataManager_UpdateLocalDataRejectsUnknownOperation(t *testing.T) {
	dm := NewDataManager(newFakeSource())
	notified := subscribeCounter(t, dm, CollectionClients)

	err := dm.UpdateLocalData(CollectionClients, Operation("upsert"), newTestClient(t, "Ana"), "")

	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Empty(t, dm.Clients.Get())
	assert.Zero(t, notified.Load())
}

func TestDataManager_FailedReloadKeepsSnapshot(t *testing.T) {
	src := newFakeSource()
	src.quotes = []*quote.Quote{newTestQuote(t)}
	dm := NewDataManager(src)
	ctx := context.Background()

	loaded, err := dm.LoadData(ctx, CollectionQuotes, false)
	require.NoError(t, err)

	notified := subscribeCounter(t, dm, CollectionQuotes)
	src.fail(CollectionQuotes, errStoreDown)

	_, err = dm.InvalidateAndReload(ctx, CollectionQuotes)
	assert.Equal(t, errStoreDown, err)
	assert.Equal(t, loaded, dm.GetData(CollectionQuotes))
	assert.Equal(t, int32(0), notified.Load())
	assert.False(t, dm.IsLoading(CollectionQuotes))
}

func TestDataManager_FetchPanicBecomesError(t *testing.T) {
	l := NewList(CollectionClients, func(context.Context) ([]string, error) {
		panic("boom")
	}, func(s string) string { return s })

	_, err := l.Load(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.False(t, l.IsLoading())
}

func TestDataManager_UnsubscribeStopsNotifications(t *testing.T) {
	dm := NewDataManager(newFakeSource())

	var calls int
	unsubscribe, err := dm.Subscribe(CollectionClients, func() { calls++ })
	require.NoError(t, err)

	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpAdd, newTestClient(t, "Ana"), ""))
	unsubscribe()
	unsubscribe()
	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpAdd, newTestClient(t, "Bia"), ""))

	assert.Equal(t, 1, calls)
}

func TestDataManager_SubscribeUnknownCollection(t *testing.T) {
	dm := NewDataManager(newFakeSource())

	_, err := dm.Subscribe(Collection("invoices"), func() {})
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestDataManager_SameFuncSubscribedTwiceRegistersTwice(t *testing.T) {
	dm := NewDataManager(newFakeSource())
	var n atomic.Int32
	cb := func() { n.Add(1) }

	first, err := dm.Subscribe(CollectionClients, cb)
	require.NoError(t, err)
	_, err = dm.Subscribe(CollectionClients, cb)
	require.NoError(t, err)

	dm.Clients.Apply(OpAdd, newTestClient(t, "Ana"), "")
	assert.Equal(t, int32(2), n.Load())

	first()
	first()
	dm.Clients.Apply(OpAdd, newTestClient(t, "Bia"), "")
	assert.Equal(t, int32(3), n.Load(), "each unsubscribe removes only its own registration")
}

func TestDataManager_ListenerCanReloadItsOwnCollection(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	dm := NewDataManager(src)
	ctx := context.Background()
	_, err := dm.LoadData(ctx, CollectionClients, false)
	require.NoError(t, err)

	var (
		calls     int
		reloadErr error
		seen      []int
	)
	_, err = dm.Subscribe(CollectionClients, func() {
		calls++
		seen = append(seen, len(dm.Clients.Get()))
		if calls == 1 {
			_, reloadErr = dm.InvalidateAndReload(ctx, CollectionClients)
		}
	})
	require.NoError(t, err)

	bia := newTestClient(t, "Bia")
	done := make(chan struct{})
	go func() {
		defer close(done)
		dm.Clients.Apply(OpAdd, bia, "")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Apply did not return while a listener reloaded the collection")
	}

	require.NoError(t, reloadErr)
	assert.Equal(t, 1, src.count(CollectionClients))
	assert.Equal(t, []int{2, 1}, seen, "the reload is delivered after the local add")
	assert.Len(t, dm.Clients.Get(), 1)

	dm.Clients.Apply(OpAdd, newTestClient(t, "Caio"), "")
	assert.Equal(t, 3, calls, "the collection keeps notifying afterwards")
}

func TestDataManager_ListenerCanMutateItsOwnCollection(t *testing.T) {
	dm := NewDataManager(newFakeSource())
	bia := newTestClient(t, "Bia")
	var trace []string
	_, err := dm.Subscribe(CollectionClients, func() {
		names := make([]string, 0)
		for _, c := range dm.Clients.Get() {
			names = append(names, c.Name)
		}
		trace = append(trace, fmt.Sprint(names))
		if len(names) == 1 {
			dm.Clients.Apply(OpAdd, bia, "")
			trace = append(trace, "nested returned")
		}
	})
	require.NoError(t, err)

	dm.Clients.Apply(OpAdd, newTestClient(t, "Ana"), "")

	assert.Equal(t, []string{"[Ana]", "nested returned", "[Bia Ana]"}, trace)
}

func TestDataManager_ListenersRunInRegistrationOrder(t *testing.T) {
	dm := NewDataManager(newFakeSource())

	var seen []int
	for i := range 3 {
		_, err := dm.Subscribe(CollectionOrders, func() { seen = append(seen, i) })
		require.NoError(t, err)
	}
	require.NoError(t, dm.UpdateLocalData(CollectionOrders, OpAdd, newTestOrder(t), ""))

	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestDataManager_PanickingListenerDoesNotStopOthers(t *testing.T) {
	dm := NewDataManager(newFakeSource())

	_, err := dm.Subscribe(CollectionClients, func() { panic("listener") })
	require.NoError(t, err)
	after := subscribeCounter(t, dm, CollectionClients)

	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpAdd, newTestClient(t, "Ana"), ""))
	assert.Equal(t, int32(1), after.Load())
}

func TestDataManager_SequentialForcedReloads(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana"), newTestClient(t, "Bia")}
	dm := NewDataManager(src)
	notified := subscribeCounter(t, dm, CollectionClients)
	ctx := context.Background()

	first, err := dm.InvalidateAndReload(ctx, CollectionClients)
	require.NoError(t, err)
	second, err := dm.InvalidateAndReload(ctx, CollectionClients)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), notified.Load())
	assert.Equal(t, 2, src.count(CollectionClients))
}

func TestDataManager_ForcedReloadDoesNotWaitForInFlight(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	release := src.block(CollectionClients)
	dm := NewDataManager(src)
	ctx := context.Background()

	slow := make(chan struct{})
	go func() {
		defer close(slow)
		_, _ = dm.LoadData(ctx, CollectionClients, false)
	}()
	<-src.started

	// unblock future fetches but keep the first one waiting on its gate
	src.mu.Lock()
	delete(src.gates, CollectionClients)
	src.mu.Unlock()

	v, err := dm.LoadData(ctx, CollectionClients, true)
	require.NoError(t, err)
	assert.Len(t, v, 1)
	assert.True(t, dm.IsLoading(CollectionClients))

	release()
	<-slow
	assert.False(t, dm.IsLoading(CollectionClients))
	assert.Equal(t, 2, src.count(CollectionClients))
}

func TestDataManager_InvalidateMultiple(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	src.orders = []*order.Order{newTestOrder(t)}
	dm := NewDataManager(src)

	results, err := dm.InvalidateMultiple(context.Background(), CollectionOrders, CollectionClients)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.IsType(t, []*order.Order{}, results[0])
	assert.IsType(t, []*client.Client{}, results[1])
}

func TestDataManager_InvalidateMultiplePartialFailure(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	src.fail(CollectionQuotes, errStoreDown)
	dm := NewDataManager(src)

	_, err := dm.InvalidateMultiple(context.Background(), CollectionClients, CollectionQuotes)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Contains(t, err.Error(), "reload quotes")
	assert.Len(t, dm.Clients.Get(), 1)
}

func TestDataManager_InvalidateMultipleUnknownCollection(t *testing.T) {
	src := newFakeSource()
	dm := NewDataManager(src)

	_, err := dm.InvalidateMultiple(context.Background(), CollectionClients, Collection("invoices"))
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.Equal(t, 0, src.count(CollectionClients))
}

func TestDataManager_InvalidateAll(t *testing.T) {
	src := newFakeSource()
	dm := NewDataManager(src)

	results, err := dm.InvalidateAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 4)
	for _, c := range AllCollections() {
		assert.Equal(t, 1, src.count(c), c)
	}
}

func TestDataManager_Reset(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	dm := NewDataManager(src)
	ctx := context.Background()

	_, err := dm.LoadData(ctx, CollectionClients, false)
	require.NoError(t, err)
	notified := subscribeCounter(t, dm, CollectionClients)
	oldUnsubscribe, err := dm.Subscribe(CollectionClients, func() {})
	require.NoError(t, err)

	dm.Reset()

	assert.Empty(t, dm.Clients.Get())
	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpAdd, newTestClient(t, "Bia"), ""))
	assert.Equal(t, int32(0), notified.Load())

	fresh := subscribeCounter(t, dm, CollectionClients)
	oldUnsubscribe()
	require.NoError(t, dm.UpdateLocalData(CollectionClients, OpAdd, newTestClient(t, "Caio"), ""))
	assert.Equal(t, int32(1), fresh.Load())
}

func TestDataManager_ResetDiscardsInFlightFetch(t *testing.T) {
	src := newFakeSource()
	src.clients = []*client.Client{newTestClient(t, "Ana")}
	release := src.block(CollectionClients)
	dm := NewDataManager(src)

	result := make(chan []*client.Client, 1)
	go func() {
		v, err := dm.Clients.Load(context.Background(), false)
		assert.NoError(t, err)
		result <- v
	}()
	<-src.started

	dm.Reset()
	assert.False(t, dm.IsLoading(CollectionClients))
	release()

	assert.Len(t, <-result, 1)
	assert.Empty(t, dm.Clients.Get())
}

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection("companySettings")
	require.NoError(t, err)
	assert.Equal(t, CollectionCompanySettings, c)

	_, err = ParseCollection("company_settings")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
