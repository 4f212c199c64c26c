package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Collection names one of the cached data sets
type Collection string

const (
	CollectionClients         Collection = "clients"
	CollectionQuotes          Collection = "quotes"
	CollectionOrders          Collection = "orders"
	CollectionCompanySettings Collection = "companySettings"
)

// AllCollections returns every collection in a stable order
func AllCollections() []Collection {
	return []Collection{CollectionClients, CollectionQuotes, CollectionOrders, CollectionCompanySettings}
}

// ParseCollection validates a collection name
func ParseCollection(name string) (Collection, error) {
	for _, c := range AllCollections() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// Errors returned by the name-based DataManager API
var (
	ErrUnknownCollection = shared.NewDomainError("UNKNOWN_COLLECTION", "Unknown cache collection")
	ErrItemType          = shared.NewDomainError("INVALID_CACHE_ITEM", "Item type does not match collection")
	ErrInvalidOperation  = shared.NewDomainError("INVALID_CACHE_OPERATION", "Unknown cache operation")
)

// Source is the store the DataManager loads collections from. Each method
// returns the full collection, newest first.
type Source interface {
	FetchClients(ctx context.Context) ([]*client.Client, error)
	FetchQuotes(ctx context.Context) ([]*quote.Quote, error)
	FetchOrders(ctx context.Context) ([]*order.Order, error)
	// FetchCompanySettings returns nil, nil when settings were never saved
	FetchCompanySettings(ctx context.Context) (*company.Settings, error)
}

// Recorder receives cache instrumentation events
type Recorder interface {
	FetchStarted(ctx context.Context, c Collection)
	FetchFinished(ctx context.Context, c Collection, elapsed time.Duration, err error)
	FetchDeduplicated(ctx context.Context, c Collection)
	Notified(ctx context.Context, c Collection, listeners int)
}

type nopRecorder struct{}

func (nopRecorder) FetchStarted(context.Context, Collection) {}
func (nopRecorder) FetchFinished(context.Context, Collection, time.Duration, error) {}
func (nopRecorder) FetchDeduplicated(context.Context, Collection) {}
func (nopRecorder) Notified(context.Context, Collection, int) {}

type options struct {
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a DataManager or a single collection
type Option func(*options)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the instrumentation recorder
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// collection is the type-erased view of a slot used by the name-based API
type collection interface {
	Subscribe(l Listener) func()
	IsLoading() bool
	load(ctx context.Context, force bool) (any, error)
	await(ctx context.Context) (any, error)
	get() any
	reset()
}

type listHandle[T any] struct{ *List[T] }

func (h listHandle[T]) load(ctx context.Context, force bool) (any, error) {
	return h.Load(ctx, force)
}

func (h listHandle[T]) await(ctx context.Context) (any, error) {
	return h.Await(ctx)
}

func (h listHandle[T]) get() any { return h.Get() }

type valueHandle[T any] struct{ *Value[T] }

func (h valueHandle[T]) load(ctx context.Context, force bool) (any, error) {
	return h.Load(ctx, force)
}

func (h valueHandle[T]) await(ctx context.Context) (any, error) {
	return h.Await(ctx)
}

func (h valueHandle[T]) get() any { return h.Get() }

// DataManager caches the clients, quotes, orders and company settings
// collections and notifies subscribers whenever one of them changes.
// It is safe for concurrent use.
type DataManager struct {
	Clients         *List[*client.Client]
	Quotes          *List[*quote.Quote]
	Orders          *List[*order.Order]
	CompanySettings *Value[*company.Settings]

	logger      *zap.Logger
	collections map[Collection]collection
}

// NewDataManager creates a DataManager that loads from source
func NewDataManager(source Source, opts ...Option) *DataManager {
	o := applyOptions(opts)
	logger := o.logger.Named("datamanager")
	opts = append(opts, WithLogger(logger))

	dm := &DataManager{
		Clients:         NewList(CollectionClients, source.FetchClients, clientKey, opts...),
		Quotes:          NewList(CollectionQuotes, source.FetchQuotes, quoteKey, opts...),
		Orders:          NewList(CollectionOrders, source.FetchOrders, orderKey, opts...),
		CompanySettings: NewValue(CollectionCompanySettings, source.FetchCompanySettings, opts...),
		logger:          logger,
	}
	dm.collections = map[Collection]collection{
		CollectionClients:         listHandle[*client.Client]{dm.Clients},
		CollectionQuotes:          listHandle[*quote.Quote]{dm.Quotes},
		CollectionOrders:          listHandle[*order.Order]{dm.Orders},
		CollectionCompanySettings: valueHandle[*company.Settings]{dm.CompanySettings},
	}
	return dm
}

func clientKey(c *client.Client) string { return c.ID.String() }
func quoteKey(q *quote.Quote) string { return q.ID.String() }
func orderKey(o *order.Order) string { return o.ID.String() }

func (dm *DataManager) lookup(c Collection) (collection, error) {
	h, ok := dm.collections[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return h, nil
}

// Subscribe registers l for changes of collection c
func (dm *DataManager) Subscribe(c Collection, l Listener) (func(), error) {
	h, err := dm.lookup(c)
	if err != nil {
		return nil, err
	}
	return h.Subscribe(l), nil
}

// GetData returns the current snapshot of c: a slice for list collections,
// a possibly nil pointer for company settings, nil for unknown names.
func (dm *DataManager) GetData(c Collection) any {
	h, err := dm.lookup(c)
	if err != nil {
		return nil
	}
	return h.get()
}

// IsLoading reports whether a fetch of c is in flight
func (dm *DataManager) IsLoading(c Collection) bool {
	h, err := dm.lookup(c)
	if err != nil {
		return false
	}
	return h.IsLoading()
}

// LoadData fetches c, or returns the current snapshot immediately when a
// fetch is already in flight and force is false.
func (dm *DataManager) LoadData(ctx context.Context, c Collection, force bool) (any, error) {
	h, err := dm.lookup(c)
	if err != nil {
		return nil, err
	}
	return h.load(ctx, force)
}

// Await waits for the fetch of c that is in flight, starting one when none
// is, and returns the fresh snapshot.
func (dm *DataManager) Await(ctx context.Context, c Collection) (any, error) {
	h, err := dm.lookup(c)
	if err != nil {
		return nil, err
	}
	return h.await(ctx)
}

// InvalidateAndReload always fetches c afresh
func (dm *DataManager) InvalidateAndReload(ctx context.Context, c Collection) (any, error) {
	return dm.LoadData(ctx, c, true)
}

// InvalidateMultiple reloads the collections concurrently and waits for all
// of them. It fails if any reload fails; reloads that succeeded are kept.
// Results are returned in argument order.
func (dm *DataManager) InvalidateMultiple(ctx context.Context, cs ...Collection) ([]any, error) {
	handles := make([]collection, len(cs))
	for i, c := range cs {
		h, err := dm.lookup(c)
		if err != nil {
			return nil, err
		}
		handles[i] = h
	}

	results := make([]any, len(cs))
	var g errgroup.Group
	for i, h := range handles {
		g.Go(func() error {
			v, err := h.load(ctx, true)
			if err != nil {
				return fmt.Errorf("reload %s: %w", cs[i], err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// InvalidateAll reloads every collection
func (dm *DataManager) InvalidateAll(ctx context.Context) ([]any, error) {
	return dm.InvalidateMultiple(ctx, AllCollections()...)
}

// UpdateLocalData mutates the snapshot of c without contacting the store and
// notifies subscribers. For company settings op is ignored and item replaces
// the value. Errors only report an unknown collection or a mistyped item.
func (dm *DataManager) UpdateLocalData(c Collection, op Operation, item any, itemID string) error {
	switch c {
	case CollectionClients:
		return applyTyped(dm.Clients, op, item, itemID)
	case CollectionQuotes:
		return applyTyped(dm.Quotes, op, item, itemID)
	case CollectionOrders:
		return applyTyped(dm.Orders, op, item, itemID)
	case CollectionCompanySettings:
		if item == nil {
			dm.CompanySettings.Set(nil)
			return nil
		}
		s, ok := item.(*company.Settings)
		if !ok {
			return fmt.Errorf("%w: %s expects *company.Settings, got %T", ErrItemType, c, item)
		}
		dm.CompanySettings.Set(s)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}

func applyTyped[T any](l *List[T], op Operation, item any, itemID string) error {
	if !op.IsValid() {
		return fmt.Errorf("%w: %q on %s", ErrInvalidOperation, op, l.Name())
	}
	var typed T
	if item != nil {
		v, ok := item.(T)
		if !ok {
			return fmt.Errorf("%w: %s expects %T, got %T", ErrItemType, l.Name(), typed, item)
		}
		typed = v
	} else if op != OpDelete {
		return fmt.Errorf("%w: %s %s requires an item", ErrItemType, l.Name(), op)
	}
	l.Apply(op, typed, itemID)
	return nil
}

// Reset returns every collection to its initial empty state and drops all
// subscribers. Fetches already in flight complete but are discarded.
func (dm *DataManager) Reset() {
	for _, c := range AllCollections() {
		dm.collections[c].reset()
	}
	dm.logger.Info("Data manager reset")
}
