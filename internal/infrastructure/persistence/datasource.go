package persistence

import (
	"context"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"gorm.io/gorm"
)

// Repositories bundles the GORM repositories of every aggregate
type Repositories struct {
	Clients  *GormClientRepository
	Quotes   *GormQuoteRepository
	Orders   *GormOrderRepository
	Settings *GormSettingsRepository
	Users    *GormUserRepository
}

// NewRepositories creates all repositories on db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Clients:  NewGormClientRepository(db),
		Quotes:   NewGormQuoteRepository(db),
		Orders:   NewGormOrderRepository(db),
		Settings: NewGormSettingsRepository(db),
		Users:    NewGormUserRepository(db),
	}
}

// DataSource loads the cached collections from the repositories
type DataSource struct {
	clients  client.ClientRepository
	quotes   quote.QuoteRepository
	orders   order.OrderRepository
	settings company.SettingsRepository
}

// NewDataSource creates a cache source backed by the given repositories
func NewDataSource(clients client.ClientRepository, quotes quote.QuoteRepository, orders order.OrderRepository, settings company.SettingsRepository) *DataSource {
	return &DataSource{clients: clients, quotes: quotes, orders: orders, settings: settings}
}

// DataSource returns a cache source over these repositories
func (r *Repositories) DataSource() *DataSource {
	return NewDataSource(r.Clients, r.Quotes, r.Orders, r.Settings)
}

// FetchClients implements cache.Source
func (s *DataSource) FetchClients(ctx context.Context) ([]*client.Client, error) {
	return s.clients.FindAllNewestFirst(ctx)
}

// FetchQuotes implements cache.Source
func (s *DataSource) FetchQuotes(ctx context.Context) ([]*quote.Quote, error) {
	return s.quotes.FindAllNewestFirst(ctx)
}

// FetchOrders implements cache.Source
func (s *DataSource) FetchOrders(ctx context.Context) ([]*order.Order, error) {
	return s.orders.FindAllNewestFirst(ctx)
}

// FetchCompanySettings implements cache.Source
func (s *DataSource) FetchCompanySettings(ctx context.Context) (*company.Settings, error) {
	return s.settings.Get(ctx)
}

var _ cache.Source = (*DataSource)(nil)
