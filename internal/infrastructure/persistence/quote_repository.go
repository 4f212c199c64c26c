package persistence

import (
	"context"
	"errors"

	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormQuoteRepository implements QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

func preloadQuoteItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID finds a quote with its items
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := preloadQuoteItems(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllNewestFirst returns every quote with items, newest first
func (r *GormQuoteRepository) FindAllNewestFirst(ctx context.Context) ([]*quote.Quote, error) {
	return r.find(preloadQuoteItems(r.db.WithContext(ctx)))
}

// FindByClient returns the quotes of one client, newest first
func (r *GormQuoteRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]*quote.Quote, error) {
	return r.find(preloadQuoteItems(r.db.WithContext(ctx)).Where("client_id = ?", clientID))
}

func (r *GormQuoteRepository) find(query *gorm.DB) ([]*quote.Quote, error) {
	var quoteModels []models.QuoteModel
	if err := query.Order("created_at DESC, id DESC").Find(&quoteModels).Error; err != nil {
		return nil, err
	}
	quotes := make([]*quote.Quote, len(quoteModels))
	for i := range quoteModels {
		quotes[i] = quoteModels[i].ToDomain()
	}
	return quotes, nil
}

// Save upserts the quote and replaces its items in one transaction
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	model := models.QuoteModelFromDomain(q)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", q.ID).Delete(&models.QuoteItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
}

// Delete removes a quote and its items
func (r *GormQuoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.QuoteModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

var _ quote.QuoteRepository = (*GormQuoteRepository)(nil)
