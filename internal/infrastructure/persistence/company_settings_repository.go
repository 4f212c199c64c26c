package persistence

import (
	"context"
	"errors"

	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSettingsRepository implements SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the settings row, or nil when it was never saved
func (r *GormSettingsRepository) Get(ctx context.Context) (*company.Settings, error) {
	var model models.CompanySettingsModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", company.SettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the settings row
func (r *GormSettingsRepository) Save(ctx context.Context, s *company.Settings) error {
	model := models.CompanySettingsModelFromDomain(s)
	model.ID = company.SettingsID
	return r.db.WithContext(ctx).Save(model).Error
}

var _ company.SettingsRepository = (*GormSettingsRepository)(nil)
