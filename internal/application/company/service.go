package company

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxLogoSize is the largest accepted logo upload
const MaxLogoSize = 2 << 20

// logoURLExpiry bounds the presigned logo URL returned with the settings
const logoURLExpiry = 15 * time.Minute

var logoExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Errors returned by the settings service
var (
	ErrSettingsNotConfigured = shared.NewDomainError("NOT_FOUND", "Company settings have not been configured")
	ErrStorageDisabled       = shared.NewDomainError("STORAGE_DISABLED", "Object storage is not configured")
	ErrUnsupportedLogo       = shared.NewDomainError("INVALID_LOGO", "Logo must be a PNG, JPEG, WebP or SVG image")
	ErrLogoTooLarge          = shared.NewDomainError("INVALID_LOGO", "Logo cannot exceed 2 MB")
)

// CompanyService manages the single company settings record
type CompanyService struct {
	settingsRepo   company.SettingsRepository
	cache          *cache.DataManager
	storage        storage.ObjectStorage
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCompanyService creates a new CompanyService. objects may be nil when
// object storage is disabled; logo uploads are then rejected.
func NewCompanyService(settingsRepo company.SettingsRepository, dm *cache.DataManager, objects storage.ObjectStorage, logger *zap.Logger) *CompanyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyService{
		settingsRepo: settingsRepo,
		cache:        dm,
		storage:      objects,
		logger:       logger.Named("company-service"),
	}
}

// SetEventPublisher sets the publisher that receives confirmed changes
func (s *CompanyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Get returns the cached settings with a temporary logo URL when available
func (s *CompanyService) Get(ctx context.Context) (*SettingsResponse, error) {
	settings, err := s.cache.CompanySettings.Current(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, ErrSettingsNotConfigured
	}
	return s.respond(ctx, settings), nil
}

// Update creates or replaces the company profile
func (s *CompanyService) Update(ctx context.Context, req UpdateSettingsRequest) (*SettingsResponse, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings, err = company.NewSettings(req.profile())
	} else {
		err = settings.Update(req.profile())
	}
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, settings); err != nil {
		return nil, err
	}
	return s.respond(ctx, settings), nil
}

// UploadLogo stores a new logo and records its key. The previous logo is
// removed once the settings are saved.
func (s *CompanyService) UploadLogo(ctx context.Context, contentType string, data []byte) (*SettingsResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := logoExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedLogo
	}
	if len(data) == 0 || len(data) > MaxLogoSize {
		return nil, ErrLogoTooLarge
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, ErrSettingsNotConfigured
	}

	key := path.Join("company", "logo-"+uuid.NewString()+ext)
	if err := s.storage.Put(ctx, key, data, contentType); err != nil {
		return nil, err
	}

	previous := settings.LogoKey
	settings.SetLogo(key)
	if err := s.persist(ctx, settings); err != nil {
		s.removeObject(ctx, key)
		return nil, err
	}
	if previous != "" {
		s.removeObject(ctx, previous)
	}

	s.logger.Info("Company logo updated", zap.String("key", key), zap.Int("bytes", len(data)))
	return s.respond(ctx, settings), nil
}

// Logo returns the stored logo, or nil when none was uploaded or storage is
// disabled
func (s *CompanyService) Logo(ctx context.Context) (*storage.Object, error) {
	settings, err := s.cache.CompanySettings.Current(ctx)
	if err != nil {
		return nil, err
	}
	if s.storage == nil || settings == nil || !settings.HasLogo() {
		return nil, nil
	}
	return s.storage.Get(ctx, settings.LogoKey)
}

func (s *CompanyService) persist(ctx context.Context, settings *company.Settings) error {
	m := s.cache.CompanySettings.Optimistic(settings)
	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		m.Rollback()
		return err
	}
	m.Commit()

	defer settings.ClearDomainEvents()
	if s.eventPublisher == nil {
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, settings.GetDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish settings events", zap.Error(err))
	}
	return nil
}

func (s *CompanyService) respond(ctx context.Context, settings *company.Settings) *SettingsResponse {
	response := ToSettingsResponse(settings)
	if s.storage == nil || !settings.HasLogo() {
		return &response
	}
	url, expires, err := s.storage.DownloadURL(ctx, settings.LogoKey, logoURLExpiry)
	if err != nil {
		s.logger.Warn("Failed to sign logo URL", zap.String("key", settings.LogoKey), zap.Error(err))
		return &response
	}
	response.LogoURL = url
	response.LogoExpiresAt = &expires
	return &response
}

func (s *CompanyService) removeObject(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete stored logo", zap.String("key", key), zap.Error(err))
	}
}
