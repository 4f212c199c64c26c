package company

import "context"

// SettingsRepository persists the single company settings record
type SettingsRepository interface {
	// Get returns nil, nil when settings were never saved
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}
