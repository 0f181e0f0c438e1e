package repository

import (
	"context"

	"github.com/sangkips/storefront-api/internal/domain/entity"
)

// SettingsRepository defines the interface for store settings access
type SettingsRepository interface {
	// Get returns the settings row, nil when none was saved yet.
	Get(ctx context.Context) (*entity.StoreSettings, error)
	Save(ctx context.Context, settings *entity.StoreSettings) error
}
