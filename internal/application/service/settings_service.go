package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
)

// SettingsService handles the store header and receipt QR link
type SettingsService struct {
	settingsRepo repository.SettingsRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// GetSettings returns the store settings, defaults when none were saved
func (s *SettingsService) GetSettings(ctx context.Context) (*entity.StoreSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &entity.StoreSettings{ReceiptQRURL: entity.DefaultReceiptQRURL}
	}
	if settings.ReceiptQRURL == "" {
		settings.ReceiptQRURL = entity.DefaultReceiptQRURL
	}
	return settings, nil
}

// UpdateSettingsInput represents the input for updating settings. Nil fields
// are left unchanged.
type UpdateSettingsInput struct {
	StoreName    *string
	StoreAddress *string
	StorePhone   *string
	ReceiptQRURL *string
}

// UpdateSettings updates the store settings
func (s *SettingsService) UpdateSettings(ctx context.Context, actor Actor, input *UpdateSettingsInput) (*entity.StoreSettings, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can change settings")
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &entity.StoreSettings{}
	}

	if input.ReceiptQRURL != nil {
		raw := strings.TrimSpace(*input.ReceiptQRURL)
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperror.NewFieldError("receipt_qr_url", "Must be an absolute http(s) URL")
		}
		settings.ReceiptQRURL = raw
	}
	if input.StoreName != nil {
		settings.StoreName = strings.TrimSpace(*input.StoreName)
	}
	if input.StoreAddress != nil {
		settings.StoreAddress = strings.TrimSpace(*input.StoreAddress)
	}
	if input.StorePhone != nil {
		settings.StorePhone = strings.TrimSpace(*input.StorePhone)
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
