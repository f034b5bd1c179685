package services

import (
	"strings"

	"PosLedger/app/database"
	"PosLedger/app/models"

	"gorm.io/gorm"
)

// SettingsService manages the singleton company configuration row
type SettingsService struct {
	local *database.LocalDB
	sync  *SyncService
}

// NewSettingsService creates a new settings service
func NewSettingsService(local *database.LocalDB, sync *SyncService) *SettingsService {
	return &SettingsService{local: local, sync: sync}
}

// GetSettings returns the company settings. The first row is authoritative;
// a missing row yields defaults so callers never see a not-found error.
func (s *SettingsService) GetSettings() (*models.Settings, error) {
	var settings models.Settings
	err := s.local.DB().Order("id").First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		return &models.Settings{ID: 1, CompanyName: "My Business", InvoiceStart: 10000}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings overwrites the settings row and mirrors it. The row keeps
// its identifier so every device converges on the same singleton document.
func (s *SettingsService) UpdateSettings(fields models.Settings) (*models.Settings, error) {
	if strings.TrimSpace(fields.CompanyName) == "" {
		return nil, NewValidationError("company name is required")
	}
	if fields.InvoiceStart < 0 {
		return nil, NewValidationError("invoice start cannot be negative")
	}

	var updated models.Settings
	err := s.local.Transaction(func(tx *gorm.DB) error {
		var existing models.Settings
		if err := tx.Order("id").First(&existing).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			existing = models.Settings{ID: 1}
		}

		fields.ID = existing.ID
		if fields.ID == 0 {
			fields.ID = 1
		}
		if err := tx.Save(&fields).Error; err != nil {
			return err
		}
		updated = fields
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.local.Publish(database.Event{Table: database.CollectionSettings, Action: "updated", ID: updated.ID})
	s.sync.PushUpsert(database.CollectionSettings, updated.ID, &updated)
	return &updated, nil
}
