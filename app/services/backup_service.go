package services

import (
	"encoding/json"
	"fmt"
	"time"

	"PosLedger/app/database"
	"PosLedger/app/models"
	"PosLedger/app/security"

	"gorm.io/gorm"
)

// Backup is the full-database export document. Version 2 added vendors,
// vendor bills and payments; version 1 files carried only the first four
// collections. Users are deliberately absent: credentials never leave the
// device.
type Backup struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	Customers   []models.Customer   `json:"customers"`
	Products    []models.Product    `json:"products"`
	Sales       []models.Sale       `json:"sales"`
	Settings    []models.Settings   `json:"settings"`
	Vendors     []models.Vendor     `json:"vendors,omitempty"`
	VendorBills []models.VendorBill `json:"vendorBills,omitempty"`
	Payments    []models.Payment    `json:"payments,omitempty"`
}

// BackupService exports and restores the whole local database as one JSON
// document, optionally sealed with the device's backup key.
type BackupService struct {
	local  *database.LocalDB
	sync   *SyncService
	keyDir string
}

// NewBackupService creates a new backup service. keyDir holds the encryption
// key for sealed exports.
func NewBackupService(local *database.LocalDB, sync *SyncService, keyDir string) *BackupService {
	return &BackupService{local: local, sync: sync, keyDir: keyDir}
}

// Export serializes every business collection into one backup document
func (s *BackupService) Export() ([]byte, error) {
	backup := Backup{Version: 2, Timestamp: time.Now()}

	db := s.local.DB()
	if err := db.Find(&backup.Customers).Error; err != nil {
		return nil, err
	}
	if err := db.Find(&backup.Products).Error; err != nil {
		return nil, err
	}
	if err := db.Find(&backup.Sales).Error; err != nil {
		return nil, err
	}
	if err := db.Find(&backup.Settings).Error; err != nil {
		return nil, err
	}
	if err := db.Find(&backup.Vendors).Error; err != nil {
		return nil, err
	}
	if err := db.Find(&backup.VendorBills).Error; err != nil {
		return nil, err
	}
	if err := db.Find(&backup.Payments).Error; err != nil {
		return nil, err
	}

	return json.MarshalIndent(&backup, "", "  ")
}

// ExportEncrypted serializes the backup and seals it with the device key
func (s *BackupService) ExportEncrypted() ([]byte, error) {
	data, err := s.Export()
	if err != nil {
		return nil, err
	}
	key, err := security.LoadOrCreateKey(s.keyDir)
	if err != nil {
		return nil, err
	}
	return security.Encrypt(key, data)
}

// ImportResult counts what a restore touched
type ImportResult struct {
	Version int `json:"version"`
	Rows    int `json:"rows"`
}

// Import merges a backup into the local database: every row in the file is
// upserted by identifier, rows absent from the file are left alone. The whole
// merge is one transaction; afterwards each restored row is pushed so the
// remote mirror converges on the restored data. Version 1 files restore
// without the collections they predate.
func (s *BackupService) Import(data []byte) (*ImportResult, error) {
	if security.IsEncrypted(data) {
		key, err := security.LoadOrCreateKey(s.keyDir)
		if err != nil {
			return nil, err
		}
		data, err = security.Decrypt(key, data)
		if err != nil {
			return nil, NewValidationError("cannot decrypt backup: wrong device or corrupt file")
		}
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, NewValidationError("invalid backup file: not a JSON backup document")
	}
	if backup.Version == 0 {
		backup.Version = 1
	}
	if backup.Version > 2 {
		return nil, NewValidationError(fmt.Sprintf("unsupported backup version %d", backup.Version))
	}

	rows := 0
	err := s.local.Transaction(func(tx *gorm.DB) error {
		for i := range backup.Customers {
			if err := tx.Save(&backup.Customers[i]).Error; err != nil {
				return err
			}
			rows++
		}
		for i := range backup.Products {
			if err := tx.Save(&backup.Products[i]).Error; err != nil {
				return err
			}
			rows++
		}
		for i := range backup.Sales {
			if err := tx.Save(&backup.Sales[i]).Error; err != nil {
				return err
			}
			rows++
		}
		for i := range backup.Settings {
			if err := tx.Save(&backup.Settings[i]).Error; err != nil {
				return err
			}
			rows++
		}
		for i := range backup.Vendors {
			if err := tx.Save(&backup.Vendors[i]).Error; err != nil {
				return err
			}
			rows++
		}
		for i := range backup.VendorBills {
			if err := tx.Save(&backup.VendorBills[i]).Error; err != nil {
				return err
			}
			rows++
		}
		for i := range backup.Payments {
			if err := tx.Save(&backup.Payments[i]).Error; err != nil {
				return err
			}
			rows++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import backup: %w", err)
	}

	s.pushRestored(&backup)
	return &ImportResult{Version: backup.Version, Rows: rows}, nil
}

// pushRestored mirrors every restored row and notifies local observers
func (s *BackupService) pushRestored(backup *Backup) {
	for i := range backup.Customers {
		row := &backup.Customers[i]
		s.local.Publish(database.Event{Table: database.CollectionCustomers, Action: "updated", ID: row.ID})
		s.sync.PushUpsert(database.CollectionCustomers, row.ID, row)
	}
	for i := range backup.Products {
		row := &backup.Products[i]
		s.local.Publish(database.Event{Table: database.CollectionProducts, Action: "updated", ID: row.ID})
		s.sync.PushUpsert(database.CollectionProducts, row.ID, row)
	}
	for i := range backup.Sales {
		row := &backup.Sales[i]
		s.local.Publish(database.Event{Table: database.CollectionSales, Action: "updated", ID: row.ID})
		s.sync.PushUpsert(database.CollectionSales, row.ID, row)
	}
	for i := range backup.Settings {
		row := &backup.Settings[i]
		s.local.Publish(database.Event{Table: database.CollectionSettings, Action: "updated", ID: row.ID})
		s.sync.PushUpsert(database.CollectionSettings, row.ID, row)
	}
	for i := range backup.Vendors {
		row := &backup.Vendors[i]
		s.local.Publish(database.Event{Table: database.CollectionVendors, Action: "updated", ID: row.ID})
		s.sync.PushUpsert(database.CollectionVendors, row.ID, row)
	}
	for i := range backup.VendorBills {
		row := &backup.VendorBills[i]
		s.local.Publish(database.Event{Table: database.CollectionVendorBills, Action: "updated", ID: row.ID})
		s.sync.PushUpsert(database.CollectionVendorBills, row.ID, row)
	}
	for i := range backup.Payments {
		row := &backup.Payments[i]
		s.local.Publish(database.Event{Table: database.CollectionPayments, Action: "updated", ID: row.ID})
		s.sync.PushUpsert(database.CollectionPayments, row.ID, row)
	}
}
