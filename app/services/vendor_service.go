package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"PosLedger/app/database"
	"PosLedger/app/models"
	"PosLedger/app/timeutil"

	"gorm.io/gorm"
)

// VendorService handles vendors and their bills
type VendorService struct {
	local *database.LocalDB
	sync  *SyncService
}

// NewVendorService creates a new vendor service
func NewVendorService(local *database.LocalDB, sync *SyncService) *VendorService {
	return &VendorService{local: local, sync: sync}
}

// GetAllVendors returns every vendor ordered by name
func (s *VendorService) GetAllVendors() ([]models.Vendor, error) {
	var vendors []models.Vendor
	err := s.local.DB().Order("name").Find(&vendors).Error
	return vendors, err
}

// GetVendor returns one vendor by ID
func (s *VendorService) GetVendor(id models.ID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := s.local.DB().First(&vendor, id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func validateVendor(vendor *models.Vendor) error {
	if strings.TrimSpace(vendor.Name) == "" {
		return NewValidationError("vendor name is required")
	}
	return nil
}

// CreateVendor validates and stores a vendor, then mirrors it
func (s *VendorService) CreateVendor(vendor *models.Vendor) error {
	if err := validateVendor(vendor); err != nil {
		return err
	}
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Create(vendor).Error
	}); err != nil {
		return fmt.Errorf("failed to save vendor: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionVendors, Action: "created", ID: vendor.ID})
	s.sync.PushUpsert(database.CollectionVendors, vendor.ID, vendor)
	return nil
}

// UpdateVendor overwrites a vendor and mirrors the full object
func (s *VendorService) UpdateVendor(id models.ID, fields models.Vendor) (*models.Vendor, error) {
	var updated models.Vendor
	err := s.local.Transaction(func(tx *gorm.DB) error {
		var existing models.Vendor
		if err := tx.First(&existing, id).Error; err != nil {
			return err
		}

		existing.Name = fields.Name
		existing.Contact = fields.Contact
		existing.Email = fields.Email
		existing.Address = fields.Address
		if err := validateVendor(&existing); err != nil {
			return err
		}
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.local.Publish(database.Event{Table: database.CollectionVendors, Action: "updated", ID: updated.ID})
	s.sync.PushUpsert(database.CollectionVendors, updated.ID, &updated)
	return &updated, nil
}

// DeleteVendor removes a vendor. Its bills are kept; they still count toward
// daily profit history.
func (s *VendorService) DeleteVendor(id models.ID) error {
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.Vendor{}, id).Error
	}); err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionVendors, Action: "deleted", ID: id})
	s.sync.PushDelete(database.CollectionVendors, id)
	return nil
}

// ExportVendors serializes every vendor as a flat JSON array
func (s *VendorService) ExportVendors() ([]byte, error) {
	vendors, err := s.GetAllVendors()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(vendors, "", "  ")
}

// ImportVendors merges a flat JSON array by upsert-by-identifier
func (s *VendorService) ImportVendors(data []byte) (int, error) {
	var vendors []models.Vendor
	if err := json.Unmarshal(data, &vendors); err != nil {
		return 0, NewValidationError("invalid vendors file: expected a JSON array")
	}

	err := s.local.Transaction(func(tx *gorm.DB) error {
		for i := range vendors {
			if err := tx.Save(&vendors[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to import vendors: %w", err)
	}

	for i := range vendors {
		s.local.Publish(database.Event{Table: database.CollectionVendors, Action: "updated", ID: vendors[i].ID})
		s.sync.PushUpsert(database.CollectionVendors, vendors[i].ID, &vendors[i])
	}
	return len(vendors), nil
}

// GetVendorBills returns bills, optionally filtered by vendor and date range,
// newest first.
func (s *VendorService) GetVendorBills(vendorID models.ID, start, end string) ([]models.VendorBill, error) {
	query := s.local.DB().Order("date DESC, id DESC")
	if vendorID != 0 {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if start != "" {
		query = query.Where("date >= ?", timeutil.NormalizeDay(start))
	}
	if end != "" {
		query = query.Where("date <= ?", timeutil.NormalizeDay(end))
	}

	var bills []models.VendorBill
	err := query.Find(&bills).Error
	return bills, err
}

func (s *VendorService) validateBill(tx *gorm.DB, bill *models.VendorBill) error {
	if bill.VendorID == 0 {
		return NewValidationError("vendor is required")
	}
	if bill.Total <= 0 {
		return NewValidationError("bill total must be positive")
	}

	var count int64
	if err := tx.Model(&models.Vendor{}).Where("id = ?", bill.VendorID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewValidationError("vendor does not exist")
	}

	if bill.Date == "" {
		bill.Date = timeutil.Today()
	} else {
		bill.Date = timeutil.NormalizeDay(bill.Date)
	}
	return nil
}

// CreateVendorBill validates and stores a bill, then mirrors it
func (s *VendorService) CreateVendorBill(bill *models.VendorBill) error {
	err := s.local.Transaction(func(tx *gorm.DB) error {
		if err := s.validateBill(tx, bill); err != nil {
			return err
		}
		return tx.Create(bill).Error
	})
	if err != nil {
		return err
	}

	s.local.Publish(database.Event{Table: database.CollectionVendorBills, Action: "created", ID: bill.ID})
	s.sync.PushUpsert(database.CollectionVendorBills, bill.ID, bill)
	return nil
}

// UpdateVendorBill overwrites a bill and mirrors the full object
func (s *VendorService) UpdateVendorBill(id models.ID, fields models.VendorBill) (*models.VendorBill, error) {
	var updated models.VendorBill
	err := s.local.Transaction(func(tx *gorm.DB) error {
		var existing models.VendorBill
		if err := tx.First(&existing, id).Error; err != nil {
			return err
		}

		existing.VendorID = fields.VendorID
		existing.Date = fields.Date
		existing.Total = fields.Total
		existing.Memo = fields.Memo
		if err := s.validateBill(tx, &existing); err != nil {
			return err
		}
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.local.Publish(database.Event{Table: database.CollectionVendorBills, Action: "updated", ID: updated.ID})
	s.sync.PushUpsert(database.CollectionVendorBills, updated.ID, &updated)
	return &updated, nil
}

// DeleteVendorBill removes a bill locally and tombstones the remote copy
func (s *VendorService) DeleteVendorBill(id models.ID) error {
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.VendorBill{}, id).Error
	}); err != nil {
		return fmt.Errorf("failed to delete vendor bill: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionVendorBills, Action: "deleted", ID: id})
	s.sync.PushDelete(database.CollectionVendorBills, id)
	return nil
}
