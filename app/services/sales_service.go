package services

import (
	"fmt"

	"PosLedger/app/database"
	"PosLedger/app/ledger"
	"PosLedger/app/models"
	"PosLedger/app/timeutil"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// SalesService handles sales invoices. Totals are recomputed server-side on
// every write: the stored subtotal and grandTotal are caches of the line
// items, never trusted caller input.
type SalesService struct {
	local    *database.LocalDB
	sync     *SyncService
	settings *SettingsService
}

// NewSalesService creates a new sales service
func NewSalesService(local *database.LocalDB, sync *SyncService, settings *SettingsService) *SalesService {
	return &SalesService{local: local, sync: sync, settings: settings}
}

// GetSales returns sales, optionally filtered by customer and date range,
// newest first.
func (s *SalesService) GetSales(customerID models.ID, start, end string) ([]models.Sale, error) {
	query := s.local.DB().Order("date DESC, id DESC")
	if customerID != 0 {
		query = query.Where("customer_id = ?", customerID)
	}
	if start != "" {
		query = query.Where("date >= ?", timeutil.NormalizeDay(start))
	}
	if end != "" {
		query = query.Where("date <= ?", timeutil.NormalizeDay(end))
	}

	var sales []models.Sale
	err := query.Find(&sales).Error
	return sales, err
}

// GetSale returns one sale by ID
func (s *SalesService) GetSale(id models.ID) (*models.Sale, error) {
	var sale models.Sale
	if err := s.local.DB().First(&sale, id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// recomputeTotals normalizes the date and rebuilds the cached totals from the
// line items so subtotal and grandTotal always agree with the invoice lines.
func recomputeTotals(sale *models.Sale) {
	if sale.Date == "" {
		sale.Date = timeutil.Today()
	} else {
		sale.Date = timeutil.NormalizeDay(sale.Date)
	}

	subtotal := decimal.Zero
	for _, item := range sale.Items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.LineTotal()))
	}
	sale.Subtotal = models.Number(subtotal.InexactFloat64())
	sale.GrandTotal = models.Number(subtotal.
		Add(decimal.NewFromFloat(float64(sale.PrevBalance))).
		InexactFloat64())
}

func (s *SalesService) validateSale(tx *gorm.DB, sale *models.Sale) error {
	if sale.CustomerID == 0 {
		return NewValidationError("customer is required")
	}
	if len(sale.Items) == 0 {
		return NewValidationError("sale must have at least one item")
	}
	for _, item := range sale.Items {
		if item.Qty <= 0 {
			return NewValidationError("item quantity must be positive")
		}
		if item.Price < 0 {
			return NewValidationError("item price cannot be negative")
		}
	}
	if sale.PaidAmount < 0 {
		return NewValidationError("paid amount cannot be negative")
	}

	var count int64
	if err := tx.Model(&models.Customer{}).Where("id = ?", sale.CustomerID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewValidationError("customer does not exist")
	}
	return nil
}

// CreateSale stores a new invoice. The carried-forward balance is computed
// from the customer's ledger at creation time and frozen on the record, so
// later edits to history do not silently rewrite printed invoices.
func (s *SalesService) CreateSale(sale *models.Sale) error {
	err := s.local.Transaction(func(tx *gorm.DB) error {
		if err := s.validateSale(tx, sale); err != nil {
			return err
		}

		var sales []models.Sale
		if err := tx.Find(&sales).Error; err != nil {
			return err
		}
		var payments []models.Payment
		if err := tx.Find(&payments).Error; err != nil {
			return err
		}
		sale.PrevBalance = models.Number(ledger.OutstandingBalance(sale.CustomerID, sales, payments))

		recomputeTotals(sale)
		return tx.Create(sale).Error
	})
	if err != nil {
		return err
	}

	s.local.Publish(database.Event{Table: database.CollectionSales, Action: "created", ID: sale.ID})
	s.sync.PushUpsert(database.CollectionSales, sale.ID, sale)
	return nil
}

// UpdateSale overwrites an invoice's editable fields and rebuilds its totals.
// The frozen prevBalance is kept unless the caller explicitly supplies one.
func (s *SalesService) UpdateSale(id models.ID, fields models.Sale) (*models.Sale, error) {
	var updated models.Sale
	err := s.local.Transaction(func(tx *gorm.DB) error {
		var existing models.Sale
		if err := tx.First(&existing, id).Error; err != nil {
			return err
		}

		existing.CustomerID = fields.CustomerID
		existing.Date = fields.Date
		existing.Items = fields.Items
		existing.PaidAmount = fields.PaidAmount
		existing.Memo = fields.Memo
		if fields.PrevBalance != 0 {
			existing.PrevBalance = fields.PrevBalance
		}
		if err := s.validateSale(tx, &existing); err != nil {
			return err
		}

		recomputeTotals(&existing)
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.local.Publish(database.Event{Table: database.CollectionSales, Action: "updated", ID: updated.ID})
	s.sync.PushUpsert(database.CollectionSales, updated.ID, &updated)
	return &updated, nil
}

// DeleteSale removes an invoice locally and tombstones the remote copy
func (s *SalesService) DeleteSale(id models.ID) error {
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.Sale{}, id).Error
	}); err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionSales, Action: "deleted", ID: id})
	s.sync.PushDelete(database.CollectionSales, id)
	return nil
}

// InvoiceNumber derives the printed invoice number from the configured
// starting number: the first sale gets invoiceStart, the next one more.
func (s *SalesService) InvoiceNumber(sale *models.Sale) (int64, error) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		return 0, err
	}
	return settings.InvoiceStart + int64(sale.ID) - 1, nil
}

// InvoiceQR renders the invoice verification QR code as PNG bytes. The
// payload is a compact pipe-delimited summary a phone camera can show.
func (s *SalesService) InvoiceQR(id models.ID) ([]byte, error) {
	sale, err := s.GetSale(id)
	if err != nil {
		return nil, err
	}
	number, err := s.InvoiceNumber(sale)
	if err != nil {
		return nil, err
	}

	payload := fmt.Sprintf("INV-%d|%s|%.2f|%.2f",
		number, sale.Date, ledger.SaleGrandTotal(*sale), float64(sale.PaidAmount))
	return qrcode.Encode(payload, qrcode.Medium, 256)
}
