package services

import (
	"fmt"

	"PosLedger/app/database"
	"PosLedger/app/models"
	"PosLedger/app/timeutil"

	"gorm.io/gorm"
)

// PaymentService records money received from customers. Payments are always
// credited against the customer's running balance, never against a specific
// invoice.
type PaymentService struct {
	local *database.LocalDB
	sync  *SyncService
}

// NewPaymentService creates a new payment service
func NewPaymentService(local *database.LocalDB, sync *SyncService) *PaymentService {
	return &PaymentService{local: local, sync: sync}
}

// GetPayments returns payments, optionally filtered by customer and date
// range, newest first.
func (s *PaymentService) GetPayments(customerID models.ID, start, end string) ([]models.Payment, error) {
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

	var payments []models.Payment
	err := query.Find(&payments).Error
	return payments, err
}

// GetPayment returns one payment by ID
func (s *PaymentService) GetPayment(id models.ID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.local.DB().First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentService) validatePayment(tx *gorm.DB, payment *models.Payment) error {
	if payment.CustomerID == 0 {
		return NewValidationError("customer is required")
	}
	if payment.Amount <= 0 {
		return NewValidationError("payment amount must be positive")
	}

	var count int64
	if err := tx.Model(&models.Customer{}).Where("id = ?", payment.CustomerID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewValidationError("customer does not exist")
	}

	if payment.Date == "" {
		payment.Date = timeutil.Today()
	} else {
		payment.Date = timeutil.NormalizeDay(payment.Date)
	}
	return nil
}

// CreatePayment validates and stores a payment, then mirrors it
func (s *PaymentService) CreatePayment(payment *models.Payment) error {
	err := s.local.Transaction(func(tx *gorm.DB) error {
		if err := s.validatePayment(tx, payment); err != nil {
			return err
		}
		return tx.Create(payment).Error
	})
	if err != nil {
		return err
	}

	s.local.Publish(database.Event{Table: database.CollectionPayments, Action: "created", ID: payment.ID})
	s.sync.PushUpsert(database.CollectionPayments, payment.ID, payment)
	return nil
}

// UpdatePayment overwrites a payment and mirrors the full object
func (s *PaymentService) UpdatePayment(id models.ID, fields models.Payment) (*models.Payment, error) {
	var updated models.Payment
	err := s.local.Transaction(func(tx *gorm.DB) error {
		var existing models.Payment
		if err := tx.First(&existing, id).Error; err != nil {
			return err
		}

		existing.CustomerID = fields.CustomerID
		existing.Date = fields.Date
		existing.Amount = fields.Amount
		existing.Memo = fields.Memo
		if err := s.validatePayment(tx, &existing); err != nil {
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

	s.local.Publish(database.Event{Table: database.CollectionPayments, Action: "updated", ID: updated.ID})
	s.sync.PushUpsert(database.CollectionPayments, updated.ID, &updated)
	return &updated, nil
}

// DeletePayment removes a payment locally and tombstones the remote copy
func (s *PaymentService) DeletePayment(id models.ID) error {
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.Payment{}, id).Error
	}); err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionPayments, Action: "deleted", ID: id})
	s.sync.PushDelete(database.CollectionPayments, id)
	return nil
}
