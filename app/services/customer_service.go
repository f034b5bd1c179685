package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"PosLedger/app/database"
	"PosLedger/app/ledger"
	"PosLedger/app/models"

	"gorm.io/gorm"
)

// CustomerService handles customer operations. Every mutation is two explicit
// steps: the local transactional write, then the remote push. The push never
// affects the outcome of the local write.
type CustomerService struct {
	local *database.LocalDB
	sync  *SyncService
}

// NewCustomerService creates a new customer service
func NewCustomerService(local *database.LocalDB, sync *SyncService) *CustomerService {
	return &CustomerService{local: local, sync: sync}
}

// GetAllCustomers returns every customer ordered by name
func (s *CustomerService) GetAllCustomers() ([]models.Customer, error) {
	var customers []models.Customer
	err := s.local.DB().Order("name").Find(&customers).Error
	return customers, err
}

// GetCustomer returns one customer by ID
func (s *CustomerService) GetCustomer(id models.ID) (*models.Customer, error) {
	var customer models.Customer
	if err := s.local.DB().First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// SearchCustomers filters customers by name or contact
func (s *CustomerService) SearchCustomers(query string) ([]models.Customer, error) {
	var customers []models.Customer
	pattern := "%" + strings.TrimSpace(query) + "%"
	err := s.local.DB().
		Where("name LIKE ? OR contact LIKE ?", pattern, pattern).
		Order("name").
		Find(&customers).Error
	return customers, err
}

func validateCustomer(customer *models.Customer) error {
	if strings.TrimSpace(customer.Name) == "" {
		return NewValidationError("customer name is required")
	}
	if strings.TrimSpace(customer.Contact) == "" {
		return NewValidationError("customer contact is required")
	}
	return nil
}

// CreateCustomer validates and stores a customer, then mirrors it
func (s *CustomerService) CreateCustomer(customer *models.Customer) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Create(customer).Error
	}); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionCustomers, Action: "created", ID: customer.ID})
	s.sync.PushUpsert(database.CollectionCustomers, customer.ID, customer)
	return nil
}

// UpdateCustomer overwrites a customer. The stored row is loaded first so the
// remote push always carries the complete object even when the caller sent a
// partial field set.
func (s *CustomerService) UpdateCustomer(id models.ID, fields models.Customer) (*models.Customer, error) {
	var updated models.Customer
	err := s.local.Transaction(func(tx *gorm.DB) error {
		var existing models.Customer
		if err := tx.First(&existing, id).Error; err != nil {
			return err
		}

		existing.Name = fields.Name
		existing.Contact = fields.Contact
		existing.Email = fields.Email
		existing.Address = fields.Address
		if err := validateCustomer(&existing); err != nil {
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

	s.local.Publish(database.Event{Table: database.CollectionCustomers, Action: "updated", ID: updated.ID})
	s.sync.PushUpsert(database.CollectionCustomers, updated.ID, &updated)
	return &updated, nil
}

// DeleteCustomer removes a customer locally and tombstones the remote copy
func (s *CustomerService) DeleteCustomer(id models.ID) error {
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.Customer{}, id).Error
	}); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionCustomers, Action: "deleted", ID: id})
	s.sync.PushDelete(database.CollectionCustomers, id)
	return nil
}

// OutstandingBalance computes what the customer currently owes from full
// sales and payments snapshots.
func (s *CustomerService) OutstandingBalance(customerID models.ID) (float64, error) {
	sales, err := s.local.AllSales()
	if err != nil {
		return 0, err
	}
	payments, err := s.local.AllPayments()
	if err != nil {
		return 0, err
	}
	return ledger.OutstandingBalance(customerID, sales, payments), nil
}

// CustomerStatement is a customer's ledger view
type CustomerStatement struct {
	Customer    models.Customer `json:"customer"`
	Outstanding float64         `json:"outstanding"`
	Entries     []ledger.Entry  `json:"entries"`
}

// Statement returns the customer's outstanding balance and transaction
// history, optionally limited to a date range. The history shows invoice
// grand totals; the outstanding figure is always computed over the full
// history regardless of the range.
func (s *CustomerService) Statement(customerID models.ID, start, end string) (*CustomerStatement, error) {
	customer, err := s.GetCustomer(customerID)
	if err != nil {
		return nil, err
	}

	sales, err := s.local.AllSales()
	if err != nil {
		return nil, err
	}
	payments, err := s.local.AllPayments()
	if err != nil {
		return nil, err
	}

	return &CustomerStatement{
		Customer:    *customer,
		Outstanding: ledger.OutstandingBalance(customerID, sales, payments),
		Entries:     ledger.TransactionHistory(customerID, sales, payments, start, end),
	}, nil
}

// ExportCustomers serializes every customer as a flat JSON array
func (s *CustomerService) ExportCustomers() ([]byte, error) {
	customers, err := s.GetAllCustomers()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(customers, "", "  ")
}

// ImportCustomers merges a flat JSON array by upsert-by-identifier. Rows
// without an identifier are created fresh. Every merged row is pushed so the
// remote converges on the imported data.
func (s *CustomerService) ImportCustomers(data []byte) (int, error) {
	var customers []models.Customer
	if err := json.Unmarshal(data, &customers); err != nil {
		return 0, NewValidationError("invalid customers file: expected a JSON array")
	}

	err := s.local.Transaction(func(tx *gorm.DB) error {
		for i := range customers {
			if err := tx.Save(&customers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to import customers: %w", err)
	}

	for i := range customers {
		s.local.Publish(database.Event{Table: database.CollectionCustomers, Action: "updated", ID: customers[i].ID})
		s.sync.PushUpsert(database.CollectionCustomers, customers[i].ID, &customers[i])
	}
	return len(customers), nil
}
