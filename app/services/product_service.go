package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"PosLedger/app/database"
	"PosLedger/app/models"

	"gorm.io/gorm"
)

// ProductService handles product catalog operations
type ProductService struct {
	local *database.LocalDB
	sync  *SyncService
}

// NewProductService creates a new product service
func NewProductService(local *database.LocalDB, sync *SyncService) *ProductService {
	return &ProductService{local: local, sync: sync}
}

// GetAllProducts returns every product ordered by name
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	var products []models.Product
	err := s.local.DB().Order("name").Find(&products).Error
	return products, err
}

// GetProduct returns one product by ID
func (s *ProductService) GetProduct(id models.ID) (*models.Product, error) {
	var product models.Product
	if err := s.local.DB().First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// SearchProducts filters products by name
func (s *ProductService) SearchProducts(query string) ([]models.Product, error) {
	var products []models.Product
	pattern := "%" + strings.TrimSpace(query) + "%"
	err := s.local.DB().Where("name LIKE ?", pattern).Order("name").Find(&products).Error
	return products, err
}

func validateProduct(product *models.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return NewValidationError("product name is required")
	}
	if product.Price < 0 {
		return NewValidationError("product price cannot be negative")
	}
	return nil
}

// CreateProduct validates and stores a product, then mirrors it
func (s *ProductService) CreateProduct(product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Create(product).Error
	}); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionProducts, Action: "created", ID: product.ID})
	s.sync.PushUpsert(database.CollectionProducts, product.ID, product)
	return nil
}

// UpdateProduct overwrites a product and mirrors the full object
func (s *ProductService) UpdateProduct(id models.ID, fields models.Product) (*models.Product, error) {
	var updated models.Product
	err := s.local.Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		if err := tx.First(&existing, id).Error; err != nil {
			return err
		}

		existing.Name = fields.Name
		existing.Price = fields.Price
		existing.Unit = fields.Unit
		if err := validateProduct(&existing); err != nil {
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

	s.local.Publish(database.Event{Table: database.CollectionProducts, Action: "updated", ID: updated.ID})
	s.sync.PushUpsert(database.CollectionProducts, updated.ID, &updated)
	return &updated, nil
}

// DeleteProduct removes a product. Historical sale lines keep their own unit
// and price, so past invoices are unaffected.
func (s *ProductService) DeleteProduct(id models.ID) error {
	if err := s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.Product{}, id).Error
	}); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.local.Publish(database.Event{Table: database.CollectionProducts, Action: "deleted", ID: id})
	s.sync.PushDelete(database.CollectionProducts, id)
	return nil
}

// ExportProducts serializes the catalog as a flat JSON array
func (s *ProductService) ExportProducts() ([]byte, error) {
	products, err := s.GetAllProducts()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(products, "", "  ")
}

// ImportProducts merges a flat JSON array by upsert-by-identifier
func (s *ProductService) ImportProducts(data []byte) (int, error) {
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, NewValidationError("invalid products file: expected a JSON array")
	}

	err := s.local.Transaction(func(tx *gorm.DB) error {
		for i := range products {
			if err := tx.Save(&products[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to import products: %w", err)
	}

	for i := range products {
		s.local.Publish(database.Event{Table: database.CollectionProducts, Action: "updated", ID: products[i].ID})
		s.sync.PushUpsert(database.CollectionProducts, products[i].ID, &products[i])
	}
	return len(products), nil
}
