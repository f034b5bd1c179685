package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Sale represents a sales invoice. Items are embedded in the sale document,
// not stored as standalone rows, matching the mirrored cloud document shape.
type Sale struct {
	ID          ID        `gorm:"primaryKey" json:"id"`
	Date        string    `gorm:"index" json:"date"` // YYYY-MM-DD
	CustomerID  ID        `gorm:"index" json:"customerId"`
	Items       SaleItems `gorm:"type:text" json:"items"`
	Subtotal    Number    `json:"subtotal"`
	PrevBalance Number    `json:"prevBalance"`
	Memo        string    `json:"memo,omitempty"` // carried-balance memo shown on the invoice
	PaidAmount  Number    `json:"paidAmount"`
	GrandTotal  Number    `json:"grandTotal"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SaleItem is one invoice line
type SaleItem struct {
	ProductID ID     `json:"productId"`
	Qty       Number `json:"qty"`
	Unit      string `json:"unit"`
	Price     Number `json:"price"`
	Discount  Number `json:"discount,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

// LineTotal returns qty*price - discount
func (i SaleItem) LineTotal() float64 {
	return float64(i.Qty)*float64(i.Price) - float64(i.Discount)
}

// SaleItems is stored as a JSON text column
type SaleItems []SaleItem

// Value serializes the items for storage
func (s SaleItems) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan deserializes the items from storage
func (s *SaleItems) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported sale items column type %T", value)
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, s)
}
