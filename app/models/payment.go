package models

import "time"

// Payment represents money received from a customer, credited against their
// outstanding balance. Amount must be positive.
type Payment struct {
	ID         ID        `gorm:"primaryKey" json:"id"`
	CustomerID ID        `gorm:"index" json:"customerId"`
	Date       string    `gorm:"index" json:"date"` // YYYY-MM-DD
	Amount     Number    `json:"amount"`
	Memo       string    `json:"memo,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
