package models

import "time"

// Vendor represents a supplier the business purchases from
type Vendor struct {
	ID        ID        `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VendorBill represents an expense owed to a vendor. Bills are not linked to
// products; only the total matters for daily profit.
type VendorBill struct {
	ID        ID        `gorm:"primaryKey" json:"id"`
	VendorID  ID        `gorm:"index" json:"vendorId"`
	Date      string    `gorm:"index" json:"date"` // YYYY-MM-DD
	Total     Number    `json:"total"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
