package models

import "time"

// Product represents a sellable item with a unit price
type Product struct {
	ID        ID        `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Price     Number    `json:"price"`
	Unit      string    `json:"unit"` // "Kg", "Pcs", etc.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
