package models

import "time"

// Settings is the singleton company configuration record. Exactly one row is
// expected; the first row is authoritative.
type Settings struct {
	ID           ID        `gorm:"primaryKey" json:"id"`
	CompanyName  string    `json:"companyName"`
	RegNum       string    `json:"regNum"`
	Desc1        string    `json:"desc1"`
	Desc2        string    `json:"desc2"`
	Contact      string    `json:"contact"`
	LogoLeft     string    `gorm:"type:text" json:"logoLeft,omitempty"`  // data URL
	LogoRight    string    `gorm:"type:text" json:"logoRight,omitempty"` // data URL
	InvoiceStart int64     `json:"invoiceStart"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
