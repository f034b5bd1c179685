package models

import "time"

// User represents a login account. Passwords are stored bcrypt-hashed and the
// table is never mirrored to the cloud store.
type User struct {
	ID        ID        `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `json:"-"` // bcrypt hash
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
