package models

import "time"

// User represents an advisor account. Users are created lazily the first
// time an email shows up: either on first sign-in or when the first
// scheduling link is created for that address.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name,omitempty"`
	Image     string    `gorm:"size:512" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
