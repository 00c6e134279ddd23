package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnswerMap maps a custom question's stable ID to the client's free-text
// answer. Stored as a JSON text column.
type AnswerMap map[string]string

// Value implements driver.Valuer.
func (a AnswerMap) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *AnswerMap) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for answers", src)
	}
	if len(data) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(data, a)
}

// Meeting is a single confirmed booking made through a scheduling link.
// Meetings are immutable once created.
type Meeting struct {
	ID     string         `gorm:"primaryKey;size:36" json:"id"`
	LinkID string         `gorm:"index;size:36;not null" json:"link_id"`
	Link   SchedulingLink `gorm:"foreignKey:LinkID" json:"link,omitempty"`

	ClientName  string `gorm:"size:255;not null" json:"client_name"`
	ClientEmail string `gorm:"size:255;not null" json:"client_email"`

	// ProfileURL is the attendee's external profile (e.g. LinkedIn).
	ProfileURL string `gorm:"size:512" json:"profile_url,omitempty"`

	// Date is the calendar day of the meeting; Time is the time of day
	// as a 12-hour clock string such as "2:00 PM". All arithmetic on it
	// goes through the timeutil package.
	Date time.Time `gorm:"not null" json:"date"`
	Time string    `gorm:"size:16;not null" json:"time"`

	// Duration is copied from the link at booking time and never
	// re-derived from the link afterwards.
	Duration int `gorm:"not null" json:"duration"`

	Notes     string    `json:"notes,omitempty"`
	Answers   AnswerMap `gorm:"type:text" json:"answers"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
