package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Question is a single custom question attached to a scheduling link.
// The ID is stable and is the key under which the client's answer is
// stored on the resulting meeting.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionList is the canonical representation of a link's custom
// questions: an ordered list, serialized as a JSON text column.
type QuestionList []Question

// Value implements driver.Valuer so GORM can persist the list as JSON.
func (q QuestionList) Value() (driver.Value, error) {
	if len(q) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom questions: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for reading the JSON column back.
func (q *QuestionList) Scan(src any) error {
	if src == nil {
		*q = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for custom questions", src)
	}
	if len(data) == 0 {
		*q = nil
		return nil
	}
	return json.Unmarshal(data, q)
}

// SchedulingLink is a reusable booking configuration exposed to clients
// via its unique slug. Links are immutable once created; there is no
// edit operation.
type SchedulingLink struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Slug string `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Name string `gorm:"size:255;not null" json:"name"`

	// Duration is the meeting length in minutes, at least 15. It is
	// copied onto each Meeting at booking time.
	Duration int `gorm:"not null" json:"duration"`

	// MaxAdvanceDays bounds how far in the future a meeting may be
	// booked. Nil means unbounded.
	MaxAdvanceDays *int `json:"max_advance_days"`

	// MaxUses caps the total number of meetings bookable through this
	// link. Nil means unbounded.
	MaxUses *int `json:"max_uses"`

	// ExpirationDate, when set and in the past, makes the link reject
	// new bookings.
	ExpirationDate *time.Time `json:"expiration_date"`

	CustomQuestions QuestionList `gorm:"type:text" json:"custom_questions"`

	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
