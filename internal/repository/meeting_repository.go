package repository

import (
	"fmt"
	"time"

	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"gorm.io/gorm"
)

// MeetingRepository defines the data access methods for meetings.
type MeetingRepository interface {
	CreateMeeting(meeting *models.Meeting) error
	// CreateMeetingCapped inserts the meeting only if the link's total
	// meeting count is still below maxUses, atomically. A nil maxUses
	// means the link is uncapped. Returns errors.ErrLinkExhausted when
	// the cap has been reached.
	CreateMeetingCapped(meeting *models.Meeting, maxUses *int) error
	CountMeetingsByLinkID(linkID string) (int, error)
	GetMeetingsByLinkID(linkID string) ([]models.Meeting, error)
	FindMeeting(linkID, clientEmail string, date time.Time) (*models.Meeting, error)
}

// GormMeetingRepository is the GORM-backed implementation of MeetingRepository.
type GormMeetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates and returns a new GormMeetingRepository.
func NewMeetingRepository(db *gorm.DB) *GormMeetingRepository {
	return &GormMeetingRepository{db: db}
}

// CreateMeeting inserts a meeting without any usage-cap enforcement.
// Used by the legacy migration, which imports historical records.
func (r *GormMeetingRepository) CreateMeeting(meeting *models.Meeting) error {
	if err := r.db.Create(meeting).Error; err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

// CreateMeetingCapped runs the count check and the insert inside one
// transaction so two near-simultaneous bookings cannot both slip under
// a finite cap. SQLite serializes writers, which makes the
// read-count-then-insert safe once it is inside the write transaction.
func (r *GormMeetingRepository) CreateMeetingCapped(meeting *models.Meeting, maxUses *int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if maxUses != nil {
			var count int64
			if err := tx.Model(&models.Meeting{}).Where("link_id = ?", meeting.LinkID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count meetings for link %s: %w", meeting.LinkID, err)
			}
			if count >= int64(*maxUses) {
				return apperrors.ErrLinkExhausted
			}
		}
		if err := tx.Create(meeting).Error; err != nil {
			return fmt.Errorf("failed to create meeting: %w", err)
		}
		return nil
	})
}

// CountMeetingsByLinkID counts the meetings booked through a link.
func (r *GormMeetingRepository) CountMeetingsByLinkID(linkID string) (int, error) {
	var count int64
	if err := r.db.Model(&models.Meeting{}).Where("link_id = ?", linkID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count meetings for link %s: %w", linkID, err)
	}
	return int(count), nil
}

// GetMeetingsByLinkID returns a link's meetings, most recent date first.
func (r *GormMeetingRepository) GetMeetingsByLinkID(linkID string) ([]models.Meeting, error) {
	var meetings []models.Meeting
	if err := r.db.Where("link_id = ?", linkID).Order("date DESC").Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve meetings for link %s: %w", linkID, err)
	}
	return meetings, nil
}

// FindMeeting looks up a meeting by the (link, client email, date)
// tuple, the idempotence key used by the legacy migration.
func (r *GormMeetingRepository) FindMeeting(linkID, clientEmail string, date time.Time) (*models.Meeting, error) {
	var meeting models.Meeting
	err := r.db.Where("link_id = ? AND client_email = ? AND date = ?", linkID, clientEmail, date).First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}
