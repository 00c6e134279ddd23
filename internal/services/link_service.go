// Package services contains the business logic layer for AdvisorConnect:
// the link lifecycle manager, the booking workflow engine, and the
// legacy-storage migration.
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/repository"
)

// LinkStatus is the derived bookability state of a scheduling link.
type LinkStatus string

const (
	// StatusActive means the link accepts new bookings.
	StatusActive LinkStatus = "active"
	// StatusExpired means the link's expiration date is in the past.
	StatusExpired LinkStatus = "expired"
	// StatusExhausted means the link has reached its maximum uses.
	StatusExhausted LinkStatus = "exhausted"
)

// MinDuration is the shortest bookable meeting in minutes.
const MinDuration = 15

// CreateLinkSpec carries the advisor-supplied fields for a new link.
type CreateLinkSpec struct {
	Name            string
	Slug            string
	Duration        int
	MaxAdvanceDays  *int
	MaxUses         *int
	ExpirationDate  *time.Time
	CustomQuestions []models.Question
}

// LinkService manages the scheduling link lifecycle: creation with slug
// uniqueness, lookup for booking, and the derived status policy read by
// the booking workflow engine.
type LinkService struct {
	userRepo    repository.UserRepository
	linkRepo    repository.LinkRepository
	meetingRepo repository.MeetingRepository
}

// NewLinkService creates and returns a new LinkService.
func NewLinkService(userRepo repository.UserRepository, linkRepo repository.LinkRepository, meetingRepo repository.MeetingRepository) *LinkService {
	return &LinkService{
		userRepo:    userRepo,
		linkRepo:    linkRepo,
		meetingRepo: meetingRepo,
	}
}

// CreateLink validates the requested fields, lazily creates the owning
// user, and persists the link. Returns ErrSlugTaken when the slug
// already exists and ValidationError for malformed fields.
func (s *LinkService) CreateLink(ownerEmail string, spec CreateLinkSpec) (*models.SchedulingLink, error) {
	if ownerEmail == "" {
		return nil, apperrors.ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if len(spec.Name) < 2 {
		return nil, apperrors.ValidationError{Field: "name", Reason: "must be at least 2 characters"}
	}
	if len(spec.Slug) < 2 {
		return nil, apperrors.ValidationError{Field: "slug", Reason: "must be at least 2 characters"}
	}
	if spec.Duration < MinDuration {
		return nil, apperrors.ValidationError{Field: "duration", Reason: fmt.Sprintf("must be at least %d minutes", MinDuration)}
	}
	if spec.MaxUses != nil && *spec.MaxUses < 1 {
		return nil, apperrors.ValidationError{Field: "max_uses", Reason: "must be at least 1"}
	}
	if spec.MaxAdvanceDays != nil && *spec.MaxAdvanceDays < 1 {
		return nil, apperrors.ValidationError{Field: "max_advance_days", Reason: "must be at least 1"}
	}

	questions := make(models.QuestionList, 0, len(spec.CustomQuestions))
	for _, q := range spec.CustomQuestions {
		if q.Text == "" {
			return nil, apperrors.ValidationError{Field: "custom_questions", Reason: "question text must not be empty"}
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		questions = append(questions, q)
	}

	owner, err := s.resolveOrCreateUser(ownerEmail)
	if err != nil {
		return nil, err
	}

	// Check the slug before inserting for a user-actionable error; the
	// unique index on slug backs this up against racing creates.
	if _, err := s.linkRepo.GetLinkBySlug(spec.Slug); err == nil {
		return nil, apperrors.ErrSlugTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error checking slug uniqueness: %w", err)
	}

	link := &models.SchedulingLink{
		ID:              uuid.NewString(),
		Slug:            spec.Slug,
		Name:            spec.Name,
		Duration:        spec.Duration,
		MaxAdvanceDays:  spec.MaxAdvanceDays,
		MaxUses:         spec.MaxUses,
		ExpirationDate:  spec.ExpirationDate,
		CustomQuestions: questions,
		UserID:          owner.ID,
	}
	if err := s.linkRepo.CreateLink(link); err != nil {
		return nil, err
	}
	link.User = *owner
	return link, nil
}

// resolveOrCreateUser fetches the user for an email, creating the
// account on first use.
func (s *LinkService) resolveOrCreateUser(email string) (*models.User, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user = &models.User{ID: uuid.NewString(), Email: email}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetLinkBySlug is a pure lookup with the owner preloaded; policy
// checks (expiration, usage) are the booking workflow's concern.
func (s *LinkService) GetLinkBySlug(slug string) (*models.SchedulingLink, error) {
	link, err := s.linkRepo.GetLinkBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// ListLinksByOwner returns all links for an advisor email. An unknown
// email yields an empty list rather than an error: the dashboard shows
// nothing to a user who has not created anything yet.
func (s *LinkService) ListLinksByOwner(email string) ([]models.SchedulingLink, error) {
	owner, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.SchedulingLink{}, nil
		}
		return nil, err
	}
	return s.linkRepo.GetLinksByOwner(owner.ID)
}

// GetLinkStats returns a link together with its booking count and
// derived status.
func (s *LinkService) GetLinkStats(slug string) (*models.SchedulingLink, int, LinkStatus, error) {
	link, err := s.GetLinkBySlug(slug)
	if err != nil {
		return nil, 0, "", err
	}
	count, err := s.meetingRepo.CountMeetingsByLinkID(link.ID)
	if err != nil {
		return nil, 0, "", err
	}
	return link, count, EvaluateLinkStatus(link, count, time.Now()), nil
}

// EvaluateLinkStatus derives a link's bookability. A link is bookable
// iff its expiration date (when set) is still in the future and its
// meeting count is below MaxUses (when set). Expiration takes
// precedence in the reported status; the two conditions are
// independent booleans.
func EvaluateLinkStatus(link *models.SchedulingLink, meetingCount int, now time.Time) LinkStatus {
	if link.ExpirationDate != nil && !link.ExpirationDate.After(now) {
		return StatusExpired
	}
	if link.MaxUses != nil && meetingCount >= *link.MaxUses {
		return StatusExhausted
	}
	return StatusActive
}
