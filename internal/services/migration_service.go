package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
	"github.com/advisorconnect/advisorconnect/internal/legacy"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/repository"
)

// MigrationReport summarizes one migration run.
type MigrationReport struct {
	LinksMigrated    int `json:"links_migrated"`
	LinksSkipped     int `json:"links_skipped"`
	MeetingsMigrated int `json:"meetings_migrated"`
	MeetingsSkipped  int `json:"meetings_skipped"`
}

// MigrationService performs the one-time transfer of legacy client-local
// records into the server store. Migrate is idempotent: links dedupe on
// slug, meetings on the (link, client email, date) tuple, so it is safe
// to invoke repeatedly and to re-run after a partial failure.
type MigrationService struct {
	userRepo    repository.UserRepository
	linkRepo    repository.LinkRepository
	meetingRepo repository.MeetingRepository
	store       legacy.Store
}

// NewMigrationService creates a MigrationService. A nil store means no
// legacy context exists and Migrate becomes a no-op.
func NewMigrationService(
	userRepo repository.UserRepository,
	linkRepo repository.LinkRepository,
	meetingRepo repository.MeetingRepository,
	store legacy.Store,
) *MigrationService {
	return &MigrationService{
		userRepo:    userRepo,
		linkRepo:    linkRepo,
		meetingRepo: meetingRepo,
		store:       store,
	}
}

// Migrate transfers the legacy links and meetings recorded for email
// into the server store, then rewrites the legacy documents with only
// the records belonging to other advisors (the store directory is
// shared, so another advisor's not-yet-migrated data must survive). A
// key is removed once nothing remains under it. The target user must
// already exist; an unknown email is a precondition failure, not a
// silent skip. No transaction wraps the whole run: records migrated
// before a mid-loop failure stay in place and a re-run picks up the
// rest.
func (s *MigrationService) Migrate(email string) (*MigrationReport, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	report := &MigrationReport{}
	if s.store == nil {
		return report, nil
	}

	remainingLinks, linksFound, err := s.migrateLinks(user, report)
	if err != nil {
		return report, err
	}
	remainingMeetings, meetingsFound, err := s.migrateMeetings(user, report)
	if err != nil {
		return report, err
	}

	// Both loops completed cleanly: consume this advisor's records.
	if linksFound {
		if err := s.rewriteLegacy(legacy.LinksKey, remainingLinks, len(remainingLinks)); err != nil {
			return report, err
		}
	}
	if meetingsFound {
		if err := s.rewriteLegacy(legacy.MeetingsKey, remainingMeetings, len(remainingMeetings)); err != nil {
			return report, err
		}
	}

	log.Printf("Legacy migration for %s: %d/%d links, %d/%d meetings migrated/skipped",
		email, report.LinksMigrated, report.LinksSkipped, report.MeetingsMigrated, report.MeetingsSkipped)
	return report, nil
}

// rewriteLegacy stores the records left behind for other advisors,
// dropping the key entirely once it is empty.
func (s *MigrationService) rewriteLegacy(key string, remaining any, count int) error {
	if count == 0 {
		return s.store.Remove(key)
	}
	return s.store.Put(key, remaining)
}

func (s *MigrationService) migrateLinks(user *models.User, report *MigrationReport) ([]legacy.Link, bool, error) {
	var legacyLinks []legacy.Link
	if err := s.store.Get(legacy.LinksKey, &legacyLinks); err != nil {
		if errors.Is(err, legacy.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var remaining []legacy.Link
	for _, l := range legacyLinks {
		if l.AdvisorEmail != user.Email {
			remaining = append(remaining, l)
			continue
		}

		// Idempotence key: the slug.
		if _, err := s.linkRepo.GetLinkBySlug(l.Slug); err == nil {
			report.LinksSkipped++
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}

		var expiration *time.Time
		if l.ExpirationDate != "" {
			t, err := parseLegacyDate(l.ExpirationDate)
			if err != nil {
				return nil, false, fmt.Errorf("legacy link %q has a bad expiration date: %w", l.Slug, err)
			}
			expiration = &t
		}

		questions := make(models.QuestionList, 0, len(l.CustomQuestions))
		for _, q := range l.CustomQuestions {
			questions = append(questions, models.Question{ID: q.ID, Text: q.Text})
		}

		link := &models.SchedulingLink{
			ID:              uuid.NewString(),
			Slug:            l.Slug,
			Name:            l.Name,
			Duration:        l.Duration,
			MaxAdvanceDays:  l.MaxAdvanceDays,
			MaxUses:         l.MaxUses,
			ExpirationDate:  expiration,
			CustomQuestions: questions,
			UserID:          user.ID,
		}
		if err := s.linkRepo.CreateLink(link); err != nil {
			return nil, false, err
		}
		report.LinksMigrated++
	}
	return remaining, true, nil
}

func (s *MigrationService) migrateMeetings(user *models.User, report *MigrationReport) ([]legacy.Meeting, bool, error) {
	var legacyMeetings []legacy.Meeting
	if err := s.store.Get(legacy.MeetingsKey, &legacyMeetings); err != nil {
		if errors.Is(err, legacy.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var remaining []legacy.Meeting
	for _, m := range legacyMeetings {
		link, err := s.linkRepo.GetLinkBySlugAndOwner(m.LinkSlug, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A link this user never owned; leave the meeting for
				// whoever does.
				remaining = append(remaining, m)
				continue
			}
			return nil, false, err
		}

		date, err := parseLegacyDate(m.Date)
		if err != nil {
			return nil, false, fmt.Errorf("legacy meeting for %q has a bad date: %w", m.LinkSlug, err)
		}

		// Idempotence key: (link, client email, date).
		if _, err := s.meetingRepo.FindMeeting(link.ID, m.ClientEmail, date); err == nil {
			report.MeetingsSkipped++
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}

		meeting := &models.Meeting{
			ID:          uuid.NewString(),
			LinkID:      link.ID,
			ClientName:  m.ClientName,
			ClientEmail: m.ClientEmail,
			ProfileURL:  m.ProfileURL,
			Date:        date,
			Time:        m.Time,
			Duration:    m.Duration,
			Answers:     models.AnswerMap(m.Answers),
		}
		if err := s.meetingRepo.CreateMeeting(meeting); err != nil {
			return nil, false, err
		}
		report.MeetingsMigrated++
	}
	return remaining, true, nil
}

// parseLegacyDate accepts both the full ISO timestamps and the bare
// dates found in legacy exports.
func parseLegacyDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
