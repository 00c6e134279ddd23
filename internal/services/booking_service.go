package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/advisorconnect/advisorconnect/internal/calendar"
	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/notify"
	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/timeutil"
	"github.com/advisorconnect/advisorconnect/internal/workers"
)

// BookingRequest is a client's booking submission. Duration is never
// part of the request: it is copied from the link at booking time.
type BookingRequest struct {
	LinkID      string
	Date        time.Time
	Time        string // 12-hour clock string, e.g. "2:00 PM"
	ClientName  string
	ClientEmail string
	ProfileURL  string
	Notes       string
	Answers     map[string]string

	// AccessToken is the caller-supplied bearer credential for calendar
	// sync. When empty, the credential provider (if configured) is
	// asked for one inside the calendar task.
	AccessToken string
}

// BookingService is the booking workflow engine. Booking success is
// defined solely by the durable Meeting record; calendar sync and the
// advisor email are best-effort side effects dispatched after the
// commit, each behind its own error boundary.
type BookingService struct {
	linkRepo    repository.LinkRepository
	meetingRepo repository.MeetingRepository
	events      calendar.EventCreator
	creds       calendar.CredentialProvider
	notifier    notify.Notifier
	runner      workers.Runner
}

// NewBookingService creates a BookingService. events, creds, notifier
// and runner may each be nil; the corresponding side effect is then
// skipped with a log line.
func NewBookingService(
	linkRepo repository.LinkRepository,
	meetingRepo repository.MeetingRepository,
	events calendar.EventCreator,
	creds calendar.CredentialProvider,
	notifier notify.Notifier,
	runner workers.Runner,
) *BookingService {
	return &BookingService{
		linkRepo:    linkRepo,
		meetingRepo: meetingRepo,
		events:      events,
		creds:       creds,
		notifier:    notifier,
		runner:      runner,
	}
}

// SubmitBooking validates the request against the link's state,
// persists the meeting, and fans out the side effects. Only failures
// that prevent a correct Meeting record from being written surface as
// errors; everything downstream of the commit is best-effort.
func (s *BookingService) SubmitBooking(req BookingRequest) (*models.Meeting, error) {
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	link, err := s.linkRepo.GetLinkByID(req.LinkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLinkNotFound
		}
		return nil, err
	}

	now := time.Now()
	if link.ExpirationDate != nil && !link.ExpirationDate.After(now) {
		return nil, apperrors.ErrLinkExpired
	}
	if link.MaxAdvanceDays != nil {
		horizon := now.AddDate(0, 0, *link.MaxAdvanceDays)
		if req.Date.After(horizon) {
			return nil, apperrors.ValidationError{
				Field:  "date",
				Reason: fmt.Sprintf("beyond the link's %d-day booking window", *link.MaxAdvanceDays),
			}
		}
	}

	meeting := &models.Meeting{
		ID:          uuid.NewString(),
		LinkID:      link.ID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ProfileURL:  req.ProfileURL,
		Date:        req.Date,
		Time:        req.Time,
		Duration:    link.Duration, // copied from the link, never from the caller
		Notes:       req.Notes,
		Answers:     req.Answers,
	}

	// The cap check and the insert run in one transaction so the count
	// can never exceed MaxUses, even under concurrent submission.
	if err := s.meetingRepo.CreateMeetingCapped(meeting, link.MaxUses); err != nil {
		return nil, err
	}

	s.dispatchSideEffects(meeting, link, req.AccessToken)
	return meeting, nil
}

// ListMeetingsByLink returns a link's meetings, most recent first.
func (s *BookingService) ListMeetingsByLink(linkID string) ([]models.Meeting, error) {
	return s.meetingRepo.GetMeetingsByLinkID(linkID)
}

func validateBooking(req BookingRequest) error {
	if req.LinkID == "" {
		return apperrors.ValidationError{Field: "link_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.ClientName) == "" {
		return apperrors.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, err := mail.ParseAddress(req.ClientEmail); err != nil {
		return apperrors.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if req.Date.IsZero() {
		return apperrors.ValidationError{Field: "date", Reason: "must not be empty"}
	}
	if _, _, err := timeutil.ParseClock(req.Time); err != nil {
		return apperrors.ValidationError{Field: "time", Reason: err.Error()}
	}
	return nil
}

// dispatchSideEffects queues the calendar and email tasks after the
// meeting is committed. Each task carries its own error boundary; a
// failure is logged by the worker pool and never reaches the booker.
func (s *BookingService) dispatchSideEffects(meeting *models.Meeting, link *models.SchedulingLink, accessToken string) {
	if s.runner == nil {
		log.Printf("No side-effect runner configured, skipping fan-out for meeting %s", meeting.ID)
		return
	}

	if s.events == nil {
		log.Printf("Skipping calendar event creation: no calendar client configured")
	} else if link.User.Email == "" {
		log.Printf("Skipping calendar event creation: no advisor email available")
	} else if accessToken == "" && s.creds == nil {
		log.Printf("Skipping calendar event creation: no access token available")
	} else {
		s.runner.Dispatch(workers.Task{
			Kind:      "calendar",
			MeetingID: meeting.ID,
			Run:       s.calendarTask(meeting, link, accessToken),
		})
	}

	if s.notifier == nil {
		log.Printf("Skipping advisor notification: no notifier configured")
	} else {
		s.runner.Dispatch(workers.Task{
			Kind:      "email",
			MeetingID: meeting.ID,
			Run:       s.emailTask(meeting, link),
		})
	}
}

func (s *BookingService) calendarTask(meeting *models.Meeting, link *models.SchedulingLink, accessToken string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		token := accessToken
		if token == "" {
			cred, err := s.creds.GetBearerCredential(ctx, link.User.Email)
			if err != nil {
				if errors.Is(err, apperrors.ErrCredentialRefresh) {
					log.Printf("Credential refresh failed for %s, booking stands without calendar sync", link.User.Email)
				}
				return err
			}
			token = cred.Token
		}

		start, err := timeutil.MeetingStart(meeting.Date, meeting.Time)
		if err != nil {
			return err
		}
		end := timeutil.MeetingEnd(start, meeting.Duration)

		event, err := s.events.CreateEvent(ctx, token, calendar.EventRequest{
			AttendeeName:  meeting.ClientName,
			AttendeeEmail: meeting.ClientEmail,
			OwnerEmail:    link.User.Email,
			Description:   eventDescription(meeting),
			Start:         start,
			End:           end,
		})
		if err != nil {
			return apperrors.SideEffectError{Kind: "calendar", Reason: err.Error()}
		}
		log.Printf("Calendar event created for meeting %s: %s", meeting.ID, event.HTMLLink)
		return nil
	}
}

func (s *BookingService) emailTask(meeting *models.Meeting, link *models.SchedulingLink) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := s.notifier.NotifyOwner(ctx, notify.MeetingDetails{
			ClientName:  meeting.ClientName,
			ClientEmail: meeting.ClientEmail,
			ProfileURL:  meeting.ProfileURL,
			Date:        meeting.Date,
			Time:        meeting.Time,
			Duration:    meeting.Duration,
			Answers:     resolveAnswers(link.CustomQuestions, meeting.Answers),
			LinkName:    link.Name,
			OwnerName:   link.User.Name,
			OwnerEmail:  link.User.Email,
		})
		if err != nil {
			return apperrors.SideEffectError{Kind: "email", Reason: err.Error()}
		}
		return nil
	}
}

// eventDescription renders the calendar event body: attendee identity
// plus any custom question answers.
func eventDescription(meeting *models.Meeting) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Meeting with %s", meeting.ClientName)
	if meeting.ProfileURL != "" {
		fmt.Fprintf(&b, "\nProfile: %s", meeting.ProfileURL)
	}
	if meeting.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", meeting.Notes)
	}
	if len(meeting.Answers) > 0 {
		b.WriteString("\n\nAdditional Information:")
		ids := make([]string, 0, len(meeting.Answers))
		for id := range meeting.Answers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "\n%s: %s", id, meeting.Answers[id])
		}
	}
	return b.String()
}

// resolveAnswers swaps question ids for their prompt text where the
// link still knows the question, so the advisor email reads naturally.
func resolveAnswers(questions models.QuestionList, answers models.AnswerMap) map[string]string {
	if len(answers) == 0 {
		return nil
	}
	prompts := make(map[string]string, len(questions))
	for _, q := range questions {
		prompts[q.ID] = q.Text
	}
	resolved := make(map[string]string, len(answers))
	for id, answer := range answers {
		if text, ok := prompts[id]; ok {
			resolved[text] = answer
		} else {
			resolved[id] = answer
		}
	}
	return resolved
}
