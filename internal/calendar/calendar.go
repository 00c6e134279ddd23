// Package calendar talks to the advisor's remote calendar. The booking
// workflow treats event creation as a best-effort side effect: failures
// here are logged by the caller and never fail the booking.
package calendar

import (
	"context"
	"time"
)

// Credential is an opaque, time-limited bearer token for calling the
// calendar API on behalf of an advisor.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// CredentialProvider issues or refreshes a bearer credential tied to an
// advisor. Implementations must return an error wrapping
// errors.ErrCredentialRefresh when the refresh fails, so callers can
// distinguish a session-level condition from a transport failure.
type CredentialProvider interface {
	GetBearerCredential(ctx context.Context, ownerEmail string) (*Credential, error)
}

// EventRequest carries the meeting details needed to create a calendar
// event.
type EventRequest struct {
	AttendeeName  string
	AttendeeEmail string
	OwnerEmail    string
	Description   string
	Start         time.Time
	End           time.Time
}

// Event is a remote calendar event. CreateEvent fills only ID and
// HTMLLink; ListEvents returns the full view.
type Event struct {
	ID          string   `json:"id"`
	Summary     string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Location    string   `json:"location,omitempty"`
	Status      string   `json:"status,omitempty"`
	HTMLLink    string   `json:"htmlLink,omitempty"`
}

// EventCreator creates an event on the advisor's calendar.
type EventCreator interface {
	CreateEvent(ctx context.Context, bearerToken string, req EventRequest) (*Event, error)
}

// EventLister reads the advisor's upcoming calendar events for the
// dashboard's availability view.
type EventLister interface {
	ListEvents(ctx context.Context, bearerToken string, timeMin, timeMax time.Time) ([]Event, error)
}
