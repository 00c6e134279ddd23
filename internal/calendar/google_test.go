package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
)

func TestListEvents(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":       "evt-1",
					"summary":  "Meeting with Sam Client",
					"htmlLink": "https://calendar.example/evt-1",
					"status":   "confirmed",
					"start":    map[string]string{"dateTime": "2026-02-10T14:00:00Z"},
					"end":      map[string]string{"dateTime": "2026-02-10T14:30:00Z"},
					"attendees": []map[string]string{
						{"email": "sam@example.com"},
						{"email": "jane@example.com"},
					},
				},
				{
					// All-day events carry bare dates instead of dateTime.
					"id":    "evt-2",
					"start": map[string]string{"date": "2026-02-11"},
					"end":   map[string]string{"date": "2026-02-12"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewGoogleClient(srv.URL)
	timeMin := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	timeMax := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	events, err := client.ListEvents(context.Background(), "advisor-token", timeMin, timeMax)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}

	if gotPath != "/calendars/primary/events" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer advisor-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	for param, want := range map[string]string{
		"timeMin":      "2026-02-09T00:00:00Z",
		"timeMax":      "2026-03-09T00:00:00Z",
		"singleEvents": "true",
		"orderBy":      "startTime",
	} {
		if got := gotQuery[param]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %s", param, got, want)
		}
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "evt-1" || events[0].Summary != "Meeting with Sam Client" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[0].Start != "2026-02-10T14:00:00Z" {
		t.Errorf("event 0 start = %q", events[0].Start)
	}
	if len(events[0].Attendees) != 2 || events[0].Attendees[0] != "sam@example.com" {
		t.Errorf("event 0 attendees = %v", events[0].Attendees)
	}
	if events[1].Start != "2026-02-11" {
		t.Errorf("all-day start = %q, want the bare date", events[1].Start)
	}
}

func TestListEventsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 401, "message": "Invalid Credentials"},
		})
	}))
	defer srv.Close()

	client := NewGoogleClient(srv.URL)
	if _, err := client.ListEvents(context.Background(), "stale-token", time.Now(), time.Now().Add(time.Hour)); err == nil {
		t.Error("expected an error for a 401 response")
	}
}

func TestCreateEvent(t *testing.T) {
	var gotBody eventBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sendUpdates") != "all" {
			t.Errorf("sendUpdates = %q, want all", r.URL.Query().Get("sendUpdates"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":       "evt-1",
			"htmlLink": "https://calendar.example/evt-1",
		})
	}))
	defer srv.Close()

	client := NewGoogleClient(srv.URL)
	start := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	event, err := client.CreateEvent(context.Background(), "advisor-token", EventRequest{
		AttendeeName:  "Sam Client",
		AttendeeEmail: "sam@example.com",
		OwnerEmail:    "jane@example.com",
		Start:         start,
		End:           start.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if event.ID != "evt-1" || event.HTMLLink != "https://calendar.example/evt-1" {
		t.Errorf("event = %+v", event)
	}
	if gotBody.Summary != "Meeting with Sam Client" {
		t.Errorf("summary = %q", gotBody.Summary)
	}
	if len(gotBody.Attendees) != 2 {
		t.Errorf("attendees = %+v, want client and advisor", gotBody.Attendees)
	}
}

func TestOAuthProviderRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.FormValue("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh-token", "expires_in": 3600})
	}))
	defer srv.Close()

	provider := NewOAuthProvider(srv.URL, "client-id", "client-secret", "refresh-token")
	cred, err := provider.GetBearerCredential(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("GetBearerCredential: %v", err)
	}
	if cred.Token != "fresh-token" {
		t.Errorf("token = %q, want fresh-token", cred.Token)
	}
	if !cred.ExpiresAt.After(time.Now()) {
		t.Errorf("expiry %v is not in the future", cred.ExpiresAt)
	}
}

func TestOAuthProviderUnconfigured(t *testing.T) {
	provider := NewOAuthProvider("https://oauth2.googleapis.com/token", "", "", "")
	if provider.Configured() {
		t.Error("empty provider reports itself configured")
	}
	if _, err := provider.GetBearerCredential(context.Background(), "jane@example.com"); !errors.Is(err, apperrors.ErrCredentialRefresh) {
		t.Errorf("err = %v, want ErrCredentialRefresh", err)
	}
}
