package notify

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func sampleDetails() MeetingDetails {
	return MeetingDetails{
		ClientName:  "Sam Client",
		ClientEmail: "sam@example.com",
		ProfileURL:  "https://linkedin.com/in/sam",
		Date:        time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Time:        "2:00 PM",
		Duration:    30,
		Answers:     map[string]string{"What would you like to discuss?": "Retirement"},
		LinkName:    "Intro Call",
		OwnerName:   "Jane",
		OwnerEmail:  "jane@example.com",
	}
}

func TestCalendarRenderLink(t *testing.T) {
	link, err := CalendarRenderLink(sampleDetails())
	if err != nil {
		t.Fatalf("CalendarRenderLink: %v", err)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse render link: %v", err)
	}
	if u.Host != "calendar.google.com" {
		t.Errorf("host = %q, want calendar.google.com", u.Host)
	}
	q := u.Query()
	if q.Get("action") != "TEMPLATE" {
		t.Errorf("action = %q, want TEMPLATE", q.Get("action"))
	}
	if q.Get("text") != "Meeting with Sam Client" {
		t.Errorf("text = %q", q.Get("text"))
	}
	// 2:00 PM on Feb 10 for 30 minutes.
	if got := q.Get("dates"); got != "20260210T140000Z/20260210T143000Z" {
		t.Errorf("dates = %q", got)
	}
	if q.Get("add") != "sam@example.com" {
		t.Errorf("add = %q", q.Get("add"))
	}
}

func TestCalendarRenderLinkBadTime(t *testing.T) {
	details := sampleDetails()
	details.Time = "14:00"
	if _, err := CalendarRenderLink(details); err == nil {
		t.Error("expected an error for a 24-hour time string")
	}
}

func TestComposeBody(t *testing.T) {
	body := ComposeBody(sampleDetails())

	for _, want := range []string{
		"Hello Jane,",
		`your link "Intro Call"`,
		"Sam Client (sam@example.com)",
		"https://linkedin.com/in/sam",
		"Tuesday, February 10, 2026",
		"2:00 PM",
		"30 minutes",
		"What would you like to discuss?: Retirement",
		"Add to Google Calendar:",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestComposeBodyAnswerOrder(t *testing.T) {
	details := sampleDetails()
	details.Answers = map[string]string{
		"Budget?":   "100k",
		"Anything":  "No",
		"Timeline?": "Q3",
	}

	body := ComposeBody(details)
	positions := make([]int, 0, 3)
	for _, q := range []string{"Anything: No", "Budget?: 100k", "Timeline?: Q3"} {
		i := strings.Index(body, q)
		if i < 0 {
			t.Fatalf("body missing %q:\n%s", q, body)
		}
		positions = append(positions, i)
	}
	if !(positions[0] < positions[1] && positions[1] < positions[2]) {
		t.Errorf("answers not in sorted question order: %v", positions)
	}
}

func TestComposeBodyDefaults(t *testing.T) {
	details := sampleDetails()
	details.OwnerName = ""
	details.ProfileURL = ""
	details.Answers = nil

	body := ComposeBody(details)
	if !strings.Contains(body, "Hello Advisor,") {
		t.Errorf("missing fallback greeting:\n%s", body)
	}
	if strings.Contains(body, "Profile:") {
		t.Error("profile line rendered without a profile URL")
	}
	if strings.Contains(body, "Additional Information") {
		t.Error("answers section rendered without answers")
	}
}
