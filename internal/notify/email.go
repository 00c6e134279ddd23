// Package notify delivers advisor notifications when a client books a
// meeting. Delivery is fire-and-forget from the booking workflow's
// perspective; failures are logged by the caller and never fail the
// booking.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/advisorconnect/advisorconnect/internal/timeutil"
)

// MeetingDetails carries everything the advisor email needs.
type MeetingDetails struct {
	ClientName  string
	ClientEmail string
	ProfileURL  string
	Date        time.Time
	Time        string // 12-hour clock string, e.g. "2:00 PM"
	Duration    int    // minutes
	Answers     map[string]string
	LinkName    string
	OwnerName   string
	OwnerEmail  string
}

// Notifier delivers a booking notification to the link's owner.
type Notifier interface {
	NotifyOwner(ctx context.Context, details MeetingDetails) error
}

// CalendarRenderLink builds an add-to-Google-Calendar URL for the
// meeting, so the advisor can add the event manually when automatic
// calendar sync was unavailable.
func CalendarRenderLink(details MeetingDetails) (string, error) {
	start, err := timeutil.MeetingStart(details.Date, details.Time)
	if err != nil {
		return "", err
	}
	end := timeutil.MeetingEnd(start, details.Duration)

	const stamp = "20060102T150405Z"
	dates := start.UTC().Format(stamp) + "/" + end.UTC().Format(stamp)

	params := url.Values{
		"action": {"TEMPLATE"},
		"text":   {"Meeting with " + details.ClientName},
		"dates":  {dates},
		"add":    {details.ClientEmail},
	}
	return "https://calendar.google.com/calendar/render?" + params.Encode(), nil
}

// SMTPNotifier sends plain-text notification emails over SMTP.
type SMTPNotifier struct {
	addr     string // host:port
	host     string
	username string
	password string
	from     string
}

// NewSMTPNotifier creates an SMTPNotifier. username may be empty for
// unauthenticated relays (e.g. a local test server).
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		username: username,
		password: password,
		from:     from,
	}
}

// NotifyOwner composes and sends the new-meeting email to the advisor.
func (n *SMTPNotifier) NotifyOwner(ctx context.Context, details MeetingDetails) error {
	if details.OwnerEmail == "" {
		return fmt.Errorf("no advisor email to notify")
	}

	body := ComposeBody(details)

	msg := strings.Builder{}
	msg.WriteString("From: " + n.from + "\r\n")
	msg.WriteString("To: " + details.OwnerEmail + "\r\n")
	msg.WriteString("Subject: New Meeting Scheduled: " + details.ClientName + "\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	// net/smtp has no context support; run the send in a goroutine so a
	// stalled server cannot outlive the caller's deadline.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(n.addr, auth, n.from, []string{details.OwnerEmail}, []byte(msg.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send notification email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification email timed out: %w", ctx.Err())
	}
}

// ComposeBody renders the plain-text email body for a booking.
func ComposeBody(details MeetingDetails) string {
	advisorName := details.OwnerName
	if advisorName == "" {
		advisorName = "Advisor"
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "Hello %s,\n\n", advisorName)
	fmt.Fprintf(&b, "A new meeting has been scheduled through your link %q.\n\n", details.LinkName)
	b.WriteString("Meeting Details:\n")
	fmt.Fprintf(&b, "- Client: %s (%s)\n", details.ClientName, details.ClientEmail)
	if details.ProfileURL != "" {
		fmt.Fprintf(&b, "- Profile: %s\n", details.ProfileURL)
	}
	fmt.Fprintf(&b, "- Date: %s\n", details.Date.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "- Time: %s\n", details.Time)
	fmt.Fprintf(&b, "- Duration: %d minutes\n", details.Duration)

	if len(details.Answers) > 0 {
		b.WriteString("\nAdditional Information:\n")
		questions := make([]string, 0, len(details.Answers))
		for question := range details.Answers {
			questions = append(questions, question)
		}
		sort.Strings(questions)
		for _, question := range questions {
			fmt.Fprintf(&b, "%s: %s\n", question, details.Answers[question])
		}
	}

	if link, err := CalendarRenderLink(details); err == nil {
		fmt.Fprintf(&b, "\nAdd to Google Calendar: %s\n", link)
	}

	b.WriteString("\nYou can view all your scheduled meetings in your dashboard.\n")
	return b.String()
}
