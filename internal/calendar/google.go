package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
)

// GoogleClient creates events through the Google Calendar v3 REST API
// using a caller-supplied bearer token.
type GoogleClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGoogleClient creates a GoogleClient against the given API base URL
// (e.g. "https://www.googleapis.com/calendar/v3").
func NewGoogleClient(baseURL string) *GoogleClient {
	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"` // all-day events carry a bare date
	TimeZone string `json:"timeZone,omitempty"`
}

func (t eventTime) value() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

type eventAttendee struct {
	Email string `json:"email"`
}

type eventBody struct {
	Summary              string          `json:"summary"`
	Description          string          `json:"description"`
	Start                eventTime       `json:"start"`
	End                  eventTime       `json:"end"`
	Attendees            []eventAttendee `json:"attendees"`
	GuestsCanModify      bool            `json:"guestsCanModify"`
	GuestsCanInviteOther bool            `json:"guestsCanInviteOthers"`
	Reminders            struct {
		UseDefault bool `json:"useDefault"`
	} `json:"reminders"`
}

type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateEvent inserts an event into the advisor's primary calendar.
// Both the attendee and the advisor are invited and Google is asked to
// send update emails to all of them.
func (c *GoogleClient) CreateEvent(ctx context.Context, bearerToken string, req EventRequest) (*Event, error) {
	body := eventBody{
		Summary:     fmt.Sprintf("Meeting with %s", req.AttendeeName),
		Description: req.Description,
		Start:       eventTime{DateTime: req.Start.Format(time.RFC3339), TimeZone: req.Start.Location().String()},
		End:         eventTime{DateTime: req.End.Format(time.RFC3339), TimeZone: req.End.Location().String()},
		Attendees: []eventAttendee{
			{Email: req.AttendeeEmail},
			{Email: req.OwnerEmail},
		},
	}
	body.Reminders.UseDefault = true

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calendar event: %w", err)
	}

	endpoint := c.baseURL + "/calendars/primary/events?" + url.Values{"sendUpdates": {"all"}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearerToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode calendar response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := resp.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("calendar API returned %d: %s", resp.StatusCode, msg)
	}

	return &Event{ID: parsed.ID, HTMLLink: parsed.HTMLLink}, nil
}

type listedEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	HTMLLink    string    `json:"htmlLink"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	Attendees   []struct {
		Email string `json:"email"`
	} `json:"attendees"`
}

type listResponse struct {
	Items []listedEvent `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListEvents returns the events on the advisor's primary calendar
// between timeMin and timeMax, expanded to single instances and ordered
// by start time.
func (c *GoogleClient) ListEvents(ctx context.Context, bearerToken string, timeMin, timeMax time.Time) ([]Event, error) {
	query := url.Values{
		"timeMin":      {timeMin.Format(time.RFC3339)},
		"timeMax":      {timeMax.Format(time.RFC3339)},
		"maxResults":   {"100"},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}
	endpoint := c.baseURL + "/calendars/primary/events?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode calendar response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := resp.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("calendar API returned %d: %s", resp.StatusCode, msg)
	}

	events := make([]Event, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		e := Event{
			ID:          item.ID,
			Summary:     item.Summary,
			Description: item.Description,
			Start:       item.Start.value(),
			End:         item.End.value(),
			Location:    item.Location,
			Status:      item.Status,
			HTMLLink:    item.HTMLLink,
		}
		for _, a := range item.Attendees {
			e.Attendees = append(e.Attendees, a.Email)
		}
		events = append(events, e)
	}
	return events, nil
}

// OAuthProvider refreshes advisor bearer tokens using the OAuth2
// refresh-token grant.
type OAuthProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string
	httpClient   *http.Client
}

// NewOAuthProvider creates an OAuthProvider. tokenURL is the OAuth2
// token endpoint (e.g. "https://oauth2.googleapis.com/token").
func NewOAuthProvider(tokenURL, clientID, clientSecret, refreshToken string) *OAuthProvider {
	return &OAuthProvider{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether the provider has OAuth credentials to work
// with. An unconfigured provider always fails refresh.
func (p *OAuthProvider) Configured() bool {
	return p.clientID != "" && p.clientSecret != "" && p.refreshToken != ""
}

// GetBearerCredential exchanges the stored refresh token for a fresh
// access token. Any failure is reported as ErrCredentialRefresh so the
// booking workflow can proceed without calendar sync.
func (p *OAuthProvider) GetBearerCredential(ctx context.Context, ownerEmail string) (*Credential, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("%w: OAuth credentials not configured", apperrors.ErrCredentialRefresh)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {p.refreshToken},
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialRefresh, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialRefresh, err)
	}
	defer resp.Body.Close()

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialRefresh, err)
	}
	if resp.StatusCode != http.StatusOK || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned %d", apperrors.ErrCredentialRefresh, resp.StatusCode)
	}

	return &Credential{
		Token:     token.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}
