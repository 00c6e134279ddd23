package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/advisorconnect/advisorconnect/internal/api"
	"github.com/advisorconnect/advisorconnect/internal/calendar"
	"github.com/advisorconnect/advisorconnect/internal/middleware"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/services"
)

type stubEventLister struct {
	token  string
	events []calendar.Event
	err    error
}

func (s *stubEventLister) ListEvents(ctx context.Context, token string, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	s.token = token
	return s.events, s.err
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubEventLister) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.SchedulingLink{}, &models.Meeting{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)

	linkService := services.NewLinkService(userRepo, linkRepo, meetingRepo)
	bookingService := services.NewBookingService(linkRepo, meetingRepo, nil, nil, nil, nil)
	migrationService := services.NewMigrationService(userRepo, linkRepo, meetingRepo, nil)

	lister := &stubEventLister{}
	router := gin.New()
	api.SetupRoutes(router, linkService, bookingService, migrationService, lister, middleware.NewRateLimiter(100, 100))
	return router, lister
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createLinkPayload(slug string) map[string]any {
	return map[string]any{
		"owner_email": "jane@example.com",
		"name":        "Intro Call",
		"slug":        slug,
		"duration":    30,
		"custom_questions": []map[string]string{
			{"id": "1", "text": "What would you like to discuss?"},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}
}

func TestCreateLinkEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/links", createLinkPayload("intro"))
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /links = %d, body %s", w.Code, w.Body.String())
	}
	var link models.SchedulingLink
	if err := json.Unmarshal(w.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if link.Slug != "intro" || link.ID == "" {
		t.Errorf("unexpected link in response: %+v", link)
	}

	// Same slug again: conflict.
	w = doJSON(t, router, http.MethodPost, "/api/v1/links", createLinkPayload("intro"))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate slug = %d, want 409", w.Code)
	}

	// Missing owner email: rejected at binding.
	bad := createLinkPayload("other")
	delete(bad, "owner_email")
	w = doJSON(t, router, http.MethodPost, "/api/v1/links", bad)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing owner_email = %d, want 400", w.Code)
	}

	// Duration below the floor: service-level validation.
	short := createLinkPayload("short")
	short["duration"] = 10
	w = doJSON(t, router, http.MethodPost, "/api/v1/links", short)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short duration = %d, want 400", w.Code)
	}
}

func TestGetLinkEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/links", createLinkPayload("intro"))

	w := doJSON(t, router, http.MethodGet, "/api/v1/links/intro", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /links/intro = %d", w.Code)
	}
	var link models.SchedulingLink
	if err := json.Unmarshal(w.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if link.User.Email != "jane@example.com" {
		t.Errorf("owner not preloaded: %+v", link.User)
	}

	if w := doJSON(t, router, http.MethodGet, "/api/v1/links/no-such", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown slug = %d, want 404", w.Code)
	}
}

func TestListLinksEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/links", createLinkPayload("intro"))

	w := doJSON(t, router, http.MethodGet, "/api/v1/links?email=jane@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /links = %d", w.Code)
	}
	var links []models.SchedulingLink
	if err := json.Unmarshal(w.Body.Bytes(), &links); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("got %d links, want 1", len(links))
	}

	// Unknown advisor reads as an empty dashboard, not an error.
	w = doJSON(t, router, http.MethodGet, "/api/v1/links?email=nobody@example.com", nil)
	if w.Code != http.StatusOK {
		t.Errorf("unknown email = %d, want 200", w.Code)
	}

	if w := doJSON(t, router, http.MethodGet, "/api/v1/links", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing email = %d, want 400", w.Code)
	}
}

func TestBookingEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/links", createLinkPayload("intro"))
	var link models.SchedulingLink
	if err := json.Unmarshal(w.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}

	payload := map[string]any{
		"link_id": link.ID,
		"date":    time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"time":    "2:00 PM",
		"attendee": map[string]string{
			"name":  "Sam Client",
			"email": "sam@example.com",
		},
		"answers": map[string]string{"1": "Retirement"},
	}
	w = doJSON(t, router, http.MethodPost, "/api/v1/meetings", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /meetings = %d, body %s", w.Code, w.Body.String())
	}
	var meeting models.Meeting
	if err := json.Unmarshal(w.Body.Bytes(), &meeting); err != nil {
		t.Fatalf("decode meeting: %v", err)
	}
	if meeting.Duration != 30 {
		t.Errorf("duration = %d, want 30 from the link", meeting.Duration)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/meetings?link_id="+link.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /meetings = %d", w.Code)
	}
	var meetings []models.Meeting
	if err := json.Unmarshal(w.Body.Bytes(), &meetings); err != nil {
		t.Fatalf("decode meetings: %v", err)
	}
	if len(meetings) != 1 {
		t.Errorf("got %d meetings, want 1", len(meetings))
	}

	// Unknown link.
	payload["link_id"] = "no-such-link"
	if w := doJSON(t, router, http.MethodPost, "/api/v1/meetings", payload); w.Code != http.StatusNotFound {
		t.Errorf("unknown link = %d, want 404", w.Code)
	}

	// Malformed time string.
	payload["link_id"] = link.ID
	payload["time"] = "14:00"
	if w := doJSON(t, router, http.MethodPost, "/api/v1/meetings", payload); w.Code != http.StatusBadRequest {
		t.Errorf("bad time = %d, want 400", w.Code)
	}
}

func TestBookingEndpointExpiredLink(t *testing.T) {
	router, _ := newTestRouter(t)

	expired := createLinkPayload("expired")
	expired["expiration_date"] = time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	w := doJSON(t, router, http.MethodPost, "/api/v1/links", expired)
	if w.Code != http.StatusCreated {
		t.Fatalf("create expired link = %d", w.Code)
	}
	var link models.SchedulingLink
	if err := json.Unmarshal(w.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}

	payload := map[string]any{
		"link_id": link.ID,
		"date":    time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"time":    "9:00 AM",
		"attendee": map[string]string{
			"name":  "Sam Client",
			"email": "sam@example.com",
		},
	}
	if w := doJSON(t, router, http.MethodPost, "/api/v1/meetings", payload); w.Code != http.StatusBadRequest {
		t.Errorf("expired link booking = %d, want 400", w.Code)
	}
}

func TestCalendarEventsEndpoint(t *testing.T) {
	router, lister := newTestRouter(t)
	lister.events = []calendar.Event{
		{ID: "evt-1", Summary: "Meeting with Sam Client", Start: "2026-02-10T14:00:00Z"},
	}

	// No bearer token: the advisor's calendar is private.
	w := doJSON(t, router, http.MethodGet, "/api/v1/calendar/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar/events", nil)
	req.Header.Set("Authorization", "Bearer advisor-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /calendar/events = %d, body %s", w.Code, w.Body.String())
	}
	if lister.token != "advisor-token" {
		t.Errorf("forwarded token = %q, want advisor-token", lister.token)
	}
	var got []calendar.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(got) != 1 || got[0].ID != "evt-1" {
		t.Errorf("events = %+v, want evt-1", got)
	}

	// Malformed time bounds are rejected before the upstream call.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/calendar/events?time_min=yesterday", nil)
	req.Header.Set("Authorization", "Bearer advisor-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad time_min = %d, want 400", w.Code)
	}
}

func TestCalendarEventsEndpointUpstreamFailure(t *testing.T) {
	router, lister := newTestRouter(t)
	lister.err = errors.New("calendar API returned 503")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar/events", nil)
	req.Header.Set("Authorization", "Bearer advisor-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("upstream failure = %d, want 500", w.Code)
	}
}

func TestMigrateEndpointUnknownUser(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/migrate", map[string]string{"email": "nobody@example.com"})
	if w.Code != http.StatusNotFound {
		t.Errorf("migrate unknown user = %d, want 404", w.Code)
	}
}

func TestRateLimitedEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// 1 rps with burst 2: the third immediate request must be rejected.
	limiter := middleware.NewRateLimiter(1, 2)
	router.POST("/limited", middleware.Limit(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/limited", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests = %v, first two should pass", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}
}

func TestBookingEndpointRespectsMaxUses(t *testing.T) {
	router, _ := newTestRouter(t)

	capped := createLinkPayload("capped")
	capped["max_uses"] = 1
	w := doJSON(t, router, http.MethodPost, "/api/v1/links", capped)
	var link models.SchedulingLink
	if err := json.Unmarshal(w.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}

	book := func(email string) *httptest.ResponseRecorder {
		return doJSON(t, router, http.MethodPost, "/api/v1/meetings", map[string]any{
			"link_id": link.ID,
			"date":    time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
			"time":    "2:00 PM",
			"attendee": map[string]string{
				"name":  "Sam Client",
				"email": email,
			},
		})
	}

	if w := book("first@example.com"); w.Code != http.StatusCreated {
		t.Fatalf("first booking = %d, body %s", w.Code, w.Body.String())
	}
	if w := book("second@example.com"); w.Code != http.StatusBadRequest {
		t.Errorf("booking past the cap = %d, want 400", w.Code)
	}
}
