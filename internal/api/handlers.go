package api

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/advisorconnect/advisorconnect/internal/calendar"
	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
	"github.com/advisorconnect/advisorconnect/internal/middleware"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/services"
)

// SetupRoutes configures all Gin API routes and injects the services.
// Mutating endpoints sit behind the per-IP rate limiter.
func SetupRoutes(
	router *gin.Engine,
	linkService *services.LinkService,
	bookingService *services.BookingService,
	migrationService *services.MigrationService,
	events calendar.EventLister,
	limiter *middleware.RateLimiter,
) {
	// Health check route, used by load balancers and monitoring
	router.GET("/health", HealthCheckHandler)

	api := router.Group("/api/v1")
	{
		api.POST("/links", middleware.Limit(limiter), CreateLinkHandler(linkService))
		api.GET("/links", ListLinksHandler(linkService))
		api.GET("/links/:slug", GetLinkHandler(linkService))
		api.POST("/meetings", middleware.Limit(limiter), SubmitBookingHandler(bookingService))
		api.GET("/meetings", ListMeetingsHandler(bookingService))
		api.GET("/calendar/events", ListCalendarEventsHandler(events))
		api.POST("/migrate", MigrateHandler(migrationService))
	}
}

// HealthCheckHandler handles the /health route to verify service status.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// QuestionPayload is one custom question in a link creation request.
type QuestionPayload struct {
	ID   string `json:"id"`
	Text string `json:"text" binding:"required"`
}

// CreateLinkRequest is the JSON body for creating a scheduling link.
type CreateLinkRequest struct {
	OwnerEmail      string            `json:"owner_email" binding:"required,email"`
	Name            string            `json:"name" binding:"required"`
	Slug            string            `json:"slug" binding:"required"`
	Duration        int               `json:"duration" binding:"required"`
	MaxAdvanceDays  *int              `json:"max_advance_days"`
	MaxUses         *int              `json:"max_uses"`
	ExpirationDate  *string           `json:"expiration_date"` // ISO date or RFC3339
	CustomQuestions []QuestionPayload `json:"custom_questions" binding:"omitempty,dive"`
}

// CreateLinkHandler handles POST /api/v1/links.
func CreateLinkHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		var expiration *time.Time
		if req.ExpirationDate != nil && *req.ExpirationDate != "" {
			t, err := parseDate(*req.ExpirationDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expiration_date: " + err.Error()})
				return
			}
			expiration = &t
		}

		questions := make([]models.Question, 0, len(req.CustomQuestions))
		for _, q := range req.CustomQuestions {
			questions = append(questions, models.Question{ID: q.ID, Text: q.Text})
		}

		link, err := linkService.CreateLink(req.OwnerEmail, services.CreateLinkSpec{
			Name:            req.Name,
			Slug:            req.Slug,
			Duration:        req.Duration,
			MaxAdvanceDays:  req.MaxAdvanceDays,
			MaxUses:         req.MaxUses,
			ExpirationDate:  expiration,
			CustomQuestions: questions,
		})
		if err != nil {
			respondError(c, err, "Failed to create scheduling link")
			return
		}

		c.JSON(http.StatusCreated, link)
	}
}

// ListLinksHandler handles GET /api/v1/links?email= for the dashboard.
func ListLinksHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
			return
		}

		links, err := linkService.ListLinksByOwner(email)
		if err != nil {
			respondError(c, err, "Failed to list scheduling links")
			return
		}
		c.JSON(http.StatusOK, links)
	}
}

// GetLinkHandler handles GET /api/v1/links/:slug. The booking page
// calls this before rendering; the owner's public display fields come
// along preloaded.
func GetLinkHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := linkService.GetLinkBySlug(c.Param("slug"))
		if err != nil {
			respondError(c, err, "Failed to fetch scheduling link")
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

// AttendeePayload identifies the client booking the meeting.
type AttendeePayload struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	ProfileURL string `json:"profile_url"`
}

// BookingPayload is the JSON body for submitting a booking.
type BookingPayload struct {
	LinkID   string            `json:"link_id" binding:"required"`
	Date     string            `json:"date" binding:"required"` // ISO date
	Time     string            `json:"time" binding:"required"` // e.g. "2:00 PM"
	Attendee AttendeePayload   `json:"attendee" binding:"required"`
	Notes    string            `json:"notes"`
	Answers  map[string]string `json:"answers"`
}

// SubmitBookingHandler handles POST /api/v1/meetings. A bearer token in
// the Authorization header, when present, is forwarded for calendar
// sync; its absence never blocks the booking.
func SubmitBookingHandler(bookingService *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookingPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date: " + err.Error()})
			return
		}

		meeting, err := bookingService.SubmitBooking(services.BookingRequest{
			LinkID:      req.LinkID,
			Date:        date,
			Time:        req.Time,
			ClientName:  req.Attendee.Name,
			ClientEmail: req.Attendee.Email,
			ProfileURL:  req.Attendee.ProfileURL,
			Notes:       req.Notes,
			Answers:     req.Answers,
			AccessToken: bearerToken(c),
		})
		if err != nil {
			respondError(c, err, "Failed to create meeting")
			return
		}

		c.JSON(http.StatusCreated, meeting)
	}
}

// ListMeetingsHandler handles GET /api/v1/meetings?link_id=.
func ListMeetingsHandler(bookingService *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		linkID := c.Query("link_id")
		if linkID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "link_id query parameter is required"})
			return
		}

		meetings, err := bookingService.ListMeetingsByLink(linkID)
		if err != nil {
			respondError(c, err, "Failed to list meetings")
			return
		}
		c.JSON(http.StatusOK, meetings)
	}
}

// ListCalendarEventsHandler handles GET /api/v1/calendar/events. It
// requires a bearer token and proxies an upcoming-events query so the
// dashboard can render the advisor's availability. time_min and
// time_max default to one week back and thirty days ahead.
func ListCalendarEventsHandler(events calendar.EventLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "a bearer token is required"})
			return
		}

		now := time.Now()
		timeMin := now.AddDate(0, 0, -7)
		timeMax := now.AddDate(0, 0, 30)
		var err error
		if v := c.Query("time_min"); v != "" {
			if timeMin, err = time.Parse(time.RFC3339, v); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time_min: " + err.Error()})
				return
			}
		}
		if v := c.Query("time_max"); v != "" {
			if timeMax, err = time.Parse(time.RFC3339, v); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time_max: " + err.Error()})
				return
			}
		}

		list, err := events.ListEvents(c.Request.Context(), token, timeMin, timeMax)
		if err != nil {
			respondError(c, err, "Failed to fetch calendar events")
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// MigrateRequest triggers the one-time legacy storage migration.
type MigrateRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MigrateHandler handles POST /api/v1/migrate. Intended to be invoked
// once per authenticated session as a transitional mechanism.
func MigrateHandler(migrationService *services.MigrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MigrateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		report, err := migrationService.Migrate(req.Email)
		if err != nil {
			respondError(c, err, "Migration failed")
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// respondError maps the service error taxonomy onto HTTP statuses:
// not-found 404, slug conflicts 409, validation and policy violations
// 400, everything else a logged 500.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrLinkNotFound), errors.Is(err, apperrors.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrLinkExpired), errors.Is(err, apperrors.ErrLinkExhausted):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// bearerToken extracts the bearer credential from the Authorization
// header, if any.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// parseDate accepts both bare ISO dates and full RFC3339 timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
