package monitor

import (
	"log"
	"sync"
	"time"

	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/services"
)

// LinkMonitor periodically re-derives every scheduling link's status
// (active / expired / exhausted) and logs transitions, so operators can
// see links silently going dark without waiting for a failed booking.
type LinkMonitor struct {
	linkRepo    repository.LinkRepository
	meetingRepo repository.MeetingRepository
	interval    time.Duration
	knownStates map[string]services.LinkStatus // link ID -> last observed status
	mu          sync.Mutex                     // Protects concurrent access to knownStates
}

// NewLinkMonitor creates and returns a new LinkMonitor.
func NewLinkMonitor(linkRepo repository.LinkRepository, meetingRepo repository.MeetingRepository, interval time.Duration) *LinkMonitor {
	return &LinkMonitor{
		linkRepo:    linkRepo,
		meetingRepo: meetingRepo,
		interval:    interval,
		knownStates: make(map[string]services.LinkStatus),
	}
}

// Start launches the periodic scan loop. Blocking; run it in a
// goroutine.
func (m *LinkMonitor) Start() {
	log.Printf("[MONITOR] Starting link status monitor with interval of %v...", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Immediate scan on startup before waiting for the first tick
	m.checkLinks()

	for range ticker.C {
		m.checkLinks()
	}
}

// checkLinks evaluates every link's current status and logs changes
// against the previous observation.
func (m *LinkMonitor) checkLinks() {
	links, err := m.linkRepo.GetAllLinks()
	if err != nil {
		log.Printf("[MONITOR] ERROR retrieving links for status scan: %v", err)
		return
	}

	now := time.Now()
	for _, link := range links {
		count, err := m.meetingRepo.CountMeetingsByLinkID(link.ID)
		if err != nil {
			log.Printf("[MONITOR] ERROR counting meetings for link %s: %v", link.Slug, err)
			continue
		}
		currentState := services.EvaluateLinkStatus(&link, count, now)

		m.mu.Lock()
		previousState, exists := m.knownStates[link.ID]
		m.knownStates[link.ID] = currentState
		m.mu.Unlock()

		if !exists {
			log.Printf("[MONITOR] Initial state for link %s: %s", link.Slug, currentState)
			continue
		}
		if currentState != previousState {
			log.Printf("[NOTIFICATION] Link %s changed from %s to %s!", link.Slug, previousState, currentState)
		}
	}
}
