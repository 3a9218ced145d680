// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/opsdash/agent-usage-tui/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationInfo represents an informational notification.
	NotificationInfo
)

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// State is the shared application state read by all tabs. The summary
// and its stale flag are written from service events handled by the root
// model; tabs only read.
type State struct {
	mu sync.RWMutex

	summary    *models.Summary
	stale      bool
	lastError  string
	refreshing bool
	period     models.Period

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty application state.
func NewState() *State {
	return &State{
		period:        models.PeriodToday,
		notifications: make([]Notification, 0),
	}
}

// SetSummary stores a fresh summary and clears the error and stale flags.
func (s *State) SetSummary(summary models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &summary
	s.stale = false
	s.lastError = ""
	s.refreshing = false
}

// SetError records a refresh failure. If lastGood is non-nil it stays on
// display, marked stale.
func (s *State) SetError(message string, lastGood *models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = message
	s.refreshing = false
	if lastGood != nil {
		s.summary = lastGood
		s.stale = true
	}
}

// Summary returns the current summary (possibly stale) and whether it is stale.
func (s *State) Summary() (*models.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.stale
}

// LastError returns the message of the most recent refresh failure, or "".
func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// SetRefreshing marks a refresh as in flight.
func (s *State) SetRefreshing(refreshing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = refreshing
}

// Refreshing reports whether a refresh is in flight.
func (s *State) Refreshing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshing
}

// SetPeriod records the currently selected reporting period.
func (s *State) SetPeriod(p models.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = p
}

// Period returns the currently selected reporting period.
func (s *State) Period() models.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

// AddNotification adds a notification and returns its ID.
func (s *State) AddNotification(t NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := fmt.Sprintf("notif-%d", s.notificationSeq)
	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      t,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})
	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications drops all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if !n.IsExpired() {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
}

// Notifications returns a copy of the current notifications.
func (s *State) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}
