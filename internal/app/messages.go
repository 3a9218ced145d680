package app

import (
	"time"

	"github.com/opsdash/agent-usage-tui/internal/models"
	"github.com/opsdash/agent-usage-tui/internal/services"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// SubscriptionEventMsg carries the service event channel after subscribing.
type SubscriptionEventMsg struct {
	Channel <-chan services.ServiceEvent
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SummaryLoadedMsg contains the result of a load or forced refresh.
type SummaryLoadedMsg struct {
	Summary models.Summary
	Error   error
}

// ExportResultMsg contains the result of a CSV export.
type ExportResultMsg struct {
	Path  string
	Error error
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}
