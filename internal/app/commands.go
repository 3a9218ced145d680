package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opsdash/agent-usage-tui/internal/models"
	"github.com/opsdash/agent-usage-tui/internal/services"
)

const (
	// DefaultTickInterval is the interval between notification sweeps.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// loadTimeout bounds a single load or refresh, including paging and
	// retries on the upstream API.
	loadTimeout = 2 * time.Minute
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: mgr.Events()}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// loadSummaryCmd returns a command that loads the usage summary, served
// from cache when fresh.
func loadSummaryCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		summary, err := mgr.Load(ctx)
		return SummaryLoadedMsg{Summary: summary, Error: err}
	}
}

// forceRefreshCmd returns a command that bypasses the cache and refetches.
func forceRefreshCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		summary, err := mgr.ForceRefresh(ctx)
		return SummaryLoadedMsg{Summary: summary, Error: err}
	}
}

// setPeriodCmd switches the reporting period and loads the new window.
func setPeriodCmd(mgr *services.Manager, p models.Period) tea.Cmd {
	return func() tea.Msg {
		mgr.SetPeriod(p, time.Time{}, time.Time{})
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		summary, err := mgr.Load(ctx)
		return SummaryLoadedMsg{Summary: summary, Error: err}
	}
}

// exportCSVCmd returns a command that writes the current summary to a CSV
// file in the working directory.
func exportCSVCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		path, err := mgr.ExportCSV(".")
		return ExportResultMsg{Path: path, Error: err}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationSuccess,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationError,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationInfo,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}
