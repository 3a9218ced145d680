package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opsdash/agent-usage-tui/internal/models"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabDashboard {
		t.Error("Default tab should be Dashboard")
	}
	if len(model.tabs) != 3 {
		t.Errorf("Should have 3 tab placeholders, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	if model.Init() == nil {
		t.Error("Init returned nil command")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)

	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}
	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_Update_TabSwitch(t *testing.T) {
	model := NewModel(nil)
	model.ready = true

	tests := []struct {
		key  string
		want TabID
	}{
		{"1", TabDashboard},
		{"2", TabHistory},
		{"3", TabInfo},
	}

	for _, tt := range tests {
		newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
		m := newModel.(*Model)
		if m.activeTab != tt.want {
			t.Errorf("key %q: activeTab = %v, want %v", tt.key, m.activeTab, tt.want)
		}
	}
}

func TestModel_Update_NextPrevTab(t *testing.T) {
	model := NewModel(nil)

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyTab})
	m := newModel.(*Model)
	if m.activeTab != TabHistory {
		t.Errorf("after tab: activeTab = %v, want History", m.activeTab)
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = newModel.(*Model)
	if m.activeTab != TabDashboard {
		t.Errorf("after shift+tab: activeTab = %v, want Dashboard", m.activeTab)
	}

	// Wraps around backwards.
	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = newModel.(*Model)
	if m.activeTab != TabInfo {
		t.Errorf("wrap: activeTab = %v, want Info", m.activeTab)
	}
}

func TestModel_Update_HelpToggle(t *testing.T) {
	model := NewModel(nil)

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	m := newModel.(*Model)
	if !m.showHelp {
		t.Error("? should open help")
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	m = newModel.(*Model)
	if m.showHelp {
		t.Error("esc should close help")
	}
}

func TestModel_Update_Quit(t *testing.T) {
	model := NewModel(nil)
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestModel_Update_SummaryLoaded(t *testing.T) {
	model := NewModel(nil)
	summary := models.Summary{
		AgentName: "ProjectManager",
		Rows:      []models.UsageSummaryRow{{CustomerKey: "acme", ConversationCount: 2}},
		FetchedAt: time.Now(),
	}

	newModel, _ := model.Update(SummaryLoadedMsg{Summary: summary})
	m := newModel.(*Model)

	got, stale := m.state.Summary()
	if got == nil || stale {
		t.Fatal("summary should be stored fresh")
	}
	if got.AgentName != "ProjectManager" {
		t.Errorf("AgentName = %q", got.AgentName)
	}
}

func TestModel_Update_SummaryLoadedError(t *testing.T) {
	model := NewModel(nil)

	newModel, cmd := model.Update(SummaryLoadedMsg{Error: errors.New("no credentials")})
	m := newModel.(*Model)

	if m.state.LastError() != "no credentials" {
		t.Errorf("LastError = %q", m.state.LastError())
	}
	if cmd == nil {
		t.Error("error should produce a notification command")
	}
}

func TestModel_Update_Notifications(t *testing.T) {
	model := NewModel(nil)

	newModel, _ := model.Update(AddNotificationMsg{
		Type:     NotificationSuccess,
		Message:  "Exported",
		Duration: time.Minute,
	})
	m := newModel.(*Model)

	notifs := m.state.Notifications()
	if len(notifs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifs))
	}

	newModel, _ = m.Update(RemoveNotificationMsg{ID: notifs[0].ID})
	m = newModel.(*Model)
	if len(m.state.Notifications()) != 0 {
		t.Error("notification should be removed")
	}
}

func TestModel_View_NotReady(t *testing.T) {
	model := NewModel(nil)
	view := model.View()
	if !strings.Contains(view, "Loading") {
		t.Errorf("pre-ready view should show loading, got %q", view)
	}
}

func TestModel_View_Navbar(t *testing.T) {
	model := NewModel(nil)
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m := newModel.(*Model)

	view := m.View()
	for _, name := range []string{"Usage", "History", "Info"} {
		if !strings.Contains(view, name) {
			t.Errorf("navbar should contain %q", name)
		}
	}
}

func TestTabID_String(t *testing.T) {
	tests := []struct {
		id   TabID
		want string
	}{
		{TabDashboard, "Usage"},
		{TabHistory, "History"},
		{TabInfo, "Info"},
		{TabID(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("TabID(%d).String() = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp should not be empty")
	}
	if km.Today.Keys()[0] != "t" || km.Week.Keys()[0] != "w" || km.Month.Keys()[0] != "m" {
		t.Error("period keys should be t/w/m")
	}
}
