package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ipdash/internal/api"
	"ipdash/internal/config"
	"ipdash/internal/dashboard"
	"ipdash/internal/storage/models"
)

// Tab indices.
const (
	tabDashboard = 0
	tabLogs      = 1
	tabConfig    = 2
	tabSettings  = 3
	tabCount     = 4
)

// Controller is the part of dashboard.Controller the UI drives.
type Controller interface {
	Start() error
	RefreshAll(ctx context.Context)
	RefreshPanel(ctx context.Context, p dashboard.Panel) (dashboard.Update, bool)
	RunTest(ctx context.Context) (*api.ActionResult, error)
	SaveConfig(ctx context.Context, text string) (*api.ActionResult, error)
	ResolveDraft(edited string, normalize func(string) string) string
}

// HistoryStore lists recent best IP changes.
type HistoryStore interface {
	BestIPHistory(ctx context.Context, limit int) ([]*models.BestIPObservation, error)
}

// SettingsStore validates and persists a setting.
type SettingsStore interface {
	SetSetting(ctx context.Context, key, value string) error
}

// Deps holds all dependencies injected into the TUI.
type Deps struct {
	Controller Controller
	History    HistoryStore
	Settings   SettingsStore
	Config     config.Config
}

// Model is the root BubbleTea model.
type Model struct {
	// Dependencies.
	ctrl     Controller
	history  HistoryStore
	settings SettingsStore
	server   string

	// Dimensions.
	width  int
	height int

	// Navigation.
	activeTab int
	showHelp  bool

	// Panel state for the header pill.
	loaded map[dashboard.Panel]bool
	failed map[dashboard.Panel]bool

	// Actions in flight; their controls are disabled.
	busy map[dashboard.Action]bool

	// Tab models.
	dashboardTab dashboardModel
	logsTab      logsModel
	configTab    configModel
	settingsTab  settingsModel

	// Notification.
	notification    string
	notificationErr bool
	notifVersion    int

	// Spinner for async operations.
	spinner spinner.Model
}

// NewModel creates a new root Model.
func NewModel(deps Deps) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	keys.RunTest.SetEnabled(true)
	keys.Save.SetEnabled(true)

	return &Model{
		ctrl:         deps.Controller,
		history:      deps.History,
		settings:     deps.Settings,
		server:       deps.Config.ServerURL,
		activeTab:    tabDashboard,
		loaded:       make(map[dashboard.Panel]bool),
		failed:       make(map[dashboard.Panel]bool),
		busy:         make(map[dashboard.Action]bool),
		spinner:      s,
		dashboardTab: newDashboardModel(),
		logsTab:      newLogsModel(),
		configTab:    newConfigModel(),
		settingsTab:  newSettingsModel(deps.Config),
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, loadHistory(m.history)}
	if m.ctrl != nil {
		cmds = append(cmds, startController(m.ctrl))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	prevNotifVersion := m.notifVersion

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		ch := m.contentHeight()
		m.dashboardTab.setSize(msg.Width, ch)
		m.logsTab.setSize(msg.Width, ch)
		m.configTab.setSize(msg.Width, ch)
		m.settingsTab.setSize(msg.Width, ch)
		return m, nil

	case tea.KeyMsg:
		if cmd := m.handleGlobalKey(msg); cmd != nil {
			return m, cmd
		}

	// Controller.
	case controllerStartedMsg:
		if msg.err != nil {
			m.setNotification(fmt.Sprintf("Polling failed to start: %v", msg.err), true)
		}
	case panelUpdateMsg:
		cmds = append(cmds, m.applyUpdate(msg.update))
	case noticeMsg:
		cmds = append(cmds, m.handleNotice(msg.notice))

	// History.
	case historyLoadedMsg:
		if msg.err == nil {
			m.dashboardTab.setHistory(msg.history)
		}

	// Settings.
	case settingSavedMsg:
		m.settingsTab.saved(msg)
		if msg.err != nil {
			m.setNotification(fmt.Sprintf("Save failed: %v", msg.err), true)
		} else {
			m.setNotification(fmt.Sprintf("Saved %s", msg.key), false)
		}

	// Notification.
	case notificationMsg:
		m.setNotification(msg.text, msg.isError)
	case clearNotificationMsg:
		if msg.version == m.notifVersion {
			m.notification = ""
			m.notificationErr = false
		}
	}

	// Spinner.
	if m.anyBusy() {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Schedule notification auto-clear when a new notification was set.
	if m.notifVersion > prevNotifVersion && m.notification != "" {
		cmds = append(cmds, clearNotification(4*time.Second, m.notifVersion))
	}

	// Delegate to active tab.
	switch m.activeTab {
	case tabDashboard:
		cmds = append(cmds, m.dashboardTab.Update(msg, m))
	case tabLogs:
		cmds = append(cmds, m.logsTab.Update(msg, m))
	case tabConfig:
		cmds = append(cmds, m.configTab.Update(msg, m))
	case tabSettings:
		cmds = append(cmds, m.settingsTab.Update(msg, m))
	}

	return m, tea.Batch(cmds...)
}

// applyUpdate routes a panel update to the tab that shows it.
func (m *Model) applyUpdate(u dashboard.Update) tea.Cmd {
	m.loaded[u.Panel] = true
	m.failed[u.Panel] = u.Err != nil

	switch u.Panel {
	case dashboard.PanelBestIP:
		prev := m.dashboardTab.bestIP
		m.dashboardTab.setBestIP(u)
		if u.Err == nil && !u.Placeholder && (prev.Text != u.Text || prev.Err != nil) {
			return loadHistory(m.history)
		}
	case dashboard.PanelResults:
		m.dashboardTab.setResults(u)
	case dashboard.PanelLogs:
		m.logsTab.apply(u)
	case dashboard.PanelConfig:
		m.configTab.apply(u)
	}
	return nil
}

// handleNotice tracks action state. The spinner only ticks while something
// is busy, so a newly busy action restarts it.
func (m *Model) handleNotice(n dashboard.Notice) tea.Cmd {
	idle := !m.anyBusy()
	m.setBusy(n.Action, n.Busy)
	if n.Busy {
		if idle {
			return m.spinner.Tick
		}
		return nil
	}

	label := "Test"
	if n.Action == dashboard.ActionSaveConfig {
		label = "Save"
	}
	if n.Err != nil {
		m.setNotification(fmt.Sprintf("%s failed: %v", label, n.Err), true)
		return nil
	}
	if n.Action == dashboard.ActionSaveConfig {
		m.configTab.markSaved()
	}
	text := n.Message
	if text == "" {
		text = label + " succeeded"
	}
	m.setNotification(text, false)
	return nil
}

// startAction disables a's control right away, before the controller's busy
// notice arrives, so a repeated key press is ignored.
func (m *Model) startAction(a dashboard.Action, cmd tea.Cmd) tea.Cmd {
	idle := !m.anyBusy()
	m.setBusy(a, true)
	if idle {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m *Model) setBusy(a dashboard.Action, busy bool) {
	m.busy[a] = busy
	switch a {
	case dashboard.ActionRunTest:
		keys.RunTest.SetEnabled(!busy)
	case dashboard.ActionSaveConfig:
		keys.Save.SetEnabled(!busy)
	}
}

func (m *Model) anyBusy() bool {
	for _, b := range m.busy {
		if b {
			return true
		}
	}
	return false
}

// health summarizes panel outcomes for the header.
func (m *Model) health() health {
	loaded, failed := 0, 0
	for _, p := range dashboard.Panels {
		if m.loaded[p] {
			loaded++
			if m.failed[p] {
				failed++
			}
		}
	}
	switch {
	case loaded == 0:
		return healthWaiting
	case failed == 0:
		return healthLive
	case failed == loaded:
		return healthOffline
	default:
		return healthDegraded
	}
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := renderHeader(m.activeTab, m.health(), m.server, m.width)

	var content string
	switch m.activeTab {
	case tabDashboard:
		content = m.dashboardTab.View(m.spinner, m.busy[dashboard.ActionRunTest])
	case tabLogs:
		content = m.logsTab.View()
	case tabConfig:
		content = m.configTab.View(m.busy[dashboard.ActionSaveConfig])
	case tabSettings:
		content = m.settingsTab.View()
	}

	var notif string
	if m.notification != "" {
		if m.notificationErr {
			notif = notifErrorStyle.Render("! " + m.notification)
		} else {
			notif = notifSuccessStyle.Render("* " + m.notification)
		}
	}

	footer := renderFooter(renderHelpBar(m.showHelp), m.width)

	parts := []string{header}
	if notif != "" {
		parts = append(parts, notif)
	}
	parts = append(parts, content, footer)
	output := lipgloss.JoinVertical(lipgloss.Left, parts...)

	// Force exactly m.height lines to prevent BubbleTea rendering drift.
	return forceHeight(output, m.width, m.height)
}

// forceHeight ensures the string has exactly `height` lines, each padded to `width`.
// This prevents BubbleTea from leaving ghost lines when switching tabs.
func forceHeight(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	blank := strings.Repeat(" ", width)
	for len(lines) < height {
		lines = append(lines, blank)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) contentHeight() int {
	overhead := 5
	if m.showHelp {
		overhead += 3
	}
	h := m.height - overhead
	if h < 1 {
		h = 1
	}
	return h
}

// editing reports whether a text field owns the keyboard.
func (m *Model) editing() bool {
	return (m.activeTab == tabSettings && m.settingsTab.editing) ||
		(m.activeTab == tabConfig && m.configTab.editing)
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) tea.Cmd {
	if m.editing() {
		return nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		ch := m.contentHeight()
		m.dashboardTab.setSize(m.width, ch)
		m.logsTab.setSize(m.width, ch)
		m.configTab.setSize(m.width, ch)
		m.settingsTab.setSize(m.width, ch)
		return nil

	case key.Matches(msg, keys.TabNext):
		m.activeTab = (m.activeTab + 1) % tabCount
		return nil

	case key.Matches(msg, keys.TabPrev):
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		return nil

	case key.Matches(msg, keys.RunTest):
		if m.ctrl == nil || m.busy[dashboard.ActionRunTest] {
			return nil
		}
		return m.startAction(dashboard.ActionRunTest, runTest(m.ctrl))

	case key.Matches(msg, keys.Refresh):
		if m.ctrl == nil {
			return nil
		}
		return refreshAll(m.ctrl)
	}

	return nil
}

func (m *Model) setNotification(text string, isErr bool) {
	m.notification = text
	m.notificationErr = isErr
	m.notifVersion++
}

// NewProgram creates a bubbletea program with alt screen. view must be the
// View the controller in deps was created with.
func NewProgram(deps Deps, view *ProgramView) *tea.Program {
	m := NewModel(deps)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if view != nil {
		view.Attach(p)
	}
	return p
}
