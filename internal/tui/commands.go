package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ipdash/internal/dashboard"
	pkgerrors "ipdash/pkg/errors"
)

const historyLimit = 5

// startController starts the poll loop; the first refresh fires immediately.
func startController(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return controllerStartedMsg{err: ctrl.Start()}
	}
}

// refreshAll refreshes every panel outside the poll schedule.
func refreshAll(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.RefreshAll(context.Background())
		return nil
	}
}

// refreshPanel refreshes a single panel.
func refreshPanel(ctrl Controller, p dashboard.Panel) tea.Cmd {
	return func() tea.Msg {
		ctrl.RefreshPanel(context.Background(), p)
		return nil
	}
}

// runTest triggers an optimization run. Progress and outcome arrive as
// notices; only a rejected trigger is reported here.
func runTest(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		_, err := ctrl.RunTest(context.Background())
		if errors.Is(err, pkgerrors.ErrActionInProgress) {
			return notificationMsg{text: "A test is already running", isError: true}
		}
		return nil
	}
}

// saveConfig posts text as the new server config.
func saveConfig(ctrl Controller, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := ctrl.SaveConfig(context.Background(), text)
		if errors.Is(err, pkgerrors.ErrActionInProgress) {
			return notificationMsg{text: "A save is already in progress", isError: true}
		}
		return nil
	}
}

// loadHistory fetches the most recent best IP changes.
func loadHistory(store HistoryStore) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		history, err := store.BestIPHistory(context.Background(), historyLimit)
		return historyLoadedMsg{history: history, err: err}
	}
}

// saveSetting persists a single setting.
func saveSetting(store SettingsStore, key, value, prev string) tea.Cmd {
	return func() tea.Msg {
		if store == nil {
			return settingSavedMsg{key: key, value: value, prev: prev, err: fmt.Errorf("settings are read-only")}
		}
		err := store.SetSetting(context.Background(), key, value)
		return settingSavedMsg{key: key, value: value, prev: prev, err: err}
	}
}

// clearNotification returns a command that fires after a delay.
func clearNotification(d time.Duration, version int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearNotificationMsg{version: version}
	})
}
