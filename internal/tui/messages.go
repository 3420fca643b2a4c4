package tui

import (
	"ipdash/internal/dashboard"
	"ipdash/internal/storage/models"
)

// Controller messages, delivered through ProgramView.

type panelUpdateMsg struct {
	update dashboard.Update
}

type noticeMsg struct {
	notice dashboard.Notice
}

type controllerStartedMsg struct {
	err error
}

// History messages.

type historyLoadedMsg struct {
	history []*models.BestIPObservation
	err     error
}

// Settings update messages.

type settingSavedMsg struct {
	key   string
	value string
	prev  string
	err   error
}

// Notification message.

type notificationMsg struct {
	text    string
	isError bool
}

type clearNotificationMsg struct {
	version int
}
