package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ipdash/internal/dashboard"
)

type logsModel struct {
	viewport viewport.Model
	width    int
	height   int

	loaded bool
	failed bool
	text   string
}

func newLogsModel() logsModel {
	return logsModel{viewport: viewport.New(0, 0)}
}

func (lm *logsModel) setSize(w, h int) {
	lm.width = w
	lm.height = h
	lm.viewport.Width = w
	// Title line.
	lm.viewport.Height = max(h-1, 1)
	lm.render(false)
}

// apply replaces the log text. Server logs are tailed, so a scroll-to-bottom
// update always ends with the last line visible.
func (lm *logsModel) apply(u dashboard.Update) {
	lm.loaded = true
	lm.failed = u.Err != nil
	lm.text = u.Text
	lm.render(u.ScrollToBottom)
}

func (lm *logsModel) render(bottom bool) {
	content := lm.text
	switch {
	case !lm.loaded:
		content = placeholderStyle.Render("Loading...")
	case lm.failed:
		content = errorStyle.Render(lm.text)
	}
	lm.viewport.SetContent(content)
	if bottom {
		lm.viewport.GotoBottom()
	}
}

func (lm *logsModel) Update(msg tea.Msg, root *Model) tea.Cmd {
	var cmd tea.Cmd
	lm.viewport, cmd = lm.viewport.Update(msg)
	return cmd
}

func (lm *logsModel) View() string {
	title := cardTitleStyle.Render("Logs")
	if lm.loaded && !lm.failed {
		title += dimStyle.Render("  (tail, newest at bottom)")
	}
	content := lipgloss.JoinVertical(lipgloss.Left, title, lm.viewport.View())
	return forceHeight(content, lm.width, lm.height)
}
