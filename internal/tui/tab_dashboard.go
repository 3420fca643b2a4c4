package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ipdash/internal/dashboard"
	"ipdash/internal/storage/models"
)

const maxColumnWidth = 32

type dashboardModel struct {
	width  int
	height int

	bestIP    dashboard.Update
	hasBestIP bool
	updatedAt time.Time
	history   []*models.BestIPObservation

	results    dashboard.Update
	hasResults bool
	table      table.Model
}

func newDashboardModel() dashboardModel {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(resultsTableStyles())
	return dashboardModel{table: t}
}

func (dm *dashboardModel) setSize(w, h int) {
	dm.width = w
	dm.height = h
	dm.adjustTableHeight()
}

func (dm *dashboardModel) setBestIP(u dashboard.Update) {
	dm.bestIP = u
	dm.hasBestIP = true
	dm.updatedAt = time.Now()
}

func (dm *dashboardModel) setHistory(h []*models.BestIPObservation) {
	dm.history = h
	dm.adjustTableHeight()
}

// setResults replaces the whole table. Rows are cleared before the columns
// change so the table never renders rows wider than its column set.
func (dm *dashboardModel) setResults(u dashboard.Update) {
	dm.results = u
	dm.hasResults = true
	if u.Table == nil {
		dm.table.SetRows(nil)
		return
	}

	cols := make([]table.Column, len(u.Table.Columns))
	for i, title := range u.Table.Columns {
		w := lipgloss.Width(title)
		for _, row := range u.Table.Rows {
			if cw := lipgloss.Width(row[i]); cw > w {
				w = cw
			}
		}
		cols[i] = table.Column{Title: title, Width: min(w+1, maxColumnWidth)}
	}
	rows := make([]table.Row, len(u.Table.Rows))
	for i, r := range u.Table.Rows {
		rows[i] = table.Row(r)
	}

	dm.table.SetRows(nil)
	dm.table.SetColumns(cols)
	dm.table.SetRows(rows)
	if dm.table.Cursor() >= len(rows) {
		dm.table.SetCursor(0)
	}
}

func (dm *dashboardModel) cardHeight() int {
	// Border, title, IP line, controls line.
	h := 2 + 3
	if len(dm.history) > 0 {
		h++
	}
	return h
}

func (dm *dashboardModel) adjustTableHeight() {
	// Card, blank line, results title.
	th := dm.height - dm.cardHeight() - 2
	if th < 1 {
		th = 1
	}
	dm.table.SetHeight(th)
}

func (dm *dashboardModel) Update(msg tea.Msg, root *Model) tea.Cmd {
	if _, ok := msg.(tea.KeyMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	dm.table, cmd = dm.table.Update(msg)
	return cmd
}

func (dm *dashboardModel) View(sp spinner.Model, testing bool) string {
	card := dm.viewCard(sp, testing)
	results := dm.viewResults()
	content := lipgloss.JoinVertical(lipgloss.Left, card, "", results)
	return forceHeight(content, dm.width, dm.height)
}

func (dm *dashboardModel) viewCard(sp spinner.Model, testing bool) string {
	var ip string
	switch {
	case !dm.hasBestIP:
		ip = placeholderStyle.Render("Loading...")
	case dm.bestIP.Err != nil:
		ip = errorStyle.Render(dm.bestIP.Text)
	case dm.bestIP.Placeholder:
		ip = placeholderStyle.Render(dm.bestIP.Text)
	default:
		ip = bestIPStyle.Render(dm.bestIP.Text)
	}

	controls := button("t  Run test", !testing)
	if testing {
		controls += "  " + sp.View() + " " + warningStyle.Render("Testing...")
	}
	if !dm.updatedAt.IsZero() {
		controls += "  " + dimStyle.Render("updated "+dm.updatedAt.Format("15:04:05"))
	}

	lines := []string{cardTitleStyle.Render("Best IP"), ip, controls}
	if len(dm.history) > 0 {
		lines = append(lines, dimStyle.Render("previous: "+formatHistory(dm.history)))
	}

	w := dm.width - 4
	if w < 30 {
		w = 30
	}
	return cardStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (dm *dashboardModel) viewResults() string {
	title := cardTitleStyle.Render("Results")
	switch {
	case !dm.hasResults:
		return lipgloss.JoinVertical(lipgloss.Left, title, placeholderStyle.Render("Loading..."))
	case dm.results.Err != nil:
		return lipgloss.JoinVertical(lipgloss.Left, title, errorStyle.Render(dm.results.Text))
	case dm.results.Table == nil:
		return lipgloss.JoinVertical(lipgloss.Left, title, placeholderStyle.Render(dm.results.Text))
	}
	count := dimStyle.Render(fmt.Sprintf(" (%d)", len(dm.results.Table.Rows)))
	return lipgloss.JoinVertical(lipgloss.Left, title+count, dm.table.View())
}

func formatHistory(history []*models.BestIPObservation) string {
	parts := make([]string, 0, len(history))
	for _, h := range history {
		parts = append(parts, fmt.Sprintf("%s (%s)", h.IP, h.ObservedAt.Local().Format("Jan 2 15:04")))
	}
	return strings.Join(parts, ", ")
}
