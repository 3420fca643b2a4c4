package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ipdash/internal/dashboard"
)

type configModel struct {
	area   textarea.Model
	width  int
	height int

	loaded   bool
	editable bool
	editing  bool
	// baseline is the buffer as it looked right after the last load.
	baseline string
	// pending holds server text that arrived while the buffer was dirty.
	pending   *string
	reloading bool
	errText   string
}

func newTextarea() textarea.Model {
	ta := textarea.New()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = true
	ta.Prompt = ""
	return ta
}

func newConfigModel() configModel {
	ta := newTextarea()
	ta.Blur()
	return configModel{area: ta}
}

// normalizeText returns s as the editor would hold it after loading.
func normalizeText(s string) string {
	ta := newTextarea()
	ta.SetValue(s)
	return ta.Value()
}

func (cm *configModel) setSize(w, h int) {
	cm.width = w
	cm.height = h
	cm.area.SetWidth(max(w-2, 10))
	// Title and status lines.
	cm.area.SetHeight(max(h-3, 1))
}

func (cm *configModel) dirty() bool {
	return cm.loaded && !cm.reloading && cm.area.Value() != cm.baseline
}

// apply shows freshly fetched config text. Local edits are never clobbered:
// the new text is parked until the user reloads. A failed fetch replaces a
// clean buffer with the error; a dirty one is kept so the edits survive.
func (cm *configModel) apply(u dashboard.Update) {
	if u.Err != nil {
		cm.errText = u.Text
		if !cm.dirty() {
			cm.unload()
		}
		return
	}
	cm.errText = ""
	cm.editable = u.Editable
	if !cm.editable && cm.editing {
		cm.stopEditing()
	}

	if cm.dirty() {
		text := u.Text
		cm.pending = &text
		return
	}
	cm.pending = nil
	if cm.loaded && !cm.reloading && normalizeText(u.Text) == cm.baseline {
		return
	}
	cm.load(u.Text)
}

func (cm *configModel) load(text string) {
	cm.area.SetValue(text)
	for cm.area.Line() > 0 {
		cm.area.CursorUp()
	}
	cm.area.CursorStart()
	cm.baseline = cm.area.Value()
	cm.loaded = true
	cm.reloading = false
	cm.pending = nil
}

// unload drops the buffer until the next successful fetch.
func (cm *configModel) unload() {
	if cm.editing {
		cm.stopEditing()
	}
	cm.area.SetValue("")
	cm.baseline = ""
	cm.loaded = false
	cm.reloading = false
	cm.pending = nil
}

// markSaved makes the current buffer the new baseline. Parked server text
// predates the save and is dropped.
func (cm *configModel) markSaved() {
	cm.baseline = cm.area.Value()
	cm.pending = nil
}

func (cm *configModel) startEditing() tea.Cmd {
	if !cm.loaded || !cm.editable {
		return nil
	}
	cm.editing = true
	return cm.area.Focus()
}

func (cm *configModel) stopEditing() {
	cm.editing = false
	cm.area.Blur()
}

// reload drops local edits. Parked server text is shown at once; otherwise
// the next fetch replaces the buffer.
func (cm *configModel) reload(root *Model) tea.Cmd {
	if cm.pending != nil {
		cm.load(*cm.pending)
		return nil
	}
	cm.reloading = true
	if root.ctrl == nil {
		return nil
	}
	return refreshPanel(root.ctrl, dashboard.PanelConfig)
}

func (cm *configModel) save(root *Model) tea.Cmd {
	if root.busy[dashboard.ActionSaveConfig] {
		return nil
	}
	if !cm.loaded {
		root.setNotification("Config is not loaded", true)
		return nil
	}
	if !cm.editable {
		root.setNotification("Config is read-only in json mode", true)
		return nil
	}
	if root.ctrl == nil {
		return nil
	}
	text := root.ctrl.ResolveDraft(cm.area.Value(), normalizeText)
	return root.startAction(dashboard.ActionSaveConfig, saveConfig(root.ctrl, text))
}

func (cm *configModel) Update(msg tea.Msg, root *Model) tea.Cmd {
	km, isKey := msg.(tea.KeyMsg)
	if isKey {
		switch {
		case key.Matches(km, keys.Save):
			return cm.save(root)
		case key.Matches(km, keys.Reload):
			return cm.reload(root)
		}
	}

	if !cm.editing {
		if isKey && key.Matches(km, keys.Edit) {
			return cm.startEditing()
		}
		return nil
	}

	if isKey && key.Matches(km, keys.Back) {
		cm.stopEditing()
		return nil
	}
	var cmd tea.Cmd
	cm.area, cmd = cm.area.Update(msg)
	return cmd
}

func (cm *configModel) View(saving bool) string {
	title := cardTitleStyle.Render("Config")
	switch {
	case !cm.loaded:
		if cm.errText == "" {
			title += dimStyle.Render("  loading...")
		}
	case !cm.editable:
		title += dimStyle.Render("  read-only")
	case cm.editing:
		title += warningStyle.Render("  editing (esc to stop)")
	default:
		title += dimStyle.Render("  press e to edit")
	}
	if cm.dirty() {
		title += warningStyle.Render("  modified")
	}

	var status string
	switch {
	case cm.errText != "":
		status = errorStyle.Render(cm.errText)
	case cm.pending != nil:
		status = warningStyle.Render("Server config changed. ctrl+r discards your edits and reloads.")
	case cm.loaded:
		status = button("ctrl+s  Save", cm.editable && !saving)
	}

	parts := []string{title, status}
	if cm.loaded {
		parts = append(parts, cm.area.View())
	}
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return forceHeight(content, cm.width, cm.height)
}
