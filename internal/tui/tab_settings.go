package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ipdash/internal/config"
)

type settingsModel struct {
	values  map[string]string
	cursor  int
	editing bool
	input   textinput.Model
	width   int
	height  int
}

func newSettingsModel(cfg config.Config) settingsModel {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorPurple)
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorFg)

	values := make(map[string]string, len(config.Defs))
	for _, def := range config.Defs {
		v, _ := cfg.Get(def.Key)
		values[def.Key] = v
	}
	return settingsModel{values: values, input: ti}
}

func (sm *settingsModel) setSize(w, h int) {
	sm.width = w
	sm.height = h
	sm.input.Width = w / 2
}

func (sm *settingsModel) currentDef() config.SettingDef {
	if sm.cursor >= 0 && sm.cursor < len(config.Defs) {
		return config.Defs[sm.cursor]
	}
	return config.Defs[0]
}

func (sm *settingsModel) currentValue() string {
	return sm.values[sm.currentDef().Key]
}

// choiceIndex returns the current index in the choices slice for a choice setting.
func (sm *settingsModel) choiceIndex(def config.SettingDef) int {
	val := sm.values[def.Key]
	for i, c := range def.Choices {
		if c == val {
			return i
		}
	}
	return 0
}

// saved applies the outcome of a save; a rejected value is rolled back.
func (sm *settingsModel) saved(msg settingSavedMsg) {
	if msg.err != nil {
		sm.values[msg.key] = msg.prev
	}
}

func (sm *settingsModel) Update(msg tea.Msg, root *Model) tea.Cmd {
	if sm.editing {
		return sm.updateEditing(msg, root)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	def := sm.currentDef()
	switch km.String() {
	case "up", "k":
		if sm.cursor > 0 {
			sm.cursor--
		}
	case "down", "j":
		if sm.cursor < len(config.Defs)-1 {
			sm.cursor++
		}
	case "enter":
		if def.Kind == config.SettingChoice {
			return sm.cycleChoice(root, 1)
		}
		sm.editing = true
		sm.input.SetValue(sm.currentValue())
		sm.input.Focus()
		return textinput.Blink
	case "left", "h":
		if def.Kind == config.SettingChoice {
			return sm.cycleChoice(root, -1)
		}
	case "right", "l":
		if def.Kind == config.SettingChoice {
			return sm.cycleChoice(root, 1)
		}
	}
	return nil
}

// cycleChoice moves to the next/prev choice and saves it.
func (sm *settingsModel) cycleChoice(root *Model, dir int) tea.Cmd {
	def := sm.currentDef()
	prev := sm.values[def.Key]
	idx := (sm.choiceIndex(def) + dir + len(def.Choices)) % len(def.Choices)
	val := def.Choices[idx]
	sm.values[def.Key] = val
	return saveSetting(root.settings, def.Key, val, prev)
}

func (sm *settingsModel) updateEditing(msg tea.Msg, root *Model) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Back):
			sm.editing = false
			sm.input.Blur()
			return nil
		case km.String() == "enter":
			sm.editing = false
			sm.input.Blur()
			def := sm.currentDef()
			prev := sm.values[def.Key]
			val := strings.TrimSpace(sm.input.Value())
			sm.values[def.Key] = val
			return saveSetting(root.settings, def.Key, val, prev)
		}
	}

	var cmd tea.Cmd
	sm.input, cmd = sm.input.Update(msg)
	return cmd
}

func (sm *settingsModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")

	for i, def := range config.Defs {
		isSelected := i == sm.cursor
		val := sm.values[def.Key]

		var line string
		if isSelected {
			label := lipgloss.NewStyle().Bold(true).Foreground(colorPurple).Width(20).Render("> " + def.Label)
			switch {
			case sm.editing:
				line = label + sm.input.View()
			case def.Kind == config.SettingChoice:
				line = label + sm.renderChoices(def, val)
			default:
				line = label + lipgloss.NewStyle().Foreground(colorFg).Render(val)
			}
		} else {
			label := lipgloss.NewStyle().Foreground(colorFg).Width(20).Render("  " + def.Label)
			line = label + dimStyle.Render(val)
		}
		b.WriteString(line + "\n")

		if isSelected && !sm.editing {
			hint := def.Description
			if def.Kind == config.SettingChoice {
				hint += "  (enter/arrows to change)"
			} else {
				hint += "  (enter to edit)"
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(colorDimFg).
				PaddingLeft(2).
				Render("  "+hint) + "\n")
		}
	}

	b.WriteString("\n" + dimStyle.Render("Saved settings take effect the next time ipdash starts.") + "\n")
	return forceHeight(b.String(), sm.width, sm.height)
}

// renderChoices renders the choice selector with the active choice highlighted.
func (sm *settingsModel) renderChoices(def config.SettingDef, current string) string {
	var parts []string
	for _, c := range def.Choices {
		if c == current {
			parts = append(parts, lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPurple).
				Render("["+c+"]"))
		} else {
			parts = append(parts, dimStyle.Render(" "+c+" "))
		}
	}
	return strings.Join(parts, " ")
}
