package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"ipdash/internal/dashboard"
)

// ProgramView forwards controller output into a running bubbletea program.
// Updates sent before Attach are dropped.
type ProgramView struct {
	program atomic.Pointer[tea.Program]
}

// NewProgramView creates an unattached view.
func NewProgramView() *ProgramView {
	return &ProgramView{}
}

// Attach sets the program that receives messages.
func (v *ProgramView) Attach(p *tea.Program) {
	v.program.Store(p)
}

func (v *ProgramView) Apply(u dashboard.Update) {
	if p := v.program.Load(); p != nil {
		p.Send(panelUpdateMsg{update: u})
	}
}

func (v *ProgramView) Notify(n dashboard.Notice) {
	if p := v.program.Load(); p != nil {
		p.Send(noticeMsg{notice: n})
	}
}
