package dashboard

import "sync"

// Panel identifies one independently refreshed region of the dashboard.
type Panel int

const (
	PanelBestIP Panel = iota
	PanelResults
	PanelLogs
	PanelConfig
	panelCount
)

// Panels lists every panel in display order.
var Panels = []Panel{PanelBestIP, PanelResults, PanelLogs, PanelConfig}

func (p Panel) String() string {
	switch p {
	case PanelBestIP:
		return "best IP"
	case PanelResults:
		return "results"
	case PanelLogs:
		return "logs"
	case PanelConfig:
		return "config"
	}
	return "unknown"
}

// Table is the rendered results list. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Update replaces the whole content of one panel.
type Update struct {
	Panel Panel
	Seq   uint64

	// Text is the panel body: the IP, a placeholder, the log text, the
	// config text or the error message.
	Text string
	// Err is set when the fetch failed; Text then holds the error message.
	Err error

	Table          *Table
	Placeholder    bool
	ScrollToBottom bool
	Editable       bool
}

// Action identifies a user-triggered command.
type Action int

const (
	ActionRunTest Action = iota
	ActionSaveConfig
	actionCount
)

func (a Action) String() string {
	switch a {
	case ActionRunTest:
		return "run test"
	case ActionSaveConfig:
		return "save config"
	}
	return "unknown"
}

// Notice reports an action's state. Busy is true when the action starts and
// false once it settles, with either Message or Err set.
type Notice struct {
	Action  Action
	Busy    bool
	Message string
	Err     error
}

// View receives panel updates and action notices. Implementations must be
// safe for concurrent use.
type View interface {
	Apply(Update)
	Notify(Notice)
}

// Snapshot is a View that keeps the latest update per panel and every notice.
type Snapshot struct {
	mu      sync.Mutex
	panels  map[Panel]Update
	applied []Update
	notices []Notice
}

// NewSnapshot creates an empty Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{panels: make(map[Panel]Update)}
}

func (s *Snapshot) Apply(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[u.Panel] = u
	s.applied = append(s.applied, u)
}

func (s *Snapshot) Notify(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

// Panel returns the latest update for p.
func (s *Snapshot) Panel(p Panel) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.panels[p]
	return u, ok
}

// Applied returns every update in arrival order.
func (s *Snapshot) Applied() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Update(nil), s.applied...)
}

// Notices returns every notice in arrival order.
func (s *Snapshot) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}
