package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	Edit        key.Binding
	Tab         key.Binding
	Cancel      key.Binding
	SetNull     key.Binding
	SetDefault  key.Binding
	Revert      key.Binding
	Delete      key.Binding
	Insert      key.Binding
	Select      key.Binding
	SelectRange key.Binding
	SelectAll   key.Binding
	Commit      key.Binding
	CommitAll   key.Binding
	Rollback    key.Binding
	RollbackAll key.Binding
	Sort        key.Binding
	Filter      key.Binding
	Refresh     key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "right"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "edit / confirm"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next cell"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	SetNull: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "set NULL"),
	),
	SetDefault: key.NewBinding(
		key.WithKeys("="),
		key.WithHelp("=", "set default"),
	),
	Revert: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "revert cell"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "toggle delete"),
	),
	Insert: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new row"),
	),
	Select: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "select row"),
	),
	SelectRange: key.NewBinding(
		key.WithKeys("V"),
		key.WithHelp("V", "select range"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "select all"),
	),
	Commit: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "commit"),
	),
	CommitAll: key.NewBinding(
		key.WithKeys("C"),
		key.WithHelp("C", "commit all"),
	),
	Rollback: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rollback"),
	),
	RollbackAll: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "rollback all"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort column"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "refresh"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "prev page"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "next page"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Delete, k.Insert, k.Commit, k.Rollback, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.PageUp, k.PageDown},
		{k.Edit, k.Tab, k.Cancel, k.SetNull, k.SetDefault, k.Revert},
		{k.Delete, k.Insert, k.Select, k.SelectRange, k.SelectAll},
		{k.Commit, k.CommitAll, k.Rollback, k.RollbackAll},
		{k.Sort, k.Filter, k.Refresh, k.Help, k.Quit},
	}
}
