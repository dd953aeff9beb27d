package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	Refresh       key.Binding
	Quote         key.Binding
	Columns       key.Binding
	Export        key.Binding
	Delete        key.Binding
	ToggleSidebar key.Binding
	Search        key.Binding
	Dashboard     key.Binding
	Logs          key.Binding

	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	LogLevel key.Binding
	Follow   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "e"), key.WithHelp("e", "Quit")),
		Help:       key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h/?", "Toggle help")),
		CycleTheme: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "Cycle theme")),
		Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "Dismiss / back")),

		Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Refresh list")),
		Quote:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "Fetch quote")),
		Columns:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Fetch history")),
		Export:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "Export CSV")),
		Delete:        key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "Delete stock")),
		ToggleSidebar: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Toggle sidebar")),
		Search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "Search")),
		Dashboard:     key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "Dashboard")),
		Logs:          key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "Logs")),

		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "Move up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "Move down")),
		Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "Go to top")),
		Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "Go to bottom")),

		LogLevel: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "Cycle level filter")),
		Follow:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "Toggle follow")),
	}
}

// ShortHelp returns key bindings for the command bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quote, k.Columns, k.Export, k.ToggleSidebar, k.Search, k.Dashboard, k.Logs, k.Help}
}

// FullHelp returns key bindings for the help overlay, one group per column.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Search, k.Escape},
		{k.Refresh, k.Quote, k.Columns, k.Export, k.Delete},
		{k.ToggleSidebar, k.Dashboard, k.Logs, k.LogLevel, k.Follow},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
