package session

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Close     key.Binding
	Redraw    key.Binding
	Help      key.Binding
	Open      key.Binding
	Copy      key.Binding
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Left      key.Binding
	Right     key.Binding
	LineStart key.Binding
	LineEnd   key.Binding
	Backspace key.Binding
	Delete    key.Binding
	Clear     key.Binding
	Confirm   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit now")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close dialog / quit")),
		Redraw:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "redraw")),
		Help:      key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open preprint")),
		Copy:      key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy id")),
		Up:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous")),
		Down:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "up 10")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "down 10")),
		Left:      key.NewBinding(key.WithKeys("left")),
		Right:     key.NewBinding(key.WithKeys("right")),
		LineStart: key.NewBinding(key.WithKeys("home", "ctrl+a")),
		LineEnd:   key.NewBinding(key.WithKeys("end", "ctrl+e")),
		Backspace: key.NewBinding(key.WithKeys("backspace")),
		Delete:    key.NewBinding(key.WithKeys("delete")),
		Clear:     key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "clear query")),
		Confirm:   key.NewBinding(key.WithKeys("y", "Y", "esc")),
	}
}
