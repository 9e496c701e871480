package app

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Cancel    key.Binding
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Replace   key.Binding
	Enter     key.Binding
	Yes       key.Binding
	No        key.Binding
	Left      key.Binding
	Right     key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop search")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle match")),
	ToggleAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle file")),
	Replace:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "replace")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
	No:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "yes")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "no")),
}

// helpLine renders the short help of bindings separated by bullets
func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return joinBullets(parts)
}
