package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"story_studio/richtext"
)

type keyMap struct {
	Create  key.Binding
	Revise  key.Binding
	Undo    key.Binding
	Preview key.Binding
	Mode    key.Binding
	Focus   key.Binding
	Quit    key.Binding

	Format map[string]key.Binding
}

// formatKeys binds alt+<key> to a formatting command name.
var formatKeys = []struct{ key, cmd, help string }{
	{"alt+b", "bold", "bold"},
	{"alt+i", "italic", "italic"},
	{"alt+1", "h1", "h1"},
	{"alt+2", "h2", "h2"},
	{"alt+l", "bullet", "bullets"},
	{"alt+n", "ordered", "numbers"},
	{"alt+c", "clear", "clear"},
}

func defaultKeyMap() keyMap {
	km := keyMap{
		Create:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "create")),
		Revise:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "revise")),
		Undo:    key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "undo")),
		Preview: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "edit/preview")),
		Mode:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "mode")),
		Focus:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Format:  make(map[string]key.Binding, len(formatKeys)),
	}
	for _, f := range formatKeys {
		km.Format[f.cmd] = key.NewBinding(key.WithKeys(f.key), key.WithHelp(f.key, f.help))
	}
	return km
}

// formatCommand returns the command bound to k, if any.
func (km keyMap) formatCommand(k string) (richtext.Command, bool) {
	for _, f := range formatKeys {
		if f.key == k {
			cmd, err := richtext.ParseCommand(f.cmd)
			return cmd, err == nil
		}
	}
	return 0, false
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Create, km.Revise, km.Undo, km.Preview, km.Mode, km.Focus, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	format := make([]key.Binding, 0, len(formatKeys))
	for _, f := range formatKeys {
		format = append(format, km.Format[f.cmd])
	}
	return [][]key.Binding{km.ShortHelp(), format}
}
