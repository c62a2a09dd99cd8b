// Package richtext binds an outline's HTML to an editable rich text widget.
//
// The widget itself is pluggable: anything that can report its HTML, replace
// its content and run formatting commands on the current selection satisfies
// Editor. Surface keeps the widget and the outline in sync without feedback
// loops.
package richtext

import "fmt"

// EmptyDocument is what an editor with no content serializes to.
const EmptyDocument = "<p></p>"

// Command is a formatting action applied to the current selection.
type Command int

const (
	Bold Command = iota
	Italic
	Heading1
	Heading2
	BulletList
	OrderedList
	ClearFormatting
)

var commandNames = map[Command]string{
	Bold:            "bold",
	Italic:          "italic",
	Heading1:        "h1",
	Heading2:        "h2",
	BulletList:      "bullet",
	OrderedList:     "ordered",
	ClearFormatting: "clear",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// ParseCommand maps a toolbar name (bold, italic, h1, h2, bullet, ordered,
// clear) to its Command.
func ParseCommand(name string) (Command, error) {
	for cmd, n := range commandNames {
		if n == name {
			return cmd, nil
		}
	}
	return 0, fmt.Errorf("unknown formatting command %q", name)
}

// Editor is the contract a rich text widget must offer.
type Editor interface {
	HTML() string
	SetContent(html string)
	// Exec applies cmd to the current selection and reports whether the
	// document changed.
	Exec(cmd Command) bool
}

// Surface connects an Editor to the outline value that owns it.
type Surface struct {
	editor   Editor
	onChange func(html string)
}

// NewSurface wraps editor. onChange receives the editor's HTML after every
// user edit or command; it may be nil.
func NewSurface(editor Editor, onChange func(html string)) *Surface {
	if onChange == nil {
		onChange = func(string) {}
	}
	return &Surface{editor: editor, onChange: onChange}
}

// Sync pushes an externally changed outline into the editor. The editor is
// only touched when its serialized content differs, and no change is emitted.
func (s *Surface) Sync(html string) bool {
	current := s.editor.HTML()
	switch {
	case html != "" && current != html:
		s.editor.SetContent(html)
		return true
	case html == "" && current != EmptyDocument:
		s.editor.SetContent("")
		return true
	}
	return false
}

// Exec runs cmd and emits the resulting HTML if anything changed.
func (s *Surface) Exec(cmd Command) bool {
	if !s.editor.Exec(cmd) {
		return false
	}
	s.Changed()
	return true
}

// Changed emits the editor's current HTML. Call it after the user types.
func (s *Surface) Changed() {
	s.onChange(s.editor.HTML())
}

// HTML returns the editor's current HTML.
func (s *Surface) HTML() string {
	return s.editor.HTML()
}
