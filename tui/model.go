// Package tui is the terminal studio: theme, voice and revise inputs around
// an outline that is either previewed as rendered Markdown or edited as
// source through a rich text surface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"story_studio/outline"
	"story_studio/richtext"
)

type focus int

const (
	focusTheme focus = iota
	focusVoice
	focusOutline
	focusNote
	focusCount
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	modeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(8)
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	activePane  = paneStyle.BorderForeground(lipgloss.Color("63"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type Options struct {
	Logger *zap.Logger
	// GlamourStyle names a glamour style (dark, light, notty). Default dark.
	GlamourStyle string
}

type createdMsg struct{ err error }

type revisedMsg struct{ err error }

// Model is the bubbletea model for the terminal studio.
type Model struct {
	ctx     context.Context
	studio  *outline.Studio
	doc     *richtext.Document
	surface *richtext.Surface
	logger  *zap.Logger

	theme  textinput.Model
	voice  textinput.Model
	note   textinput.Model
	editor textarea.Model

	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	renderer *glamour.TermRenderer
	style    string

	focus   focus
	working bool
	status  string
	err     error
	width   int
}

func New(ctx context.Context, studio *outline.Studio, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.GlamourStyle == "" {
		opts.GlamourStyle = "dark"
	}

	theme := textinput.New()
	theme.Placeholder = "villain arc of a hero shunned by humanity"
	theme.Prompt = ""
	theme.Focus()

	voice := textinput.New()
	voice.Placeholder = "candid, wry humor, hopeful undercurrent"
	voice.Prompt = ""

	note := textinput.New()
	note.Placeholder = `e.g. "Tighten beat 3, darker climax, keep 1-2 same."`
	note.Prompt = ""

	editor := textarea.New()
	editor.Placeholder = "Click to edit your outline..."
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetWidth(80)
	editor.SetHeight(12)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	doc := richtext.NewDocument()
	m := Model{
		ctx:     ctx,
		studio:  studio,
		doc:     doc,
		surface: richtext.NewSurface(doc, studio.Edit),
		logger:  opts.Logger,
		theme:   theme,
		voice:   voice,
		note:    note,
		editor:  editor,
		spinner: sp,
		help:    help.New(),
		keys:    defaultKeyMap(),
		style:   opts.GlamourStyle,
		width:   80,
		status:  "Enter a theme and press ctrl+o to create an outline.",
	}
	m.renderer = newRenderer(m.style, m.width)
	m.syncFromStudio()
	return m
}

// Run starts the terminal studio and blocks until the user quits or ctx ends.
func Run(ctx context.Context, studio *outline.Studio, opts Options) error {
	p := tea.NewProgram(New(ctx, studio, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.theme.Width = msg.Width - 12
		m.voice.Width = msg.Width - 12
		m.note.Width = msg.Width - 12
		m.editor.SetWidth(msg.Width - 4)
		if h := msg.Height - 14; h > 3 {
			m.editor.SetHeight(h)
		}
		m.help.Width = msg.Width
		m.renderer = newRenderer(m.style, msg.Width)
		return m, nil

	case spinner.TickMsg:
		if !m.working {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case createdMsg:
		m.working = false
		m.finish("Outline created.", msg.err)
		return m, nil

	case revisedMsg:
		m.working = false
		if msg.err == nil {
			m.note.SetValue("")
		}
		m.finish("Outline revised.", msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Create):
		if m.working {
			return m, nil
		}
		m.commitEditor()
		m.studio.SetTheme(m.theme.Value())
		m.studio.SetVoice(m.voice.Value())
		m.working = true
		m.err = nil
		m.status = "Creating outline..."
		return m, tea.Batch(m.spinner.Tick, m.create())

	case key.Matches(msg, m.keys.Revise):
		m.commitEditor()
		m.studio.SetVoice(m.voice.Value())
		m.studio.SetNote(m.note.Value())
		if m.working {
			return m, nil
		}
		if snap := m.studio.Snapshot(); !snap.CanRevise() {
			switch {
			case snap.Busy:
			case snap.Outline == "":
				m.status = "Create an outline first."
			default:
				m.status = "Type revise instructions first."
				m.setFocus(focusNote)
			}
			return m, nil
		}
		m.working = true
		m.err = nil
		m.status = "Revising..."
		return m, tea.Batch(m.spinner.Tick, m.revise())

	case key.Matches(msg, m.keys.Undo):
		m.commitEditor()
		if m.studio.Snapshot().CanUndo() && m.studio.Undo() {
			m.finish("Reverted to the previous outline.", nil)
		} else {
			m.status = "Nothing to undo."
		}
		return m, nil

	case key.Matches(msg, m.keys.Preview):
		m.commitEditor()
		preview := m.studio.TogglePreview()
		if !preview {
			m.syncFromStudio()
			m.setFocus(focusOutline)
		} else if m.focus == focusOutline {
			m.setFocus(focusNote)
		}
		return m, nil

	case key.Matches(msg, m.keys.Mode):
		snap := m.studio.Snapshot()
		m.studio.SetMode(snap.Mode.Next())
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		next := (m.focus + 1) % focusCount
		if next == focusOutline && m.studio.Snapshot().Preview {
			next = (next + 1) % focusCount
		}
		m.setFocus(next)
		return m, nil
	}

	if m.focus == focusOutline && !m.studio.Snapshot().Preview {
		if cmd, ok := m.keys.formatCommand(msg.String()); ok {
			m.exec(cmd)
			return m, nil
		}
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusTheme:
		m.theme, cmd = m.theme.Update(msg)
	case focusVoice:
		m.voice, cmd = m.voice.Update(msg)
	case focusNote:
		m.note, cmd = m.note.Update(msg)
	case focusOutline:
		if m.studio.Snapshot().Preview {
			return m, nil
		}
		before := m.editor.Value()
		m.editor, cmd = m.editor.Update(msg)
		if m.editor.Value() != before {
			m.commitEditor()
		}
	}
	return m, cmd
}

func (m Model) create() tea.Cmd {
	studio, ctx := m.studio, m.ctx
	return func() tea.Msg {
		return createdMsg{err: studio.Create(ctx)}
	}
}

func (m Model) revise() tea.Cmd {
	studio, ctx := m.studio, m.ctx
	return func() tea.Msg {
		return revisedMsg{err: studio.Revise(ctx)}
	}
}

func (m *Model) finish(ok string, err error) {
	if err != nil {
		m.err = err
		m.status = ""
		m.logger.Debug("studio action failed", zap.Error(err))
		return
	}
	m.err = nil
	m.status = ok
	m.syncFromStudio()
	if m.focus == focusOutline && m.studio.Snapshot().Preview {
		m.setFocus(focusNote)
	}
}

// syncFromStudio pushes the studio outline into the document and refreshes
// the editor source when it changed.
func (m *Model) syncFromStudio() {
	if m.surface.Sync(m.studio.Snapshot().Outline) {
		m.editor.SetValue(m.doc.Text())
	}
}

// commitEditor reads the editor source back into the document and emits the
// resulting HTML to the studio.
func (m *Model) commitEditor() {
	if m.studio.Snapshot().Preview {
		return
	}
	value := m.editor.Value()
	if value == m.doc.Text() {
		return
	}
	m.doc.SetText(value)
	m.surface.Changed()
}

// exec runs a formatting command on the block under the editor cursor.
func (m *Model) exec(cmd richtext.Command) {
	m.commitEditor()
	lines := strings.Split(m.editor.Value(), "\n")
	row := m.editor.Line()
	block := 0
	for i := 0; i < row && i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			block++
		}
	}
	m.doc.SetCursor(block)
	if !m.surface.Exec(cmd) {
		return
	}
	m.editor.SetValue(m.doc.Text())
	for i := 0; m.editor.Line() > m.doc.Cursor() && i < 10*m.editor.LineCount(); i++ {
		m.editor.CursorUp()
	}
	m.editor.CursorEnd()
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.theme.Blur()
	m.voice.Blur()
	m.note.Blur()
	m.editor.Blur()
	switch f {
	case focusTheme:
		m.theme.Focus()
	case focusVoice:
		m.voice.Focus()
	case focusNote:
		m.note.Focus()
	case focusOutline:
		m.editor.Focus()
	}
}

func (m Model) View() string {
	snap := m.studio.Snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Story Studio"))
	b.WriteString("  ")
	b.WriteString(modeStyle.Render("Mode: " + string(snap.Mode)))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Theme") + m.theme.View() + "\n")
	b.WriteString(labelStyle.Render("Voice") + m.voice.View() + "\n\n")

	pane := paneStyle
	if m.focus == focusOutline {
		pane = activePane
	}
	header := "Outline (preview)"
	if !snap.Preview {
		header = "Outline (edit)"
	}
	b.WriteString(header + "\n")
	b.WriteString(pane.Width(m.width - 2).Render(m.outlineView(snap)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Revise") + m.note.View() + "\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("history: %d", snap.History)))
	b.WriteString("  ")
	switch {
	case m.working:
		b.WriteString(m.spinner.View() + " " + m.status)
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	default:
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) outlineView(snap outline.Snapshot) string {
	if !snap.Preview {
		return m.editor.View()
	}
	if snap.Outline == "" {
		return statusStyle.Render("No outline yet.")
	}
	md := outline.ToMarkdown(snap.Outline)
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
