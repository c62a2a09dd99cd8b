package outline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"story_studio/generator"
)

var (
	ErrNoInstructions = errors.New("revision instructions are empty")
	ErrNoOutline      = errors.New("no outline to revise")
	ErrBusy           = errors.New("a revision is already in flight")
)

// Generator produces outline text. *generator.Agent calls the model in
// process; *Client goes through the studio server.
type Generator interface {
	CreateOutline(ctx context.Context, req generator.CreateRequest) (string, error)
	ReviseOutline(ctx context.Context, req generator.ReviseRequest) (string, error)
}

// Snapshot is a copy of the studio state for rendering.
type Snapshot struct {
	Mode    generator.Mode
	Voice   string
	Theme   string
	Outline string
	Note    string
	History int
	Busy    bool
	Preview bool
}

// CanUndo reports whether Undo would restore something.
func (s Snapshot) CanUndo() bool { return s.History > 0 && !s.Busy }

// CanRevise reports whether the revise control should be enabled.
func (s Snapshot) CanRevise() bool {
	return !s.Busy && s.Outline != "" && strings.TrimSpace(s.Note) != ""
}

// Studio owns one user's outline, its undo history and the display flags.
// The lock is never held across a model call.
type Studio struct {
	gen    Generator
	logger *zap.Logger

	mu      sync.Mutex
	mode    generator.Mode
	voice   string
	theme   string
	html    string
	history []string
	note    string
	busy    bool
	preview bool
}

func NewStudio(gen Generator, logger *zap.Logger) *Studio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Studio{
		gen:     gen,
		logger:  logger,
		mode:    generator.ModeMemoryLane,
		preview: true,
	}
}

func (s *Studio) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Mode:    s.mode,
		Voice:   s.voice,
		Theme:   s.theme,
		Outline: s.html,
		Note:    s.note,
		History: len(s.history),
		Busy:    s.busy,
		Preview: s.preview,
	}
}

func (s *Studio) SetMode(m generator.Mode) {
	s.mu.Lock()
	s.mode = m.OrDefault()
	s.mu.Unlock()
}

func (s *Studio) SetVoice(summary string) {
	s.mu.Lock()
	s.voice = summary
	s.mu.Unlock()
}

func (s *Studio) SetTheme(theme string) {
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
}

func (s *Studio) SetNote(note string) {
	s.mu.Lock()
	s.note = note
	s.mu.Unlock()
}

// Edit stores HTML coming back from the rich text surface.
func (s *Studio) Edit(html string) {
	s.mu.Lock()
	s.html = html
	s.mu.Unlock()
}

// TogglePreview flips between preview and edit and returns the new preview flag.
func (s *Studio) TogglePreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = !s.preview
	return s.preview
}

// Create asks for a new outline from the current theme, mode and voice and
// replaces the outline with it. History is not touched. On error the outline
// is left as it was.
func (s *Studio) Create(ctx context.Context) error {
	s.mu.Lock()
	req := generator.CreateRequest{
		Theme: s.theme,
		Mode:  s.mode,
		Voice: generator.Voice{Summary: s.voice},
	}
	s.mu.Unlock()

	text, err := s.gen.CreateOutline(ctx, req)
	if err != nil {
		s.logger.Warn("create outline failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.html = ToHTML(text)
	s.preview = true
	s.mu.Unlock()
	return nil
}

// Revise sends the current outline and note to the model. The outline is
// pushed onto the history before the call and popped again if the call fails,
// so a failed revise leaves both the outline and the history unchanged.
func (s *Studio) Revise(ctx context.Context) error {
	s.mu.Lock()
	note := strings.TrimSpace(s.note)
	switch {
	case note == "":
		s.mu.Unlock()
		return ErrNoInstructions
	case s.html == "":
		s.mu.Unlock()
		return ErrNoOutline
	case s.busy:
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.history = append(s.history, s.html)
	req := generator.ReviseRequest{
		Outline:      ToPlainText(s.html),
		Instructions: note,
		Mode:         s.mode,
		Voice:        generator.Voice{Summary: s.voice},
	}
	s.mu.Unlock()

	text, err := s.gen.ReviseOutline(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		s.logger.Error("revise outline failed, history rolled back",
			zap.Error(err), zap.Int("history", len(s.history)))
		return err
	}
	s.html = ToHTML(text)
	s.preview = true
	s.note = ""
	return nil
}

// Undo restores the most recent snapshot. It does nothing when the history
// is empty or a revise is in flight.
func (s *Studio) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy || len(s.history) == 0 {
		return false
	}
	last := len(s.history) - 1
	s.html = s.history[last]
	s.history = s.history[:last]
	s.preview = true
	return true
}
