package generator

import (
	"fmt"
	"strings"
)

// Prompt is the message pair sent to the model.
type Prompt struct {
	System string
	User   string
}

const outlineSystem = "You produce tight, usable short-story outlines: exactly 6 numbered beats; 1–3 lines each."

var revisionSystem = strings.Join([]string{
	"You are a precise story-outline editor.",
	"Apply the user's instructions to the current outline.",
	"Return exactly 6 numbered beats (1–6), each 1–3 lines.",
	"Keep any beats the user asked to preserve.",
}, "\n")

// BuildOutlinePrompt builds the prompt for a new six beat outline.
func BuildOutlinePrompt(req CreateRequest) (Prompt, error) {
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		return Prompt{}, &ValidationError{Message: "Theme required"}
	}

	var sb strings.Builder
	sb.WriteString("Create a concise 6-beat outline.\n\n")
	sb.WriteString(fmt.Sprintf("Theme: %s\n", theme))
	sb.WriteString(fmt.Sprintf("Mode: %s\n", req.Mode.OrDefault()))
	sb.WriteString(fmt.Sprintf("Voice guidance: %s\n\n", req.Voice.Guidance()))
	sb.WriteString("Include beats 1) Hook 2) Setup 3) Complication 4) Escalation 5) Climax 6) Resolution.\n")
	sb.WriteString("Return ONLY the outline text.")

	return Prompt{System: outlineSystem, User: sb.String()}, nil
}

// BuildRevisionPrompt builds the prompt that rewrites outline per the user's
// instructions.
func BuildRevisionPrompt(req ReviseRequest) (Prompt, error) {
	outline := strings.TrimSpace(req.Outline)
	instructions := strings.TrimSpace(req.Instructions)
	if outline == "" || instructions == "" {
		return Prompt{}, &ValidationError{Message: "Outline + instructions required"}
	}

	var sb strings.Builder
	sb.WriteString("Current outline:\n")
	sb.WriteString(outline)
	sb.WriteString("\n\nInstructions from user:\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Mode: %s\n", req.Mode.OrDefault()))
	sb.WriteString(fmt.Sprintf("Voice guidance: %s\n\n", req.Voice.Guidance()))
	sb.WriteString("Return ONLY the revised outline text (no preface).")

	return Prompt{System: revisionSystem, User: sb.String()}, nil
}
