package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is an offline stand-in for local runs; it never calls a model.
type MockLLM struct {
	Fallback string
}

var mockBeats = []string{"Hook", "Setup", "Complication", "Escalation", "Climax", "Resolution"}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	subject := promptField(prompt.User, "Theme:")
	if subject == "" {
		subject = promptField(prompt.User, "Instructions from user:")
	}
	if subject == "" {
		return m.Fallback, nil
	}

	var sb strings.Builder
	for i, beat := range mockBeats {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d) **%s**: %s", i+1, beat, subject))
	}
	return sb.String(), nil
}

// promptField returns the text after label, either on the same line or on
// the line that follows it.
func promptField(text, label string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, label) {
			continue
		}
		if v := strings.TrimSpace(strings.TrimPrefix(line, label)); v != "" {
			return v
		}
		if i+1 < len(lines) {
			return strings.TrimSpace(lines[i+1])
		}
	}
	return ""
}
