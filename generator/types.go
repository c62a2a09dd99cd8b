package generator

import (
	"encoding/json"
	"strings"
)

// Mode is the storytelling mode carried into every prompt.
type Mode string

const (
	ModeMemoryLane Mode = "Memory Lane"
	ModeDreamscape Mode = "Dreamscape"
	ModeBiography  Mode = "Biography"
)

// Modes lists the known modes in display order.
var Modes = []Mode{ModeMemoryLane, ModeDreamscape, ModeBiography}

// OrDefault returns m, or Memory Lane when m is blank.
func (m Mode) OrDefault() Mode {
	if strings.TrimSpace(string(m)) == "" {
		return ModeMemoryLane
	}
	return m
}

// Next cycles through Modes. Unknown modes restart at the first one.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Modes[0]
}

const defaultVoice = "confident, introspective"

// Voice is the user's short description of their writing voice.
type Voice struct {
	Summary string `json:"summary"`
}

// UnmarshalJSON accepts either {"summary": "..."} or a bare string.
func (v *Voice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Summary = s
		return nil
	}
	type plain Voice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = Voice(p)
	return nil
}

// Guidance is the text used for the prompt's voice line.
func (v Voice) Guidance() string {
	if s := strings.TrimSpace(v.Summary); s != "" {
		return s
	}
	return defaultVoice
}

// CreateRequest asks for a fresh outline.
type CreateRequest struct {
	Theme string `json:"theme"`
	Mode  Mode   `json:"mode"`
	Voice Voice  `json:"voice"`
}

// ReviseRequest asks for a rewrite of an existing plain-text outline.
type ReviseRequest struct {
	Outline      string `json:"outline"`
	Instructions string `json:"instructions"`
	Mode         Mode   `json:"mode"`
	Voice        Voice  `json:"voice"`
}
