package voice

import (
	"github.com/bytedance/sonic"

	"github.com/coniferlabs/appintake"
	"github.com/coniferlabs/appintake/session"
)

// Client-to-server frame types.
const (
	frameAudio      = "audio"
	frameEndSession = "end_session"
)

// Server-to-client frame types.
const (
	frameTranscript   = "transcript"
	frameFieldUpdate  = "field_update"
	framePhaseChange  = "phase_change"
	frameError        = "error"
	frameSessionEnded = "session_ended"
)

// clientFrame is what the connection sends us. Data carries base64 audio
// for "audio" frames.
type clientFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// serverFrame is what we send the connection.
type serverFrame struct {
	Type    string                  `json:"type"`
	Data    string                  `json:"data,omitempty"`
	Role    string                  `json:"role,omitempty"`
	Text    string                  `json:"text,omitempty"`
	Updates []appintake.FieldUpdate `json:"updates,omitempty"`
	Phase   session.Phase           `json:"phase,omitempty"`
	Message string                  `json:"message,omitempty"`
}

func encodeFrame(f serverFrame) ([]byte, error) {
	return sonic.Marshal(f)
}

func decodeClientFrame(data []byte) (clientFrame, error) {
	var f clientFrame
	err := sonic.Unmarshal(data, &f)
	return f, err
}
