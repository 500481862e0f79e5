// Package voice relays a bidirectional audio conversation between a
// client connection and a speech-to-speech model stream, routing the
// model's tool calls through the shared intake engine.
package voice

import "context"

// EventKind discriminates the events a model stream emits.
type EventKind string

const (
	EventAudio      EventKind = "audio"
	EventTranscript EventKind = "transcript"
	EventToolUse    EventKind = "tool_use"
	EventError      EventKind = "error"
)

// Event is one occurrence on the model stream. Only the fields for its
// kind are set.
type Event struct {
	Kind EventKind

	// EventAudio: a chunk of synthesized speech.
	Audio []byte

	// EventTranscript: a finalized utterance from either side.
	Role string
	Text string

	// EventToolUse: the model invoked an intake tool.
	ToolUseID string
	ToolName  string
	Arguments string

	// EventError.
	Err error
}

// Stream is a live session with a speech-to-speech model. Implementations
// wrap a provider's bidirectional API.
type Stream interface {
	// SendAudio forwards a chunk of caller audio to the model.
	SendAudio(ctx context.Context, data []byte) error
	// SendToolResult answers a tool_use event. The relay sends exactly
	// one result per tool use.
	SendToolResult(ctx context.Context, toolUseID, content string) error
	// Events yields model output until the stream ends, then closes.
	Events() <-chan Event
	Close() error
}

// FrameConn is a framed client connection, typically a WebSocket. Read
// and write may be used concurrently; ReadFrame unblocks with an error
// after Close.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}
