package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coniferlabs/appintake"
	"github.com/coniferlabs/appintake/field"
	"github.com/coniferlabs/appintake/formdef"
	"github.com/coniferlabs/appintake/modeltest"
	"github.com/coniferlabs/appintake/session"
)

type fakeConn struct {
	mu     sync.Mutex
	in     chan []byte
	out    [][]byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) frames(t *testing.T) []serverFrame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([]serverFrame, 0, len(c.out))
	for _, raw := range c.out {
		var f serverFrame
		require.NoError(t, sonic.Unmarshal(raw, &f))
		frames = append(frames, f)
	}
	return frames
}

type fakeStream struct {
	mu          sync.Mutex
	events      chan Event
	audio       [][]byte
	toolResults map[string]string
	once        sync.Once
}

func newFakeStream(events ...Event) *fakeStream {
	s := &fakeStream{
		events:      make(chan Event, len(events)+1),
		toolResults: make(map[string]string),
	}
	for _, ev := range events {
		s.events <- ev
	}
	return s
}

func (s *fakeStream) SendAudio(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, data)
	return nil
}

func (s *fakeStream) SendToolResult(ctx context.Context, toolUseID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.toolResults[toolUseID]; dup {
		return errors.New("duplicate tool result")
	}
	s.toolResults[toolUseID] = content
	return nil
}

func (s *fakeStream) Events() <-chan Event { return s.events }

// end closes the event channel, standing in for the model finishing the
// session. Close shares the same once so shutdown never double-closes.
func (s *fakeStream) end() { s.once.Do(func() { close(s.events) }) }

func (s *fakeStream) Close() error {
	s.end()
	return nil
}

func clientAudioFrame(t *testing.T, payload string) []byte {
	t.Helper()
	raw, err := sonic.Marshal(clientFrame{
		Type: frameAudio,
		Data: base64.StdEncoding.EncodeToString([]byte(payload)),
	})
	require.NoError(t, err)
	return raw
}

func newVoiceEngine(t *testing.T) (*appintake.Engine, string) {
	t.Helper()
	engine := appintake.New(modeltest.New(), session.NewMemoryStore())
	st, _, err := engine.CreateSession(context.Background(), appintake.CreateSessionRequest{
		Steps: []formdef.StepDef{{
			ID: "owner",
			Fields: []formdef.FieldDef{
				{ID: "first_name", Label: "First Name", Type: field.TypeText, Required: true},
				{ID: "email", Label: "Email", Type: field.TypeEmail, Required: true},
			},
		}},
	})
	require.NoError(t, err)
	return engine, st.ID
}

func runRelay(t *testing.T, relay *Relay, conn *fakeConn, stream *fakeStream) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return relay.Run(ctx, conn, stream)
}

func TestRelayForwardsModelOutput(t *testing.T) {
	t.Parallel()

	engine, sessionID := newVoiceEngine(t)
	stream := newFakeStream(
		Event{Kind: EventTranscript, Role: "assistant", Text: "What's your name?"},
		Event{Kind: EventAudio, Audio: []byte("pcm-bytes")},
	)
	stream.end()
	conn := newFakeConn()

	require.NoError(t, runRelay(t, NewRelay(engine, sessionID), conn, stream))

	frames := conn.frames(t)
	require.Len(t, frames, 3)
	assert.Equal(t, frameTranscript, frames[0].Type)
	assert.Equal(t, "What's your name?", frames[0].Text)
	assert.Equal(t, frameAudio, frames[1].Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pcm-bytes")), frames[1].Data)
	assert.Equal(t, frameSessionEnded, frames[2].Type)
}

func TestRelayForwardsClientAudio(t *testing.T) {
	t.Parallel()

	engine, sessionID := newVoiceEngine(t)
	stream := newFakeStream()
	conn := newFakeConn()
	conn.in <- clientAudioFrame(t, "caller-audio")
	raw, err := sonic.Marshal(clientFrame{Type: frameEndSession})
	require.NoError(t, err)
	conn.in <- raw

	require.NoError(t, runRelay(t, NewRelay(engine, sessionID), conn, stream))

	require.Len(t, stream.audio, 1)
	assert.Equal(t, []byte("caller-audio"), stream.audio[0])
}

func TestRelayDropsMalformedFrames(t *testing.T) {
	t.Parallel()

	engine, sessionID := newVoiceEngine(t)
	stream := newFakeStream()
	conn := newFakeConn()
	conn.in <- []byte("not json")
	conn.in <- []byte(`{"type": "audio", "data": "!!! not base64 !!!"}`)
	conn.in <- []byte(`{"type": "mystery"}`)
	conn.in <- clientAudioFrame(t, "still works")
	raw, err := sonic.Marshal(clientFrame{Type: frameEndSession})
	require.NoError(t, err)
	conn.in <- raw

	require.NoError(t, runRelay(t, NewRelay(engine, sessionID), conn, stream))

	require.Len(t, stream.audio, 1, "bad frames are dropped, good ones still flow")
}

func TestRelayRoutesToolCallsThroughEngine(t *testing.T) {
	t.Parallel()

	engine, sessionID := newVoiceEngine(t)
	stream := newFakeStream(Event{
		Kind:      EventToolUse,
		ToolUseID: "use-1",
		ToolName:  appintake.ToolExtractFields,
		Arguments: `{"first_name": "Margaret"}`,
	})
	stream.end()
	conn := newFakeConn()

	require.NoError(t, runRelay(t, NewRelay(engine, sessionID), conn, stream))

	// Exactly one tool result went back to the model.
	require.Len(t, stream.toolResults, 1)
	assert.Equal(t, "Accepted fields: [first_name]", stream.toolResults["use-1"])

	// The client saw the field update.
	var sawUpdate bool
	for _, f := range conn.frames(t) {
		if f.Type == frameFieldUpdate {
			sawUpdate = true
			require.Len(t, f.Updates, 1)
			assert.Equal(t, "first_name", f.Updates[0].FieldID)
		}
	}
	assert.True(t, sawUpdate)

	// And the shared session state holds the value for any channel.
	st, err := engine.Session(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, field.String("Margaret"), st.Fields["first_name"].Value)
}

func TestRelayEmitsPhaseChange(t *testing.T) {
	t.Parallel()

	engine, sessionID := newVoiceEngine(t)
	stream := newFakeStream(Event{
		Kind:      EventToolUse,
		ToolUseID: "use-1",
		ToolName:  appintake.ToolExtractFields,
		Arguments: `{"first_name": "Margaret", "email": "mchen@example.com"}`,
	})
	stream.end()
	conn := newFakeConn()

	require.NoError(t, runRelay(t, NewRelay(engine, sessionID), conn, stream))

	var phases []session.Phase
	for _, f := range conn.frames(t) {
		if f.Type == framePhaseChange {
			phases = append(phases, f.Phase)
		}
	}
	assert.Equal(t, []session.Phase{session.PhaseReviewing}, phases)
}
