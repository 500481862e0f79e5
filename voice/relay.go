package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/coniferlabs/appintake"
)

// Relay pumps audio between a client connection and a model stream for
// one intake session. Tool calls from the model are applied through the
// engine, so voice turns update the same session state as text turns.
type Relay struct {
	engine    *appintake.Engine
	sessionID string
	logger    *slog.Logger
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRelay(engine *appintake.Engine, sessionID string, opts ...Option) *Relay {
	r := &Relay{
		engine:    engine,
		sessionID: sessionID,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until the client ends the session, the model stream closes,
// or ctx is canceled. It always sends a best-effort session_ended frame
// and closes both sides before returning.
func (r *Relay) Run(ctx context.Context, conn FrameConn, stream Stream) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		return r.pumpClient(ctx, conn, stream)
	})
	g.Go(func() error {
		defer cancel()
		return r.pumpModel(ctx, conn, stream)
	})
	// Shutdown: whichever pump finishes first cancels ctx; closing both
	// sides unblocks the other pump's blocking read.
	g.Go(func() error {
		<-ctx.Done()
		if data, err := encodeFrame(serverFrame{Type: frameSessionEnded}); err == nil {
			_ = conn.WriteFrame(data)
		}
		_ = stream.Close()
		_ = conn.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("voice relay: %w", err)
	}
	return nil
}

// pumpClient reads client frames and forwards audio to the model.
// Malformed frames are dropped, not fatal.
func (r *Relay) pumpClient(ctx context.Context, conn FrameConn, stream Stream) error {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read client frame: %w", err)
		}
		frame, err := decodeClientFrame(data)
		if err != nil {
			r.logger.Warn("dropping malformed client frame", "error", err)
			continue
		}
		switch frame.Type {
		case frameAudio:
			audio, err := base64.StdEncoding.DecodeString(frame.Data)
			if err != nil {
				r.logger.Warn("dropping audio frame with bad payload", "error", err)
				continue
			}
			if err := stream.SendAudio(ctx, audio); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("forward audio: %w", err)
			}
		case frameEndSession:
			return nil
		default:
			r.logger.Warn("dropping client frame of unknown type", "type", frame.Type)
		}
	}
}

// pumpModel turns model events into client frames and answers tool
// calls through the engine.
func (r *Relay) pumpModel(ctx context.Context, conn FrameConn, stream Stream) error {
	for ev := range stream.Events() {
		switch ev.Kind {
		case EventAudio:
			r.send(conn, serverFrame{Type: frameAudio, Data: base64.StdEncoding.EncodeToString(ev.Audio)})
		case EventTranscript:
			r.send(conn, serverFrame{Type: frameTranscript, Role: ev.Role, Text: ev.Text})
		case EventToolUse:
			if err := r.handleToolUse(ctx, conn, stream, ev); err != nil {
				return err
			}
		case EventError:
			r.logger.Error("model stream error", "session_id", r.sessionID, "error", ev.Err)
			r.send(conn, serverFrame{Type: frameError, Message: ev.Err.Error()})
		}
	}
	return nil
}

// handleToolUse applies one tool call and sends exactly one result back
// to the model, even when the engine fails.
func (r *Relay) handleToolUse(ctx context.Context, conn FrameConn, stream Stream, ev Event) error {
	outcome, err := r.engine.HandleToolCall(ctx, r.sessionID, appintake.ToolCall{
		ID:        ev.ToolUseID,
		Name:      ev.ToolName,
		Arguments: ev.Arguments,
	})
	var result string
	if err != nil {
		r.logger.Error("tool call failed", "session_id", r.sessionID, "tool", ev.ToolName, "error", err)
		result = "The application could not be updated. Continue the conversation."
	} else {
		result = outcome.Result
		if len(outcome.Updates) > 0 {
			r.send(conn, serverFrame{Type: frameFieldUpdate, Updates: outcome.Updates})
		}
		if outcome.PhaseChanged {
			r.send(conn, serverFrame{Type: framePhaseChange, Phase: outcome.Phase})
		}
	}
	if err := stream.SendToolResult(ctx, ev.ToolUseID, result); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("send tool result: %w", err)
	}
	return nil
}

func (r *Relay) send(conn FrameConn, frame serverFrame) {
	data, err := encodeFrame(frame)
	if err != nil {
		r.logger.Warn("encode server frame", "type", frame.Type, "error", err)
		return
	}
	if err := conn.WriteFrame(data); err != nil {
		r.logger.Warn("write server frame", "type", frame.Type, "error", err)
	}
}
