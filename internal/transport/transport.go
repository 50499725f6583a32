// Package transport defines the boundary to the remote bidirectional voice
// session: the wire shapes for outbound realtime audio and inbound server
// content, the lifecycle callbacks a session delivers, and a WebSocket
// implementation of that contract.
package transport

import (
	"context"
	"fmt"
)

// MIMETypePCM16k is the media type for outbound capture audio.
const MIMETypePCM16k = "audio/pcm;rate=16000"

// Blob carries transport-encoded audio bytes. Data marshals to base64 in
// JSON, which is the transport-safe encoding the remote session expects.
type Blob struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Part is one piece of a model turn.
type Part struct {
	InlineData *Blob `json:"inlineData,omitempty"`
}

// ModelTurn is streamed synthetic-voice content from the model.
type ModelTurn struct {
	Parts []Part `json:"parts,omitempty"`
}

// Transcription is a transcript delta for one direction.
type Transcription struct {
	Text string `json:"text,omitempty"`
}

// ServerContent is the payload of an inbound content message.
type ServerContent struct {
	ModelTurn           *ModelTurn     `json:"modelTurn,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
}

// GoAway announces an impending remote-initiated close.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// Message is one inbound message from the remote session.
type Message struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
}

// Handlers receives session lifecycle and content callbacks. Callbacks are
// invoked from the session's read loop and must not block.
type Handlers struct {
	OnOpen    func()
	OnMessage func(*Message)
	OnClose   func()
	OnError   func(error)
}

// Session is an open bidirectional voice channel.
type Session interface {
	// SendRealtimeInput forwards one encoded capture chunk to the remote
	// session.
	SendRealtimeInput(media Blob) error
	// Close shuts the channel down. Safe to call more than once.
	Close() error
}

// Dialer opens sessions against a remote endpoint.
type Dialer interface {
	Dial(ctx context.Context, h Handlers) (Session, error)
}

// Error is a failure surfaced by the remote channel. It is distinct from
// codec contract violations: transport errors are recoverable by starting a
// new session, not by the session itself.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
