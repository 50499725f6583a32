package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const defaultHandshakeTimeout = 15 * time.Second

// setupMessage configures the remote session immediately after connect.
type setupMessage struct {
	Setup *sessionSetup `json:"setup"`
}

type sessionSetup struct {
	Model                    string    `json:"model"`
	InputAudioTranscription  *struct{} `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{} `json:"outputAudioTranscription,omitempty"`
}

// realtimeInputMessage carries one outbound capture chunk.
type realtimeInputMessage struct {
	RealtimeInput *realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Media *Blob `json:"media,omitempty"`
}

// WebSocketDialer dials the remote voice session over WebSocket.
type WebSocketDialer struct {
	URL              string
	APIKey           string
	Model            string
	HandshakeTimeout time.Duration
	Logger           zerolog.Logger
}

// Dial opens the WebSocket, performs the setup handshake, and starts the
// read loop. Handlers fire from the read loop goroutine.
func (d *WebSocketDialer) Dial(ctx context.Context, h Handlers) (Session, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}

	headers := http.Header{}
	if d.APIKey != "" {
		headers.Set("X-Goog-Api-Key", d.APIKey)
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{Op: "dial", Err: fmt.Errorf("%w (status %d)", err, resp.StatusCode)}
		}
		return nil, &Error{Op: "dial", Err: err}
	}

	s := &webSocketSession{
		conn:     conn,
		handlers: h,
		logger:   d.Logger,
	}

	// The remote session is not usable until setup is acknowledged, so the
	// handshake completes synchronously before any audio flows.
	setup := setupMessage{Setup: &sessionSetup{
		Model:                    d.Model,
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}}
	if err := s.writeJSON(setup); err != nil {
		_ = conn.Close()
		return nil, &Error{Op: "setup", Err: err}
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var ack Message
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, &Error{Op: "setup", Err: err}
	}
	if ack.SetupComplete == nil {
		_ = conn.Close()
		return nil, &Error{Op: "setup", Err: fmt.Errorf("expected setup acknowledgement, got %s", describeMessage(&ack))}
	}
	_ = conn.SetReadDeadline(time.Time{})

	go s.readLoop()

	if h.OnOpen != nil {
		h.OnOpen()
	}
	return s, nil
}

type webSocketSession struct {
	conn     *websocket.Conn
	handlers Handlers
	logger   zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    bool
}

// SendRealtimeInput forwards one encoded capture chunk to the remote session.
func (s *webSocketSession) SendRealtimeInput(media Blob) error {
	msg := realtimeInputMessage{RealtimeInput: &realtimeInput{Media: &media}}
	if err := s.writeJSON(msg); err != nil {
		return &Error{Op: "send", Err: err}
	}
	return nil
}

func (s *webSocketSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return fmt.Errorf("session is closed")
	}
	return s.conn.WriteJSON(v)
}

// Close performs the close handshake and tears the connection down.
// Idempotent; the read loop observes the closed connection and finishes.
func (s *webSocketSession) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.closed = true
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	return nil
}

func (s *webSocketSession) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.writeMu.Lock()
			wasClosed := s.closed
			s.closed = true
			s.writeMu.Unlock()

			if wasClosed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if s.handlers.OnClose != nil {
					s.handlers.OnClose()
				}
				return
			}
			s.logger.Warn().Err(err).Msg("WebSocket read error")
			if s.handlers.OnError != nil {
				s.handlers.OnError(&Error{Op: "read", Err: err})
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Error().Err(err).Msg("Failed to parse server message")
			continue
		}

		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(&msg)
		}
	}
}

func describeMessage(m *Message) string {
	switch {
	case m == nil:
		return "nil"
	case m.SetupComplete != nil:
		return "setupComplete"
	case m.ServerContent != nil:
		return "serverContent"
	case m.GoAway != nil:
		return "goAway"
	default:
		return "unknown"
	}
}
