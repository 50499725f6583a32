// Package session orchestrates the live voice session lifecycle: it wires
// microphone capture to the remote transport, routes inbound audio and
// transcript events to playback and observable state, and guarantees clean
// teardown however the session ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clairvoice/voicelink/internal/capture"
	"github.com/clairvoice/voicelink/internal/observability"
	"github.com/clairvoice/voicelink/internal/playback"
	"github.com/clairvoice/voicelink/internal/transcript"
	"github.com/clairvoice/voicelink/internal/transport"
)

// ErrAlreadyActive is returned by Start while a session is connecting or
// active.
var ErrAlreadyActive = errors.New("session already active")

// State is the session lifecycle state. Transitions are monotonic
// (Idle → Connecting → Active → Closing → Idle) except the direct
// Connecting → Idle fast path on a failed connect.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Controller is the live session state machine. All mutation happens through
// Start and Close; UI observers read State, Speaking, and Snapshot.
type Controller struct {
	dialer      transport.Dialer
	pipeline    *capture.Pipeline
	scheduler   *playback.Scheduler
	transcripts *transcript.State
	logger      zerolog.Logger

	mu        sync.Mutex
	state     State
	session   transport.Session
	sessionID string
	metrics   *observability.SessionMetrics
}

// NewController creates an idle controller over the given collaborators.
func NewController(
	dialer transport.Dialer,
	pipeline *capture.Pipeline,
	scheduler *playback.Scheduler,
	transcripts *transcript.State,
	logger zerolog.Logger,
) *Controller {
	return &Controller{
		dialer:      dialer,
		pipeline:    pipeline,
		scheduler:   scheduler,
		transcripts: transcripts,
		logger:      logger,
	}
}

// Start connects a new session. Valid only from idle; concurrent calls while
// connecting or active fail with ErrAlreadyActive. On any acquisition
// failure the controller returns to idle with everything partially acquired
// released, and the error is reported to the caller.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.state = StateConnecting
	c.sessionID = uuid.New().String()
	c.metrics = observability.NewSessionMetrics(c.sessionID)
	sessionID := c.sessionID
	c.mu.Unlock()

	logger := c.logger.With().Str("session_id", sessionID).Logger()
	logger.Info().Msg("Starting live session")

	c.transcripts.Reset()

	// Capture must be acquired before going live: a denied microphone
	// aborts the whole connect attempt.
	if err := c.pipeline.Start(c.handleChunk, c.handleVolume); err != nil {
		logger.Error().Err(err).Msg("Capture acquisition failed")
		c.recordError("capture_unavailable")
		c.setState(StateIdle)
		return fmt.Errorf("start session: %w", err)
	}

	sess, err := c.dialer.Dial(ctx, transport.Handlers{
		OnMessage: c.handleMessage,
		OnClose:   c.handleRemoteClose,
		OnError:   c.handleTransportError,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Transport handshake failed")
		c.recordError("transport_dial")
		_ = c.pipeline.Stop()
		c.setState(StateIdle)
		return fmt.Errorf("start session: %w", err)
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Close raced with the handshake; unwind what we just acquired.
		c.mu.Unlock()
		_ = sess.Close()
		_ = c.pipeline.Stop()
		return fmt.Errorf("start session: closed during connect")
	}
	c.session = sess
	c.state = StateActive
	metrics := c.metrics
	c.mu.Unlock()

	metrics.RecordSessionStart()
	logger.Info().Msg("Live session active")
	return nil
}

// Close tears the session down: transport shutdown, then playback halt,
// then capture release, then transcript and volume reset. Idempotent and
// reentrancy-safe — it may be invoked from within a transport callback, and
// calling it while idle is a no-op. Individual release failures are caught
// and ignored so teardown always completes.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateClosing {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosing
	sess := c.session
	c.session = nil
	sessionID := c.sessionID
	metrics := c.metrics
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	c.scheduler.StopAll()
	_ = c.pipeline.Stop()
	c.transcripts.Reset()

	c.setState(StateIdle)
	if metrics != nil {
		metrics.RecordSessionEnd()
	}
	c.logger.Info().Str("session_id", sessionID).Msg("Live session closed")
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Speaking reports whether model audio is currently in flight.
func (c *Controller) Speaking() bool {
	return c.scheduler.Speaking()
}

// Snapshot returns the current transcript and volume state.
func (c *Controller) Snapshot() transcript.Snapshot {
	return c.transcripts.Snapshot()
}

// handleChunk forwards one encoded capture chunk to the transport. Chunks
// arriving before the handshake completes (or after teardown began) are
// dropped.
func (c *Controller) handleChunk(chunk []byte) {
	c.mu.Lock()
	sess := c.session
	metrics := c.metrics
	c.mu.Unlock()
	if sess == nil {
		return
	}

	err := sess.SendRealtimeInput(transport.Blob{
		MIMEType: transport.MIMETypePCM16k,
		Data:     chunk,
	})
	if err != nil {
		// Reported, never thrown: capture callbacks must not crash the
		// controller. The transport surfaces terminal failures via OnError.
		c.logger.Warn().Err(err).Msg("Failed to send capture chunk")
		c.recordError("transport_send")
		return
	}
	if metrics != nil {
		metrics.RecordAudioBytes("in", int64(len(chunk)))
	}
}

func (c *Controller) handleVolume(v float64) {
	c.transcripts.SetVolume(v)
	observability.SetInputVolume(v)
}

// handleMessage classifies and routes one inbound transport message.
func (c *Controller) handleMessage(msg *transport.Message) {
	if msg == nil {
		return
	}

	if msg.GoAway != nil {
		c.logger.Info().Str("time_left", msg.GoAway.TimeLeft).Msg("Remote session going away")
		_ = c.Close()
		return
	}

	sc := msg.ServerContent
	if sc == nil {
		return
	}

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil {
				continue
			}
			if err := c.scheduler.Enqueue(part.InlineData.Data); err != nil {
				// Malformed frames are a protocol-contract violation,
				// reported distinctly from transport failures.
				c.logger.Error().Err(err).Msg("Dropping malformed audio frame")
				c.recordError("malformed_frame")
				continue
			}
			c.recordAudioOut(len(part.InlineData.Data))
		}
	}

	if sc.InputTranscription != nil {
		c.transcripts.SetInput(sc.InputTranscription.Text)
	}
	if sc.OutputTranscription != nil {
		c.transcripts.AppendOutput(sc.OutputTranscription.Text)
	}
}

// handleTransportError funnels remote failures into the same teardown as an
// explicit Close. There is no separate error terminal state.
func (c *Controller) handleTransportError(err error) {
	c.logger.Error().Err(err).Msg("Transport error, closing session")
	c.recordError("transport")
	_ = c.Close()
}

func (c *Controller) handleRemoteClose() {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateClosing || state == StateIdle {
		return
	}
	c.logger.Info().Msg("Remote session closed")
	_ = c.Close()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) recordError(kind string) {
	c.mu.Lock()
	metrics := c.metrics
	c.mu.Unlock()
	if metrics != nil {
		metrics.RecordError(kind)
	}
}

func (c *Controller) recordAudioOut(n int) {
	c.mu.Lock()
	metrics := c.metrics
	c.mu.Unlock()
	if metrics != nil {
		metrics.RecordAudioBytes("out", int64(n))
	}
}
