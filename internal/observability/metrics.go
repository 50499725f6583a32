package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicelink_active_sessions",
		Help: "Number of active live voice sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicelink_sessions_total",
		Help: "Total number of live voice sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicelink_session_duration_seconds",
		Help:    "Duration of live voice sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicelink_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" (capture) or "out" (playback)

	inputVolume = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicelink_input_volume",
		Help: "Instantaneous user input volume (RMS, 0-1)",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicelink_errors_total",
		Help: "Total number of errors",
	}, []string{"type"})
)

// SessionMetrics tracks metrics for a single live session.
type SessionMetrics struct {
	sessionID string
	mu        sync.Mutex
	startTime time.Time
	started   bool
}

// NewSessionMetrics creates a metrics tracker for a session.
func NewSessionMetrics(sessionID string) *SessionMetrics {
	return &SessionMetrics{sessionID: sessionID}
}

// RecordSessionStart records the session going active.
func (m *SessionMetrics) RecordSessionStart() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.started = true
	m.mu.Unlock()

	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the session returning to idle.
func (m *SessionMetrics) RecordSessionEnd() {
	m.mu.Lock()
	started := m.started
	m.started = false
	start := m.startTime
	m.mu.Unlock()

	if !started {
		return
	}
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(start).Seconds())
}

// RecordAudioBytes records audio bytes processed in one direction.
func (m *SessionMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordError records an error by type.
func (m *SessionMetrics) RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

// SetInputVolume publishes the latest capture volume sample.
func SetInputVolume(v float64) {
	inputVolume.Set(v)
}
