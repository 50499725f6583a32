// Package playback schedules decoded audio chunks for gapless, ordered,
// non-overlapping output and tracks whether the model is currently speaking.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clairvoice/voicelink/internal/audio"
)

// DefaultSampleRate is the playback sample rate in Hz.
const DefaultSampleRate = 24000

// Sink outputs one decoded PCM chunk. done fires when output of that chunk
// completes; the returned stop halts output early. Stopping an
// already-finished chunk may fail, and callers are expected to swallow that.
type Sink interface {
	Play(pcm []byte, done func()) (stop func() error, err error)
}

// handle is one scheduled chunk, owned by the Scheduler from creation until
// its completion fires or StopAll discards it.
type handle struct {
	id    string
	pcm   []byte
	start time.Time
	end   time.Time
	timer Timer        // pending start
	stop  func() error // set once the sink has taken the chunk
}

// Scheduler accepts chunks arriving asynchronously and in order, and plays
// them back-to-back: each chunk starts at the later of now and the computed
// end of the previous chunk, which concatenates discrete messages into a
// gapless stream.
type Scheduler struct {
	sink       Sink
	sampleRate int
	clock      Clock
	logger     zerolog.Logger

	mu       sync.Mutex
	active   map[string]*handle
	horizon  time.Time // end of the last scheduled chunk
	speaking bool

	onSpeaking func(bool)
}

// NewScheduler creates a scheduler playing through sink at the given sample
// rate.
func NewScheduler(sink Sink, sampleRate int, logger zerolog.Logger) *Scheduler {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Scheduler{
		sink:       sink,
		sampleRate: sampleRate,
		clock:      realClock{},
		logger:     logger,
		active:     make(map[string]*handle),
	}
}

// NewSchedulerWithClock is NewScheduler with an explicit clock, used to
// drive scheduling deterministically in tests.
func NewSchedulerWithClock(sink Sink, sampleRate int, logger zerolog.Logger, clock Clock) *Scheduler {
	s := NewScheduler(sink, sampleRate, logger)
	s.clock = clock
	return s
}

// SetSpeakingObserver registers a callback invoked whenever the speaking
// flag changes. The callback must not call back into the scheduler's
// mutating methods.
func (s *Scheduler) SetSpeakingObserver(fn func(bool)) {
	s.mu.Lock()
	s.onSpeaking = fn
	s.mu.Unlock()
}

// Enqueue decodes one encoded chunk and schedules it after the previously
// scheduled chunk ends (or immediately if nothing is pending).
func (s *Scheduler) Enqueue(chunk []byte) error {
	samples, err := audio.Decode(chunk)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	duration := audio.Duration(len(samples), s.sampleRate)

	s.mu.Lock()
	now := s.clock.Now()
	start := now
	if s.horizon.After(now) {
		start = s.horizon
	}

	h := &handle{
		id:    uuid.New().String(),
		pcm:   chunk,
		start: start,
		end:   start.Add(duration),
	}
	s.horizon = h.end
	s.active[h.id] = h
	changed := s.setSpeakingLocked(true)
	h.timer = s.clock.AfterFunc(start.Sub(now), func() { s.startHandle(h) })
	observer := s.onSpeaking
	s.mu.Unlock()

	if changed && observer != nil {
		observer(true)
	}
	return nil
}

// startHandle hands a due chunk to the sink.
func (s *Scheduler) startHandle(h *handle) {
	s.mu.Lock()
	if _, ok := s.active[h.id]; !ok {
		// Discarded by StopAll before its start time.
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	stop, err := s.sink.Play(h.pcm, func() { s.complete(h.id) })
	if err != nil {
		s.logger.Error().Err(err).Msg("Playback sink rejected chunk")
		s.complete(h.id)
		return
	}

	s.mu.Lock()
	if _, ok := s.active[h.id]; ok {
		h.stop = stop
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	// StopAll raced with the sink handoff; halt the stray output.
	_ = stop()
}

// complete releases a handle once its output finishes. Keyed by handle
// identity, so out-of-order and duplicate completion callbacks are safe.
func (s *Scheduler) complete(id string) {
	s.mu.Lock()
	if _, ok := s.active[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	changed := s.setSpeakingLocked(len(s.active) > 0)
	observer := s.onSpeaking
	s.mu.Unlock()

	if changed && observer != nil {
		observer(false)
	}
}

// StopAll halts every active handle immediately, swallowing errors from
// already-finished ones, clears the set, and forces speaking false. Callable
// at any time; a no-op with an empty set.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	// Snapshot before touching anything: completion callbacks can fire
	// while we iterate.
	snapshot := make([]*handle, 0, len(s.active))
	for _, h := range s.active {
		snapshot = append(snapshot, h)
	}
	s.active = make(map[string]*handle)
	s.horizon = time.Time{}
	changed := s.setSpeakingLocked(false)
	observer := s.onSpeaking
	s.mu.Unlock()

	for _, h := range snapshot {
		if h.timer != nil {
			h.timer.Stop()
		}
		if h.stop != nil {
			_ = h.stop()
		}
	}

	if changed && observer != nil {
		observer(false)
	}
}

// Speaking reports whether any handle is in flight. It is true iff the
// active set is non-empty.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// ActiveCount returns the number of in-flight handles.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) setSpeakingLocked(speaking bool) bool {
	if s.speaking == speaking {
		return false
	}
	s.speaking = speaking
	return true
}
