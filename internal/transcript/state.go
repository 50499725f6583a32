// Package transcript holds the externally observable state of a live voice
// session: the current input/output transcript text and the instantaneous
// user volume. UI observers read snapshots; all mutation happens via the
// session controller and capture pipeline.
package transcript

import (
	"sync"
)

// Snapshot is a point-in-time copy of the observable session state.
type Snapshot struct {
	Input  string  // Latest partial transcript of the user's speech
	Output string  // Accumulated transcript of the model's speech
	Volume float64 // Instantaneous user loudness in [0, 1]
}

// State tracks transcript text and user volume for one session. Input text
// is replace-on-update (latest partial transcript wins); output text is
// append-only until Reset.
type State struct {
	mu     sync.RWMutex
	input  string
	output string
	volume float64
}

// NewState creates an empty State.
func NewState() *State {
	return &State{}
}

// SetInput replaces the input transcript with the latest partial result.
func (s *State) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// AppendOutput appends a delta to the output transcript.
func (s *State) AppendOutput(text string) {
	s.mu.Lock()
	s.output += text
	s.mu.Unlock()
}

// SetVolume publishes the current user volume, clamped to [0, 1].
func (s *State) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

// Input returns the latest input transcript.
func (s *State) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// Output returns the accumulated output transcript.
func (s *State) Output() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.output
}

// Volume returns the latest volume sample.
func (s *State) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Snapshot returns a consistent copy of the observable state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Input:  s.input,
		Output: s.output,
		Volume: s.volume,
	}
}

// Reset clears transcripts and volume. Called on session start and on any
// transition back to idle.
func (s *State) Reset() {
	s.mu.Lock()
	s.input = ""
	s.output = ""
	s.volume = 0
	s.mu.Unlock()
}
