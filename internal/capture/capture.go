// Package capture turns a live microphone input into a stream of fixed-size
// encoded PCM chunks at 16 kHz mono, publishing a running RMS loudness
// sample alongside every chunk.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clairvoice/voicelink/internal/audio"
)

// ErrUnavailable indicates the audio source could not be acquired
// (permission denied, no device). A connect attempt that hits this error
// must abort without going live.
var ErrUnavailable = errors.New("capture source unavailable")

// DefaultBlockSize is the number of samples delivered per capture block.
const DefaultBlockSize = 4096

// DefaultSampleRate is the capture sample rate in Hz.
const DefaultSampleRate = 16000

// Source is an opaque live audio input delivering fixed-size blocks of
// floating-point samples on a periodic callback. The callback must not
// block; each block is fully processed before the next one arrives.
type Source interface {
	Start(onBlock func(block []float32)) error
	Stop() error
}

// Pipeline processes capture blocks: per block it computes RMS loudness in
// the float domain (pre-quantization), converts to 16-bit PCM, encodes, and
// hands the chunk to the transport observer. There is no queue between
// blocks; processing is synchronous with block arrival.
type Pipeline struct {
	source Source
	logger zerolog.Logger

	mu      sync.Mutex
	started bool
}

// NewPipeline creates a pipeline over the given source.
func NewPipeline(source Source, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		source: source,
		logger: logger,
	}
}

// Start acquires the source and begins forwarding blocks to the two
// observers. onChunk receives each encoded frame; onVolume receives the RMS
// loudness of the same block. Acquisition failure wraps ErrUnavailable.
func (p *Pipeline) Start(onChunk func(chunk []byte), onVolume func(v float64)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("capture pipeline already started")
	}

	err := p.source.Start(func(block []float32) {
		if onVolume != nil {
			onVolume(audio.RMS(block))
		}
		if onChunk != nil {
			onChunk(audio.Encode(audio.Float32ToInt16(block)))
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.started = true
	return nil
}

// Stop releases the source. Safe to call when not started.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.started = false

	if err := p.source.Stop(); err != nil {
		p.logger.Warn().Err(err).Msg("Error stopping capture source")
		return err
	}
	return nil
}
