package playback

import (
	"bytes"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/clairvoice/voicelink/internal/audio"
)

// The audio output context is process-wide: created lazily on first use and
// never destroyed until process exit. Sessions share it; oto enforces the
// one-context-per-process rule, so a failed creation is sticky.
var (
	outputOnce sync.Once
	outputCtx  *oto.Context
	outputErr  error
)

func outputContext(sampleRate int) (*oto.Context, error) {
	outputOnce.Do(func() {
		opts := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			// ~100ms keeps latency low without glitching.
			BufferSize: 100 * time.Millisecond,
		}
		ctx, ready, err := oto.NewContext(opts)
		if err != nil {
			outputErr = err
			return
		}
		<-ready
		outputCtx = ctx
	})
	return outputCtx, outputErr
}

// OtoSink plays decoded PCM chunks through the process-wide speaker context.
type OtoSink struct {
	sampleRate int
}

// NewOtoSink creates a sink at the given playback sample rate. The sample
// rate of the first sink created fixes the shared context's rate.
func NewOtoSink(sampleRate int) *OtoSink {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &OtoSink{sampleRate: sampleRate}
}

// Play starts output of one chunk. Completion is signaled once the chunk's
// duration has elapsed, padded slightly so the device buffer drains before
// the player is closed.
func (s *OtoSink) Play(pcm []byte, done func()) (func() error, error) {
	ctx, err := outputContext(s.sampleRate)
	if err != nil {
		return nil, err
	}

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()

	duration := audio.Duration(len(pcm)/2, s.sampleRate)
	timer := time.AfterFunc(duration+50*time.Millisecond, func() {
		_ = player.Close()
		if done != nil {
			done()
		}
	})

	stop := func() error {
		timer.Stop()
		return player.Close()
	}
	return stop, nil
}
