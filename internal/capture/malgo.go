package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/clairvoice/voicelink/internal/audio"
)

const bytesPerFloat32 = 4

// MalgoSource captures microphone audio through miniaudio. The device
// delivers periods of arbitrary size; a ring buffer re-blocks them into
// exact blockSize sample blocks for the pipeline.
type MalgoSource struct {
	blockSize  int
	sampleRate int

	mu   sync.Mutex
	ctx  *malgo.AllocatedContext
	dev  *malgo.Device
	ring *audio.RingBuffer
}

// NewMalgoSource creates a microphone source producing blockSize-sample
// float32 blocks at the given sample rate, mono.
func NewMalgoSource(blockSize, sampleRate int) *MalgoSource {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &MalgoSource{
		blockSize:  blockSize,
		sampleRate: sampleRate,
		// Room for several blocks so a slow period boundary never drops data.
		ring: audio.NewRingBuffer(blockSize * bytesPerFloat32 * 4),
	}
}

// Start acquires the capture device and begins delivering blocks.
func (m *MalgoSource) Start(onBlock func(block []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		return fmt.Errorf("capture device already started")
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return fmt.Errorf("failed to init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	blockBytes := m.blockSize * bytesPerFloat32
	scratch := make([]byte, blockBytes)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			// Device callback; must not block. Overflow drops the oldest
			// pending bytes implicitly by refusing the write.
			m.ring.Write(input)
			for m.ring.Available() >= blockBytes {
				m.ring.Read(scratch)
				onBlock(bytesToFloat32(scratch))
			}
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to init capture device: %w", err)
	}

	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	m.ctx = ctx
	m.dev = dev
	return nil
}

// Stop releases the capture device and context. Individual release failures
// are swallowed so teardown always completes.
func (m *MalgoSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		_ = m.dev.Stop()
		m.dev.Uninit()
		m.dev = nil
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
	m.ring.Clear()
	return nil
}

func bytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/bytesPerFloat32)
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*bytesPerFloat32:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
