package capture

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

// fakeSource is a Source driven manually from tests.
type fakeSource struct {
	startErr error
	onBlock  func([]float32)
	started  bool
	stopped  bool
}

func (f *fakeSource) Start(onBlock func([]float32)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.onBlock = onBlock
	f.started = true
	return nil
}

func (f *fakeSource) Stop() error {
	f.stopped = true
	return nil
}

func TestPipeline_ForwardsChunkAndVolume(t *testing.T) {
	src := &fakeSource{}
	p := NewPipeline(src, zerolog.Nop())

	var chunks [][]byte
	var volumes []float64
	err := p.Start(
		func(chunk []byte) { chunks = append(chunks, chunk) },
		func(v float64) { volumes = append(volumes, v) },
	)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// Constant half-scale block: RMS 0.5, each sample encodes to 16384
	block := make([]float32, 8)
	for i := range block {
		block[i] = 0.5
	}
	src.onBlock(block)

	if len(volumes) != 1 {
		t.Fatalf("Expected 1 volume sample, got %d", len(volumes))
	}
	if math.Abs(volumes[0]-0.5) > 1e-9 {
		t.Errorf("Expected RMS 0.5, got %f", volumes[0])
	}

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0]) != len(block)*2 {
		t.Fatalf("Expected %d encoded bytes, got %d", len(block)*2, len(chunks[0]))
	}
	// 16384 = 0x4000 little-endian
	if chunks[0][0] != 0x00 || chunks[0][1] != 0x40 {
		t.Errorf("Unexpected first sample bytes: %02x %02x", chunks[0][0], chunks[0][1])
	}
}

func TestPipeline_BlocksArriveInOrder(t *testing.T) {
	src := &fakeSource{}
	p := NewPipeline(src, zerolog.Nop())

	var chunks [][]byte
	if err := p.Start(func(chunk []byte) { chunks = append(chunks, chunk) }, nil); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	src.onBlock([]float32{0.25})
	src.onBlock([]float32{0.5})
	src.onBlock([]float32{0.75})

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	// 0.25 -> 8192, 0.5 -> 16384, 0.75 -> 24576
	expected := []int16{8192, 16384, 24576}
	for i, want := range expected {
		got := int16(chunks[i][0]) | int16(chunks[i][1])<<8
		if got != want {
			t.Errorf("Chunk %d: expected sample %d, got %d", i, want, got)
		}
	}
}

func TestPipeline_SourceUnavailable(t *testing.T) {
	src := &fakeSource{startErr: errors.New("permission denied")}
	p := NewPipeline(src, zerolog.Nop())

	err := p.Start(nil, nil)
	if err == nil {
		t.Fatal("Expected error when source cannot start")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestPipeline_DoubleStart(t *testing.T) {
	src := &fakeSource{}
	p := NewPipeline(src, zerolog.Nop())

	if err := p.Start(nil, nil); err != nil {
		t.Fatalf("First Start() failed: %v", err)
	}
	if err := p.Start(nil, nil); err == nil {
		t.Error("Expected error on second Start()")
	}
}

func TestPipeline_StopReleasesSource(t *testing.T) {
	src := &fakeSource{}
	p := NewPipeline(src, zerolog.Nop())

	// Stop before start is a no-op
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() before Start() failed: %v", err)
	}
	if src.stopped {
		t.Error("Source stopped before it was started")
	}

	if err := p.Start(nil, nil); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if !src.stopped {
		t.Error("Expected source to be stopped")
	}
}
