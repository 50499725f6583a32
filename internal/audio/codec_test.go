package audio

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 255, 256, -256, 32767, -32768, 12345, -12345}

	encoded := Encode(samples)
	if len(encoded) != len(samples)*2 {
		t.Fatalf("Expected %d encoded bytes, got %d", len(samples)*2, len(encoded))
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestDecodeEncode_RoundTrip(t *testing.T) {
	// encode(decode(b)) == b for all even-length byte sequences
	inputs := [][]byte{
		{},
		{0x00, 0x00},
		{0xFF, 0x7F, 0x00, 0x80},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		{0xDE, 0xAD, 0xBE, 0xEF},
	}

	for _, input := range inputs {
		decoded, err := Decode(input)
		if err != nil {
			t.Fatalf("Decode(%v) failed: %v", input, err)
		}
		if got := Encode(decoded); !bytes.Equal(got, input) {
			t.Errorf("Round trip of %v produced %v", input, got)
		}
	}
}

func TestDecode_OddLength(t *testing.T) {
	for _, length := range []int{1, 3, 5, 4097} {
		input := make([]byte, length)
		_, err := Decode(input)
		if err == nil {
			t.Errorf("Expected error for length %d, got nil", length)
			continue
		}
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Expected ErrMalformedFrame for length %d, got %v", length, err)
		}
	}
}

func TestEncode_LittleEndian(t *testing.T) {
	encoded := Encode([]int16{0x0102})
	if encoded[0] != 0x02 || encoded[1] != 0x01 {
		t.Errorf("Expected little-endian [02 01], got [%02x %02x]", encoded[0], encoded[1])
	}
}

func TestFloat32ToInt16_Truncates(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0.0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{-1.0, -32768},
		// Truncation, not rounding
		{0.00004, 1},  // 1.31... truncates to 1
		{-0.00004, -1},
		{0.99996, 32766}, // 32766.68... truncates to 32766
	}

	for _, tt := range tests {
		got := Float32ToInt16([]float32{tt.in})[0]
		if got != tt.want {
			t.Errorf("Float32ToInt16(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
	}{
		{"empty", nil, 0.0},
		{"silence", []float32{0, 0, 0, 0}, 0.0},
		{"full scale", []float32{1, -1, 1, -1}, 1.0},
		{"half scale", []float32{0.5, -0.5, 0.5, -0.5}, 0.5},
	}

	for _, tt := range tests {
		got := RMS(tt.samples)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: expected RMS %f, got %f", tt.name, tt.want, got)
		}
	}
}

func TestDuration(t *testing.T) {
	if d := Duration(24000, 24000); d != time.Second {
		t.Errorf("Expected 1s for 24000 samples at 24kHz, got %v", d)
	}
	if d := Duration(4096, 16000); d != 256*time.Millisecond {
		t.Errorf("Expected 256ms for 4096 samples at 16kHz, got %v", d)
	}
	if d := Duration(100, 0); d != 0 {
		t.Errorf("Expected 0 for zero sample rate, got %v", d)
	}
}
