package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedFrame indicates a byte sequence that cannot be decoded as
// 16-bit PCM (odd length). It is a protocol-contract violation, not a
// recoverable network failure.
var ErrMalformedFrame = errors.New("malformed PCM frame")

// Encode converts 16-bit PCM samples to a transport-safe byte sequence
// (little-endian). No clamping is performed; callers must pre-clamp sample
// values to the int16 range.
func Encode(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		data[i*2] = byte(sample)
		data[i*2+1] = byte(sample >> 8)
	}
	return data
}

// Decode converts a little-endian byte sequence back to 16-bit PCM samples.
// It is the inverse of Encode for any even-length input. Odd-length input
// fails with ErrMalformedFrame. Sample values are not validated beyond bit
// width.
func Decode(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 2", ErrMalformedFrame, len(data))
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples, nil
}

// Float32ToInt16 converts floating-point samples in [-1.0, 1.0] to 16-bit
// PCM by direct scale-by-32768 truncation (not rounding). Values are not
// clamped: amplitudes at or near +1.0 can overflow by one step, so callers
// that cannot tolerate wraparound must pre-clamp.
func Float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, sample := range samples {
		out[i] = int16(sample * 32768)
	}
	return out
}

// RMS computes the root-mean-square loudness of a block of floating-point
// samples. For input in [-1.0, 1.0] the result is in [0, 1].
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Duration returns the playback duration of sampleCount mono samples at the
// given sample rate.
func Duration(sampleCount, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(sampleCount) * time.Second / time.Duration(sampleRate)
}
