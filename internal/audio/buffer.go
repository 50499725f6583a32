package audio

import (
	"sync"
)

// RingBuffer is a thread-safe ring buffer for raw audio bytes. The capture
// source uses it to re-block device periods of arbitrary size into the fixed
// block size the pipeline emits.
type RingBuffer struct {
	buffer []byte
	size   int
	read   int
	write  int
	count  int
	mu     sync.Mutex
}

// NewRingBuffer creates a new ring buffer holding up to size bytes.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
	}
}

// Write writes data to the ring buffer.
// Returns the number of bytes written (less than len(data) if the buffer fills).
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for _, b := range data {
		if rb.count == rb.size {
			break // Buffer full
		}
		rb.buffer[rb.write] = b
		rb.write = (rb.write + 1) % rb.size
		rb.count++
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the ring buffer.
// Returns the number of bytes read.
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := range data {
		if rb.count == 0 {
			break // Buffer empty
		}
		data[i] = rb.buffer[rb.read]
		rb.read = (rb.read + 1) % rb.size
		rb.count--
		read++
	}
	return read
}

// Available returns the number of bytes available to read.
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Space returns the number of bytes available to write.
func (rb *RingBuffer) Space() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}

// Clear discards all buffered bytes.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = 0
	rb.write = 0
	rb.count = 0
}

// IsEmpty returns true if the buffer holds no bytes.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count == 0
}

// IsFull returns true if the buffer is at capacity.
func (rb *RingBuffer) IsFull() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count == rb.size
}
