// SPDX-License-Identifier: MIT
/*
Package audio implements the capture side of the client:
- PortAudio input stream with mono downmix in the callback
- Fixed-capacity ring buffer addressed by a monotonic sample sequence
- Push-to-talk session state machine over the ring
- Linear resampler to the model input rate
- Optional WAV archive of finalized utterances

Thread Safety:
- The ring buffer is the only structure shared with the audio callback
- All critical sections are short and bounded; no allocation under lock
*/
package audio

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOverrun reports that a requested span has been overwritten by
// newer samples. The caller must discard the utterance.
var ErrOverrun = errors.New("requested range overwritten by newer samples")

// RingBuffer is a fixed-capacity circular store of mono float32 PCM.
// Positions are absolute sample sequence numbers starting at 0; the
// write cursor only ever moves forward, so sample seq lives at
// data[seq%capacity] until overwritten by seq+capacity.
type RingBuffer struct {
	mu       sync.Mutex
	data     []float32
	capacity uint64
	writeSeq uint64 // next sequence number to be written
}

// NewRingBuffer creates a ring holding capacity samples. Capacity is
// fixed for the life of the buffer and must be positive.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic(fmt.Sprintf("audio: ring capacity must be positive, got %d", capacity))
	}
	return &RingBuffer{
		data:     make([]float32, capacity),
		capacity: uint64(capacity),
	}
}

// Capacity returns the fixed capacity in samples.
func (b *RingBuffer) Capacity() int { return int(b.capacity) }

// Write appends samples, overwriting the oldest data when full.
// It never blocks beyond the copy, never allocates and never fails,
// which makes it safe to call from the audio callback.
func (b *RingBuffer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	for _, s := range samples {
		b.data[b.writeSeq%b.capacity] = s
		b.writeSeq++
	}
	b.mu.Unlock()
}

// WriteSeq returns the current write cursor: the sequence number the
// next written sample will receive. Equals the total samples written.
func (b *RingBuffer) WriteSeq() uint64 {
	b.mu.Lock()
	w := b.writeSeq
	b.mu.Unlock()
	return w
}

// Len returns the number of samples currently readable, at most the
// capacity.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeSeq < b.capacity {
		return int(b.writeSeq)
	}
	return int(b.capacity)
}

// ReadLatestInto copies the most recent min(len(dst), Len()) samples
// into dst in chronological order and returns the count. The snapshot
// is taken under the write lock, so a concurrent Write can never tear
// it. No allocation.
func (b *RingBuffer) ReadLatestInto(dst []float32) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := uint64(len(dst))
	if n > b.writeSeq {
		n = b.writeSeq
	}
	if n > b.capacity {
		n = b.capacity
	}
	start := b.writeSeq - n
	for i := uint64(0); i < n; i++ {
		dst[i] = b.data[(start+i)%b.capacity]
	}
	return int(n)
}

// ReadLatest returns a copy of the most recent n samples, or fewer if
// less data has been written.
func (b *RingBuffer) ReadLatest(n int) []float32 {
	if n <= 0 {
		return nil
	}
	dst := make([]float32, n)
	got := b.ReadLatestInto(dst)
	return dst[:got]
}

// ExtractRange copies out samples [start, end) by absolute sequence
// number. It fails with ErrOverrun when any part of the span has
// already been overwritten, i.e. start < WriteSeq-Capacity.
func (b *RingBuffer) ExtractRange(start, end uint64) ([]float32, error) {
	if start > end {
		return nil, fmt.Errorf("invalid range [%d, %d)", start, end)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if end > b.writeSeq {
		return nil, fmt.Errorf("range end %d beyond write cursor %d", end, b.writeSeq)
	}
	if b.writeSeq > b.capacity && start < b.writeSeq-b.capacity {
		return nil, fmt.Errorf("extract [%d, %d) with cursor %d: %w", start, end, b.writeSeq, ErrOverrun)
	}

	out := make([]float32, end-start)
	for i := range out {
		out[i] = b.data[(start+uint64(i))%b.capacity]
	}
	return out, nil
}
