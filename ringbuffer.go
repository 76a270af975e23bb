package gosampler

import "sync/atomic"

// RING is the capacity, in frames, of a StreamingVoice's ring buffer
// (~743ms at 44.1kHz).
const RING = 32768

// ringChannels is the number of channels a ring buffer stores. The
// sampler never produces more than stereo output (spec.md Non-goals).
const ringChannels = 2

// ringBuffer is a bounded single-producer/single-consumer audio buffer.
// The disk thread is the sole producer (advances writePos); the audio
// thread is the sole consumer (advances readPos). Both positions are
// monotonically increasing and never wrap at the type level; physical
// index is position mod RING.
//
// Correctness comes entirely from the two position counters, not from
// clearing storage: writes publish with a release store on writePos,
// reads are observed with an acquire load, and symmetrically for
// readPos in the other direction. sync/atomic on this platform gives
// sequential consistency, which is strictly stronger than the
// release/acquire pairing this needs.
type ringBuffer struct {
	data     [ringChannels][]float32
	writePos atomic.Int64
	_        [56]byte // separate cache line from readPos to avoid false sharing
	readPos  atomic.Int64
}

func newRingBuffer() *ringBuffer {
	rb := &ringBuffer{}
	for ch := range rb.data {
		rb.data[ch] = make([]float32, RING)
	}
	return rb
}

// capacity returns RING.
func (rb *ringBuffer) capacity() int { return RING }

// samplesAvailable is consumer-facing: frames the producer has written
// but the consumer has not yet consumed.
func (rb *ringBuffer) samplesAvailable() int64 {
	return rb.writePos.Load() - rb.readPos.Load()
}

// spaceAvailable is producer-facing: frames that can be written without
// overtaking the consumer.
func (rb *ringBuffer) spaceAvailable() int64 {
	return RING - (rb.writePos.Load() - rb.readPos.Load())
}

// writeFrames copies n frames from src (per channel) starting at the
// current writePos, wrapping the copy across the ring boundary in up
// to two segments, then publishes writePos += n with a release store.
// Precondition: n <= spaceAvailable(). Producer-only (disk thread).
func (rb *ringBuffer) writeFrames(src [][]float32, n int) {
	if n == 0 {
		return
	}
	w := rb.writePos.Load()
	pos := int(w % RING)
	first := RING - pos
	for ch := 0; ch < ringChannels; ch++ {
		var s []float32
		if ch < len(src) {
			s = src[ch]
		}
		dst := rb.data[ch]
		if first >= n {
			copyFloats(dst[pos:pos+n], s, n)
		} else {
			copyFloats(dst[pos:RING], s, first)
			copyFloats(dst[0:n-first], s[first:], n-first)
		}
	}
	rb.writePos.Store(w + int64(n))
}

// copyFloats copies min(len(src), n) elements into dst and zero-fills
// dst up to n if src runs short; dst must hold at least n elements
// (defends against a mono source
// feeding a stereo destination channel slot, or a short disk read).
func copyFloats(dst []float32, src []float32, n int) {
	m := n
	if len(src) < m {
		m = len(src)
	}
	if m > 0 {
		copy(dst[:m], src[:m])
	}
	for i := m; i < n; i++ {
		dst[i] = 0
	}
}

// readSample returns the sample for channel ch at the given absolute
// frame position, wrapped into the ring. Consumer-only (audio thread).
func (rb *ringBuffer) readSample(ch int, absoluteFrame int64) float32 {
	pos := absoluteFrame % RING
	if pos < 0 {
		pos += RING
	}
	return rb.data[ch][pos]
}

// advanceReadTo publishes a new readPos with a release store. newPos
// must be >= the current readPos; the consumer asserts it has finished
// reading everything up to, but not including, newPos.
func (rb *ringBuffer) advanceReadTo(newPos int64) {
	rb.readPos.Store(newPos)
}

// writePointer exposes the producer-writable region for channel ch
// starting at the current writePos, wrapped as up to two segments,
// sized to cap frames. Used by the disk streamer to avoid an extra
// copy through writeFrames when it already has per-channel source
// slices at hand.
func (rb *ringBuffer) writePointer(ch int, cap int) (first, second []float32) {
	w := rb.writePos.Load()
	pos := int(w % RING)
	avail := RING - pos
	if avail >= cap {
		return rb.data[ch][pos : pos+cap], nil
	}
	return rb.data[ch][pos:RING], rb.data[ch][0 : cap-avail]
}

// advanceWrite publishes writePos += n with a release store. Used
// after writing through writePointer. Producer-only (disk thread).
func (rb *ringBuffer) advanceWrite(n int) {
	rb.writePos.Add(int64(n))
}

// reset zeroes both positions. Only safe to call when no producer or
// consumer is concurrently active on this buffer (voice start/reset).
func (rb *ringBuffer) reset() {
	rb.writePos.Store(0)
	rb.readPos.Store(0)
}
