// Package ring implements the lock-free single-writer/single-reader byte
// ring buffer transport described in spec.md §3 and §4.1: a contiguous
// backing store addressed through "doubled" offsets in [0, 2*size) so that
// empty and full states are distinguishable without a separate counter,
// plus Sink/Source capability views with their own free/available
// watermarks.
package ring

import "fmt"

// CacheLineSize is the alignment used when sizing the backing store of a
// shared buffer, matching the platform dcache line width assumed by the
// original firmware.
const CacheLineSize = 64

// Buffer is the ring buffer transport. It is not safe for concurrent use by
// more than one writer and one reader; that single-writer/single-reader
// discipline is the whole point of the design (spec.md §5).
type Buffer struct {
	data []byte

	// writeOffset and readOffset live in [0, 2*size). Empty iff equal;
	// full iff their difference (mod 2*size) equals size.
	writeOffset uint32
	readOffset  uint32

	shared bool
	cache  CacheController

	minAvailable uint32
	minFreeSpace uint32
}

// New constructs a ring buffer sized to hold at least 3x the larger of
// minAvailable and minFreeSpace, rounded up to CacheLineSize, per the
// sizing rationale in spec.md §4.1.
func New(minAvailable, minFreeSpace uint32, shared bool) (*Buffer, error) {
	return NewWithCache(minAvailable, minFreeSpace, shared, noopCache{})
}

// NewWithCache is New but lets the caller supply a CacheController, e.g. a
// *CountingCache in tests asserting the wrap-split invariant.
func NewWithCache(minAvailable, minFreeSpace uint32, shared bool, cache CacheController) (*Buffer, error) {
	maxIbsObs := minAvailable
	if minFreeSpace > maxIbsObs {
		maxIbsObs = minFreeSpace
	}

	size := 3 * maxIbsObs
	size = alignUp(size, CacheLineSize)
	if size == 0 {
		return nil, errOutOfMemory("ring.New", fmt.Errorf("zero-sized ring buffer requested"))
	}

	if cache == nil {
		cache = noopCache{}
	}

	b := &Buffer{
		data:         make([]byte, size),
		shared:       shared,
		cache:        cache,
		minAvailable: minAvailable,
		minFreeSpace: minFreeSpace,
	}
	return b, nil
}

func alignUp(n, align uint32) uint32 {
	if align == 0 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// Size returns the backing store size in bytes.
func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

// IsShared reports whether this buffer performs explicit cache
// writeback/invalidate around commits and reads.
func (b *Buffer) IsShared() bool {
	return b.shared
}

// Sink returns this buffer's producer-facing capability view.
func (b *Buffer) Sink() Sink {
	return &ringSink{buf: b}
}

// Source returns this buffer's consumer-facing capability view.
func (b *Buffer) Source() Source {
	return &ringSource{buf: b}
}

// SetMinFreeSpace sets the sink watermark. Per spec.md §3, a watermark must
// never exceed the underlying buffer size.
func (b *Buffer) SetMinFreeSpace(n uint32) error {
	if n > b.Size() {
		return errInvalidArg("ring.SetMinFreeSpace", fmt.Errorf("min_free_space %d exceeds buffer size %d", n, b.Size()))
	}
	b.minFreeSpace = n
	return nil
}

// SetMinAvailable sets the source watermark. Per spec.md §3, a watermark
// must never exceed the underlying buffer size.
func (b *Buffer) SetMinAvailable(n uint32) error {
	if n > b.Size() {
		return errInvalidArg("ring.SetMinAvailable", fmt.Errorf("min_available %d exceeds buffer size %d", n, b.Size()))
	}
	b.minAvailable = n
	return nil
}

// Reset drops both offsets to zero and zeroes the backing store, per
// spec.md §4.1. If shared, this forces a writeback of the whole region
// afterward, mirroring ring_buffer_reset's invalidate-then-clear-then-
// writeback sequence in the original firmware.
func (b *Buffer) Reset() {
	b.writeOffset = 0
	b.readOffset = 0

	if b.shared {
		b.cache.Invalidate(b.data)
	}
	for i := range b.data {
		b.data[i] = 0
	}
	if b.shared {
		b.cache.Writeback(b.data)
	}
}

// pointer maps a doubled offset onto an index into the backing store: one
// conditional subtraction, since offset is guaranteed to be < 2*size.
func (b *Buffer) pointer(offset uint32) uint32 {
	size := b.Size()
	if offset >= size {
		offset -= size
	}
	return offset
}

// incOffset advances offset by inc in the doubled offset space, wrapping
// at 2*size.
func (b *Buffer) incOffset(offset, inc uint32) uint32 {
	doubled := 2 * b.Size()
	offset += inc
	if offset >= doubled {
		offset -= doubled
	}
	return offset
}

// available returns (write - read) mod 2*size, the number of committed,
// unreleased bytes.
func (b *Buffer) available() uint32 {
	size := b.Size()
	doubled := 2 * size
	diff := int64(b.writeOffset) - int64(b.readOffset)
	if diff < 0 {
		diff += int64(doubled)
	}
	return uint32(diff)
}

// free returns size - available().
func (b *Buffer) free() uint32 {
	return b.Size() - b.available()
}

// writebackRegion writes back the logical range [offset, offset+n) of the
// backing store, splitting at the buffer end when the range wraps, and
// is a no-op on non-shared buffers.
func (b *Buffer) writebackRegion(offset, n uint32) {
	if !b.shared || n == 0 {
		return
	}
	start := b.pointer(offset)
	for _, r := range splitRegion(start, n, b.Size()) {
		b.cache.Writeback(b.data[r[0] : r[0]+r[1]])
	}
}

// invalidateRegion invalidates the logical range [offset, offset+n) of the
// backing store, splitting at the buffer end when the range wraps, and is
// a no-op on non-shared buffers.
func (b *Buffer) invalidateRegion(offset, n uint32) {
	if !b.shared || n == 0 {
		return
	}
	start := b.pointer(offset)
	for _, r := range splitRegion(start, n, b.Size()) {
		b.cache.Invalidate(b.data[r[0] : r[0]+r[1]])
	}
}
