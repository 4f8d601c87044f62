// Package blob implements the fragmented data-blob configuration handler
// described in spec.md §3 and §4.2: a double-buffered transport that
// streams a large configuration blob to a module instance across multiple
// fragments without tearing a running pipeline.
package blob

import (
	"hash/crc32"

	"github.com/opendsp/audiocore/pkg/xerror"
)

// Position is a fragment's position in a multi-fragment transfer. FIRST and
// LAST may combine into SINGLE for a transfer that fits in one fragment.
type Position int

const (
	First Position = iota
	Middle
	Last
	Single
)

// OwnerState is the subset of a module instance's lifecycle state that the
// blob handler needs to consult. It is a narrow, local enum rather than a
// dependency on package module, so blob has no import of the module
// lifecycle state machine it serves.
type OwnerState int

const (
	OwnerReady OwnerState = iota
	OwnerActive
	OwnerOther
)

// OwnerStateFunc reports the owning module instance's current state.
type OwnerStateFunc func() OwnerState

// Allocator lets callers plug in a custom allocation strategy; the
// default maps onto make([]byte, size).
type Allocator interface {
	Alloc(size uint32) []byte
}

type defaultAllocator struct{}

func (defaultAllocator) Alloc(size uint32) []byte {
	return make([]byte, size)
}

// Handler is the data-blob configuration handler of spec.md §4.2.
type Handler struct {
	current []byte
	next    []byte

	dataSize    uint32
	newDataSize uint32
	writeCursor uint32
	dataReady   bool

	singleBlob bool
	ownerState OwnerStateFunc
	alloc      Allocator
}

// Option configures a Handler at construction time.
type Option func(*Handler)

// WithAllocator overrides the default make([]byte, n) allocator.
func WithAllocator(a Allocator) Option {
	return func(h *Handler) { h.alloc = a }
}

// New constructs a blob handler. singleBlob forbids setting configuration
// while ownerState reports OwnerActive, per spec.md §4.2.
func New(singleBlob bool, ownerState OwnerStateFunc, opts ...Option) *Handler {
	h := &Handler{
		singleBlob: singleBlob,
		ownerState: ownerState,
		alloc:      defaultAllocator{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Set absorbs one fragment of a configuration blob. See spec.md §4.2 for
// the full contract; in short: FIRST/SINGLE (re)allocates the pending
// buffer, every fragment is bounds-checked and copied, and LAST/SINGLE
// either publishes immediately (owner READY) or sets the data_ready
// publication barrier for the owner to observe at its next prepare.
func (h *Handler) Set(pos Position, totalSize uint32, fragment []byte) error {
	const op = "blob.Handler.Set"

	if pos == First || pos == Single {
		if h.next != nil {
			return xerror.New(xerror.Busy, op, nil)
		}
		if h.singleBlob && h.ownerState() == OwnerActive {
			return xerror.New(xerror.Busy, op, nil)
		}

		if totalSize == 0 {
			return nil
		}

		if h.singleBlob && totalSize == h.dataSize {
			// Reuse the current buffer: clear it and move it to "new".
			buf := h.current
			for i := range buf {
				buf[i] = 0
			}
			h.next = buf
			h.current = nil
		} else {
			h.next = h.alloc.Alloc(totalSize)
		}

		h.newDataSize = totalSize
		h.dataReady = false
		h.writeCursor = 0
	}

	if h.next == nil {
		return xerror.New(xerror.OutOfMemory, op, nil)
	}

	if h.writeCursor+uint32(len(fragment)) > h.newDataSize {
		return xerror.New(xerror.InvalidArg, op, nil)
	}

	copy(h.next[h.writeCursor:], fragment)
	h.writeCursor += uint32(len(fragment))

	if pos == Last || pos == Single {
		if h.ownerState() == OwnerReady {
			h.current = h.next
			h.dataSize = h.newDataSize
			h.next = nil
			h.newDataSize = 0
			h.dataReady = false
			h.writeCursor = 0
		} else {
			h.dataReady = true
		}
	}

	return nil
}

// Get returns the current blob, promoting a ready "new" blob first if one
// is pending. If withCRC is set, a CRC-32 of the returned data is also
// computed.
func (h *Handler) Get(withCRC bool) (data []byte, size uint32, crc uint32, err error) {
	if h.dataReady && h.next != nil {
		h.current = h.next
		h.dataSize = h.newDataSize
		h.next = nil
		h.newDataSize = 0
		h.dataReady = false
		h.writeCursor = 0
	}

	if h.current == nil {
		return nil, 0, 0, nil
	}

	if withCRC {
		crc = crc32.ChecksumIEEE(h.current)
	}

	return h.current, h.dataSize, crc, nil
}

// IsValid reports whether a current blob is available.
func (h *Handler) IsValid() bool {
	return h.current != nil
}

// IsNewAvailable reports whether a fully-received pending blob is waiting
// to be promoted on the next Get/prepare.
func (h *Handler) IsNewAvailable() bool {
	return h.next != nil && h.dataReady
}
