// Package adapter implements the module-adapter memory resource registry
// of spec.md §4.6: per-module heap, data-blob-handler, and FAST_GET
// tracking drawn from fixed-size container chunks and released as a unit
// on free_all.
package adapter

import (
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/opendsp/audiocore/internal/blob"
)

// ChunkSize is the number of bookkeeping containers allocated together,
// matching CONFIG_MODULE_MEMORY_API_CONTAINER_CHUNK_SIZE's default.
const ChunkSize = 8

// ResourceType tags what a container holds.
type ResourceType int

const (
	ResHeap ResourceType = iota
	ResBlobHandler
	ResFastGet
)

type container struct {
	typ     ResourceType
	size    uint32
	heapPtr []byte
	blob    *blob.Handler
	fastGet *FastGetRegion
}

// Registry is one module instance's resource registry: a chunked
// free-list/in-use-list of bookkeeping containers plus usage counters.
// Operations are single-threaded per module; New(true) enables a
// reentrancy assertion standing in for the firmware's calling-thread
// check.
type Registry struct {
	debug    bool
	entered  atomic.Bool
	free     []*container
	inUse    map[*container]struct{}
	heapUsed uint32
	heapHWM  uint32
}

// New constructs an empty registry. debug enables the single-caller
// reentrancy assertion.
func New(debug bool) *Registry {
	return &Registry{
		debug: debug,
		inUse: make(map[*container]struct{}),
	}
}

func (r *Registry) enter(op string) {
	if r.debug && !r.entered.CompareAndSwap(false, true) {
		panic(op + ": resource registry operation from a second caller while one was in flight")
	}
}

func (r *Registry) leave() {
	if r.debug {
		r.entered.Store(false)
	}
}

func (r *Registry) getContainer() *container {
	if len(r.free) == 0 {
		chunk := make([]container, ChunkSize)
		for i := range chunk {
			r.free = append(r.free, &chunk[i])
		}
	}
	c := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]
	return c
}

func (r *Registry) putContainer(c *container) {
	*c = container{}
	r.free = append(r.free, c)
}

// AllocHeap allocates a size-byte buffer tracked against the module's
// heap usage counters.
func (r *Registry) AllocHeap(size uint32) ([]byte, error) {
	const op = "adapter.Registry.AllocHeap"
	r.enter(op)
	defer r.leave()

	if size == 0 {
		return nil, errInvalidArg(op)
	}

	c := r.getContainer()
	c.typ = ResHeap
	c.size = size
	c.heapPtr = make([]byte, size)
	r.inUse[c] = struct{}{}

	r.heapUsed += size
	if r.heapUsed > r.heapHWM {
		r.heapHWM = r.heapUsed
	}
	return c.heapPtr, nil
}

// FreeHeap releases one buffer previously returned by AllocHeap.
func (r *Registry) FreeHeap(ptr []byte) error {
	const op = "adapter.Registry.FreeHeap"
	r.enter(op)
	defer r.leave()

	for c := range r.inUse {
		if c.typ == ResHeap && &c.heapPtr[0] == &ptr[0] {
			r.heapUsed -= c.size
			delete(r.inUse, c)
			r.putContainer(c)
			return nil
		}
	}
	return errInvalidArg(op)
}

// NewBlobHandler creates a data-blob handler released automatically on
// FreeAll.
func (r *Registry) NewBlobHandler(singleBlob bool, ownerState blob.OwnerStateFunc) *blob.Handler {
	const op = "adapter.Registry.NewBlobHandler"
	r.enter(op)
	defer r.leave()

	h := blob.New(singleBlob, ownerState)
	c := r.getContainer()
	c.typ = ResBlobHandler
	c.blob = h
	r.inUse[c] = struct{}{}
	return h
}

// FastGet makes a module-owned SRAM mirror of a read-only DRAM region,
// released automatically on FreeAll.
func (r *Registry) FastGet(dram []byte) (*FastGetRegion, error) {
	const op = "adapter.Registry.FastGet"
	r.enter(op)
	defer r.leave()

	region, err := newFastGetRegion(len(dram))
	if err != nil {
		return nil, errOutOfMemory(op)
	}
	copy(region.data, dram)

	c := r.getContainer()
	c.typ = ResFastGet
	c.fastGet = region
	r.inUse[c] = struct{}{}
	return region, nil
}

// HeapUsage returns the current and high-water-mark heap byte counts.
func (r *Registry) HeapUsage() (current, highWaterMark uint32) {
	return r.heapUsed, r.heapHWM
}

// FreeAll releases every in-use container, dispatched on its resource
// type, returns the containers to the free list for reuse, and zeroes the
// current and high-water-mark usage counters. Partial
// FAST_GET unmap failures are aggregated rather than stopping the sweep.
func (r *Registry) FreeAll() error {
	const op = "adapter.Registry.FreeAll"
	r.enter(op)
	defer r.leave()

	var errs error
	for c := range r.inUse {
		switch c.typ {
		case ResHeap:
			// GC reclaims the backing array once the container is
			// recycled; only the accounting needs to be dropped.
		case ResBlobHandler:
			// No explicit teardown: dropping the reference is enough.
		case ResFastGet:
			if err := c.fastGet.unmap(); err != nil {
				errs = multierr.Append(errs, err)
			}
		default:
			errs = multierr.Append(errs, errInvalidArg(op))
		}
		delete(r.inUse, c)
		r.putContainer(c)
	}

	r.heapUsed = 0
	r.heapHWM = 0
	return errs
}
