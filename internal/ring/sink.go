package ring

// View is what a sink/source capability hands back from GetBuffer/GetData:
// a pointer into the contiguous backing store (as a byte offset) plus the
// whole backing store, so wrap-aware callers — such as the IIR bank — can
// walk past the contiguous window using the buffer's own size. This
// mirrors the (ptr, buffer_start, buffer_size) triple returned by the
// original firmware's get_buffer/get_data, translated to slice + offset
// per spec.md §9.
type View struct {
	// Backing is the whole ring buffer's backing store.
	Backing []byte
	// Offset is the byte offset into Backing where the caller's window
	// of req_size bytes starts.
	Offset uint32
}

// Sink is the producer-facing capability view of a buffer implementation.
// Any buffer implementation (ring.Buffer today, others later) can expose
// this; it carries a minimum-free-space watermark that must never exceed
// the underlying buffer's size (spec.md §3).
type Sink interface {
	// GetFree returns the number of bytes currently free for writing.
	GetFree() uint32
	// GetBuffer returns a write window of at least req bytes, or
	// xerror.NoData if req exceeds GetFree().
	GetBuffer(req uint32) (View, error)
	// CommitBuffer advances the write offset by n bytes, performing a
	// cache writeback first if the buffer is shared.
	CommitBuffer(n uint32) error
	// OnUnbind is called on the core that last wrote, on disconnection;
	// it invalidates the entire backing region to discard stale lines.
	OnUnbind() error
	// MinFreeSpace returns the sink's configured watermark.
	MinFreeSpace() uint32
}

type ringSink struct {
	buf *Buffer
}

func (s *ringSink) GetFree() uint32 {
	return s.buf.free()
}

func (s *ringSink) GetBuffer(req uint32) (View, error) {
	if req > s.buf.free() {
		return View{}, errNoData("ring.Sink.GetBuffer")
	}

	// No cache op needed on acquire - the window is write-only until committed.
	return View{
		Backing: s.buf.data,
		Offset:  s.buf.pointer(s.buf.writeOffset),
	}, nil
}

func (s *ringSink) CommitBuffer(n uint32) error {
	if n == 0 {
		return nil
	}

	s.buf.writebackRegion(s.buf.writeOffset, n)
	s.buf.writeOffset = s.buf.incOffset(s.buf.writeOffset, n)
	return nil
}

func (s *ringSink) OnUnbind() error {
	s.buf.invalidateRegion(0, s.buf.Size())
	return nil
}

func (s *ringSink) MinFreeSpace() uint32 {
	return s.buf.minFreeSpace
}
