package ring

// Source is the consumer-facing capability view of a buffer
// implementation. It carries a minimum-available watermark that must
// never exceed the underlying buffer's size (spec.md §3).
type Source interface {
	// GetAvailable returns the number of bytes currently available to read.
	GetAvailable() uint32
	// GetData returns a read window of at least req bytes, invalidating
	// it first if the buffer is shared, or xerror.NoData if req exceeds
	// GetAvailable().
	GetData(req uint32) (View, error)
	// ReleaseData advances the read offset by n bytes.
	ReleaseData(n uint32) error
	// MinAvailable returns the source's configured watermark.
	MinAvailable() uint32
}

type ringSource struct {
	buf *Buffer
}

func (s *ringSource) GetAvailable() uint32 {
	return s.buf.available()
}

func (s *ringSource) GetData(req uint32) (View, error) {
	if req > s.buf.available() {
		return View{}, errNoData("ring.Source.GetData")
	}

	offset := s.buf.readOffset
	s.buf.invalidateRegion(offset, req)

	return View{
		Backing: s.buf.data,
		Offset:  s.buf.pointer(offset),
	}, nil
}

func (s *ringSource) ReleaseData(n uint32) error {
	if n == 0 {
		return nil
	}

	s.buf.readOffset = s.buf.incOffset(s.buf.readOffset, n)
	return nil
}

func (s *ringSource) MinAvailable() uint32 {
	return s.buf.minAvailable
}
