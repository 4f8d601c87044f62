package adapter

import "golang.org/x/sys/unix"

// FastGetRegion is a module-owned shared SRAM mirror of a read-only DRAM
// region, per spec.md §4.6. The anonymous mmap stands in for the SRAM
// copy the real firmware's fast_get() produces.
type FastGetRegion struct {
	data []byte
}

func newFastGetRegion(size int) (*FastGetRegion, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &FastGetRegion{data: data}, nil
}

// Bytes returns the mirrored region's contents.
func (r *FastGetRegion) Bytes() []byte {
	return r.data
}

func (r *FastGetRegion) unmap() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
