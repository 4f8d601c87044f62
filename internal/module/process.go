package module

import "github.com/opendsp/audiocore/internal/ring"

// LegacyBuffer is one buffer view in the legacy processing dispatch style:
// a module receives input_stream_buffer[]/output_stream_buffer[] and
// writes back the per-buffer bytes it actually consumed or produced.
type LegacyBuffer struct {
	Data     []byte
	Consumed uint32
	Produced uint32
}

// Report is the per-buffer consumed/produced accounting a process() call
// returns, indexed the same way as the sources/sinks (or legacy buffers)
// it was given.
type Report struct {
	Consumed []uint32
	Produced []uint32
}

// DispatchStyle is the processing contract style a module instance
// selects once at init time, per spec.md §4.3.
type DispatchStyle int

const (
	// SourceSinkStyle modules query capability objects for free/available
	// room instead of being handed raw buffer views.
	SourceSinkStyle DispatchStyle = iota
	// LegacyStyle modules receive raw buffer views and write back
	// consumed/produced counts directly.
	LegacyStyle
)

// Core is the lifecycle surface every module implementation provides,
// independent of its processing dispatch style.
type Core interface {
	Init(config []byte) error
	Prepare(sources []ring.Source, sinks []ring.Sink) error
	IsReadyToProcess(sources []ring.Source, sinks []ring.Sink) bool
	Reset() error
	Free() error
}

// SourceSinkCore additionally implements the source/sink processing
// dispatch style.
type SourceSinkCore interface {
	Core
	Process(sources []ring.Source, sinks []ring.Sink) (Report, error)
}

// LegacyCore additionally implements the legacy buffer processing
// dispatch style.
type LegacyCore interface {
	Core
	ProcessLegacy(inputs, outputs []LegacyBuffer) (Report, error)
}
