// Package trace implements the dictionary-trace ring producer described
// in SPEC_FULL.md §12.2: a fixed-capacity trace buffer that DSP-side code
// emits packed log entries into, and that a host-side drain periodically
// empties, grounded on dma-trace.c's DMA trace buffer.
package trace

import (
	"encoding/binary"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/opendsp/audiocore/internal/ring"
	"github.com/opendsp/audiocore/pkg/xerror"
)

// Level mirrors the trace class an entry was logged at, matching
// trace_event's class/level argument.
type Level uint8

const (
	LevelVerbose Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "VERBOSE"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// entryHeaderSize is the fixed-width prefix of every packed entry:
// timestamp (8), level (1), component id (4), message length (2).
const entryHeaderSize = 8 + 1 + 4 + 2

// Entry is one decoded trace record.
type Entry struct {
	Timestamp   uint64
	Level       Level
	ComponentID uint32
	Message     string
}

func encodeEntry(e Entry) []byte {
	msg := []byte(e.Message)
	if len(msg) > 0xFFFF {
		msg = msg[:0xFFFF]
	}
	buf := make([]byte, entryHeaderSize+len(msg))
	binary.LittleEndian.PutUint64(buf[0:8], e.Timestamp)
	buf[8] = byte(e.Level)
	binary.LittleEndian.PutUint32(buf[9:13], e.ComponentID)
	binary.LittleEndian.PutUint16(buf[13:15], uint16(len(msg)))
	copy(buf[entryHeaderSize:], msg)
	return buf
}

func decodeEntry(buf []byte) (Entry, int, error) {
	const op = "trace.decodeEntry"
	if len(buf) < entryHeaderSize {
		return Entry{}, 0, xerror.New(xerror.InvalidArg, op, nil)
	}
	msgLen := int(binary.LittleEndian.Uint16(buf[13:15]))
	total := entryHeaderSize + msgLen
	if len(buf) < total {
		return Entry{}, 0, xerror.New(xerror.InvalidArg, op, nil)
	}
	e := Entry{
		Timestamp:   binary.LittleEndian.Uint64(buf[0:8]),
		Level:       Level(buf[8]),
		ComponentID: binary.LittleEndian.Uint32(buf[9:13]),
		Message:     string(buf[entryHeaderSize:total]),
	}
	return e, total, nil
}

// Recorder is a single-producer/single-drainer trace sink backed by a
// ring.Buffer, mirroring struct dma_trace_data's local trace buffer: DSP
// code on one side calls Emit, a periodic drain on the other side calls
// Drain to forward entries to the host-side collector (here, a logger
// standing in for the unimplemented external dictionary decoder, per
// spec.md §1).
type Recorder struct {
	buf     *ring.Buffer
	dropped atomic.Uint64
}

// NewRecorder constructs a Recorder whose backing ring can hold at least
// minEntryBytes worth of packed entries before Emit starts dropping.
func NewRecorder(minEntryBytes uint32) (*Recorder, error) {
	buf, err := ring.New(minEntryBytes, minEntryBytes, false)
	if err != nil {
		return nil, err
	}
	return &Recorder{buf: buf}, nil
}

// writeWrapped copies data into view starting at view.Offset, wrapping at
// the end of view.Backing — a View's window is only guaranteed contiguous
// up to the buffer's end, per ring.View's own documentation.
func writeWrapped(view ring.View, data []byte) {
	size := uint32(len(view.Backing))
	for i, b := range data {
		idx := view.Offset + uint32(i)
		if idx >= size {
			idx -= size
		}
		view.Backing[idx] = b
	}
}

// readWrapped copies n bytes out of view starting at view.Offset, wrapping
// at the end of view.Backing, into a fresh contiguous slice.
func readWrapped(view ring.View, n uint32) []byte {
	size := uint32(len(view.Backing))
	out := make([]byte, n)
	for i := range out {
		idx := view.Offset + uint32(i)
		if idx >= size {
			idx -= size
		}
		out[i] = view.Backing[idx]
	}
	return out
}

// Emit packs and appends one trace entry. If the ring has no room, the
// entry is dropped and counted rather than blocking or erroring, mirroring
// dma_trace_flush's dropped_entries bookkeeping on overflow — a trace
// sink must never be able to back-pressure the DSP code that logs to it.
func (r *Recorder) Emit(ts uint64, level Level, componentID uint32, message string) {
	packed := encodeEntry(Entry{Timestamp: ts, Level: level, ComponentID: componentID, Message: message})

	sink := r.buf.Sink()
	view, err := sink.GetBuffer(uint32(len(packed)))
	if err != nil {
		r.dropped.Add(1)
		return
	}

	writeWrapped(view, packed)
	_ = sink.CommitBuffer(uint32(len(packed)))
}

// DroppedEntries returns the number of entries lost to overflow since
// construction.
func (r *Recorder) DroppedEntries() uint64 {
	return r.dropped.Load()
}

// Drain decodes and removes every currently available entry, forwarding
// each to a structured logger keyed by the entry's own component id and
// level, mirroring dma_trace_flush's host hand-off.
func (r *Recorder) Drain(logger *zap.Logger) []Entry {
	source := r.buf.Source()
	entries := make([]Entry, 0)

	for {
		avail := source.GetAvailable()
		if avail < entryHeaderSize {
			break
		}

		view, err := source.GetData(avail)
		if err != nil {
			break
		}

		window := readWrapped(view, avail)
		entry, n, err := decodeEntry(window)
		if err != nil {
			break
		}

		if logger != nil {
			logField := zap.Uint32("component_id", entry.ComponentID)
			switch entry.Level {
			case LevelError:
				logger.Error(entry.Message, logField)
			case LevelWarn:
				logger.Warn(entry.Message, logField)
			case LevelVerbose:
				logger.Debug(entry.Message, logField)
			default:
				logger.Info(entry.Message, logField)
			}
		}

		_ = source.ReleaseData(uint32(n))
		entries = append(entries, entry)
	}

	return entries
}
