package eqiir

import (
	"encoding/binary"

	"github.com/opendsp/audiocore/internal/iir"
	"github.com/opendsp/audiocore/internal/module"
	"github.com/opendsp/audiocore/internal/ring"
	"github.com/opendsp/audiocore/pkg/xerror"
)

const sampleBytes = 4 // int32 PCM container, matching iir.Section's word width.

// Module adapts internal/iir's biquad bank onto module.SourceSinkCore: a
// source/sink-dispatch instance that filters interleaved int32 PCM one
// period at a time, grounded on eq_iir.c's comp_driver.
type Module struct {
	bank     *iir.Bank
	channels int
}

// NewModule constructs an unconfigured IIR equalizer module instance core.
func NewModule() *Module {
	return &Module{bank: iir.New()}
}

// Init decodes the biquad coefficient table and runs the bank's two-phase
// setup, mirroring eq_iir_setup.
func (mod *Module) Init(config []byte) error {
	coeffs, channels, err := decodeConfig(config)
	if err != nil {
		return err
	}
	if err := mod.bank.Setup(coeffs, channels); err != nil {
		return err
	}
	mod.channels = channels
	return nil
}

// Prepare requires at least one bound source and sink; only the first of
// each is processed, mirroring the single source/sink eq_iir_params
// configures.
func (mod *Module) Prepare(sources []ring.Source, sinks []ring.Sink) error {
	const op = "eqiir.Module.Prepare"
	if len(sources) == 0 || len(sinks) == 0 {
		return xerror.New(xerror.NotConnected, op, nil)
	}
	return nil
}

func (mod *Module) frameBytes() int {
	return mod.channels * sampleBytes
}

// IsReadyToProcess reports whether at least one full frame is available
// on the source and room exists on the sink.
func (mod *Module) IsReadyToProcess(sources []ring.Source, sinks []ring.Sink) bool {
	if len(sources) == 0 || len(sinks) == 0 {
		return false
	}
	fb := uint32(mod.frameBytes())
	if fb == 0 {
		return false
	}
	return sources[0].GetAvailable() >= fb && sinks[0].GetFree() >= fb
}

// Reset drops every channel's delay line back to zero, mirroring
// iir_reset_df2t applied across all configured channels.
func (mod *Module) Reset() error {
	mod.bank.Reset()
	return nil
}

// Free releases the bank's delay-line arena and coefficient table by
// reinitializing it to zero channels, mirroring eq_iir_free_parameters
// and eq_iir_free_delaylines.
func (mod *Module) Free() error {
	mod.bank = iir.New()
	mod.channels = 0
	return nil
}

// Process filters as many whole frames as both the source has available
// and the sink has room for, through the configured biquad bank.
func (mod *Module) Process(sources []ring.Source, sinks []ring.Sink) (module.Report, error) {
	const op = "eqiir.Module.Process"
	if len(sources) == 0 || len(sinks) == 0 {
		return module.Report{}, xerror.New(xerror.NotConnected, op, nil)
	}

	fb := mod.frameBytes()
	if fb == 0 {
		return module.Report{}, xerror.New(xerror.InvalidState, op, nil)
	}

	src, snk := sources[0], sinks[0]

	avail := src.GetAvailable()
	free := snk.GetFree()
	frames := int(avail) / fb
	if sinkFrames := int(free) / fb; sinkFrames < frames {
		frames = sinkFrames
	}
	if frames == 0 {
		return module.Report{}, xerror.New(xerror.NoData, op, nil)
	}

	reqBytes := uint32(frames * fb)

	srcView, err := src.GetData(reqBytes)
	if err != nil {
		return module.Report{}, err
	}
	sinkView, err := snk.GetBuffer(reqBytes)
	if err != nil {
		return module.Report{}, err
	}

	srcSamples := bytesToInt32(srcView.Backing)
	sinkSamples := bytesToInt32(sinkView.Backing)

	srcOffset := int(srcView.Offset) / sampleBytes
	sinkOffset := int(sinkView.Offset) / sampleBytes

	if err := mod.bank.Process(srcSamples, srcOffset, sinkSamples, sinkOffset, mod.channels, frames); err != nil {
		return module.Report{}, err
	}

	int32ToBytes(sinkSamples, sinkView.Backing)

	if err := src.ReleaseData(reqBytes); err != nil {
		return module.Report{}, err
	}
	if err := snk.CommitBuffer(reqBytes); err != nil {
		return module.Report{}, err
	}

	return module.Report{
		Consumed: []uint32{reqBytes},
		Produced: []uint32{reqBytes},
	}, nil
}

// bytesToInt32 reinterprets a little-endian byte backing store as a
// sample array of the same logical length, so that ring offsets (which
// address bytes) and bank offsets (which address samples) stay in lock
// step: byteOffset/sampleBytes is always the matching sample index.
func bytesToInt32(b []byte) []int32 {
	out := make([]int32, len(b)/sampleBytes)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*sampleBytes:]))
	}
	return out
}

// int32ToBytes writes samples back into a backing store sized in bytesToInt32.
func int32ToBytes(samples []int32, b []byte) {
	for i, v := range samples {
		binary.LittleEndian.PutUint32(b[i*sampleBytes:], uint32(v))
	}
}
