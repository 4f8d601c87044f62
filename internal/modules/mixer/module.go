package mixer

import (
	"github.com/opendsp/audiocore/internal/module"
	"github.com/opendsp/audiocore/internal/ring"
	"github.com/opendsp/audiocore/pkg/xerror"
)

// Module adapts a Mixer onto module.LegacyCore: the up/down mixer is a
// legacy-dispatch instance, receiving raw input/output buffer views and
// writing back consumed/produced counts directly (spec.md §4.3).
type Module struct {
	mx *Mixer
}

// NewModule constructs an unconfigured mixer module instance core.
func NewModule() *Module {
	return &Module{mx: New()}
}

// Init decodes a 3-byte configuration blob: input config, output config,
// depth selector (0 = 16-bit, 1 = 32-bit).
func (mod *Module) Init(config []byte) error {
	const op = "mixer.Module.Init"
	if len(config) < 3 {
		return xerror.New(xerror.InvalidArg, op, nil)
	}

	depth := Depth16
	if config[2] == 1 {
		depth = Depth32
	}
	return mod.mx.Configure(ChannelConfig(config[0]), ChannelConfig(config[1]), depth)
}

// Prepare requires at least one bound source and sink.
func (mod *Module) Prepare(sources []ring.Source, sinks []ring.Sink) error {
	const op = "mixer.Module.Prepare"
	if len(sources) == 0 || len(sinks) == 0 {
		return xerror.New(xerror.NotConnected, op, nil)
	}
	return nil
}

// IsReadyToProcess always reports true: the mixer has no internal
// backpressure beyond what its bound sources/sinks already enforce.
func (mod *Module) IsReadyToProcess(sources []ring.Source, sinks []ring.Sink) bool {
	return true
}

// Reset is a no-op: the mixer carries no per-period runtime state beyond
// its configured routine.
func (mod *Module) Reset() error { return nil }

// Free is a no-op: the mixer holds no module-owned resources.
func (mod *Module) Free() error { return nil }

// ProcessLegacy mixes inputs[0] into outputs[0] and reports the exact
// bytes consumed/produced.
func (mod *Module) ProcessLegacy(inputs, outputs []module.LegacyBuffer) (module.Report, error) {
	const op = "mixer.Module.ProcessLegacy"
	if len(inputs) == 0 || len(outputs) == 0 {
		return module.Report{}, xerror.New(xerror.InvalidArg, op, nil)
	}

	frameBytes := mod.mx.InChannels() * mod.mx.SampleBytes()
	if frameBytes == 0 {
		return module.Report{}, xerror.New(xerror.InvalidState, op, nil)
	}
	frames := len(inputs[0].Data) / frameBytes

	mixed, err := mod.mx.Process(inputs[0].Data, frames)
	if err != nil {
		return module.Report{}, err
	}

	n := copy(outputs[0].Data, mixed)
	inputs[0].Consumed = uint32(frames * frameBytes)
	outputs[0].Produced = uint32(n)

	return module.Report{
		Consumed: []uint32{inputs[0].Consumed},
		Produced: []uint32{outputs[0].Produced},
	}, nil
}
