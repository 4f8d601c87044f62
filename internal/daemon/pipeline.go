package daemon

import (
	"fmt"

	"github.com/opendsp/audiocore/internal/adapter"
	"github.com/opendsp/audiocore/internal/config"
	"github.com/opendsp/audiocore/internal/module"
	"github.com/opendsp/audiocore/internal/modules/eqiir"
	"github.com/opendsp/audiocore/internal/modules/mixer"
	"github.com/opendsp/audiocore/internal/ring"
)

// stage is one bound pipeline stage: the instance, the dispatch style it
// was built for, and the source/sink pair it processes against.
type stage struct {
	name     string
	instance *module.Instance
	style    module.DispatchStyle
	sources  []ring.Source
	sinks    []ring.Sink
}

// newCore builds the concrete module.Core for one InstanceConfig.Kind,
// along with the dispatch style it implements.
func newCore(kind string) (module.Core, module.DispatchStyle, error) {
	switch kind {
	case "eqiir":
		return eqiir.NewModule(), module.SourceSinkStyle, nil
	case "mixer":
		return mixer.NewModule(), module.LegacyStyle, nil
	default:
		return nil, 0, fmt.Errorf("unknown module kind %q", kind)
	}
}

// buildPipeline constructs one ring buffer per pipeline stage (the stage's
// output) plus a dedicated capture ring feeding the first stage, wires
// every instance to its upstream source and its own sink, and drives each
// through Init/Prepare, per spec.md §4.3.
func buildPipeline(cfg *config.Config) ([]*stage, error) {
	stages := make([]*stage, 0, len(cfg.Pipeline))

	captureBuf, err := ring.New(64, 64, false)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate capture ring: %w", err)
	}
	upstream := captureBuf.Source()

	for i, ic := range cfg.Pipeline {
		core, style, err := newCore(ic.Kind)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %q: %w", ic.Name, err)
		}

		minAvail, minFree := uint32(ic.RingMinAvailable), uint32(ic.RingMinFreeSpace)
		if minAvail == 0 {
			minAvail = 64
		}
		if minFree == 0 {
			minFree = 64
		}
		outBuf, err := ring.New(minAvail, minFree, false)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %q: %w", ic.Name, err)
		}

		registry := adapter.New(false)

		var uuid [16]byte
		uuid[0] = byte(i + 1)

		inst := module.New(uuid, uint32(i), uint32(i), core, style, module.WithResources(registry))
		if err := inst.Init(ic.Config); err != nil {
			return nil, fmt.Errorf("pipeline stage %q: init: %w", ic.Name, err)
		}

		sources := []ring.Source{upstream}
		sinks := []ring.Sink{outBuf.Sink()}
		if err := inst.Prepare(sources, sinks); err != nil {
			return nil, fmt.Errorf("pipeline stage %q: prepare: %w", ic.Name, err)
		}

		stages = append(stages, &stage{
			name:     ic.Name,
			instance: inst,
			style:    style,
			sources:  sources,
			sinks:    sinks,
		})

		upstream = outBuf.Source()
	}

	return stages, nil
}

// readWrapped copies n bytes out of view starting at view.Offset, wrapping
// at the end of view.Backing, the same "split on wrap" discipline
// internal/trace uses for its own variable-length byte copies.
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

// writeWrapped copies data into view starting at view.Offset, wrapping at
// the end of view.Backing.
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

// runLegacy turns one legacy-dispatch stage's bound ring views into the
// flat LegacyBuffer the module expects, per spec.md §4.3: unlike
// source/sink style, a legacy module doesn't query ring capability
// objects itself — the driver (here, the daemon; in the original
// firmware, the LL scheduler's adapter shim) hands it raw buffer views
// and reads back consumed/produced counts.
func runLegacy(s *stage) error {
	req := s.sources[0].GetAvailable()
	if free := s.sinks[0].GetFree(); free < req {
		req = free
	}
	if req == 0 {
		return nil
	}

	srcView, err := s.sources[0].GetData(req)
	if err != nil {
		return err
	}
	sinkView, err := s.sinks[0].GetBuffer(req)
	if err != nil {
		return err
	}

	in := readWrapped(srcView, req)
	out := make([]byte, req)

	inputs := []module.LegacyBuffer{{Data: in}}
	outputs := []module.LegacyBuffer{{Data: out}}

	if _, err := s.instance.ProcessLegacy(inputs, outputs); err != nil {
		return err
	}

	writeWrapped(sinkView, outputs[0].Data[:outputs[0].Produced])

	if err := s.sources[0].ReleaseData(inputs[0].Consumed); err != nil {
		return err
	}
	return s.sinks[0].CommitBuffer(outputs[0].Produced)
}

// tick runs one processing period through every ready stage in pipeline
// order, mirroring the scheduler walking its pipeline of ready modules on
// each DMA-completion tick (spec.md §2).
func tick(stages []*stage) []error {
	var errs []error
	for _, s := range stages {
		if !s.instance.IsReadyToProcess(s.sources, s.sinks) {
			continue
		}

		var err error
		switch s.style {
		case module.SourceSinkStyle:
			_, err = s.instance.Process(s.sources, s.sinks)
		case module.LegacyStyle:
			err = runLegacy(s)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %q: %w", s.name, err))
		}
	}
	return errs
}
