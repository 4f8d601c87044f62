// Package daemon wires the module instance lifecycle, the scheduler DMA
// domain, and the dictionary trace ring into one running simulation of
// the audio processing core, grounded on the teacher's coordinator
// package's options/NewX/Run shape.
package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opendsp/audiocore/internal/config"
	"github.com/opendsp/audiocore/internal/module"
	"github.com/opendsp/audiocore/internal/scheduler"
	"github.com/opendsp/audiocore/internal/trace"
)

type options struct {
	Log *zap.SugaredLogger
}

func newOptions() *options {
	return &options{
		Log: zap.NewNop().Sugar(),
	}
}

// Option configures a Daemon.
type Option func(*options)

// WithLog sets the daemon's logger.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) { o.Log = log }
}

// Daemon is the audio processing core simulation: a pipeline of module
// instances driven by a single scheduler DMA domain, plus a dictionary
// trace ring that each owned tick drains into the logger.
type Daemon struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	domain *scheduler.Domain
	trace  *trace.Recorder
	stages []*stage
	tickAt uint64
}

// New constructs a Daemon from cfg: it builds the module pipeline
// (Init/Prepare on every instance) and a scheduler domain with one
// scheduling-source channel per configured core.
func New(cfg *config.Config, opts ...Option) (*Daemon, error) {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	o.Log.Infow("initializing audio processing core", "cores", cfg.Cores, "stages", len(cfg.Pipeline))

	stages, err := buildPipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	tr, err := trace.NewRecorder(uint32(cfg.Trace.MinEntryBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace recorder: %w", err)
	}

	channels := make([]*scheduler.Channel, cfg.Cores)
	for c := range channels {
		channels[c] = &scheduler.Channel{
			Core:             c,
			Period:           uint64(cfg.TickIntervalMillis),
			SchedulingSource: true,
			Active:           true,
		}
	}
	domain := scheduler.NewDomain(channels, cfg.Cores)

	for c := 0; c < cfg.Cores; c++ {
		if err := domain.Register(c, nil); err != nil {
			return nil, fmt.Errorf("failed to register core %d with scheduler domain: %w", c, err)
		}
	}

	for _, s := range stages {
		if err := s.instance.Trigger(module.Start); err != nil {
			return nil, fmt.Errorf("stage %q: start: %w", s.name, err)
		}
	}

	return &Daemon{cfg: cfg, log: o.Log, domain: domain, trace: tr, stages: stages}, nil
}

// Run drives the pipeline at the configured tick interval from the
// elected owner core until ctx is canceled, mirroring the scheduler
// walking its pipeline of ready modules on every DMA-completion tick
// (spec.md §2). Non-owner cores react to DOMAIN_CHANGE notifications but
// never drive the pipeline themselves.
func (d *Daemon) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(d.cfg.TickIntervalMillis) * time.Millisecond)
	defer ticker.Stop()

	notify := d.domain.Subscribe(0)

	for {
		select {
		case <-ctx.Done():
			return d.shutdown()
		case newChannel := <-notify:
			if err := d.domain.ReactToChange(0, newChannel, nil); err != nil {
				d.log.Warnw("failed to react to domain change", "error", err)
			}
		case <-ticker.C:
			if d.domain.Owner() != 0 || d.domain.IsMasked(0) {
				continue
			}
			d.tickAt++
			for _, err := range tick(d.stages) {
				d.log.Warnw("pipeline stage error", "error", err)
			}
			if entries := d.trace.Drain(d.log.Desugar()); len(entries) > 0 {
				d.log.Debugw("drained trace entries", "count", len(entries))
			}
			if d.tickAt%256 == 0 {
				d.log.Debugw("scheduler domain snapshot", "tick", d.tickAt, "owner", d.domain.Owner(), "masked_cores", d.domain.MaskedCores().AsSlice())
			}
		}
	}
}

func (d *Daemon) shutdown() error {
	var lastErr error
	for _, s := range d.stages {
		if err := s.instance.Trigger(module.Stop); err != nil {
			d.log.Warnw("stage stop failed", "stage", s.name, "error", err)
			lastErr = err
		}
		if err := s.instance.Free(); err != nil {
			d.log.Warnw("stage free failed", "stage", s.name, "error", err)
			lastErr = err
		}
	}
	return lastErr
}
