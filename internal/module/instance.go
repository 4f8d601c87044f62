package module

import (
	"sync"

	"github.com/opendsp/audiocore/internal/blob"
	"github.com/opendsp/audiocore/internal/ring"
	"github.com/opendsp/audiocore/pkg/xerror"
)

// ResourceRegistry is the subset of the module-adapter resource registry
// (spec.md §4.6) an instance needs at free time. It is a narrow, local
// interface rather than a dependency on package adapter, mirroring the
// decoupling package blob uses for OwnerStateFunc.
type ResourceRegistry interface {
	FreeAll() error
}

// PeerID identifies a bound topology neighbour.
type PeerID struct {
	UUID       [16]byte
	InstanceID uint32
}

// Option configures an Instance at construction time.
type Option func(*Instance)

// WithResources attaches a resource registry released on Free.
func WithResources(r ResourceRegistry) Option {
	return func(i *Instance) { i.resources = r }
}

// WithSingleBlobConfig switches the instance's configuration transport
// into single-blob mode (spec.md §4.2): set_configuration is rejected
// with Busy while the instance is ACTIVE.
func WithSingleBlobConfig() Option {
	return func(i *Instance) { i.singleBlobCfg = true }
}

// Instance is one module instance: immutable identity, the lifecycle
// state machine of spec.md §4.3, a configuration blob transport, bound
// peers, and the concrete processing core.
type Instance struct {
	UUID       [16]byte
	ModuleID   uint32
	InstanceID uint32

	mu    sync.Mutex
	state State

	core  Core
	style DispatchStyle

	cfg           *blob.Handler
	singleBlobCfg bool

	resources ResourceRegistry
	peers     map[PeerID]struct{}
}

// New constructs a module instance in state INIT. style must match the
// dispatch method core actually implements (SourceSinkCore/LegacyCore);
// Init is otherwise identical for both styles.
func New(uuid [16]byte, moduleID, instanceID uint32, core Core, style DispatchStyle, opts ...Option) *Instance {
	inst := &Instance{
		UUID:       uuid,
		ModuleID:   moduleID,
		InstanceID: instanceID,
		state:      Init,
		core:       core,
		style:      style,
		peers:      make(map[PeerID]struct{}),
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.cfg = blob.New(inst.singleBlobCfg, inst.ownerState)
	return inst
}

func (inst *Instance) ownerState() blob.OwnerState {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	switch inst.state {
	case Ready:
		return blob.OwnerReady
	case Active:
		return blob.OwnerActive
	default:
		return blob.OwnerOther
	}
}

// State returns the instance's current lifecycle state.
func (inst *Instance) State() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

// Init allocates the module's private state from a configuration blob and
// enters READY. Valid only from INIT.
func (inst *Instance) Init(config []byte) error {
	const op = "module.Instance.Init"
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.state != Init {
		return errIllegalTransition(op, inst.state)
	}
	if err := inst.core.Init(config); err != nil {
		return err
	}
	inst.state = Ready
	return nil
}

// Prepare builds the module's DSP tables against the bound sources/sinks
// and enters PREPARED. Valid only from READY.
func (inst *Instance) Prepare(sources []ring.Source, sinks []ring.Sink) error {
	const op = "module.Instance.Prepare"
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.state != Ready {
		return errIllegalTransition(op, inst.state)
	}
	if err := inst.core.Prepare(sources, sinks); err != nil {
		return err
	}
	// A blob whose last fragment arrived outside READY takes effect here.
	if inst.cfg.IsNewAvailable() {
		_, _, _, _ = inst.cfg.Get(false)
	}
	inst.state = Prepared
	return nil
}

// Trigger drives the PREPARED/ACTIVE/PAUSED portion of the state machine.
// ResetCmd is dispatched to Reset so trigger(RESET) and the top-level
// reset() operation share one implementation.
func (inst *Instance) Trigger(cmd TriggerCmd) error {
	const op = "module.Instance.Trigger"
	inst.mu.Lock()
	defer inst.mu.Unlock()

	switch cmd {
	case Start:
		if inst.state != Prepared && inst.state != Paused {
			return errIllegalTransition(op, inst.state)
		}
		inst.state = Active
	case Pause:
		if inst.state != Active {
			return errIllegalTransition(op, inst.state)
		}
		inst.state = Paused
	case Stop:
		if inst.state != Active && inst.state != Paused {
			return errIllegalTransition(op, inst.state)
		}
		inst.state = Prepared
	case Release:
		if inst.state == Init {
			return errIllegalTransition(op, inst.state)
		}
		inst.state = Ready
	case ResetCmd:
		return inst.resetLocked()
	default:
		return errInvalidArg(op)
	}
	return nil
}

// Reset drops runtime state while keeping the configuration blob, and
// enters READY from any state.
func (inst *Instance) Reset() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.resetLocked()
}

func (inst *Instance) resetLocked() error {
	if err := inst.core.Reset(); err != nil {
		return err
	}
	inst.state = Ready
	return nil
}

// Free releases all resources and enters INIT from any state.
func (inst *Instance) Free() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if err := inst.core.Free(); err != nil {
		return err
	}
	if inst.resources != nil {
		if err := inst.resources.FreeAll(); err != nil {
			return err
		}
	}
	inst.state = Init
	inst.peers = make(map[PeerID]struct{})
	return nil
}

// IsReadyToProcess reports whether the instance can accept a process()
// call against the given sources/sinks.
func (inst *Instance) IsReadyToProcess(sources []ring.Source, sinks []ring.Sink) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state != Active {
		return false
	}
	return inst.core.IsReadyToProcess(sources, sinks)
}

// Process runs one period through a SourceSinkStyle module. Valid only
// while ACTIVE.
func (inst *Instance) Process(sources []ring.Source, sinks []ring.Sink) (Report, error) {
	const op = "module.Instance.Process"
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.state != Active {
		return Report{}, errIllegalTransition(op, inst.state)
	}
	ssCore, ok := inst.core.(SourceSinkCore)
	if !ok || inst.style != SourceSinkStyle {
		return Report{}, xerror.New(xerror.InvalidState, op, nil)
	}
	return ssCore.Process(sources, sinks)
}

// ProcessLegacy runs one period through a LegacyStyle module. Valid only
// while ACTIVE.
func (inst *Instance) ProcessLegacy(inputs, outputs []LegacyBuffer) (Report, error) {
	const op = "module.Instance.ProcessLegacy"
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.state != Active {
		return Report{}, errIllegalTransition(op, inst.state)
	}
	legacyCore, ok := inst.core.(LegacyCore)
	if !ok || inst.style != LegacyStyle {
		return Report{}, xerror.New(xerror.InvalidState, op, nil)
	}
	return legacyCore.ProcessLegacy(inputs, outputs)
}

// SetConfiguration absorbs one configuration blob fragment, per spec.md
// §4.2. Effective at the next prepare, or immediately if the instance is
// already READY.
func (inst *Instance) SetConfiguration(pos blob.Position, totalSize uint32, fragment []byte) error {
	return inst.cfg.Set(pos, totalSize, fragment)
}

// GetConfiguration returns the instance's current configuration blob.
func (inst *Instance) GetConfiguration(withCRC bool) (data []byte, size uint32, crc uint32, err error) {
	return inst.cfg.Get(withCRC)
}

// Bind records a topology neighbour.
func (inst *Instance) Bind(peer PeerID) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.peers[peer] = struct{}{}
	return nil
}

// Unbind forgets a topology neighbour.
func (inst *Instance) Unbind(peer PeerID) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	delete(inst.peers, peer)
	return nil
}

// Peers returns the currently-bound topology neighbours.
func (inst *Instance) Peers() []PeerID {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	out := make([]PeerID, 0, len(inst.peers))
	for p := range inst.peers {
		out = append(out, p)
	}
	return out
}
