package ipc

import "github.com/opendsp/audiocore/internal/module"

// Trigger is the wire-level trigger command set of spec.md §6, a superset
// of internal/module's TriggerCmd: PREPARE and PRE_START are handled at
// the IPC/pipeline layer rather than by Instance.Trigger directly (PREPARE
// maps onto Instance.Prepare, PRE_START arms overrun-permitted sinks
// ahead of a START).
type Trigger uint8

const (
	TriggerPrepare Trigger = iota
	TriggerStart
	TriggerStop
	TriggerPause
	TriggerRelease
	TriggerReset
	TriggerPreStart
)

func (t Trigger) String() string {
	switch t {
	case TriggerPrepare:
		return "PREPARE"
	case TriggerStart:
		return "START"
	case TriggerStop:
		return "STOP"
	case TriggerPause:
		return "PAUSE"
	case TriggerRelease:
		return "RELEASE"
	case TriggerReset:
		return "RESET"
	case TriggerPreStart:
		return "PRE_START"
	default:
		return "UNKNOWN"
	}
}

// InstanceCmd reports the module.TriggerCmd t maps onto, and whether it
// maps onto one at all: TriggerPrepare and TriggerPreStart are handled
// above the instance lifecycle (Prepare() and sink-arming respectively),
// not via Instance.Trigger.
func (t Trigger) InstanceCmd() (module.TriggerCmd, bool) {
	switch t {
	case TriggerStart:
		return module.Start, true
	case TriggerStop:
		return module.Stop, true
	case TriggerPause:
		return module.Pause, true
	case TriggerRelease:
		return module.Release, true
	case TriggerReset:
		return module.ResetCmd, true
	default:
		return 0, false
	}
}
