// Package scheduler implements the LL scheduler DMA domain of spec.md §3
// and §4.5: a DMA-channel-driven tick source shared by every core, with a
// minimum-period owner election and cross-core DOMAIN_CHANGE notification.
package scheduler

import (
	"sync"

	"github.com/opendsp/audiocore/pkg/bitset"
)

// OwnerInvalid marks a domain with no currently-running scheduling-source
// channel.
const OwnerInvalid = -1

// Channel is one DMA channel eligible to drive the domain's tick. Core is
// the core the channel's transfers actually run on; Period is its transfer
// period. A channel only competes for ownership while SchedulingSource and
// Active are both true.
type Channel struct {
	Core             int
	Period           uint64
	SchedulingSource bool
	Active           bool
}

type coreState struct {
	channel    *Channel
	handler    func()
	subscribed bool
	irqMasked  bool
}

// Domain is one LL scheduler DMA domain: the set of scheduling-source
// channels it arbitrates over, the elected owner core, and each core's
// registration state.
type Domain struct {
	mu             sync.Mutex
	channels       []*Channel
	owner          int
	channelChanged bool
	numCores       int
	perCore        []coreState
	notify         []chan *Channel
}

// NewDomain constructs a domain over the given channel pool for a system
// of numCores cores.
func NewDomain(channels []*Channel, numCores int) *Domain {
	return &Domain{
		channels: channels,
		owner:    OwnerInvalid,
		numCores: numCores,
		perCore:  make([]coreState, numCores),
		notify:   make([]chan *Channel, numCores),
	}
}

func (d *Domain) validCore(core int) bool {
	return core >= 0 && core < d.numCores
}

// minPeriodChannel returns the running scheduling-source channel with the
// smallest period, preferring the current owner's channel on ties (a
// strictly smaller period is required to displace it).
func (d *Domain) minPeriodChannel() *Channel {
	var cur *Channel
	if d.owner != OwnerInvalid && d.validCore(d.owner) && d.perCore[d.owner].channel != nil {
		cur = d.perCore[d.owner].channel
	}
	for _, ch := range d.channels {
		if !ch.SchedulingSource || !ch.Active {
			continue
		}
		if cur != nil && cur.Period <= ch.Period {
			continue
		}
		cur = ch
	}
	return cur
}

func (d *Domain) anyActiveOnCore(core int) bool {
	for _, ch := range d.channels {
		if ch.SchedulingSource && ch.Active && ch.Core == core {
			return true
		}
	}
	return false
}

// syncMasks enforces the domain invariant that exactly the owner core's IRQ
// is unmasked; every other registered core is masked. Real firmware tracks
// this incrementally across stale owner comparisons; the simulation
// re-derives it directly after every state change instead.
func (d *Domain) syncMasks() {
	for core := range d.perCore {
		if d.perCore[core].channel == nil {
			continue
		}
		d.perCore[core].irqMasked = core != d.owner
	}
}

func (d *Domain) broadcastChange(from int, ch *Channel) {
	for core := 0; core < d.numCores; core++ {
		if core == from {
			continue
		}
		if d.notify[core] == nil {
			d.notify[core] = make(chan *Channel, 1)
		}
		select {
		case d.notify[core] <- ch:
		default:
			// Bounded queue: a pending notification is superseded by the
			// newer one rather than blocking the broadcaster.
			select {
			case <-d.notify[core]:
			default:
			}
			d.notify[core] <- ch
		}
	}
}

// Subscribe returns the channel a core should drain for DOMAIN_CHANGE
// notifications broadcast by Register/Unregister on other cores.
func (d *Domain) Subscribe(core int) <-chan *Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.notify[core] == nil {
		d.notify[core] = make(chan *Channel, 1)
	}
	return d.notify[core]
}

// Register binds core to the current minimum-period running channel,
// electing a new domain owner if that channel displaces the previous one,
// and broadcasts a DOMAIN_CHANGE to every other core when ownership moves.
func (d *Domain) Register(core int, handler func()) error {
	const op = "scheduler.Domain.Register"
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.validCore(core) {
		return errInvalidArg(op)
	}

	ch := d.minPeriodChannel()
	if ch == nil {
		return errInvalidArg(op)
	}

	st := &d.perCore[core]
	if st.channel != nil && st.channel.Period == ch.Period {
		return nil
	}
	if st.channel != nil {
		d.channelChanged = true
	}

	prevOwner := d.owner
	st.channel = ch
	st.handler = handler
	st.subscribed = true

	if prevOwner != ch.Core {
		d.broadcastChange(core, ch)
	}
	d.owner = ch.Core
	d.syncMasks()
	return nil
}

func (d *Domain) unregisterOwner(core int) {
	st := &d.perCore[core]
	if st.channel.Active {
		return
	}
	st.channel = nil

	newCh := d.minPeriodChannel()
	if newCh == nil {
		d.owner = OwnerInvalid
		st.subscribed = false
		d.syncMasks()
		return
	}

	d.owner = newCh.Core
	d.broadcastChange(core, newCh)
	if d.anyActiveOnCore(core) {
		st.channel = newCh
		d.channelChanged = true
	} else {
		st.subscribed = false
	}
	d.syncMasks()
}

// Unregister removes core's registration. If core is the domain owner and
// its channel is no longer active, a new owner is elected and peers are
// notified; otherwise core simply drops its own registration once no
// scheduling-source channel of its own is still active.
func (d *Domain) Unregister(core int) error {
	const op = "scheduler.Domain.Unregister"
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.validCore(core) {
		return errInvalidArg(op)
	}

	st := &d.perCore[core]
	if st.channel == nil {
		return nil
	}

	if d.owner == core {
		d.unregisterOwner(core)
		return nil
	}

	if d.anyActiveOnCore(core) {
		return nil
	}
	st.channel = nil
	st.subscribed = false
	d.syncMasks()
	return nil
}

// ReactToChange rebinds core to newChannel in response to a DOMAIN_CHANGE
// notification received on Subscribe(core), matching the original
// firmware's notifier callback.
func (d *Domain) ReactToChange(core int, newChannel *Channel, handler func()) error {
	const op = "scheduler.Domain.ReactToChange"
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.validCore(core) {
		return errInvalidArg(op)
	}

	st := &d.perCore[core]
	st.channel = newChannel
	st.handler = handler
	st.subscribed = true
	d.syncMasks()
	return nil
}

// Enable unmasks core's IRQ directly, bypassing owner election. Used by the
// LL scheduler itself around a task's active window.
func (d *Domain) Enable(core int) error {
	const op = "scheduler.Domain.Enable"
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.validCore(core) {
		return errInvalidArg(op)
	}
	d.perCore[core].irqMasked = false
	return nil
}

// Disable masks core's IRQ directly.
func (d *Domain) Disable(core int) error {
	const op = "scheduler.Domain.Disable"
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.validCore(core) {
		return errInvalidArg(op)
	}
	d.perCore[core].irqMasked = true
	return nil
}

// Owner returns the elected owner core, or OwnerInvalid.
func (d *Domain) Owner() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner
}

// IsMasked reports whether core's IRQ is currently masked.
func (d *Domain) IsMasked(core int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.validCore(core) {
		return true
	}
	return d.perCore[core].irqMasked
}

// MaskedCores returns the set of currently registered cores whose IRQ is
// masked, for diagnostics (e.g. periodic trace/log output) without holding
// the domain lock across the caller's own work.
func (d *Domain) MaskedCores() bitset.TinyBitset {
	d.mu.Lock()
	defer d.mu.Unlock()

	var masked bitset.TinyBitset
	for core, st := range d.perCore {
		if st.channel != nil && st.irqMasked {
			masked.Insert(uint32(core))
		}
	}
	return masked
}

// ChannelChanged reports the domain's channel_changed flag without
// clearing it; Clear acknowledges it.
func (d *Domain) ChannelChanged() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channelChanged
}

// Clear acknowledges the current channel_changed flag, as the LL
// scheduler does once it has recomputed its next tick from it.
func (d *Domain) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channelChanged = false
}
