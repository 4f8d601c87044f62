// Package pcm implements the audio frame format contract of spec.md §6:
// interleaved PCM sample containers, packed channel maps, and the
// frame-size/period-size arithmetic used during module format negotiation.
package pcm

import "github.com/opendsp/audiocore/pkg/xerror"

// ContainerBits is a mandatory sample container width.
type ContainerBits int

const (
	Container16 ContainerBits = 16
	Container32 ContainerBits = 32
)

// Bytes returns the container width in bytes.
func (c ContainerBits) Bytes() uint32 {
	return uint32(c) / 8
}

// Justify describes how a 24-bit sample is padded within a 32-bit
// container.
type Justify int

const (
	// LeftJustified24In32 places the 24 significant bits in the high
	// bits of the 32-bit container.
	LeftJustified24In32 Justify = iota
	// RightJustified24In32 places the 24 significant bits in the low
	// bits of the 32-bit container.
	RightJustified24In32
)

// AbsentChannel is the channel-map nibble value marking an absent channel,
// per spec.md §6.
const AbsentChannel = 0xF

// MaxChannels is the number of 4-bit nibbles that fit in a uint32 channel
// map.
const MaxChannels = 8

// ChannelMap packs up to MaxChannels channel position indices as 4-bit
// nibbles in one uint32, per spec.md §6. assignments[i] is the position of
// logical channel i; AbsentChannel marks a channel slot that carries no
// signal.
func ChannelMap(assignments ...uint8) (uint32, error) {
	if len(assignments) > MaxChannels {
		return 0, xerror.New(xerror.InvalidArg, "pcm.ChannelMap", nil)
	}

	var m uint32
	for i, v := range assignments {
		if v > 0xF {
			return 0, xerror.New(xerror.InvalidArg, "pcm.ChannelMap", nil)
		}
		m |= uint32(v) << (4 * i)
	}
	// Unassigned trailing slots are absent channels, not channel 0.
	for i := len(assignments); i < MaxChannels; i++ {
		m |= uint32(AbsentChannel) << (4 * i)
	}
	return m, nil
}

// ChannelMapSlice unpacks a channel map back into per-slot assignments.
func ChannelMapSlice(m uint32) [MaxChannels]uint8 {
	var out [MaxChannels]uint8
	for i := range out {
		out[i] = uint8((m >> (4 * i)) & 0xF)
	}
	return out
}

// ActiveChannels counts the channel-map slots that are not AbsentChannel.
func ActiveChannels(m uint32) int {
	n := 0
	for _, v := range ChannelMapSlice(m) {
		if v != AbsentChannel {
			n++
		}
	}
	return n
}

// Format describes the negotiated stream format of one pin.
type Format struct {
	Container   ContainerBits
	Channels    uint32
	ChannelMap  uint32
	RateHz      uint32
	PeriodBytes uint32
}

// FrameBytes returns sample_container_bytes * channels, the bytes consumed
// by one interleaved frame.
func (f Format) FrameBytes() uint32 {
	return f.Container.Bytes() * f.Channels
}

// ValidatePeriod checks that periods*periodBytes fits within the sink's
// configured region and that the container/channels combination is
// supported, per the prepare()-time format negotiation in spec.md §4.3.
func ValidatePeriod(f Format, periods uint32, sinkBytes uint32) error {
	const op = "pcm.ValidatePeriod"

	if f.Container != Container16 && f.Container != Container32 {
		return xerror.New(xerror.NotSupported, op, nil)
	}
	if f.Channels == 0 || f.Channels > MaxChannels {
		return xerror.New(xerror.NotSupported, op, nil)
	}

	required := f.PeriodBytes * periods
	if required > sinkBytes {
		return xerror.New(xerror.InvalidState, op, nil)
	}
	return nil
}
