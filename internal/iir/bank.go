// Package iir implements the IIR biquad filter bank of spec.md §3 and
// §4.4: a per-channel cascade of Direct-Form-II-Transposed biquad sections
// driven by a flat, shared coefficient table, with bypass and mute support
// and wrap-aware interleaved PCM execution.
package iir

// MaxChannels bounds the channel count a bank can be configured for,
// matching the platform channel ceiling assumed by the coefficient table
// layout.
const MaxChannels = 8

// DelayAllocator lets callers plug in the arena allocation strategy for a
// bank's delay lines; the default maps onto make([]int64, n). A nil return
// from a custom allocator is treated as allocation failure.
type DelayAllocator interface {
	AllocDelay(n int) []int64
}

type defaultDelayAllocator struct{}

func (defaultDelayAllocator) AllocDelay(n int) []int64 {
	return make([]int64, n)
}

// Option configures a Bank at construction time.
type Option func(*Bank)

// WithDelayAllocator overrides the default delay-arena allocator.
func WithDelayAllocator(a DelayAllocator) Option {
	return func(b *Bank) { b.alloc = a }
}

// Bank is the IIR biquad filter bank: per-channel execution state backed by
// a single delay arena, reconfigured as a unit by Setup.
type Bank struct {
	config   *Coefficients
	channels []channelState
	alloc    DelayAllocator
}

// New constructs an empty bank. Setup must be called before Process.
func New(opts ...Option) *Bank {
	b := &Bank{alloc: defaultDelayAllocator{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Setup resolves every channel's assigned response, sizes and allocates a
// single delay arena for the whole bank, and only then commits the new
// configuration. On error the bank is left exactly as it was: the
// two-phase allocate-then-commit sequence never mutates Bank state before
// every channel has validated successfully, per spec.md §4.4.
func (b *Bank) Setup(config *Coefficients, channels int) error {
	const op = "iir.Bank.Setup"

	if channels <= 0 || channels > MaxChannels {
		return errInvalidArg(op)
	}
	if len(config.AssignResponse) < channels {
		return errInvalidArg(op)
	}

	sectionCounts := make([]int, channels)
	total := 0
	for ch := 0; ch < channels; ch++ {
		idx := config.AssignResponse[ch]
		if idx == -1 {
			sectionCounts[ch] = 0
			continue
		}
		if idx < 0 || int(idx) >= len(config.Responses) {
			return errInvalidArg(op)
		}
		n := len(config.Responses[idx].Sections)
		sectionCounts[ch] = n
		total += 2 * n
	}

	arena := b.alloc.AllocDelay(total)
	if arena == nil && total > 0 {
		return errOutOfMemory(op)
	}

	states := make([]channelState, channels)
	offset := 0
	for ch := 0; ch < channels; ch++ {
		idx := config.AssignResponse[ch]
		n := sectionCounts[ch]
		states[ch].delay = arena[offset : offset+2*n]
		offset += 2 * n
		if idx == -1 {
			states[ch].resp = nil
		} else {
			states[ch].resp = &config.Responses[idx]
		}
	}

	b.config = config
	b.channels = states
	return nil
}

// SwitchResponse reassigns one channel to a different response (or -1 for
// bypass) and re-runs Setup for the whole bank. responseIndex is validated
// and then written into the shared assign_response table before the
// cascade is rebuilt, matching the original firmware's mutate-then-rebuild
// sequence: a rejected rebuild leaves that mutation in place, since the
// assignment itself was valid.
func (b *Bank) SwitchResponse(ch int, responseIndex int32) error {
	const op = "iir.Bank.SwitchResponse"

	if ch < 0 || ch >= len(b.channels) {
		return errInvalidArg(op)
	}
	if responseIndex != -1 && (responseIndex < 0 || int(responseIndex) >= len(b.config.Responses)) {
		return errInvalidArg(op)
	}

	b.config.AssignResponse[ch] = responseIndex
	return b.Setup(b.config, len(b.channels))
}

// Mute forces a channel's output to zero without disturbing its delay
// lines.
func (b *Bank) Mute(ch int) error {
	if ch < 0 || ch >= len(b.channels) {
		return errInvalidArg("iir.Bank.Mute")
	}
	b.channels[ch].muted = true
	return nil
}

// Unmute resumes normal execution for a previously muted channel.
func (b *Bank) Unmute(ch int) error {
	if ch < 0 || ch >= len(b.channels) {
		return errInvalidArg("iir.Bank.Unmute")
	}
	b.channels[ch].muted = false
	return nil
}

// Reset zeroes every channel's delay lines, leaving response assignment
// and mute state untouched.
func (b *Bank) Reset() {
	for i := range b.channels {
		b.channels[i].reset()
	}
}

// Channels returns the number of channels the bank is currently configured
// for.
func (b *Bank) Channels() int {
	return len(b.channels)
}

// Process runs frames samples of channels-wide interleaved PCM from src
// through the bank into sink, wrapping both buffers at their own lengths.
// srcOffset and sinkOffset are sample (not byte) indices into the
// respective circular backing slices.
func (b *Bank) Process(src []int32, srcOffset int, sink []int32, sinkOffset int, channels, frames int) error {
	const op = "iir.Bank.Process"

	if channels != len(b.channels) {
		return errInvalidArg(op)
	}
	if len(src) == 0 || len(sink) == 0 {
		return errInvalidArg(op)
	}

	for ch := 0; ch < channels; ch++ {
		cs := &b.channels[ch]
		x := srcOffset + ch
		y := sinkOffset + ch

		for f := 0; f < frames; f++ {
			sink[y] = cs.step(src[x])

			x += channels
			if x >= len(src) {
				x -= len(src)
			}
			y += channels
			if y >= len(sink) {
				y -= len(sink)
			}
		}
	}
	return nil
}
