package iir

// channelState is the per-channel execution state: the assigned response
// (nil for bypass), the Direct-Form-II-Transposed delay words (two per
// section: d1, d2), and the mute flag.
type channelState struct {
	resp  *Response
	delay []int64
	muted bool
}

// step runs one sample through the channel's biquad cascade and returns the
// output sample. A muted channel forces its output to zero without
// disturbing the delay lines; a bypass channel (resp == nil) passes the
// sample through unchanged.
func (cs *channelState) step(x int32) int32 {
	if cs.muted {
		return 0
	}
	if cs.resp == nil {
		return x
	}

	y := int64(x)
	for i, sec := range cs.resp.Sections {
		d1 := cs.delay[2*i]
		d2 := cs.delay[2*i+1]

		acc := int64(sec.B0)*y + d1
		out := acc >> (FixedPointFracBits + sec.Shift)

		cs.delay[2*i] = int64(sec.B1)*y - int64(sec.A1)*out + d2
		cs.delay[2*i+1] = int64(sec.B2)*y - int64(sec.A2)*out

		y = out
	}

	if cs.resp.Gain != 0 {
		y = (y * int64(cs.resp.Gain)) >> FixedPointFracBits
	}
	return int32(y)
}

// reset zeroes the delay lines, leaving the assigned response and mute
// state untouched.
func (cs *channelState) reset() {
	for i := range cs.delay {
		cs.delay[i] = 0
	}
}
