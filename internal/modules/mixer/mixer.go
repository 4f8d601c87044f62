package mixer

import (
	"encoding/binary"
	"math"

	"github.com/opendsp/audiocore/pkg/xerror"
)

// Mixer is the up/down channel mixer's runtime state: the negotiated
// channel configurations and sample depth, and the selected mix
// routine (pass-through or weighted downmix/upmix), mirroring
// up_down_mixer_data.
type Mixer struct {
	in, out ChannelConfig
	depth   Depth

	passthrough bool
	coeffs      [][]float64 // [outChannel][inChannel]
}

// New constructs an unconfigured mixer; Configure must run before Process.
func New() *Mixer {
	return &Mixer{}
}

// Configure selects the mix routine for an in/out channel configuration
// pair at a given sample depth, mirroring init_mix's routine selection.
func (m *Mixer) Configure(in, out ChannelConfig, depth Depth) error {
	const op = "mixer.Mixer.Configure"

	if depth != Depth16 && depth != Depth32 {
		return xerror.New(xerror.NotSupported, op, nil)
	}

	m.in, m.out, m.depth = in, out, depth

	if in == out {
		m.passthrough = true
		m.coeffs = nil
		return nil
	}

	coeffs, err := defaultCoefficients(in, out)
	if err != nil {
		return err
	}
	m.passthrough = false
	m.coeffs = coeffs
	return nil
}

// SetCustomCoefficients overrides the default mix matrix. The replacement
// is copied and fully validated before it replaces the active matrix, so
// a rejected update never leaves the mixer with a partially-applied
// table — unlike the firmware routine this is grounded on, which assigns
// the new table before checking the copy's return value.
func (m *Mixer) SetCustomCoefficients(flat []float64) error {
	const op = "mixer.Mixer.SetCustomCoefficients"

	outCh, inCh := m.out.Channels(), m.in.Channels()
	if outCh == 0 || inCh == 0 {
		return xerror.New(xerror.InvalidState, op, nil)
	}
	if len(flat) != outCh*inCh {
		return xerror.New(xerror.InvalidArg, op, nil)
	}

	staged := make([]float64, len(flat))
	copy(staged, flat)

	for _, w := range staged {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return xerror.New(xerror.InvalidArg, op, nil)
		}
	}

	matrix := make([][]float64, outCh)
	for o := 0; o < outCh; o++ {
		matrix[o] = append([]float64(nil), staged[o*inCh:(o+1)*inCh]...)
	}

	m.coeffs = matrix
	m.passthrough = false
	return nil
}

// InChannels returns the configured input channel count.
func (m *Mixer) InChannels() int { return m.in.Channels() }

// OutChannels returns the configured output channel count.
func (m *Mixer) OutChannels() int { return m.out.Channels() }

// SampleBytes returns the configured sample container width in bytes.
func (m *Mixer) SampleBytes() int { return m.depth.Bytes() }

// Process runs frames interleaved frames of in through the configured mix
// routine and returns the mixed output buffer.
func (m *Mixer) Process(in []byte, frames int) ([]byte, error) {
	const op = "mixer.Mixer.Process"

	inCh, outCh := m.in.Channels(), m.out.Channels()
	if inCh == 0 || outCh == 0 {
		return nil, xerror.New(xerror.InvalidState, op, nil)
	}

	sampleBytes := m.depth.Bytes()
	required := frames * inCh * sampleBytes
	if len(in) < required {
		return nil, xerror.New(xerror.XRun, op, nil)
	}

	out := make([]byte, frames*outCh*sampleBytes)

	if m.passthrough {
		copy(out, in[:required])
		return out, nil
	}

	for f := 0; f < frames; f++ {
		inSamples := make([]float64, inCh)
		for c := 0; c < inCh; c++ {
			off := (f*inCh + c) * sampleBytes
			inSamples[c] = m.decode(in[off : off+sampleBytes])
		}

		for c := 0; c < outCh; c++ {
			var acc float64
			for j, w := range m.coeffs[c] {
				acc += w * inSamples[j]
			}
			off := (f*outCh + c) * sampleBytes
			m.encode(out[off:off+sampleBytes], acc)
		}
	}

	return out, nil
}

func (m *Mixer) decode(b []byte) float64 {
	if m.depth == Depth16 {
		return float64(int16(binary.LittleEndian.Uint16(b)))
	}
	return float64(int32(binary.LittleEndian.Uint32(b)))
}

func (m *Mixer) encode(b []byte, v float64) {
	if m.depth == Depth16 {
		binary.LittleEndian.PutUint16(b, uint16(int16(math.Round(v))))
		return
	}
	binary.LittleEndian.PutUint32(b, uint32(int32(math.Round(v))))
}
