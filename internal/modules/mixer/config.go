// Package mixer implements the up/down channel mixer module of
// SPEC_FULL.md §12.1: a legacy-dispatch module instance that shift-copies
// or downmixes/upmixes interleaved PCM between fixed channel
// configurations, grounded on the firmware's up_down_mixer module.
package mixer

import "github.com/opendsp/audiocore/pkg/xerror"

// ChannelConfig is a fixed input/output channel layout, mirroring the
// IPC4_CHANNEL_CONFIG_* set the original firmware selects mix routines
// from.
type ChannelConfig int

const (
	ConfigMono ChannelConfig = iota
	ConfigStereo
	ConfigQuad
	ConfigSurround51
)

// Channels returns the channel count of a layout.
func (c ChannelConfig) Channels() int {
	switch c {
	case ConfigMono:
		return 1
	case ConfigStereo:
		return 2
	case ConfigQuad:
		return 4
	case ConfigSurround51:
		return 6
	default:
		return 0
	}
}

// Depth is a sample container width, in bits.
type Depth int

const (
	Depth16 Depth = 16
	Depth32 Depth = 32
)

// Bytes returns the per-sample container width in bytes.
func (d Depth) Bytes() int {
	return int(d) / 8
}

// identityMatrix returns the n x n identity weight matrix.
func identityMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

// defaultCoefficients returns the built-in downmix/upmix weight matrix
// for one in/out channel configuration pair, mirroring
// set_downmix_coefficients' switch over ch_cfg.
func defaultCoefficients(in, out ChannelConfig) ([][]float64, error) {
	const op = "mixer.defaultCoefficients"

	if in == out {
		return identityMatrix(in.Channels()), nil
	}

	switch {
	case in == ConfigStereo && out == ConfigMono:
		return [][]float64{{0.5, 0.5}}, nil
	case in == ConfigMono && out == ConfigStereo:
		return [][]float64{{1}, {1}}, nil
	case in == ConfigQuad && out == ConfigStereo:
		// channel order: L, R, Ls, Rs
		return [][]float64{
			{1, 0, 0.5, 0},
			{0, 1, 0, 0.5},
		}, nil
	case in == ConfigSurround51 && out == ConfigStereo:
		// channel order: L, R, C, LFE, Ls, Rs
		const center = 0.707
		return [][]float64{
			{1, 0, center, 0, center, 0},
			{0, 1, center, 0, 0, center},
		}, nil
	default:
		return nil, xerror.New(xerror.NotSupported, op, nil)
	}
}
