package eqiir

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendsp/audiocore/internal/iir"
	"github.com/opendsp/audiocore/internal/ring"
	"github.com/opendsp/audiocore/pkg/xerror"
)

// encodeConfig builds a wire blob matching decodeConfig's format, for
// tests that need a config without hand-rolling bytes.
func encodeConfig(t *testing.T, assign []int8, responses []iir.Response) []byte {
	t.Helper()

	buf := []byte{byte(len(assign)), byte(len(responses))}
	for _, a := range assign {
		buf = append(buf, byte(a))
	}
	for _, r := range responses {
		buf = append(buf, byte(len(r.Sections)))
		gain := make([]byte, 4)
		binary.LittleEndian.PutUint32(gain, uint32(r.Gain))
		buf = append(buf, gain...)
		for _, s := range r.Sections {
			word := make([]byte, 4)
			put := func(v int32) {
				binary.LittleEndian.PutUint32(word, uint32(v))
				buf = append(buf, word...)
			}
			put(s.B0)
			put(s.B1)
			put(s.B2)
			put(s.A1)
			put(s.A2)
			buf = append(buf, byte(s.Shift))
		}
	}
	return buf
}

func encodeFrames(t *testing.T, samples []int32) []byte {
	t.Helper()
	out := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

func decodeFrames(t *testing.T, b []byte) []int32 {
	t.Helper()
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func writeIntoSink(t *testing.T, s ring.Sink, data []byte) {
	t.Helper()
	view, err := s.GetBuffer(uint32(len(data)))
	require.NoError(t, err)
	n := copy(view.Backing[view.Offset:], data)
	require.Equal(t, len(data), n)
	require.NoError(t, s.CommitBuffer(uint32(len(data))))
}

func readFromSource(t *testing.T, s ring.Source, n int) []byte {
	t.Helper()
	view, err := s.GetData(uint32(n))
	require.NoError(t, err)
	out := make([]byte, n)
	copy(out, view.Backing[view.Offset:view.Offset+uint32(n)])
	require.NoError(t, s.ReleaseData(uint32(n)))
	return out
}

func Test_HalvesOneChannelBypassesTheOther(t *testing.T) {
	config := encodeConfig(t, []int8{0, -1}, []iir.Response{
		{
			Sections: []iir.Section{{B0: iir.FixedPointOne / 2}},
			Gain:     iir.FixedPointOne,
		},
	})

	mod := NewModule()
	require.NoError(t, mod.Init(config))

	srcBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)
	sinkBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)

	writeIntoSink(t, srcBuf.Sink(), encodeFrames(t, []int32{1000, 2000, 2000, 4000}))
	require.NoError(t, mod.Prepare([]ring.Source{srcBuf.Source()}, []ring.Sink{sinkBuf.Sink()}))

	report, err := mod.Process([]ring.Source{srcBuf.Source()}, []ring.Sink{sinkBuf.Sink()})
	require.NoError(t, err)
	assert.EqualValues(t, 16, report.Consumed[0])
	assert.EqualValues(t, 16, report.Produced[0])

	out := decodeFrames(t, readFromSource(t, sinkBuf.Source(), 16))
	assert.Equal(t, []int32{500, 2000, 1000, 4000}, out)
}

func Test_ProcessReturnsNoDataBelowOneFrame(t *testing.T) {
	config := encodeConfig(t, []int8{-1}, nil)
	mod := NewModule()
	require.NoError(t, mod.Init(config))

	srcBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)
	sinkBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)
	require.NoError(t, mod.Prepare([]ring.Source{srcBuf.Source()}, []ring.Sink{sinkBuf.Sink()}))

	_, err = mod.Process([]ring.Source{srcBuf.Source()}, []ring.Sink{sinkBuf.Sink()})
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.NoData))
}

func Test_InitRejectsOutOfRangeResponseIndex(t *testing.T) {
	config := encodeConfig(t, []int8{5}, nil)
	mod := NewModule()
	err := mod.Init(config)
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.InvalidArg))
}

func Test_PrepareFailsWithoutConnections(t *testing.T) {
	config := encodeConfig(t, []int8{-1}, nil)
	mod := NewModule()
	require.NoError(t, mod.Init(config))

	err := mod.Prepare(nil, nil)
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.NotConnected))
}

func Test_FreeThenProcessRequiresReinit(t *testing.T) {
	config := encodeConfig(t, []int8{-1}, nil)
	mod := NewModule()
	require.NoError(t, mod.Init(config))
	require.NoError(t, mod.Free())

	srcBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)
	sinkBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)

	_, err = mod.Process([]ring.Source{srcBuf.Source()}, []ring.Sink{sinkBuf.Sink()})
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.InvalidState))
}

func Test_IsReadyToProcessReflectsWatermarks(t *testing.T) {
	config := encodeConfig(t, []int8{-1}, nil)
	mod := NewModule()
	require.NoError(t, mod.Init(config))

	srcBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)
	sinkBuf, err := ring.New(64, 64, false)
	require.NoError(t, err)

	sources := []ring.Source{srcBuf.Source()}
	sinks := []ring.Sink{sinkBuf.Sink()}

	assert.False(t, mod.IsReadyToProcess(sources, sinks))

	writeIntoSink(t, srcBuf.Sink(), encodeFrames(t, []int32{1}))
	assert.True(t, mod.IsReadyToProcess(sources, sinks))
}
