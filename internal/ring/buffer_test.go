package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendsp/audiocore/pkg/xerror"
)

func Test_SizingRule(t *testing.T) {
	// spec.md §8 scenario 1: min_available = min_free_space = 128 -> size 384,
	// already a multiple of CacheLineSize(64) so no extra rounding is visible.
	b, err := New(128, 128, false)
	require.NoError(t, err)
	assert.EqualValues(t, 384, b.Size())
}

func Test_CommitAndReadScenario(t *testing.T) {
	b, err := New(128, 128, false)
	require.NoError(t, err)

	sink := b.Sink()
	source := b.Source()

	view, err := sink.GetBuffer(200)
	require.NoError(t, err)
	for i := range 200 {
		view.Backing[(view.Offset+uint32(i))%b.Size()] = byte(i)
	}
	require.NoError(t, sink.CommitBuffer(200))

	assert.EqualValues(t, 184, sink.GetFree())
	assert.EqualValues(t, 200, source.GetAvailable())

	rv, err := source.GetData(120)
	require.NoError(t, err)
	for i := range 120 {
		assert.Equal(t, byte(i), rv.Backing[(rv.Offset+uint32(i))%b.Size()])
	}
	require.NoError(t, source.ReleaseData(120))

	assert.EqualValues(t, 304, sink.GetFree())
	assert.EqualValues(t, 80, source.GetAvailable())
}

func Test_GetBufferFailsOnInsufficientRoom(t *testing.T) {
	b, err := New(16, 16, false)
	require.NoError(t, err)
	sink := b.Sink()

	_, err = sink.GetBuffer(b.Size() + 1)
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.NoData))
}

func Test_GetDataFailsOnInsufficientData(t *testing.T) {
	b, err := New(16, 16, false)
	require.NoError(t, err)
	source := b.Source()

	_, err = source.GetData(1)
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.NoData))
}

func Test_AvailablePlusFreeEqualsSize(t *testing.T) {
	b, err := New(32, 32, false)
	require.NoError(t, err)
	sink := b.Sink()
	source := b.Source()

	ops := []struct {
		commit  uint32
		release uint32
	}{
		{40, 0}, {0, 10}, {30, 20}, {0, 40}, {90, 90},
	}

	for _, op := range ops {
		if op.commit > 0 {
			require.NoError(t, sink.CommitBuffer(op.commit))
		}
		if op.release > 0 {
			require.NoError(t, source.ReleaseData(op.release))
		}
		assert.EqualValues(t, b.Size(), sink.GetFree()+source.GetAvailable())
		assert.LessOrEqual(t, source.GetAvailable(), b.Size())
	}
}

func Test_CommitReleaseRoundTripOnEmptyBuffer(t *testing.T) {
	b, err := New(16, 16, false)
	require.NoError(t, err)
	sink := b.Sink()
	source := b.Source()

	require.NoError(t, sink.CommitBuffer(10))
	require.NoError(t, source.ReleaseData(10))

	assert.EqualValues(t, 0, source.GetAvailable())
	assert.EqualValues(t, b.Size(), sink.GetFree())
}

func Test_DoubledOffsetWrap(t *testing.T) {
	b, err := New(16, 16, false)
	require.NoError(t, err)

	// Drive writeOffset to 2*size-1, then commit 1 more byte: it must wrap
	// to n-1 = 0, not run off the end of the doubled space.
	b.writeOffset = 2*b.Size() - 1
	b.readOffset = 2*b.Size() - 1

	sink := b.Sink()
	require.NoError(t, sink.CommitBuffer(1))
	assert.EqualValues(t, 0, b.writeOffset)
}

func Test_ResetZeroesAndDropsOffsets(t *testing.T) {
	b, err := New(16, 16, false)
	require.NoError(t, err)

	sink := b.Sink()
	view, err := sink.GetBuffer(8)
	require.NoError(t, err)
	for i := range 8 {
		view.Backing[view.Offset+uint32(i)] = 0xFF
	}
	require.NoError(t, sink.CommitBuffer(8))

	b.Reset()

	assert.EqualValues(t, 0, b.writeOffset)
	assert.EqualValues(t, 0, b.readOffset)
	for _, v := range b.data {
		assert.Zero(t, v)
	}
}

func Test_CacheWritebackSplitsOnWrap(t *testing.T) {
	cache := &CountingCache{}
	b, err := NewWithCache(16, 16, true, cache)
	require.NoError(t, err)
	sink := b.Sink()

	// Position the write offset 10 bytes from the end so a 20-byte commit wraps.
	b.writeOffset = b.Size() - 10

	require.NoError(t, sink.CommitBuffer(20))

	require.Len(t, cache.WritebackCalls, 2)
	total := len(cache.WritebackCalls[0]) + len(cache.WritebackCalls[1])
	assert.Equal(t, 20, total)
	assert.Len(t, cache.WritebackCalls[0], 10)
	assert.Len(t, cache.WritebackCalls[1], 10)
}

func Test_CacheInvalidateSplitsOnWrap(t *testing.T) {
	cache := &CountingCache{}
	b, err := NewWithCache(16, 16, true, cache)
	require.NoError(t, err)
	source := b.Source()

	// 20 bytes available, starting 10 bytes before the buffer end so the
	// read window wraps.
	b.readOffset = b.Size() - 10
	b.writeOffset = b.Size() + 10

	_, err = source.GetData(20)
	require.NoError(t, err)

	require.Len(t, cache.InvalidateCalls, 2)
	assert.Len(t, cache.InvalidateCalls[0], 10)
	assert.Len(t, cache.InvalidateCalls[1], 10)
}

func Test_NonSharedBufferNeverTouchesCache(t *testing.T) {
	cache := &CountingCache{}
	b, err := NewWithCache(16, 16, false, cache)
	require.NoError(t, err)
	sink := b.Sink()
	source := b.Source()

	require.NoError(t, sink.CommitBuffer(10))
	_, err = source.GetData(5)
	require.NoError(t, err)

	assert.Empty(t, cache.WritebackCalls)
	assert.Empty(t, cache.InvalidateCalls)
}

func Test_OnUnbindInvalidatesWholeRegion(t *testing.T) {
	cache := &CountingCache{}
	b, err := NewWithCache(16, 16, true, cache)
	require.NoError(t, err)
	sink := b.Sink()

	require.NoError(t, sink.OnUnbind())
	require.Len(t, cache.InvalidateCalls, 1)
	assert.Len(t, cache.InvalidateCalls[0], int(b.Size()))
}

func Test_WatermarkExceedingSizeRejected(t *testing.T) {
	b, err := New(16, 16, false)
	require.NoError(t, err)

	err = b.SetMinAvailable(b.Size() + 1)
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.InvalidArg))

	err = b.SetMinFreeSpace(b.Size() + 1)
	require.Error(t, err)
	assert.True(t, xerror.Is(err, xerror.InvalidArg))
}
