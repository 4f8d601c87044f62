package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendsp/audiocore/internal/blob"
)

func Test_AllocHeapTracksUsageAndHighWaterMark(t *testing.T) {
	r := New(false)

	buf1, err := r.AllocHeap(100)
	require.NoError(t, err)
	assert.Len(t, buf1, 100)

	current, hwm := r.HeapUsage()
	assert.EqualValues(t, 100, current)
	assert.EqualValues(t, 100, hwm)

	buf2, err := r.AllocHeap(50)
	require.NoError(t, err)
	current, hwm = r.HeapUsage()
	assert.EqualValues(t, 150, current)
	assert.EqualValues(t, 150, hwm)

	require.NoError(t, r.FreeHeap(buf1))
	current, hwm = r.HeapUsage()
	assert.EqualValues(t, 50, current)
	assert.EqualValues(t, 150, hwm) // high-water mark survives a partial free

	require.NoError(t, r.FreeHeap(buf2))
}

func Test_FreeAllResetsUsageAndHighWaterMark(t *testing.T) {
	// spec.md §8 scenario 5: final heap_usage == 0 after free_all.
	r := New(false)
	_, err := r.AllocHeap(64)
	require.NoError(t, err)

	require.NoError(t, r.FreeAll())

	current, hwm := r.HeapUsage()
	assert.Zero(t, current)
	assert.Zero(t, hwm)
}

func Test_BlobHandlerReleasedOnFreeAll(t *testing.T) {
	r := New(false)
	state := blob.OwnerReady
	h := r.NewBlobHandler(false, func() blob.OwnerState { return state })
	require.NoError(t, h.Set(blob.Single, 2, []byte{1, 2}))

	require.NoError(t, r.FreeAll())
	assert.Empty(t, r.inUse)
}

func Test_FastGetMirrorsDataAndUnmapsOnFreeAll(t *testing.T) {
	r := New(false)
	dram := []byte{1, 2, 3, 4}

	region, err := r.FastGet(dram)
	require.NoError(t, err)
	assert.Equal(t, dram, region.Bytes())

	require.NoError(t, r.FreeAll())
}

func Test_ContainersAreRecycledAfterFreeAll(t *testing.T) {
	r := New(false)
	_, err := r.AllocHeap(16)
	require.NoError(t, err)
	require.NoError(t, r.FreeAll())
	assert.NotEmpty(t, r.free)

	_, err = r.AllocHeap(16)
	require.NoError(t, err)
}

func Test_AllocHeapRejectsZeroSize(t *testing.T) {
	r := New(false)
	_, err := r.AllocHeap(0)
	require.Error(t, err)
}

func Test_DebugReentrancyAssertionPanics(t *testing.T) {
	r := New(true)
	r.entered.Store(true)

	assert.Panics(t, func() {
		_, _ = r.AllocHeap(8)
	})
}
