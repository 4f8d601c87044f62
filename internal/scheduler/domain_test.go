package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_OwnerElectionMovesToMinPeriodCore(t *testing.T) {
	// spec.md §8 scenario 4.
	ch0 := &Channel{Core: 0, Period: 1000, SchedulingSource: true}
	ch1 := &Channel{Core: 1, Period: 500, SchedulingSource: true}
	d := NewDomain([]*Channel{ch0, ch1}, 2)

	ch0.Active = true
	require.NoError(t, d.Register(0, func() {}))
	assert.Equal(t, 0, d.Owner())

	ch1.Active = true
	require.NoError(t, d.Register(1, func() {}))
	assert.Equal(t, 1, d.Owner())

	select {
	case newCh := <-d.Subscribe(0):
		require.NoError(t, d.ReactToChange(0, newCh, func() {}))
	default:
		t.Fatal("core 0 expected a DOMAIN_CHANGE notification")
	}

	assert.True(t, d.IsMasked(0))
	assert.False(t, d.IsMasked(1))

	assert.Equal(t, []uint32{0}, d.MaskedCores().AsSlice())
}

func Test_OwnerInvariantHoldsAcrossRegistrations(t *testing.T) {
	ch0 := &Channel{Core: 0, Period: 1000, SchedulingSource: true, Active: true}
	ch1 := &Channel{Core: 1, Period: 2000, SchedulingSource: true, Active: true}
	d := NewDomain([]*Channel{ch0, ch1}, 2)

	require.NoError(t, d.Register(0, func() {}))
	// spec.md §8: owner == INVALID or == core hosting the min-period active channel.
	assert.Equal(t, 0, d.Owner())

	require.NoError(t, d.Register(1, func() {}))
	// Core 1's channel has a bigger period, so ownership does not move.
	assert.Equal(t, 0, d.Owner())
}

func Test_RegisterFailsWhenNoChannelActive(t *testing.T) {
	ch0 := &Channel{Core: 0, Period: 1000, SchedulingSource: true, Active: false}
	d := NewDomain([]*Channel{ch0}, 1)

	err := d.Register(0, func() {})
	require.Error(t, err)
	assert.Equal(t, OwnerInvalid, d.Owner())
}

func Test_UnregisterOwnerWithNoReplacementClearsOwner(t *testing.T) {
	ch0 := &Channel{Core: 0, Period: 1000, SchedulingSource: true, Active: true}
	d := NewDomain([]*Channel{ch0}, 1)

	require.NoError(t, d.Register(0, func() {}))
	assert.Equal(t, 0, d.Owner())

	ch0.Active = false
	require.NoError(t, d.Unregister(0))
	assert.Equal(t, OwnerInvalid, d.Owner())
}

func Test_UnregisterOwnerStillActiveIsNoop(t *testing.T) {
	ch0 := &Channel{Core: 0, Period: 1000, SchedulingSource: true, Active: true}
	d := NewDomain([]*Channel{ch0}, 1)

	require.NoError(t, d.Register(0, func() {}))
	require.NoError(t, d.Unregister(0))
	// channel is still active: the scheduler guarantees unregister only
	// happens between ticks, but the domain itself refuses to drop a
	// still-running owner.
	assert.Equal(t, 0, d.Owner())
	assert.False(t, d.IsMasked(0))
}

func Test_UnregisterReelectsNewOwnerAndNotifiesPeers(t *testing.T) {
	ch0 := &Channel{Core: 0, Period: 1000, SchedulingSource: true, Active: true}
	ch1 := &Channel{Core: 1, Period: 2000, SchedulingSource: true, Active: true}
	d := NewDomain([]*Channel{ch0, ch1}, 2)

	require.NoError(t, d.Register(0, func() {}))
	require.NoError(t, d.Register(1, func() {}))
	assert.Equal(t, 0, d.Owner())

	ch0.Active = false
	require.NoError(t, d.Unregister(0))
	assert.Equal(t, 1, d.Owner())

	select {
	case newCh := <-d.Subscribe(1):
		assert.Equal(t, ch1, newCh)
	default:
		t.Fatal("core 1 expected a DOMAIN_CHANGE notification")
	}
}

func Test_EnableDisableOverrideMaskDirectly(t *testing.T) {
	ch0 := &Channel{Core: 0, Period: 1000, SchedulingSource: true, Active: true}
	d := NewDomain([]*Channel{ch0}, 1)
	require.NoError(t, d.Register(0, func() {}))

	require.NoError(t, d.Disable(0))
	assert.True(t, d.IsMasked(0))

	require.NoError(t, d.Enable(0))
	assert.False(t, d.IsMasked(0))
}
