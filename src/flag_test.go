package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_EventFlagGroup_Pend_SetAll_satisfied_immediately(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0b0111)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "a", 5)

	hit, err := g.Pend(a, 0b0011, FlagSetAll, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0b0011), hit)
	assert.Equal(t, uint64(0b0111), g.Flags(), "non-consuming pend leaves flags untouched")
}

func Test_EventFlagGroup_Pend_SetAll_consume_clears_matched_bits(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0b0111)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "a", 5)

	hit, err := g.Pend(a, 0b0011, FlagSetAll, true, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0b0011), hit)
	assert.Equal(t, uint64(0b0100), g.Flags())
}

func Test_EventFlagGroup_Pend_SetAny_vs_SetAll(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0b0010)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "a", 5)
	b := mustCreateTask(t, k, "b", 5)

	hit, err := g.Pend(a, 0b0011, FlagSetAny, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0b0010), hit)

	_, err = g.Pend(b, 0b0011, FlagSetAll, false, 0)
	assertKernelErr(t, err, ErrWouldBlock)
}

func Test_EventFlagGroup_Pend_ClearAll_and_ClearAny(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0b0110)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "a", 5)

	// bit 0 is already clear, bits 1/2 are set.
	hit, err := g.Pend(a, 0b0001, FlagClearAll, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0b0001), hit)

	_, err = g.Pend(a, 0b0011, FlagClearAll, false, 0)
	assertKernelErr(t, err, ErrWouldBlock)

	hit, err = g.Pend(a, 0b0011, FlagClearAny, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0b0001), hit, "only the already-clear bit matches")
}

func Test_EventFlagGroup_Post_wakes_multiple_waiters_in_FIFO_order(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0)
	assert.NoError(t, err)

	a := mustCreateTask(t, k, "a", 5)
	b := mustCreateTask(t, k, "b", 5)
	c := mustCreateTask(t, k, "c", 5)

	_, _ = g.Pend(a, 0b001, FlagSetAll, true, 50)
	_, _ = g.Pend(b, 0b010, FlagSetAll, true, 50)
	_, _ = g.Pend(c, 0b100, FlagSetAll, false, 50)

	n, err := g.Post(0b111, 0)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, uint64(0b001), k.tasks[a.id].flagReadyMask)
	assert.Equal(t, uint64(0b010), k.tasks[b.id].flagReadyMask)
	assert.Equal(t, uint64(0b100), k.tasks[c.id].flagReadyMask)
	assert.Equal(t, PendStatusOK, k.tasks[a.id].PendStatus)
	assert.Equal(t, PendStatusOK, k.tasks[c.id].PendStatus)
	// a and b consumed their matched bit, c didn't.
	assert.Equal(t, uint64(0b100), g.Flags())
}

func Test_EventFlagGroup_Post_only_wakes_satisfied_waiters(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0)
	assert.NoError(t, err)

	a := mustCreateTask(t, k, "a", 5)
	b := mustCreateTask(t, k, "b", 5)

	_, _ = g.Pend(a, 0b11, FlagSetAll, false, 50) // needs both bits
	_, _ = g.Pend(b, 0b01, FlagSetAll, false, 50) // needs only bit 0

	n, err := g.Post(0b01, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StateReady, k.tasks[b.id].State)
	assert.Equal(t, StatePendingTimeout, k.tasks[a.id].State, "still waiting")
	assert.Equal(t, uint64(0), k.tasks[a.id].flagReadyMask, "never delivered")
	assert.False(t, g.pendListEmpty())
	assert.Equal(t, a.id, g.pendHead)
}

func Test_EventFlagGroup_PendAbort_reports_none_when_empty(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0)
	assert.NoError(t, err)
	_, err = g.PendAbort(Post1)
	assertKernelErr(t, err, ErrAbortNone)
}
