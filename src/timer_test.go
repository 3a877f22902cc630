package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CreateTimer_validates_arguments(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	noop := func(*Timer, any) {}

	_, err := k.CreateTimer("t", TimerOneShot, 0, 0, noop, nil)
	assertKernelErr(t, err, ErrInvalidTick)

	_, err = k.CreateTimer("t", TimerOneShot, 5, 0, nil, nil)
	assertKernelErr(t, err, ErrInvalidTick)

	_, err = k.CreateTimer("t", TimerPeriodic, 5, 0, noop, nil)
	assertKernelErr(t, err, ErrInvalidTick)

	tm, err := k.CreateTimer("t", TimerOneShot, 5, 0, noop, nil)
	assert.NoError(t, err)
	assert.Equal(t, TimerStopped, tm.State())
}

func Test_Timer_Start_links_into_delta_list(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	noop := func(*Timer, any) {}
	tm, err := k.CreateTimer("t", TimerOneShot, 7, 0, noop, nil)
	assert.NoError(t, err)

	assert.NoError(t, tm.Start())
	assert.Equal(t, TimerRunning, tm.State())
	assert.Same(t, tm, k.timerSub.head)
	assert.Equal(t, int64(7), tm.delta)
}

func Test_Timer_Stop_is_a_noop_when_not_running(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	noop := func(*Timer, any) {}
	tm, err := k.CreateTimer("t", TimerOneShot, 7, 0, noop, nil)
	assert.NoError(t, err)

	assert.NoError(t, tm.Stop())
	assert.Equal(t, TimerStopped, tm.State())
}

func Test_Timer_Set_rejects_while_running(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	noop := func(*Timer, any) {}
	tm, err := k.CreateTimer("t", TimerOneShot, 7, 0, noop, nil)
	assert.NoError(t, err)
	assert.NoError(t, tm.Start())

	assertKernelErr(t, tm.Set(3, 0), ErrInvalidOption)

	assert.NoError(t, tm.Stop())
	assert.NoError(t, tm.Set(3, 0))
}

func Test_timerSubsystem_advance_fires_oneShot_and_leaves_it_completed(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	fired := 0
	cb := func(*Timer, any) { fired++ }
	tm, err := k.CreateTimer("t", TimerOneShot, 5, 0, cb, nil)
	assert.NoError(t, err)
	assert.NoError(t, tm.Start())

	expired := k.timerSub.advance(5)
	assert.Len(t, expired, 1)
	assert.Same(t, tm, expired[0])
	assert.Nil(t, k.timerSub.head)

	// taskEntry's own loop is what actually invokes callbacks and flips
	// state to Completed/re-arms; advance() alone only pops the list.
	tm.state = TimerCompleted
	assert.Equal(t, TimerCompleted, tm.State())
}

func Test_timerSubsystem_advance_reArms_periodic_timer(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	cb := func(*Timer, any) {}
	tm, err := k.CreateTimer("t", TimerPeriodic, 4, 10, cb, nil)
	assert.NoError(t, err)
	assert.NoError(t, tm.Start())

	expired := k.timerSub.advance(4)
	assert.Len(t, expired, 1)

	// Mirror what taskEntry does with a fired periodic timer.
	tm.state = TimerRunning
	k.timerSub.insert(tm, tm.period)

	assert.Same(t, tm, k.timerSub.head)
	assert.Equal(t, int64(10), tm.delta)
}

func Test_timerSubsystem_advance_preserves_leftover_across_simultaneous_deadlines(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	cb := func(*Timer, any) {}
	a, err := k.CreateTimer("a", TimerOneShot, 5, 0, cb, nil)
	assert.NoError(t, err)
	b, err := k.CreateTimer("b", TimerOneShot, 5, 0, cb, nil)
	assert.NoError(t, err)
	c, err := k.CreateTimer("c", TimerOneShot, 9, 0, cb, nil)
	assert.NoError(t, err)
	assert.NoError(t, a.Start())
	assert.NoError(t, b.Start())
	assert.NoError(t, c.Start())

	expired := k.timerSub.advance(7) // past a and b's deadline, short of c's
	assert.Len(t, expired, 2)
	assert.Same(t, c, k.timerSub.head)
	assert.Equal(t, int64(2), c.delta)
}

func Test_timerSubsystem_init_wires_condvar_to_its_own_mutex(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	assert.NotNil(t, k.timerSub.mu)
	assert.NotNil(t, k.timerSub.cond)
	assert.Same(t, k.timerSub.mu, k.timerSub.cond.m)
	assert.Equal(t, noTask, k.timerSub.mu.owner)
}

// Test_timerSubsystem_insert_reports_head_change confirms insert/unlink
// report exactly the two conditions spec.md §4.10 names for signaling
// the timer task's condition variable: linking ahead of everything
// else, or into a previously empty list.
func Test_timerSubsystem_insert_reports_head_change(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	noop := func(*Timer, any) {}
	a, err := k.CreateTimer("a", TimerOneShot, 10, 0, noop, nil)
	assert.NoError(t, err)
	b, err := k.CreateTimer("b", TimerOneShot, 20, 0, noop, nil)
	assert.NoError(t, err)

	assert.True(t, k.timerSub.insert(a, 10), "linking into an empty list is a head change")
	assert.False(t, k.timerSub.insert(b, 30), "linking in behind the existing head is not")

	assert.True(t, k.timerSub.unlink(a), "a was the head")
	assert.True(t, k.timerSub.unlink(b), "b became the head once a was removed")
}

func Test_Timer_Delete_stops_it(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	cb := func(*Timer, any) {}
	tm, err := k.CreateTimer("t", TimerOneShot, 5, 0, cb, nil)
	assert.NoError(t, err)
	assert.NoError(t, tm.Start())

	assert.NoError(t, tm.Delete())
	assert.Equal(t, TimerStopped, tm.State())
	assert.Nil(t, k.timerSub.head)
}
