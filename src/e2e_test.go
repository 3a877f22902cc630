package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The tests in this file walk the six scenarios directly, each
// checking the same observable facts: final task/object state rather
// than a blocking call's return value, which (absent a real port) is
// only meaningful for the synchronous, already-satisfied path — see
// mutex_test.go's priority-inheritance test for why.

// 1. One task at a higher priority than idle, delayed 100 ticks: idle
// runs until the delay expires, then the task preempts it, landing on
// tick 100 (1000 Hz, so 100 ticks == 100 ms).
func Test_e2e_delayed_task_preempts_idle_on_expiry(t *testing.T) {
	cfg := smallConfig()
	cfg.TimerEnable = false // no timer task, so idle is the only other ready task
	k := testKernel(t, cfg)
	a := mustCreateTask(t, k, "T", 10)
	assert.Equal(t, a.id, k.running, "T outranks idle and starts running immediately")

	assert.NoError(t, a.Delay(100))
	assert.Equal(t, k.idleTaskID, k.running, "idle takes over while T sleeps")

	for i := 0; i < 99; i++ {
		k.TimeTick()
		assert.Equal(t, k.idleTaskID, k.running, "still within the 100-tick delay")
	}
	k.TimeTick()
	assert.Equal(t, a.id, k.running, "T is ready again and outranks idle")
	assert.GreaterOrEqual(t, k.TimeGet(), int64(100))
	assert.LessOrEqual(t, k.TimeGet(), int64(101))
}

// 2. Semaphore starts at 0; A pends with a 50-tick timeout; a post
// arrives at tick 20, well before the timeout, and delivers directly
// without ever touching the count.
func Test_e2e_semaphore_post_arrives_before_timeout(t *testing.T) {
	k := testKernel(t, smallConfig())
	sm, err := k.CreateSemaphore("s", 0)
	assert.NoError(t, err)
	mustCreateTask(t, k, "B", 10)
	a := mustCreateTask(t, k, "A", 5)

	k.readyRemove(a.id)
	assert.NoError(t, k.pend(sm.header(), a.id, PendOnSemaphore, 50))

	for i := 0; i < 19; i++ {
		k.TimeTick()
		assert.Equal(t, StatePendingTimeout, k.tasks[a.id].State)
	}
	k.TimeTick() // tick 20
	assert.Equal(t, int64(20), k.TimeGet())

	assert.NoError(t, sm.Post(Post1))
	assert.Equal(t, PendStatusOK, k.tasks[a.id].PendStatus)
	assert.Equal(t, StateReady, k.tasks[a.id].State)
	assert.Equal(t, uint32(0), sm.Count(), "delivered directly, counter never banked")
	assert.Equal(t, noTask, k.tasks[a.id].tickNext, "timeout link removed on early post")
}

// 3. Event flag group starts at 0. A pends Set-All+Consume on 0x03. A
// partial post (0x02) leaves it blocked; a post that completes the
// mask (0x05) wakes it with flags_rdy == 0x03, and the group is left
// holding only the unmatched 0x04.
func Test_e2e_eventflag_partial_set_then_satisfying_post(t *testing.T) {
	k := testKernel(t, smallConfig())
	g, err := k.CreateEventFlagGroup("g", 0)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "A", 5)

	_, _ = g.Pend(a, 0x03, FlagSetAll, true, 1000)
	assert.Equal(t, StatePendingTimeout, k.tasks[a.id].State)

	n, err := g.Post(0x02, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, n, "0x02 alone doesn't satisfy the Set-All 0x03 mask")
	assert.Equal(t, StatePendingTimeout, k.tasks[a.id].State, "A remains blocked")

	n, err = g.Post(0x05, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StateReady, k.tasks[a.id].State)
	assert.Equal(t, uint64(0x03), k.tasks[a.id].flagReadyMask)
	assert.Equal(t, uint64(0x04), g.Flags(), "0x03 consumed on wake, 0x04 left over")
}

// 4. Mutex owned by a low-priority task; a high-priority task pends on
// it and boosts the owner to its own priority until post, at which
// point ownership transfers and the former owner reverts. An unrelated
// medium-priority task is present only to show it's untouched.
func Test_e2e_mutex_priority_inheritance_round_trip(t *testing.T) {
	k := testKernel(t, smallConfig())
	m, err := k.CreateMutex("M")
	assert.NoError(t, err)

	medium := mustCreateTask(t, k, "medium", 12)
	low := mustCreateTask(t, k, "low", 20)
	high := mustCreateTask(t, k, "high", 5)

	assert.NoError(t, m.Pend(low, 0))
	assert.Equal(t, 20, k.tasks[low.id].CurrentPriority)

	_ = m.Pend(high, 50)
	assert.Equal(t, 5, k.tasks[low.id].CurrentPriority, "low inherits high's priority")
	assert.Equal(t, 12, k.tasks[medium.id].CurrentPriority, "medium is never touched")

	assert.NoError(t, m.Post(low))
	assert.Equal(t, 20, k.tasks[low.id].CurrentPriority, "low reverts to its base priority")
	assert.Equal(t, high.id, m.owner, "ownership transfers to high")
}

// 5. Queue of capacity 2: two FIFO posts succeed, a third fails full;
// both buffered messages pend out in order; a subsequent pend with a
// 10-tick timeout against the now-empty queue times out exactly at
// tick 10.
func Test_e2e_queue_fills_drains_then_pend_times_out(t *testing.T) {
	k := testKernel(t, smallConfig())
	q, err := k.CreateQueue("Q", 2)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "A", 5)

	assert.NoError(t, q.Post("A", 1, QueueFIFO, Post1))
	assert.NoError(t, q.Post("B", 1, QueueFIFO, Post1))
	assertKernelErr(t, q.Post("C", 1, QueueFIFO, Post1), ErrQueueFull)

	p, _, err := q.Pend(a, 0)
	assert.NoError(t, err)
	assert.Equal(t, "A", p)

	p, _, err = q.Pend(a, 0)
	assert.NoError(t, err)
	assert.Equal(t, "B", p)

	k.readyRemove(a.id)
	assert.NoError(t, k.pend(q.header(), a.id, PendOnQueue, 10))

	for i := 0; i < 9; i++ {
		k.TimeTick()
		assert.Equal(t, StatePendingTimeout, k.tasks[a.id].State)
	}
	k.TimeTick() // tick 10: timeout fires
	assert.Equal(t, StateReady, k.tasks[a.id].State)
	assert.Equal(t, PendStatusTimedOut, k.tasks[a.id].PendStatus)
}

// 6. A one-shot timer with a 50-unit delay fires exactly once, never
// early, and is not fired again once deleted. Mirrors
// timerSubsystem.taskEntry's own per-wake advance/fire loop directly,
// since nothing drives the timer task's goroutine in these tests.
func Test_e2e_oneshot_timer_fires_exactly_once_at_deadline(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	counter := 0
	cb := func(*Timer, any) { counter++ }
	tm, err := k.CreateTimer("T", TimerOneShot, 50, 0, cb, nil)
	assert.NoError(t, err)
	assert.NoError(t, tm.Start())

	for i := 0; i < 49; i++ {
		fired := k.timerSub.advance(1)
		assert.Empty(t, fired)
	}
	assert.Equal(t, 0, counter)

	fired := k.timerSub.advance(1) // the 50th unit
	assert.Len(t, fired, 1)
	fired[0].state = TimerCompleted
	fired[0].callback(fired[0], fired[0].callbackArg)

	assert.Equal(t, 1, counter)
	assert.Equal(t, TimerCompleted, tm.State())

	assert.NoError(t, tm.Delete())
	assert.Equal(t, 1, counter, "deleting a completed, non-running timer never refires it")
}
