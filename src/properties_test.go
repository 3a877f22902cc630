package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// propConfig gives property tests enough task/priority headroom that
// random draws don't collide with MaxTasks/MaxPriorities limits.
func propConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxPriorities = 64
	cfg.MaxTasks = 64
	cfg.IdleTaskPriority = 63
	cfg.StatTaskPriority = 62
	cfg.TimerTaskPriority = 61
	return cfg
}

// Test_DelayPeriodic_deadline_always_strictly_future checks spec.md's
// periodic-delay property: no matter how late a task is resumed (even
// arbitrarily many periods behind), the next computed deadline is
// always strictly after the current tick count — it never returns a
// deadline in the past or "now" itself.
func Test_DelayPeriodic_deadline_always_strictly_future(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := unstartedKernel(t, propConfig())
		a := mustCreateTask(t, k, "a", 5)

		period := rapid.Int64Range(1, 1000).Draw(rt, "period")
		assert.NoError(t, a.DelayPeriodic(period))

		lateness := rapid.Int64Range(0, 20000).Draw(rt, "lateness")
		k.tickCounter = k.tasks[a.id].prevDlyTick + lateness

		assert.NoError(t, a.DelayPeriodic(period))

		assert.Greater(t, k.tasks[a.id].prevDlyTick, k.tickCounter)
		assert.Greater(t, k.tasks[a.id].tickDelta, int64(0))
	})
}

// Test_DelayPeriodic_anchor_always_a_multiple_of_period_from_origin
// checks that catch-up always lands exactly on a period boundary
// rather than drifting by the lateness amount — the whole point of
// anchoring to prevDlyTick instead of "now + period".
func Test_DelayPeriodic_anchor_always_a_multiple_of_period_from_origin(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := unstartedKernel(t, propConfig())
		a := mustCreateTask(t, k, "a", 5)

		period := rapid.Int64Range(1, 500).Draw(rt, "period")
		assert.NoError(t, a.DelayPeriodic(period))
		origin := k.tasks[a.id].prevDlyTick // == period, the first anchor

		lateness := rapid.Int64Range(0, 10000).Draw(rt, "lateness")
		k.tickCounter = origin + lateness

		assert.NoError(t, a.DelayPeriodic(period))

		assert.Equal(t, int64(0), (k.tasks[a.id].prevDlyTick-origin)%period)
	})
}

// Test_effectivePriority_is_min_of_base_and_all_waiter_priorities
// exercises spec.md invariant 4 directly: a task's effective priority
// is always the numerically smallest of its base priority and every
// current waiter across every mutex it owns.
func Test_effectivePriority_is_min_of_base_and_all_waiter_priorities(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := unstartedKernel(t, propConfig())

		base := rapid.IntRange(20, 60).Draw(rt, "base")
		owner := mustCreateTask(t, k, "owner", base)

		waiterPrios := rapid.SliceOfN(rapid.IntRange(0, 19), 0, 5).Draw(rt, "waiterPrios")

		want := base
		for i, wp := range waiterPrios {
			m, err := k.CreateMutex("m")
			assert.NoError(t, err)
			assert.NoError(t, m.Pend(owner, 0))

			waiter := mustCreateTask(t, k, "w", wp)
			_ = i
			k.insertPend(m.header(), waiter.id)

			if wp < want {
				want = wp
			}
		}

		assert.Equal(t, want, k.effectivePriority(owner.id))
	})
}

// Test_tickAdvance_expires_exactly_the_deadlines_covered checks the
// delta-list invariant: advancing by n ticks readies exactly the set
// of tasks whose absolute deadline is <= n, and leaves every other
// task's absolute deadline (head-to-node delta sum) unchanged.
func Test_tickAdvance_expires_exactly_the_deadlines_covered(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := unstartedKernel(t, propConfig())

		n := rapid.IntRange(1, 10).Draw(rt, "n")
		deadlines := make([]int64, n)
		ids := make([]TaskID, n)
		for i := 0; i < n; i++ {
			d := rapid.Int64Range(1, 200).Draw(rt, "deadline")
			deadlines[i] = d
			task := mustCreateTask(t, k, "t", 5)
			k.readyRemove(task.id)
			k.tasks[task.id].State = StateDelayed
			assert.NoError(t, k.tickInsert(task.id, d))
			ids[i] = task.id
		}

		advanceBy := rapid.Int64Range(1, 250).Draw(rt, "advanceBy")
		k.tickAdvance(advanceBy)

		for i, id := range ids {
			if deadlines[i] <= advanceBy {
				assert.Equal(t, StateReady, k.tasks[id].State, "deadline %d should have expired by %d", deadlines[i], advanceBy)
			} else {
				assert.Equal(t, StateDelayed, k.tasks[id].State, "deadline %d should not have expired by %d", deadlines[i], advanceBy)
			}
		}
	})
}
