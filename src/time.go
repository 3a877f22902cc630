package kernel

import "fmt"

// Delay blocks the calling task for ticks system ticks (C11's Delay
// family). Unlike Pend, a delayed task is linked directly into the
// tick list with no pend-list membership at all — there is no object
// to wait on, so tickExpire's non-pend branch simply readies it again
// (ticklist.go).
func (t *Task) Delay(ticks int64) error {
	k := t.k
	if ticks <= 0 {
		return newErr("Delay", ErrZeroDelay)
	}
	s := k.enterCS()
	if k.Config.ISRCheckEnable && k.intNesting > 0 {
		k.exitCS(s)
		return newErr("Delay", ErrCalledFromISR)
	}

	tcb := &k.tasks[t.id]
	if tcb.State == StateReady {
		k.readyRemove(t.id)
	}
	tcb.State |= stateBitDelay
	if err := k.tickInsert(t.id, ticks); err != nil {
		k.exitCS(s)
		return err
	}
	k.exitCS(s)
	k.schedule()
	return nil
}

// DelayHMSM converts an hours/minutes/seconds/milliseconds duration to
// ticks at the kernel's configured tick rate and delays for that long.
// All components must be non-negative and seconds/minutes must be <
// 60, hours unrestricted (spec.md §6).
func (t *Task) DelayHMSM(h, m, s, ms int) error {
	if h < 0 || m < 0 || m >= 60 || s < 0 || s >= 60 || ms < 0 || ms >= 1000 {
		return newErr("DelayHMSM", ErrInvalidHMSM)
	}
	k := t.k
	totalMs := int64(h)*3600_000 + int64(m)*60_000 + int64(s)*1000 + int64(ms)
	ticks := totalMs * int64(k.Config.TickRateHz) / 1000
	if ticks <= 0 {
		return newErr("DelayHMSM", ErrZeroDelay)
	}
	return t.Delay(ticks)
}

// DelayPeriodic delays until the next multiple of period ticks past the
// task's running anchor (prevDlyTick), correcting for jitter in the
// caller's own execution time the way a plain repeated Delay(period)
// cannot: if the task is resumed late, catch-up skips forward to the
// next boundary strictly in the future rather than returning
// immediately (spec.md §4.2/§6).
func (t *Task) DelayPeriodic(period int64) error {
	if period <= 0 {
		return newErr("DelayPeriodic", ErrInvalidDelay)
	}
	k := t.k
	s := k.enterCS()
	if k.Config.ISRCheckEnable && k.intNesting > 0 {
		k.exitCS(s)
		return newErr("DelayPeriodic", ErrCalledFromISR)
	}

	tcb := &k.tasks[t.id]
	now := k.tickCounter
	if tcb.prevDlyTick == 0 {
		tcb.prevDlyTick = now
	}
	next := tcb.prevDlyTick + period
	if next <= now {
		missed := (now-tcb.prevDlyTick)/period + 1
		next = tcb.prevDlyTick + missed*period
	}
	tcb.prevDlyTick = next

	if tcb.State == StateReady {
		k.readyRemove(t.id)
	}
	tcb.State |= stateBitDelay
	if err := k.tickInsert(t.id, next-now); err != nil {
		k.exitCS(s)
		return err
	}
	k.exitCS(s)
	k.schedule()
	return nil
}

// DelayResume wakes a task blocked in Delay/DelayPeriodic/DelayHMSM
// early, as if its deadline had elapsed right now. Fails if the task
// isn't currently delayed (spec.md §6).
func (t *Task) DelayResume() error {
	k := t.k
	s := k.enterCS()

	tcb := &k.tasks[t.id]
	if !tcb.State.hasDelay() || tcb.State.hasPend() {
		k.exitCS(s)
		return newErr("DelayResume", ErrInvalidTaskState)
	}

	k.tickRemove(t.id)
	if tcb.State.hasSuspend() {
		tcb.State = StateSuspended
		k.exitCS(s)
		return nil
	}
	tcb.State = StateReady
	k.readyInsertTail(t.id)
	k.exitCS(s)
	k.schedule()
	return nil
}

func (t *Task) String() string {
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)
	tcb := &k.tasks[t.id]
	return fmt.Sprintf("Task{%s prio=%d state=%s}", tcb.Name, tcb.CurrentPriority, tcb.State)
}
