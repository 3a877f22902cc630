package kernel

// TimerMode selects whether a Timer fires once or keeps re-arming
// itself every period.
type TimerMode uint8

const (
	TimerOneShot TimerMode = iota
	TimerPeriodic
)

// TimerState is a Timer's lifecycle state (spec.md §4.10).
type TimerState uint8

const (
	TimerStopped TimerState = iota
	TimerRunning
	TimerCompleted
)

// TimerCallback runs on the timer task when a Timer expires. It must
// not block: spec.md §4.10 requires callbacks to behave like a tiny
// ISR handler, consistent with uC/OS-III's os_tmr.c running callbacks
// directly on OSTmr_Task.
type TimerCallback func(tm *Timer, arg any)

// Timer implements C10: a one-shot or periodic deadline, serviced by
// the kernel's own dedicated timer task rather than the caller's.
// Grounded on uC/OS-III's os_tmr.c: a coarser-granularity delta list,
// independent of the main tick list, walked once per timer-task period
// (spec.md §4.10's "runs at its own, typically slower, rate").
type Timer struct {
	k    *Kernel
	name string

	mode   TimerMode
	dly    int64 // initial delay, in timer ticks
	period int64 // re-arm period for TimerPeriodic, in timer ticks

	callback    TimerCallback
	callbackArg any

	state TimerState

	next, prev *Timer
	delta      int64
}

// timerSubsystem owns the timer task's own delta list. List-pointer
// mutation happens with the kernel's ordinary critical section held,
// exactly like every other kernel list. mu/cond are the timer mutex and
// condition variable spec.md §4.10 names: the timer task takes mu once
// and holds it across its whole wait/advance/callback cycle, parking on
// cond (which releases mu for the actual sleep) instead of polling.
// Every other kernel list is guarded by the single global critical
// section alone; the timer list additionally gets this mutex so a
// timer callback can safely call back into Timer APIs (spec.md §5's
// "let callbacks safely re-enter timer APIs without disabling
// interrupts for callback duration") — Start/Stop/Set still mutate the
// list under the critical section directly, since they have no task
// identity to Pend as (see DESIGN.md).
type timerSubsystem struct {
	k    *Kernel
	head *Timer

	mu   *Mutex
	cond *Condition
}

func (ts *timerSubsystem) init(k *Kernel) {
	ts.k = k
	ts.head = nil
	ts.mu = &Mutex{objHeader: newObjHeader(ObjMutex, ""), k: k, owner: noTask}
	ts.cond = &Condition{objHeader: newObjHeader(ObjCondition, ""), k: k, m: ts.mu}
}

// CreateTimer allocates a stopped timer. dly is the initial delay
// before first expiry; period is the re-arm interval for
// TimerPeriodic (ignored for TimerOneShot). Both are expressed in
// timer ticks, i.e. units of the timer task's own period
// (Config.TimerTickRate), not the system tick.
func (k *Kernel) CreateTimer(name string, mode TimerMode, dly, period int64, cb TimerCallback, arg any) (*Timer, error) {
	if !k.Config.TimerEnable {
		return nil, newErr("CreateTimer", ErrInvalidOption)
	}
	if dly <= 0 || cb == nil {
		return nil, newErr("CreateTimer", ErrInvalidTick)
	}
	if mode == TimerPeriodic && period <= 0 {
		return nil, newErr("CreateTimer", ErrInvalidTick)
	}
	return &Timer{
		k: k, name: name, mode: mode, dly: dly, period: period,
		callback: cb, callbackArg: arg, state: TimerStopped,
	}, nil
}

// Start (re)arms the timer from its initial delay. Starting an
// already-running timer restarts it from dly. Signals the timer task's
// condition variable if the list's head deadline changed — inserting
// into an empty list or ahead of the current head — so the wait loop
// recomputes its timeout instead of sleeping past the new deadline.
func (tm *Timer) Start() error {
	k := tm.k
	s := k.enterCS()
	signal := false
	if tm.state == TimerRunning {
		if k.timerSub.unlink(tm) {
			signal = true
		}
	}
	tm.state = TimerRunning
	if k.timerSub.insert(tm, tm.dly) {
		signal = true
	}
	k.exitCS(s)
	if signal {
		k.timerSub.cond.Signal()
	}
	return nil
}

// Stop halts a running timer and leaves it in TimerStopped; it is not
// an error on an already stopped/completed timer, and a completed timer
// also ends up TimerStopped (spec.md §4.10). Signals if the removed
// timer was the list head.
func (tm *Timer) Stop() error {
	k := tm.k
	s := k.enterCS()
	signal := false
	if tm.state == TimerRunning {
		signal = k.timerSub.unlink(tm)
	}
	tm.state = TimerStopped
	k.exitCS(s)
	if signal {
		k.timerSub.cond.Signal()
	}
	return nil
}

// Set reconfigures dly/period; the timer must not currently be running
// (Stop it first), matching uC/OS-III's OSTmrSet restriction.
func (tm *Timer) Set(dly, period int64) error {
	k := tm.k
	s := k.enterCS()
	defer k.exitCS(s)
	if tm.state == TimerRunning {
		return newErr("Timer.Set", ErrInvalidOption)
	}
	if dly <= 0 {
		return newErr("Timer.Set", ErrInvalidTick)
	}
	if tm.mode == TimerPeriodic && period <= 0 {
		return newErr("Timer.Set", ErrInvalidTick)
	}
	tm.dly = dly
	tm.period = period
	return nil
}

func (tm *Timer) State() TimerState {
	k := tm.k
	s := k.enterCS()
	defer k.exitCS(s)
	return tm.state
}

// Delete stops and discards the timer.
func (tm *Timer) Delete() error {
	return tm.Stop()
}

// insert links tm into the delta list with the given number of
// timer-ticks remaining, the same delta-compression scheme as
// ticklist.go's tick list. Returns true if tm became the new head
// (linked in ahead of every existing entry, or into a previously empty
// list) — the two conditions spec.md §4.10 names for signaling the
// timer task's condition variable.
func (ts *timerSubsystem) insert(tm *Timer, ticks int64) bool {
	remaining := ticks
	var prev *Timer
	cur := ts.head
	for cur != nil {
		if remaining <= cur.delta {
			cur.delta -= remaining
			break
		}
		remaining -= cur.delta
		prev = cur
		cur = cur.next
	}

	tm.delta = remaining
	tm.prev = prev
	tm.next = cur

	if prev == nil {
		ts.head = tm
	} else {
		prev.next = tm
	}
	if cur != nil {
		cur.prev = tm
	}
	return prev == nil
}

// unlink removes tm from the delta list, folding its remaining delta
// into whatever follows it. Returns true if tm was the head — the
// other signal-worthy condition spec.md §4.10 names.
func (ts *timerSubsystem) unlink(tm *Timer) bool {
	wasHead := ts.head == tm
	if tm.next != nil {
		tm.next.delta += tm.delta
		tm.next.prev = tm.prev
	}
	if tm.prev != nil {
		tm.prev.next = tm.next
	} else if ts.head == tm {
		ts.head = tm.next
	}
	tm.next, tm.prev, tm.delta = nil, nil, 0
	return wasHead
}

// advance folds n elapsed timer-ticks into the delta list, firing
// (and, for periodic timers, re-arming) every timer whose deadline has
// now elapsed. Precondition: critical section held.
func (ts *timerSubsystem) advance(n int64) []*Timer {
	if ts.head == nil {
		return nil
	}
	ts.head.delta -= n

	var fired []*Timer
	for ts.head != nil && ts.head.delta <= 0 {
		tm := ts.head
		leftover := -tm.delta

		ts.head = tm.next
		if ts.head != nil {
			ts.head.prev = nil
		}
		tm.next, tm.prev, tm.delta = nil, nil, 0

		fired = append(fired, tm)

		if ts.head != nil && leftover > 0 {
			ts.head.delta -= leftover
		}
	}
	return fired
}

// taskEntry is the body of the kernel's dedicated timer task, created
// in Init: take the mutex once, then forever wait on the condition
// variable with a timeout equal to the delta list's head deadline (0 =
// forever, on an empty list), per spec.md §4.10. On wake, it computes
// actual elapsed wall-time since the last base — rather than assuming
// exactly one period elapsed — folds that into the delta list, and
// invokes every expired callback while still holding the mutex, so a
// callback may freely call back into Timer APIs.
func (ts *timerSubsystem) taskEntry(arg any) {
	k := ts.k
	self := &Task{k: k, id: k.timerTaskID}
	rate := int64(k.Config.TimerTickRate)
	if rate <= 0 {
		rate = 1
	}

	if err := ts.mu.Pend(self, 0); err != nil {
		return
	}
	lastBase := k.TimeGet()

	for {
		s := k.enterCS()
		var timeout int64
		if ts.head != nil {
			timeout = ts.head.delta * rate
			if timeout <= 0 {
				timeout = rate
			}
		}
		k.exitCS(s)

		// The wait's own outcome (timed out vs. signaled) doesn't matter
		// here: either way the right move is to fold whatever wall-time
		// actually elapsed into the delta list and let it decide what,
		// if anything, fired.
		_ = ts.cond.Wait(self, timeout)

		now := k.TimeGet()
		elapsed := (now - lastBase) / rate
		if elapsed <= 0 {
			continue
		}
		lastBase += elapsed * rate

		s = k.enterCS()
		fired := ts.advance(elapsed)
		for _, tm := range fired {
			tm.state = TimerCompleted
			if tm.mode == TimerPeriodic {
				tm.state = TimerRunning
				ts.insert(tm, tm.period)
			}
		}
		k.exitCS(s)

		for _, tm := range fired {
			tm.callback(tm, tm.callbackArg)
		}
	}
}
