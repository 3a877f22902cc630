package kernel

// tickList is the single delta-linked list of C4: every task with a
// pending timeout (Delayed, or Pending+Timeout, including their
// Suspended variants) is linked here, ordered by absolute deadline, with
// each node storing only the delta from the preceding node. Grounded on
// uC/OS-III os_tick.c's delta-list algorithm, which spec.md §4.2
// describes directly.
type tickList struct {
	head TaskID
}

func newTickList() tickList {
	return tickList{head: noTask}
}

// tickInsert links task into the tick list with the given number of
// ticks remaining (already resolved from a relative/absolute delay by
// the caller). Returns ErrZeroDelay if ticks <= 0: spec.md §4.2 treats a
// deadline that has already elapsed as "insertion fails, caller
// continues without blocking".
func (k *Kernel) tickInsert(id TaskID, ticks int64) error {
	if ticks <= 0 {
		return newErr("tickInsert", ErrZeroDelay)
	}

	t := &k.tasks[id]
	tl := &k.tick

	remaining := ticks
	var prev TaskID = noTask
	cur := tl.head
	for cur != noTask {
		ct := &k.tasks[cur]
		if remaining <= ct.tickDelta {
			ct.tickDelta -= remaining
			break
		}
		remaining -= ct.tickDelta
		prev = cur
		cur = ct.tickNext
	}

	t.tickDelta = remaining
	t.tickPrev = prev
	t.tickNext = cur

	if prev == noTask {
		tl.head = id
	} else {
		k.tasks[prev].tickNext = id
	}
	if cur != noTask {
		k.tasks[cur].tickPrev = id
	}

	if tl.head == id {
		k.reprogramDynTick()
	}
	return nil
}

// tickRemove unlinks task from the tick list, folding its delta into
// its successor so every remaining node's absolute deadline is
// preserved.
func (k *Kernel) tickRemove(id TaskID) {
	t := &k.tasks[id]
	tl := &k.tick

	wasHead := tl.head == id

	if t.tickNext != noTask {
		k.tasks[t.tickNext].tickDelta += t.tickDelta
		k.tasks[t.tickNext].tickPrev = t.tickPrev
	}
	if t.tickPrev != noTask {
		k.tasks[t.tickPrev].tickNext = t.tickNext
	} else {
		tl.head = t.tickNext
	}

	t.tickNext = noTask
	t.tickPrev = noTask
	t.tickDelta = 0

	if wasHead {
		k.reprogramDynTick()
	}
}

// tickAdvance subtracts n ticks from the head of the list, popping and
// unblocking every task whose deadline has now elapsed (C4's advance
// operation). It is the work done inside TimeTick/TimeDynTick.
func (k *Kernel) tickAdvance(n int64) {
	tl := &k.tick
	if tl.head == noTask {
		return
	}

	k.tasks[tl.head].tickDelta -= n

	for tl.head != noTask && k.tasks[tl.head].tickDelta <= 0 {
		id := tl.head
		t := &k.tasks[id]
		leftover := -t.tickDelta

		tl.head = t.tickNext
		if tl.head != noTask {
			k.tasks[tl.head].tickPrev = noTask
		}
		t.tickNext = noTask
		t.tickPrev = noTask
		t.tickDelta = 0

		k.tickExpire(id)

		if tl.head != noTask && leftover > 0 {
			k.tasks[tl.head].tickDelta -= leftover
		}
	}

	k.reprogramDynTick()
}

// tickExpire transitions a task whose deadline has elapsed: Delayed ->
// Ready, Pending+Timeout -> Ready with pend-status TimedOut (after
// leaving its pend list), and their Suspended counterparts stay
// Suspended without being readied (spec.md §4.2).
func (k *Kernel) tickExpire(id TaskID) {
	t := &k.tasks[id]

	if t.State.hasPend() {
		t.PendStatus = PendStatusTimedOut
		if obj := t.PendObject; obj != nil {
			k.removePend(obj.header(), id)
			t.PendObject = nil
		}
		t.PendingOn = PendOnNothing
		clearTaskMessage(t)
	}

	if t.State.hasSuspend() {
		t.State = StateSuspended
		return
	}

	t.State = StateReady
	k.readyInsertTail(id)
	k.logTaskEvent(id, "tick-expire -> ready")
}

// reprogramDynTick implements spec.md §4.2's dynamic-tick variant: after
// any insertion/removal that changes the head, the next hardware
// deadline is reprogrammed to the new head's delta via the port.
func (k *Kernel) reprogramDynTick() {
	if !k.Config.DynamicTick || k.port == nil {
		return
	}
	if k.tick.head == noTask {
		k.port.DynTickSet(0)
		return
	}
	k.port.DynTickSet(k.tasks[k.tick.head].tickDelta)
}

func clearTaskMessage(t *TCB) {
	t.msgPayload = nil
	t.msgSize = 0
	t.msgTimestamp = 0
}
