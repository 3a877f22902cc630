package kernel

// schedule implements C6: pick the highest-ready task and, if it
// differs from the one currently running, invoke the port's context
// switch. It is a no-op while interrupts are nested, while the
// scheduler is locked, or before the kernel has started, per spec.md
// §4.4.
func (k *Kernel) schedule() {
	s := k.enterCS()
	if k.intNesting > 0 || k.schedLockNesting > 0 || !k.started {
		k.exitCS(s)
		return
	}

	next := k.findHighestReady()
	if next == noTask || next == k.running {
		k.exitCS(s)
		return
	}

	prev := k.running
	// The running task is not linked into the ready list, so
	// findHighestReady never sees it: it keeps the CPU unless next
	// strictly outranks it. A running task that has been linked back in
	// (a round-robin yield or quantum expiry) has given up its turn.
	if prev != noTask && k.tasks[prev].State == StateReady {
		pt := &k.tasks[prev]
		inReady := pt.readyPrev != noTask || k.ready.head[pt.CurrentPriority] == prev
		if !inReady && pt.CurrentPriority <= k.tasks[next].CurrentPriority {
			k.exitCS(s)
			return
		}
	}
	k.readyRemove(next)
	// A preempted-but-still-Ready task wasn't removed from the ready
	// list by anything else (it didn't block, suspend, or voluntarily
	// yield) — schedule() must put it back itself, at the head of its
	// priority's FIFO since it didn't finish its turn voluntarily.
	if prev != noTask && k.tasks[prev].State == StateReady {
		k.readyInsertHead(prev)
	}
	k.running = next
	k.exitCS(s)

	// A nil port means a pure-logic/unit-test Kernel with no real
	// concurrency to switch between; just record the new "running" id.
	if k.port == nil {
		return
	}
	k.port.ContextSwitchFromTo(prev, next)
}

// SchedLock/SchedUnlock implement spec.md §4.4's scheduler lock: an
// in-task nesting counter that, while > 0, prevents the scheduler from
// switching tasks. Locking from an ISR and over-unlocking both fail.
func (k *Kernel) SchedLock() error {
	s := k.enterCS()
	defer k.exitCS(s)
	if k.Config.ISRCheckEnable && k.intNesting > 0 {
		return newErr("SchedLock", ErrCalledFromISR)
	}
	k.schedLockNesting++
	return nil
}

func (k *Kernel) SchedUnlock() error {
	s := k.enterCS()
	unlockedFully := false
	var err error
	if k.schedLockNesting == 0 {
		err = newErr("SchedUnlock", ErrSchedulerLocked)
	} else {
		k.schedLockNesting--
		unlockedFully = k.schedLockNesting == 0
	}
	k.exitCS(s)
	if err != nil {
		return err
	}
	if unlockedFully {
		k.schedule()
	}
	return nil
}

// RoundRobinCfg enables/disables round robin and sets the default
// quantum, subject to spec.md §9's exclusion with dynamic tick.
func (k *Kernel) RoundRobinCfg(enable bool, defaultQuantum int) error {
	if enable && k.Config.DynamicTick {
		return newErr("RoundRobinCfg", ErrInvalidOption)
	}
	s := k.enterCS()
	k.Config.RoundRobinEnable = enable
	if defaultQuantum > 0 {
		k.Config.RoundRobinDefaultQuantum = defaultQuantum
	}
	k.exitCS(s)
	return nil
}

// RoundRobinYield moves the running task to the tail of its own
// priority's ready FIFO and reschedules, regardless of whether its
// quantum has been consumed.
func (k *Kernel) RoundRobinYield() {
	s := k.enterCS()
	if k.running == noTask {
		k.exitCS(s)
		return
	}
	id := k.running
	t := &k.tasks[id]
	t.quantumRemain = t.quantum
	k.readyInsertTail(id)
	k.exitCS(s)
	k.schedule()
}

// roundRobinTick is called once per tick (from tickAdvance's caller)
// to decrement the running task's quantum counter and, on reaching
// zero, move it to the tail of its FIFO (spec.md §4.4).
func (k *Kernel) roundRobinTick() {
	if !k.Config.RoundRobinEnable || k.running == noTask {
		return
	}
	t := &k.tasks[k.running]
	if t.quantumRemain <= 0 {
		return
	}
	t.quantumRemain--
	if t.quantumRemain == 0 {
		id := k.running
		t.quantumRemain = t.quantum
		k.readyInsertTail(id)
	}
}
