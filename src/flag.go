package kernel

// FlagMode selects what a waiter on an EventFlagGroup is waiting for.
// "Set" means wait for the specified bits to be 1; "Clear" means wait
// for them to be 0 (spec.md §4.7).
type FlagMode uint8

const (
	FlagSetAll FlagMode = iota
	FlagSetAny
	FlagClearAll
	FlagClearAny
)

// EventFlagGroup implements C8's event flags: a bitmask plus a pend
// list of waiters, each with its own mask/mode/consume option.
type EventFlagGroup struct {
	objHeader

	k     *Kernel
	flags uint64
}

// CreateEventFlagGroup allocates a flag group with the given initial
// bitmask.
func (k *Kernel) CreateEventFlagGroup(name string, initial uint64) (*EventFlagGroup, error) {
	if !k.Config.FlagsEnable {
		return nil, newErr("CreateEventFlagGroup", ErrInvalidOption)
	}
	g := &EventFlagGroup{objHeader: newObjHeader(ObjEventFlagGroup, name), k: k, flags: initial}
	k.registry.add(g)
	return g, nil
}

func flagSatisfied(mode FlagMode, mask, flags uint64) (bool, uint64) {
	switch mode {
	case FlagSetAll:
		return flags&mask == mask, flags & mask
	case FlagSetAny:
		hit := flags & mask
		return hit != 0, hit
	case FlagClearAll:
		return flags&mask == 0, mask &^ flags
	case FlagClearAny:
		hit := mask &^ flags
		return hit != 0, hit
	default:
		return false, 0
	}
}

// Pend blocks until mask is satisfied under mode (optionally consuming
// the matched bits atomically on wake), with an optional tick timeout.
// Returns the bits that satisfied the wait (flags_rdy).
func (g *EventFlagGroup) Pend(t *Task, mask uint64, mode FlagMode, consume bool, timeoutTicks int64) (uint64, error) {
	k := g.k
	s := k.enterCS()

	if g.deleted {
		k.exitCS(s)
		return 0, newErr("EventFlagGroup.Pend", ErrObjectDeletedWhilePending)
	}

	if ok, hit := flagSatisfied(mode, mask, g.flags); ok {
		if consume {
			applyConsume(g, mode, hit)
		}
		k.exitCS(s)
		return hit, nil
	}

	if timeoutTicks == 0 {
		k.exitCS(s)
		return 0, newErr("EventFlagGroup.Pend", ErrWouldBlock)
	}

	tcb := &k.tasks[t.id]
	tcb.flagPendMask = mask
	tcb.flagPendMode = mode
	tcb.flagPendConsume = consume
	tcb.flagReadyMask = 0

	if err := k.pend(&g.objHeader, t.id, PendOnEventFlag, timeoutTicks); err != nil {
		k.exitCS(s)
		return 0, err
	}
	k.exitCS(s)

	k.schedule()

	s = k.enterCS()
	defer k.exitCS(s)
	if err := pendStatusToErr("EventFlagGroup.Pend", tcb.PendStatus); err != nil {
		return 0, err
	}
	return tcb.flagReadyMask, nil
}

func applyConsume(g *EventFlagGroup, mode FlagMode, hit uint64) {
	switch mode {
	case FlagSetAll, FlagSetAny:
		g.flags &^= hit
	case FlagClearAll, FlagClearAny:
		g.flags |= hit
	}
}

// Post applies setMask/clearMask to the group's flags (set first, then
// clear, matching "Set or Clear masks the group's flags" read as an
// ordered pair of optional operations) and then scans the pend list in
// FIFO priority order, waking — and, per-waiter, consuming — every
// waiter now satisfied. Multiple waiters may be satisfied by one post;
// order is preserved (spec.md §4.7).
func (g *EventFlagGroup) Post(setMask, clearMask uint64) (woken int, err error) {
	k := g.k
	s := k.enterCS()

	if g.deleted {
		k.exitCS(s)
		return 0, newErr("EventFlagGroup.Post", ErrObjectDeletedWhilePending)
	}

	g.flags = (g.flags | setMask) &^ clearMask

	n := k.postPolicy(&g.objHeader, PostAll, func(id TaskID) bool {
		tcb := &k.tasks[id]
		ok, _ := flagSatisfied(tcb.flagPendMode, tcb.flagPendMask, g.flags)
		return ok
	}, func(id TaskID) {
		tcb := &k.tasks[id]
		_, hit := flagSatisfied(tcb.flagPendMode, tcb.flagPendMask, g.flags)
		tcb.flagReadyMask = hit
		if tcb.flagPendConsume {
			applyConsume(g, tcb.flagPendMode, hit)
		}
		k.post(&g.objHeader, id, nil, 0, k.now())
	})

	k.exitCS(s)
	k.schedule()
	return n, nil
}

// PendAbort and Delete mirror Semaphore's; a flag-group waiter carries
// no payload to clear beyond the standard message fields.
func (g *EventFlagGroup) PendAbort(opt PostOpt) (int, error) {
	k := g.k
	s := k.enterCS()
	if g.pendListEmpty() {
		k.exitCS(s)
		return 0, newErr("EventFlagGroup.PendAbort", ErrAbortNone)
	}
	n := k.postPolicy(&g.objHeader, opt, nil, func(id TaskID) {
		k.pendAbort(&g.objHeader, id, PendStatusAborted)
	})
	k.exitCS(s)
	k.schedule()
	return n, nil
}

func (g *EventFlagGroup) Delete() error {
	k := g.k
	s := k.enterCS()
	g.deleted = true
	k.postPolicy(&g.objHeader, PostAll, nil, func(id TaskID) {
		k.pendAbort(&g.objHeader, id, PendStatusDeleted)
	})
	k.registry.remove(g.Name)
	k.exitCS(s)
	k.schedule()
	return nil
}

func (g *EventFlagGroup) Flags() uint64 {
	k := g.k
	s := k.enterCS()
	defer k.exitCS(s)
	return g.flags
}

func (g *EventFlagGroup) Stats() ObjStats {
	k := g.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.objStats(&g.objHeader)
}
