package kernel

// Semaphore is a counting semaphore (C8): a nonnegative counter plus a
// pend list. Posting with no waiters increments the counter; posting
// with at least one waiter hands the post directly to the head waiter
// (Post1) or to every waiter (PostAll) without ever touching the
// counter, since the post is being delivered rather than banked.
type Semaphore struct {
	objHeader

	k     *Kernel
	count uint32
}

// CreateSemaphore allocates a semaphore with the given initial count.
func (k *Kernel) CreateSemaphore(name string, initial uint32) (*Semaphore, error) {
	if !k.Config.SemaphoreEnable {
		return nil, newErr("CreateSemaphore", ErrInvalidOption)
	}
	sm := &Semaphore{objHeader: newObjHeader(ObjSemaphore, name), k: k, count: initial}
	k.registry.add(sm)
	return sm, nil
}

// Pend blocks until the semaphore's count is nonzero (consuming one
// count) or a waiter is posted to directly, with an optional tick
// timeout. timeoutTicks == 0 means nonblocking: returns ErrWouldBlock
// immediately if the count is zero.
func (sm *Semaphore) Pend(t *Task, timeoutTicks int64) error {
	k := sm.k
	if k.Config.ISRCheckEnable && k.intNesting > 0 && timeoutTicks != 0 {
		return newErr("Semaphore.Pend", ErrCalledFromISRWouldBlock)
	}

	s := k.enterCS()

	if sm.deleted {
		k.exitCS(s)
		return newErr("Semaphore.Pend", ErrObjectDeletedWhilePending)
	}

	if sm.count > 0 {
		sm.count--
		k.exitCS(s)
		return nil
	}

	if timeoutTicks == 0 {
		k.exitCS(s)
		return newErr("Semaphore.Pend", ErrWouldBlock)
	}

	if err := k.pend(&sm.objHeader, t.id, PendOnSemaphore, timeoutTicks); err != nil {
		k.exitCS(s)
		return err
	}
	k.exitCS(s)

	k.schedule()

	s = k.enterCS()
	defer k.exitCS(s)
	return pendStatusToErr("Semaphore.Pend", k.tasks[t.id].PendStatus)
}

// Post implements the Open Question decision of SPEC_FULL.md §5: the
// overflow check happens BEFORE any waiter is woken, so a saturated
// semaphore fails the post cleanly rather than (as the uC/OS-III source
// does) waking a waiter and then separately reporting overflow.
func (sm *Semaphore) Post(opt PostOpt) error {
	k := sm.k
	s := k.enterCS()
	defer func() {
		k.exitCS(s)
		if opt != PostNoSched {
			k.schedule()
		}
	}()

	if sm.deleted {
		return newErr("Semaphore.Post", ErrObjectDeletedWhilePending)
	}

	if sm.pendListEmpty() {
		if sm.count == ^uint32(0) {
			return newErr("Semaphore.Post", ErrInvalidOption)
		}
		sm.count++
		return nil
	}

	k.postPolicy(&sm.objHeader, opt, nil, func(id TaskID) {
		k.post(&sm.objHeader, id, nil, 0, k.now())
	})
	return nil
}

// PendAbort forcibly wakes one (opt == Post1) or all (opt == PostAll)
// waiters with PendStatusAborted, without touching the counter.
func (sm *Semaphore) PendAbort(opt PostOpt) (int, error) {
	k := sm.k
	s := k.enterCS()

	if sm.pendListEmpty() {
		k.exitCS(s)
		return 0, newErr("Semaphore.PendAbort", ErrAbortNone)
	}

	n := k.postPolicy(&sm.objHeader, opt, nil, func(id TaskID) {
		k.pendAbort(&sm.objHeader, id, PendStatusAborted)
	})
	k.exitCS(s)
	k.schedule()
	return n, nil
}

// Delete unblocks every waiter with PendStatusDeleted before the
// semaphore's storage is considered free.
func (sm *Semaphore) Delete() error {
	k := sm.k
	s := k.enterCS()
	sm.deleted = true
	k.postPolicy(&sm.objHeader, PostAll, nil, func(id TaskID) {
		k.pendAbort(&sm.objHeader, id, PendStatusDeleted)
	})
	k.registry.remove(sm.Name)
	k.exitCS(s)
	k.schedule()
	return nil
}

// Count returns the current counter value.
func (sm *Semaphore) Count() uint32 {
	k := sm.k
	s := k.enterCS()
	defer k.exitCS(s)
	return sm.count
}

func (sm *Semaphore) Stats() ObjStats {
	k := sm.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.objStats(&sm.objHeader)
}

// pendStatusToErr is the common dispatch every Pend() wrapper performs
// on resumption, per spec.md §4.3.
func pendStatusToErr(op string, status PendStatus) error {
	switch status {
	case PendStatusOK:
		return nil
	case PendStatusTimedOut:
		return newErr(op, ErrTimeout)
	case PendStatusDeleted:
		return newErr(op, ErrObjectDeletedWhilePending)
	case PendStatusAborted:
		return newErr(op, ErrAborted)
	default:
		return newErr(op, ErrInvalidPendStatus)
	}
}
