package kernel

// Condition implements C10's condition variable: built directly on the
// mutex + pend/post core rather than as a primitive of its own (spec.md
// §4.10). Wait releases the bound mutex, pends on the condition's own
// list, and reacquires the mutex on wake; Signal/Broadcast wake waiters
// through the same postPolicy machinery every other waitable object
// uses. Priority inheritance extends through the reacquire step, since
// it goes through Mutex.pendInternal exactly as an ordinary contended
// Mutex.Pend would.
//
// Unlike every sibling primitive, timeoutTicks == 0 on Wait means wait
// forever rather than nonblocking — a condition variable has no
// nonblocking mode, since waiting for a condition that doesn't hold yet
// is the entire point. k.pend already treats timeout <= 0 as "block
// forever" at the low level; Wait passes timeoutTicks straight through
// instead of layering Pend/Semaphore/Queue's "0 = fail fast" convention
// on top of it.
type Condition struct {
	objHeader

	k *Kernel
	m *Mutex
}

// CreateCondition allocates a condition variable bound to m. Callers
// must hold m across every Wait/Signal/Broadcast, as with any condvar.
func (k *Kernel) CreateCondition(name string, m *Mutex) (*Condition, error) {
	c := &Condition{objHeader: newObjHeader(ObjCondition, name), k: k, m: m}
	k.registry.add(c)
	return c, nil
}

// Wait releases m (which the caller must currently own) and blocks
// until signaled or timeoutTicks elapses (0 = forever), then reacquires
// m — blocking indefinitely if it's contended on the way back in — so
// that by the time Wait returns, the caller again holds m exactly as a
// condition variable's contract requires, independent of why Wait woke.
func (c *Condition) Wait(t *Task, timeoutTicks int64) error {
	k := c.k
	s := k.enterCS()
	if c.deleted {
		k.exitCS(s)
		return newErr("Condition.Wait", ErrObjectDeletedWhilePending)
	}
	if c.m.owner != t.id {
		k.exitCS(s)
		return newErr("Condition.Wait", ErrMutexNotOwner)
	}
	k.exitCS(s)

	if err := c.m.Post(t); err != nil {
		return err
	}

	s = k.enterCS()
	if err := k.pend(&c.objHeader, t.id, PendOnCondition, timeoutTicks); err != nil {
		k.exitCS(s)
		_ = c.m.pendInternal(t, 0, true)
		return err
	}
	k.exitCS(s)

	k.schedule()

	s = k.enterCS()
	status := k.tasks[t.id].PendStatus
	k.exitCS(s)
	waitErr := pendStatusToErr("Condition.Wait", status)

	if err := c.m.pendInternal(t, 0, true); err != nil {
		return err
	}
	return waitErr
}

// Signal wakes the highest-priority waiter, if any. A signal with no
// waiters is a legal no-op, unlike Semaphore/Mutex PendAbort's
// ErrAbortNone — signaling a condition nobody is waiting on is
// routine, not a caller error.
func (c *Condition) Signal() error {
	k := c.k
	s := k.enterCS()
	if c.deleted {
		k.exitCS(s)
		return newErr("Condition.Signal", ErrObjectDeletedWhilePending)
	}
	k.postPolicy(&c.objHeader, Post1, nil, func(id TaskID) {
		k.post(&c.objHeader, id, nil, 0, k.now())
	})
	k.exitCS(s)
	k.schedule()
	return nil
}

// Broadcast wakes every waiter.
func (c *Condition) Broadcast() error {
	k := c.k
	s := k.enterCS()
	if c.deleted {
		k.exitCS(s)
		return newErr("Condition.Broadcast", ErrObjectDeletedWhilePending)
	}
	k.postPolicy(&c.objHeader, PostAll, nil, func(id TaskID) {
		k.post(&c.objHeader, id, nil, 0, k.now())
	})
	k.exitCS(s)
	k.schedule()
	return nil
}

// Delete aborts every waiter with PendStatusDeleted.
func (c *Condition) Delete() error {
	k := c.k
	s := k.enterCS()
	c.deleted = true
	k.postPolicy(&c.objHeader, PostAll, nil, func(id TaskID) {
		k.pendAbort(&c.objHeader, id, PendStatusDeleted)
	})
	k.registry.remove(c.Name)
	k.exitCS(s)
	k.schedule()
	return nil
}

func (c *Condition) Stats() ObjStats {
	k := c.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.objStats(&c.objHeader)
}
