package kernel

// Mutex implements C9: a binary mutual-exclusion semaphore with
// priority inheritance. Deliberately NOT built on sync.Mutex — the
// whole point of this type is to expose the ownership/priority state
// sync.Mutex hides, so its body is hand-rolled against the pend/post
// core the same way uC/OS-III's os_mutex.c is hand-rolled against its
// own kernel core.
type Mutex struct {
	objHeader

	k *Kernel

	owner       TaskID
	nestingCtr  uint32
	ownerNext   *Mutex // threads the owner's owned-mutex list
}

// CreateMutex allocates and initializes an unowned mutex.
func (k *Kernel) CreateMutex(name string) (*Mutex, error) {
	if !k.Config.MutexEnable {
		return nil, newErr("CreateMutex", ErrInvalidOption)
	}
	m := &Mutex{
		objHeader: newObjHeader(ObjMutex, name),
		k:         k,
		owner:     noTask,
	}
	k.registry.add(m)
	return m, nil
}

// Pend acquires the mutex, blocking (optionally with a timeout) if it's
// held by another task. If the caller's priority is higher than the
// current owner's effective priority, the owner is boosted to the
// caller's priority for the duration of the wait (priority inheritance,
// spec.md §4.6).
func (m *Mutex) Pend(t *Task, timeoutTicks int64) error {
	if m.k.Config.ISRCheckEnable && m.k.intNesting > 0 {
		return newErr("Mutex.Pend", ErrCalledFromISRWouldBlock)
	}
	return m.pendInternal(t, timeoutTicks, false)
}

// pendInternal is Pend's body, parameterized over blockForever: the
// public API's timeoutTicks == 0 means "fail fast" (ErrWouldBlock), but
// Condition.Wait's reacquire-after-wake step (condition.go) needs a
// contended timeoutTicks == 0 acquire to block indefinitely instead,
// matching the mutex semantics a condition variable's caller expects on
// return from Wait.
func (m *Mutex) pendInternal(t *Task, timeoutTicks int64, blockForever bool) error {
	k := m.k
	s := k.enterCS()

	if m.deleted {
		k.exitCS(s)
		return newErr("Mutex.Pend", ErrObjectDeletedWhilePending)
	}

	if m.nestingCtr == 0 {
		m.owner = t.id
		m.nestingCtr = 1
		m.ownerNext = k.tasks[t.id].ownedMutexHead
		k.tasks[t.id].ownedMutexHead = m
		k.exitCS(s)
		return nil
	}

	if m.owner == t.id {
		if m.nestingCtr == ^uint32(0) {
			k.exitCS(s)
			return newErr("Mutex.Pend", ErrMutexNestingOverflow)
		}
		m.nestingCtr++
		k.exitCS(s)
		return nil
	}

	if timeoutTicks == 0 && !blockForever {
		k.exitCS(s)
		return newErr("Mutex.Pend", ErrWouldBlock)
	}

	if k.tasks[t.id].CurrentPriority < k.tasks[m.owner].CurrentPriority {
		k.relinkPriority(m.owner, k.tasks[t.id].CurrentPriority)
		k.log.Debug("priority inherited", "owner", k.tasks[m.owner].Name, "boosted_to", k.tasks[t.id].CurrentPriority)
	}

	if err := k.pend(&m.objHeader, t.id, PendOnMutex, timeoutTicks); err != nil {
		k.exitCS(s)
		return err
	}
	k.exitCS(s)

	k.schedule()

	s = k.enterCS()
	defer k.exitCS(s)
	switch k.tasks[t.id].PendStatus {
	case PendStatusOK:
		return nil
	case PendStatusTimedOut:
		return newErr("Mutex.Pend", ErrTimeout)
	case PendStatusDeleted:
		return newErr("Mutex.Pend", ErrObjectDeletedWhilePending)
	default:
		return newErr("Mutex.Pend", ErrAborted)
	}
}

// Post releases the mutex. Fails if the caller isn't the current
// owner. If the nesting counter is still > 0 after decrementing,
// ownership is unchanged. Otherwise the mutex is removed from the
// owner's owned-mutex list, the owner's effective priority is
// recomputed (it may still be boosted by a *different* owned mutex),
// and — if the pend list is nonempty — ownership transfers directly to
// the head waiter, which is then post-unblocked (spec.md §4.6).
func (m *Mutex) Post(t *Task) error {
	k := m.k
	s := k.enterCS()

	if m.owner != t.id {
		k.exitCS(s)
		return newErr("Mutex.Post", ErrMutexNotOwner)
	}

	m.nestingCtr--
	if m.nestingCtr > 0 {
		k.exitCS(s)
		return nil
	}

	k.unlinkOwnedMutex(t.id, m)
	newEff := k.effectivePriority(t.id)
	k.relinkPriority(t.id, newEff)

	if m.pendHead == noTask {
		m.owner = noTask
		k.exitCS(s)
		return nil
	}

	newOwner := m.pendHead
	k.post(&m.objHeader, newOwner, nil, 0, k.now())

	m.owner = newOwner
	m.nestingCtr = 1
	m.ownerNext = k.tasks[newOwner].ownedMutexHead
	k.tasks[newOwner].ownedMutexHead = m

	// If further waiters remain, the new owner may itself need
	// boosting to the (now head) waiter's priority.
	if m.pendHead != noTask && k.tasks[m.pendHead].CurrentPriority < k.tasks[newOwner].CurrentPriority {
		k.relinkPriority(newOwner, k.tasks[m.pendHead].CurrentPriority)
	}

	k.exitCS(s)
	k.schedule()
	return nil
}

// PendAbort forcibly wakes the mutex's waiters (spec.md §4.3/§4.6);
// applies the same effective-priority recomputation to the owner that
// Post does, since the owner's boost may have been solely due to the
// aborted waiter.
func (m *Mutex) PendAbort(opt PostOpt) (woken int, err error) {
	k := m.k
	s := k.enterCS()

	if m.pendListEmpty() {
		k.exitCS(s)
		return 0, newErr("Mutex.PendAbort", ErrAbortNone)
	}

	n := k.postPolicy(&m.objHeader, opt, nil, func(id TaskID) {
		k.pendAbort(&m.objHeader, id, PendStatusAborted)
	})

	if m.owner != noTask {
		k.relinkPriority(m.owner, k.effectivePriority(m.owner))
	}

	k.exitCS(s)
	k.schedule()
	return n, nil
}

// Delete removes the mutex: every waiter unblocks with
// PendStatusDeleted (ownership is not handed to any of them), and an
// owner, if any, loses ownership and has its priority recomputed
// without this mutex.
func (m *Mutex) Delete() error {
	k := m.k
	s := k.enterCS()

	m.deleted = true
	owner := m.owner

	k.postPolicy(&m.objHeader, PostAll, nil, func(id TaskID) {
		k.pendAbort(&m.objHeader, id, PendStatusDeleted)
	})

	if owner != noTask {
		k.unlinkOwnedMutex(owner, m)
		k.relinkPriority(owner, k.effectivePriority(owner))
	}
	m.owner = noTask
	m.nestingCtr = 0
	k.registry.remove(m.Name)
	k.exitCS(s)
	k.schedule()
	return nil
}

// Stats returns a read-only snapshot for introspection.
func (m *Mutex) Stats() ObjStats {
	k := m.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.objStats(&m.objHeader)
}

// unlinkOwnedMutex removes m from id's owned-mutex singly linked list.
func (k *Kernel) unlinkOwnedMutex(id TaskID, m *Mutex) {
	tcb := &k.tasks[id]
	if tcb.ownedMutexHead == m {
		tcb.ownedMutexHead = m.ownerNext
		m.ownerNext = nil
		return
	}
	for cur := tcb.ownedMutexHead; cur != nil; cur = cur.ownerNext {
		if cur.ownerNext == m {
			cur.ownerNext = m.ownerNext
			m.ownerNext = nil
			return
		}
	}
}

// releaseOwnedMutexes implements spec.md §4.6's delete-task-with-
// owned-mutexes: every mutex this task owns is handed to its head
// waiter (if any) or freed, exactly as Post would, without requiring
// the deleted task to still be schedulable.
func (k *Kernel) releaseOwnedMutexes(id TaskID) {
	tcb := &k.tasks[id]
	for m := tcb.ownedMutexHead; m != nil; {
		next := m.ownerNext
		m.ownerNext = nil

		if m.pendHead == noTask {
			m.owner = noTask
			m.nestingCtr = 0
		} else {
			newOwner := m.pendHead
			k.post(&m.objHeader, newOwner, nil, 0, k.now())
			m.owner = newOwner
			m.nestingCtr = 1
			m.ownerNext = k.tasks[newOwner].ownedMutexHead
			k.tasks[newOwner].ownedMutexHead = m
			if m.pendHead != noTask && k.tasks[m.pendHead].CurrentPriority < k.tasks[newOwner].CurrentPriority {
				k.relinkPriority(newOwner, k.tasks[m.pendHead].CurrentPriority)
			}
		}
		m = next
	}
	tcb.ownedMutexHead = nil
}
