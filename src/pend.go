package kernel

// pend is the generic block half of C5. Precondition: critical section
// held. It clears the task from the ready list, marks its pend status
// OK (sentinel, overwritten by whichever of Post/PendAbort/tick-expiry
// unblocks it), links it into obj's pend list in priority order, and
// — if timeout > 0 and tick support is enabled — into the tick list
// too. The caller is responsible for releasing the critical section and
// invoking the scheduler; on resumption it re-enters the critical
// section and dispatches on task.PendStatus.
func (k *Kernel) pend(h *objHeader, id TaskID, reason PendOn, timeout int64) error {
	t := &k.tasks[id]

	k.readyRemove(id)
	t.PendStatus = PendStatusOK
	t.PendingOn = reason
	t.PendObject = h

	k.insertPend(h, id)

	if timeout > 0 {
		if err := k.tickInsert(id, timeout); err != nil {
			// Zero/elapsed delay: undo the pend linkage and let the
			// caller proceed without blocking.
			k.removePend(h, id)
			t.PendObject = nil
			t.PendingOn = PendOnNothing
			k.readyInsertHead(id)
			return err
		}
		t.State = StatePendingTimeout
	} else {
		t.State = StatePending
	}
	return nil
}

// post is the generic unblock half of C5. Precondition: critical
// section held. It sets pend-status OK, delivers payload/size/timestamp
// into the task's private message fields (consumed by queue/task-queue
// and condition-variable waiters; ignored by semaphore/mutex/flag
// waiters), removes the task from the tick list if present, unlinks it
// from obj's pend list, and — if the resulting state is Ready — inserts
// it into the ready list.
func (k *Kernel) post(h *objHeader, id TaskID, payload any, size int, timestamp int64) {
	t := &k.tasks[id]

	t.PendStatus = PendStatusOK
	t.msgPayload = payload
	t.msgSize = size
	t.msgTimestamp = timestamp

	if t.State.hasDelay() {
		k.tickRemove(id)
	}
	k.removePend(h, id)
	t.PendObject = nil
	t.PendingOn = PendOnNothing

	k.readyAfterUnblock(id)
}

// pendAbort is post's sibling for forced wakeups that deliver no value:
// used by PendAbort (status = Aborted) and object deletion (status =
// Deleted).
func (k *Kernel) pendAbort(h *objHeader, id TaskID, status PendStatus) {
	t := &k.tasks[id]

	t.PendStatus = status
	clearTaskMessage(t)

	if t.State.hasDelay() {
		k.tickRemove(id)
	}
	k.removePend(h, id)
	t.PendObject = nil
	t.PendingOn = PendOnNothing

	k.readyAfterUnblock(id)
}

// readyAfterUnblock transitions a just-unblocked task: Suspended
// variants stay parked (not readied); everything else goes to the tail
// of the ready list.
func (k *Kernel) readyAfterUnblock(id TaskID) {
	t := &k.tasks[id]
	if t.State.hasSuspend() {
		t.State = StateSuspended
		return
	}
	t.State = StateReady
	k.readyInsertTail(id)
}

// postPolicy applies opt (Post1/PostAll/PostNoSched) to every waiter
// currently satisfied, as determined by satisfies. deliver is called
// once per woken waiter with the (payload, size, timestamp) it should
// receive via post(); satisfies lets callers (event flags) skip waiters
// whose condition doesn't yet hold while still scanning in FIFO order.
//
// Returns the number of waiters woken.
func (k *Kernel) postPolicy(h *objHeader, opt PostOpt, satisfies func(TaskID) bool, deliver func(TaskID)) int {
	woken := 0
	id := h.pendHead
	for id != noTask {
		next := k.tasks[id].pendNext
		if satisfies == nil || satisfies(id) {
			deliver(id)
			woken++
			if opt != PostAll {
				break
			}
		}
		id = next
	}
	return woken
}
