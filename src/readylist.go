package kernel

// readyList is the ready-list of C1+C2: an array of per-priority FIFOs
// (here, intrusive doubly linked lists of TaskID threaded through
// TCB.readyNext/readyPrev) plus the bitmap that makes finding the
// highest-ready priority O(1). Grounded on tq.go's per-channel
// TQ_NUM_PRIO array-of-queues (queue_head[chan][prio]), generalized
// from two fixed priority levels to MaxPriorities.
type readyList struct {
	bitmap prioBitmap
	head   []TaskID
	tail   []TaskID
}

func newReadyList(maxPriorities int) readyList {
	head := make([]TaskID, maxPriorities)
	tail := make([]TaskID, maxPriorities)
	for i := range head {
		head[i] = noTask
		tail[i] = noTask
	}
	return readyList{bitmap: newPrioBitmap(maxPriorities), head: head, tail: tail}
}

// readyInsertTail adds id to the tail of its priority's FIFO: a newly ready
// task, or a task yielding/exhausting its round-robin quantum.
func (k *Kernel) readyInsertTail(id TaskID) {
	t := &k.tasks[id]
	prio := t.CurrentPriority
	rl := &k.ready

	t.readyNext = noTask
	t.readyPrev = rl.tail[prio]
	if rl.tail[prio] != noTask {
		k.tasks[rl.tail[prio]].readyNext = id
	} else {
		rl.head[prio] = id
	}
	rl.tail[prio] = id
	rl.bitmap.set(prio)
}

// readyInsertHead adds id to the head of its priority's FIFO: a task
// that should run before any other task already ready at the same
// priority (the task schedule() preempts, or a task pend() leaves ready
// when its timeout cannot be armed).
func (k *Kernel) readyInsertHead(id TaskID) {
	t := &k.tasks[id]
	prio := t.CurrentPriority
	rl := &k.ready

	t.readyPrev = noTask
	t.readyNext = rl.head[prio]
	if rl.head[prio] != noTask {
		k.tasks[rl.head[prio]].readyPrev = id
	} else {
		rl.tail[prio] = id
	}
	rl.head[prio] = id
	rl.bitmap.set(prio)
}

// readyRemove unlinks id from whichever priority FIFO it's in, clearing
// the bitmap bit if the slot becomes empty.
func (k *Kernel) readyRemove(id TaskID) {
	t := &k.tasks[id]
	prio := t.CurrentPriority
	rl := &k.ready

	if t.readyPrev != noTask {
		k.tasks[t.readyPrev].readyNext = t.readyNext
	} else {
		rl.head[prio] = t.readyNext
	}
	if t.readyNext != noTask {
		k.tasks[t.readyNext].readyPrev = t.readyPrev
	} else {
		rl.tail[prio] = t.readyPrev
	}
	t.readyNext = noTask
	t.readyPrev = noTask

	if rl.head[prio] == noTask {
		rl.bitmap.clear(prio)
	}
}

// findHighestReady returns the TaskID at the head of the highest
// non-empty priority FIFO, or noTask if nothing is ready.
func (k *Kernel) findHighestReady() TaskID {
	prio := k.ready.bitmap.highest()
	if prio < 0 {
		return noTask
	}
	return k.ready.head[prio]
}
