package kernel

// QueueOrder selects whether a buffered (no-waiter) Post appends to the
// tail (FIFO, the default) or the head (LIFO) of the queue's buffer.
// Pend always consumes from the head regardless of how an entry was
// inserted, so a LIFO post simply jumps the line (spec.md §4.8).
type QueueOrder uint8

const (
	QueueFIFO QueueOrder = iota
	QueueLIFO
)

// msgDesc is one slot descriptor drawn from the kernel's global fixed
// pool (spec.md §3's "(payload pointer, size, timestamp) triples drawn
// from a global pool").
type msgDesc struct {
	inUse     bool
	payload   any
	size      int
	timestamp int64
}

// msgPool is the global fixed-size pool of message descriptors shared
// by every queue, serialized by the critical section (spec.md §5).
type msgPool struct {
	descs []msgDesc
	free  []int32
}

func newMsgPool(size int) msgPool {
	p := msgPool{descs: make([]msgDesc, size), free: make([]int32, size)}
	for i := range p.free {
		p.free[i] = int32(size - 1 - i)
	}
	return p
}

func (p *msgPool) alloc() (int32, bool) {
	if len(p.free) == 0 {
		return -1, false
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.descs[idx].inUse = true
	return idx, true
}

func (p *msgPool) release(idx int32) {
	p.descs[idx] = msgDesc{}
	p.free = append(p.free, idx)
}

func (p *msgPool) stats() (free, used int) {
	free = len(p.free)
	return free, len(p.descs) - free
}

// Queue implements C8's message queue: a bounded buffer of descriptors
// drawn from the shared pool, plus the pend list of tasks blocked
// waiting for a message. The TCB has a taskQueue field, but nothing
// creates or uses a per-task queue: only queues made by CreateQueue
// exist.
type Queue struct {
	objHeader

	k        *Kernel
	capacity int
	buffered []int32 // descriptor indices, head = buffered[0]
}

// CreateQueue allocates a queue with the given buffered-message
// capacity (independent of, and bounded by, the global message pool
// size).
func (k *Kernel) CreateQueue(name string, capacity int) (*Queue, error) {
	if !k.Config.QueueEnable {
		return nil, newErr("CreateQueue", ErrInvalidOption)
	}
	if capacity <= 0 {
		return nil, newErr("CreateQueue", ErrInvalidOption)
	}
	q := &Queue{objHeader: newObjHeader(ObjQueue, name), k: k, capacity: capacity}
	k.registry.add(q)
	return q, nil
}

// Post delivers payload/size. If waiters are pending, it's handed
// directly to them (Post1: head only; PostAll: every waiter gets the
// identical tuple — the broadcast property tested in spec.md §8) and
// never touches the buffer or pool. With no waiters, it's buffered
// according to order, consuming one pool descriptor; ErrQueueFull if
// the queue's own capacity is reached, ErrPoolEmpty if the shared pool
// is exhausted even though the queue itself has room.
func (q *Queue) Post(payload any, size int, order QueueOrder, wake PostOpt) error {
	k := q.k
	s := k.enterCS()

	if q.deleted {
		k.exitCS(s)
		return newErr("Queue.Post", ErrObjectDeletedWhilePending)
	}

	ts := k.now()

	if !q.pendListEmpty() {
		k.postPolicy(&q.objHeader, wake, nil, func(id TaskID) {
			k.post(&q.objHeader, id, payload, size, ts)
		})
		k.exitCS(s)
		if wake != PostNoSched {
			k.schedule()
		}
		return nil
	}

	if len(q.buffered) >= q.capacity {
		k.exitCS(s)
		return newErr("Queue.Post", ErrQueueFull)
	}

	idx, ok := k.msgPool.alloc()
	if !ok {
		k.exitCS(s)
		return newErr("Queue.Post", ErrPoolEmpty)
	}
	k.msgPool.descs[idx] = msgDesc{inUse: true, payload: payload, size: size, timestamp: ts}

	if order == QueueLIFO {
		q.buffered = append([]int32{idx}, q.buffered...)
	} else {
		q.buffered = append(q.buffered, idx)
	}

	k.exitCS(s)
	return nil
}

// Pend consumes the head of the buffer if nonempty, otherwise blocks
// (optionally with a timeout) until a Post delivers directly or the
// wait is aborted/times out.
func (q *Queue) Pend(t *Task, timeoutTicks int64) (payload any, size int, err error) {
	k := q.k
	s := k.enterCS()

	if q.deleted {
		k.exitCS(s)
		return nil, 0, newErr("Queue.Pend", ErrObjectDeletedWhilePending)
	}

	if len(q.buffered) > 0 {
		idx := q.buffered[0]
		q.buffered = q.buffered[1:]
		d := k.msgPool.descs[idx]
		k.msgPool.release(idx)
		k.exitCS(s)
		return d.payload, d.size, nil
	}

	if timeoutTicks == 0 {
		k.exitCS(s)
		return nil, 0, newErr("Queue.Pend", ErrQueueEmpty)
	}

	if err := k.pend(&q.objHeader, t.id, PendOnQueue, timeoutTicks); err != nil {
		k.exitCS(s)
		return nil, 0, err
	}
	k.exitCS(s)

	k.schedule()

	s = k.enterCS()
	defer k.exitCS(s)
	tcb := &k.tasks[t.id]
	if err := pendStatusToErr("Queue.Pend", tcb.PendStatus); err != nil {
		return nil, 0, err
	}
	return tcb.msgPayload, tcb.msgSize, nil
}

// Flush discards every buffered message, returning their descriptors to
// the pool, without affecting pending waiters.
func (q *Queue) Flush() int {
	k := q.k
	s := k.enterCS()
	defer k.exitCS(s)
	n := len(q.buffered)
	for _, idx := range q.buffered {
		k.msgPool.release(idx)
	}
	q.buffered = nil
	return n
}

func (q *Queue) PendAbort(opt PostOpt) (int, error) {
	k := q.k
	s := k.enterCS()
	if q.pendListEmpty() {
		k.exitCS(s)
		return 0, newErr("Queue.PendAbort", ErrAbortNone)
	}
	n := k.postPolicy(&q.objHeader, opt, nil, func(id TaskID) {
		k.pendAbort(&q.objHeader, id, PendStatusAborted)
	})
	k.exitCS(s)
	k.schedule()
	return n, nil
}

func (q *Queue) Delete() error {
	k := q.k
	s := k.enterCS()
	q.deleted = true
	for _, idx := range q.buffered {
		k.msgPool.release(idx)
	}
	q.buffered = nil
	k.postPolicy(&q.objHeader, PostAll, nil, func(id TaskID) {
		k.pendAbort(&q.objHeader, id, PendStatusDeleted)
	})
	k.registry.remove(q.Name)
	k.exitCS(s)
	k.schedule()
	return nil
}

func (q *Queue) Stats() ObjStats {
	k := q.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.objStats(&q.objHeader)
}

func (q *Queue) Len() int {
	k := q.k
	s := k.enterCS()
	defer k.exitCS(s)
	return len(q.buffered)
}
