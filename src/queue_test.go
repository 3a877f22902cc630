package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Queue_Post_FIFO_then_Pend_in_order(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 4)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "a", 5)

	assert.NoError(t, q.Post("one", 3, QueueFIFO, Post1))
	assert.NoError(t, q.Post("two", 3, QueueFIFO, Post1))

	p, sz, err := q.Pend(a, 0)
	assert.NoError(t, err)
	assert.Equal(t, "one", p)
	assert.Equal(t, 3, sz)

	p, _, err = q.Pend(a, 0)
	assert.NoError(t, err)
	assert.Equal(t, "two", p)
}

func Test_Queue_Post_LIFO_jumps_the_line(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 4)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "a", 5)

	assert.NoError(t, q.Post("one", 3, QueueFIFO, Post1))
	assert.NoError(t, q.Post("two", 3, QueueLIFO, Post1))

	p, _, err := q.Pend(a, 0)
	assert.NoError(t, err)
	assert.Equal(t, "two", p, "LIFO post jumps ahead of the earlier FIFO one")
}

func Test_Queue_Post_fails_full_at_capacity(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 2)
	assert.NoError(t, err)

	assert.NoError(t, q.Post(1, 0, QueueFIFO, Post1))
	assert.NoError(t, q.Post(2, 0, QueueFIFO, Post1))
	assertKernelErr(t, q.Post(3, 0, QueueFIFO, Post1), ErrQueueFull)
}

func Test_Queue_Pend_nonblocking_empty_fails_fast(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 2)
	assert.NoError(t, err)
	a := mustCreateTask(t, k, "a", 5)

	_, _, err = q.Pend(a, 0)
	assertKernelErr(t, err, ErrQueueEmpty)
}

func Test_Queue_Post_with_waiter_delivers_directly_bypassing_buffer(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 2)
	assert.NoError(t, err)

	a := mustCreateTask(t, k, "a", 5)
	k.readyRemove(a.id)
	assert.NoError(t, k.pend(q.header(), a.id, PendOnQueue, 10))

	assert.NoError(t, q.Post("direct", 6, QueueFIFO, Post1))

	assert.Equal(t, 0, q.Len(), "never touched the buffer")
	assert.Equal(t, "direct", k.tasks[a.id].msgPayload)
	assert.Equal(t, 6, k.tasks[a.id].msgSize)
}

func Test_Queue_Post_PostAll_broadcasts_identical_payload(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 2)
	assert.NoError(t, err)

	a := mustCreateTask(t, k, "a", 5)
	b := mustCreateTask(t, k, "b", 5)
	k.readyRemove(a.id)
	k.readyRemove(b.id)
	assert.NoError(t, k.pend(q.header(), a.id, PendOnQueue, 10))
	assert.NoError(t, k.pend(q.header(), b.id, PendOnQueue, 10))

	assert.NoError(t, q.Post("broadcast", 9, QueueFIFO, PostAll))

	assert.Equal(t, "broadcast", k.tasks[a.id].msgPayload)
	assert.Equal(t, "broadcast", k.tasks[b.id].msgPayload)
	assert.True(t, q.pendListEmpty())
}

func Test_Queue_Flush_discards_buffered_without_touching_waiters(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 4)
	assert.NoError(t, err)

	assert.NoError(t, q.Post(1, 0, QueueFIFO, Post1))
	assert.NoError(t, q.Post(2, 0, QueueFIFO, Post1))

	freeBefore, _ := k.msgPool.stats()
	n := q.Flush()
	freeAfter, _ := k.msgPool.stats()

	assert.Equal(t, 2, n)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, freeBefore+2, freeAfter, "both descriptors returned to the pool")
}

func Test_Queue_Delete_releases_buffer_and_aborts_waiters(t *testing.T) {
	k := unstartedKernel(t, smallConfig())
	q, err := k.CreateQueue("q", 4)
	assert.NoError(t, err)

	assert.NoError(t, q.Post(1, 0, QueueFIFO, Post1))
	a := mustCreateTask(t, k, "a", 5)
	k.readyRemove(a.id)
	assert.NoError(t, k.pend(q.header(), a.id, PendOnQueue, 10))

	assert.NoError(t, q.Delete())

	assert.Equal(t, PendStatusDeleted, k.tasks[a.id].PendStatus)
	_, found := k.Lookup("q")
	assert.False(t, found)
}
