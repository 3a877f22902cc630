package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_readyList_FIFO_within_priority(t *testing.T) {
	k := unstartedKernel(t, smallConfig())

	a := mustCreateTask(t, k, "a", 5)
	b := mustCreateTask(t, k, "b", 5)
	c := mustCreateTask(t, k, "c", 5)

	// Kernel isn't started, so CreateTask never invoked schedule(); all
	// three are still sitting in the priority-5 FIFO in creation order.
	assert.Equal(t, a.id, k.ready.head[5])
	k.readyRemove(a.id)
	assert.Equal(t, b.id, k.ready.head[5])
	k.readyRemove(b.id)
	assert.Equal(t, c.id, k.ready.head[5])
	k.readyRemove(c.id)
	assert.True(t, k.ready.bitmap.isSet(5) == false)
}

func Test_readyList_insertHead_jumps_queue(t *testing.T) {
	k := unstartedKernel(t, smallConfig())

	a := mustCreateTask(t, k, "a", 5)
	b := mustCreateTask(t, k, "b", 5)
	k.readyRemove(a.id)
	k.readyRemove(b.id)

	k.readyInsertTail(a.id)
	k.readyInsertHead(b.id)

	assert.Equal(t, b.id, k.ready.head[5])
	assert.Equal(t, a.id, k.ready.tail[5])
}

func Test_findHighestReady_picks_numerically_lowest_priority(t *testing.T) {
	k := unstartedKernel(t, smallConfig())

	low := mustCreateTask(t, k, "low", 10)
	high := mustCreateTask(t, k, "high", 2)
	_ = low

	assert.Equal(t, high.id, k.findHighestReady())
}

// mustCreateTask is a test convenience wrapper around CreateTask with a
// no-op entry point, for tests that only care about list/state
// mechanics, never actually resuming the task.
func mustCreateTask(t *testing.T, k *Kernel, name string, priority int) *Task {
	t.Helper()
	task, err := k.CreateTask(name, func(any) {}, nil, priority, 4096)
	if err != nil {
		t.Fatalf("CreateTask(%s): %v", name, err)
	}
	return task
}
