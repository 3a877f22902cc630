package kernel

// TaskID is an arena handle: an index into Kernel.tasks. Using an
// index instead of a pointer keeps every intrusive link (ready-list,
// pend-list, tick-list) a plain integer, per spec.md §9's "arena +
// index handles" option — it composes cleanly with a no-heap target
// even though this implementation runs on a host with a garbage
// collector.
type TaskID int32

// noTask is the sentinel "no task" handle, used in every nullable
// TCB/object link field (next/prev, pend_object owner, mutex owner...).
const noTask TaskID = -1

const maxTLSSlots = 8
const maxTaskRegs = 4

// TaskFunc is a task's entry point. arg is opaque to the kernel.
type TaskFunc func(arg any)

// TCB is the Task Control Block. Per spec.md §3 the kernel stores only
// a reference to it (TCBs, stacks, and TLS/register storage are
// caller-owned in the strict uC/OS-III sense), but since this
// implementation runs on the host this arena *is* the storage: the
// "reference" is simply a TaskID handed back from TaskCreate.
type TCB struct {
	inUse bool

	Name     string
	entry    TaskFunc
	arg      any
	stackBase, stackLimit, stackSize uintptr

	// port-opaque scheduling handle (e.g. the posix port's per-task
	// goroutine handoff channel); the core never interprets it.
	portHandle any

	BasePriority    int
	CurrentPriority int

	State      TaskState
	PendingOn  PendOn
	PendStatus PendStatus
	PendObject Waitable // object currently pended upon, or nil

	// Ready-list intrusive links (per priority-slot FIFO).
	readyNext, readyPrev TaskID

	// Pend-list intrusive links (per waitable-object wait queue).
	pendNext, pendPrev TaskID

	// Tick-list intrusive link + delta, see ticklist.go.
	tickNext, tickPrev TaskID
	tickDelta          int64

	SuspendNestingCtr int

	// Task-private semaphore (OSTaskSemPend/Post) and task-private
	// queue (OSTaskQPend/Post), spec.md §6.
	taskSemCount   uint32
	taskSemPending bool
	taskQueue      *Queue

	tls  [maxTLSSlots]any
	regs [maxTaskRegs]uint32

	// Timing.
	remainingTicks  int64
	prevDlyTick     int64 // base for periodic delay catch-up, spec.md §4.2
	quantum         int
	quantumRemain   int

	// Message delivered by Post into a task blocked on a queue/task
	// queue/condition; cleared on pend-timeout per spec.md §7.
	msgPayload   any
	msgSize      int
	msgTimestamp int64

	// Flags-pending mask/options/ready-mask for event-flag waits.
	flagPendMask    uint64
	flagPendMode    FlagMode
	flagPendConsume bool
	flagReadyMask   uint64

	// Head of the list of mutexes this task currently owns, threaded
	// through Mutex.ownerNext (spec.md §3, §4.6).
	ownedMutexHead *Mutex
}
