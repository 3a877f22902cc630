package kernel

// TaskState mirrors the uC/OS-III OS_TASK_STATE_xxx bit encoding: bit 0
// is the delayed/timeout component, bit 1 is the pend component, bit 2
// is suspended. Composability (e.g. Pending+Timeout+Suspended) falls out
// of OR-ing the bits rather than enumerating every combination by hand.
type TaskState uint8

const (
	stateBitDelay     TaskState = 0x01
	stateBitPend      TaskState = 0x02
	stateBitSuspended TaskState = 0x04
)

const (
	StateReady                       TaskState = 0
	StateDelayed                     TaskState = stateBitDelay
	StatePending                     TaskState = stateBitPend
	StatePendingTimeout              TaskState = stateBitPend | stateBitDelay
	StateSuspended                   TaskState = stateBitSuspended
	StateDelayedSuspended            TaskState = stateBitSuspended | stateBitDelay
	StatePendingSuspended            TaskState = stateBitSuspended | stateBitPend
	StatePendingTimeoutSuspended     TaskState = stateBitSuspended | stateBitPend | stateBitDelay
	StateDeleted                     TaskState = 0xFF
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateDelayed:
		return "Delayed"
	case StatePending:
		return "Pending"
	case StatePendingTimeout:
		return "Pending+Timeout"
	case StateSuspended:
		return "Suspended"
	case StateDelayedSuspended:
		return "Delayed+Suspended"
	case StatePendingSuspended:
		return "Pending+Suspended"
	case StatePendingTimeoutSuspended:
		return "Pending+Timeout+Suspended"
	case StateDeleted:
		return "Deleted"
	default:
		return "Invalid"
	}
}

func (s TaskState) hasDelay() bool     { return s != StateDeleted && s&stateBitDelay != 0 }
func (s TaskState) hasPend() bool      { return s != StateDeleted && s&stateBitPend != 0 }
func (s TaskState) hasSuspend() bool   { return s != StateDeleted && s&stateBitSuspended != 0 }
func (s TaskState) withSuspend() TaskState {
	return s | stateBitSuspended
}
func (s TaskState) withoutSuspend() TaskState {
	return s &^ stateBitSuspended
}

// PendOn identifies what kind of object a blocked task is waiting on.
type PendOn uint8

const (
	PendOnNothing PendOn = iota
	PendOnEventFlag
	PendOnTaskQueue
	PendOnCondition
	PendOnMutex
	PendOnQueue
	PendOnSemaphore
	PendOnTaskSem
)

// PendStatus is recorded on a task the instant it unblocks and
// inspected by the pending caller to decide which branch of spec.md's
// OK/Aborted/Deleted/TimedOut dispatch to take.
type PendStatus uint8

const (
	PendStatusOK PendStatus = iota
	PendStatusAborted
	PendStatusDeleted
	PendStatusTimedOut
)

// PostOpt selects how Post (spec.md §4.3) treats an object's pend list.
type PostOpt uint8

const (
	Post1       PostOpt = iota // wake only the head (highest-priority) waiter
	PostAll                    // wake every waiter; queues broadcast the same message
	PostNoSched                // suppress the post-unblock scheduler call (batch mode)
)

// ObjType tags the header every waitable object shares, used for the
// build-time-configurable object-type-mismatch check.
type ObjType uint8

const (
	ObjSemaphore ObjType = iota
	ObjMutex
	ObjEventFlagGroup
	ObjQueue
	ObjTaskQueue
	ObjCondition
	ObjPartition
	ObjTimer
)
