package kernel

// IRQState is the opaque "saved interrupt state" token returned by
// Port.IRQDisable and consumed by the matching Port.IRQRestore. The
// core never inspects its value; only the port knows what it means
// (a saved PSR on bare metal, a nesting counter + mutex token on a
// host simulator).
type IRQState uint64

// TaskOpts carries the create-time options task_stack_init may need
// (e.g. whether the task starts with interrupts enabled, stack-overflow
// painting, ...). Left as a bitmask for the port to interpret.
type TaskOpts uint32

const (
	TaskOptNone       TaskOpts = 0
	TaskOptStkChk     TaskOpts = 1 << 0
	TaskOptSaveFP     TaskOpts = 1 << 1
)

// Port is the capability set the kernel core depends on but never
// implements (spec.md §6, §9 "port layer as a capability set"). Two
// concrete implementations ship alongside this core: port/posix (a
// host-OS simulator using one goroutine per task) and port/gpio (a
// GPIO-chardev-driven variant layered on top of it for a more
// bare-metal-flavored external interrupt source).
type Port interface {
	// IRQDisable/IRQRestore are nestable matched pairs guarding every
	// kernel critical section.
	IRQDisable() IRQState
	IRQRestore(IRQState)

	// TaskStackInit arranges for the task's execution context so that
	// the first context switch into it starts entry(arg) with
	// interrupts enabled. Returns an opaque per-task scheduling handle
	// that ContextSwitch/StartHighestReady later receive back as
	// tcb.portHandle; the core never interprets it.
	TaskStackInit(id TaskID, entry TaskFunc, arg any, stackBase, stackLimit, stackSize uintptr, opts TaskOpts) (handle any, err error)

	// ContextSwitchFromTo saves the current task's context and resumes
	// next. Returns once the current task is resumed again later.
	ContextSwitchFromTo(current, next TaskID)

	// StartHighestReady performs the one-way jump into the first task
	// and never returns.
	StartHighestReady(next TaskID)

	// TimestampNow returns a monotonic timestamp for profiling/trace
	// use only; the kernel's own tick counter is authoritative for
	// scheduling.
	TimestampNow() int64

	// DynTickGet/DynTickSet implement the dynamic-tick mode of spec.md
	// §4.2/§4.11: DynTickGet returns ticks elapsed since the tick
	// source was last programmed; DynTickSet programs the next
	// deadline (0 = disarm, no pending deadline).
	DynTickGet() int64
	DynTickSet(ticks int64)
}
