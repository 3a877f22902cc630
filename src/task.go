package kernel

// Task is the caller-facing handle returned by CreateTask: a thin
// wrapper around the TaskID arena index plus the owning Kernel, so
// users don't have to thread the Kernel pointer through every call.
type Task struct {
	k  *Kernel
	id TaskID
}

// CreateTask implements C7's Create: initializes a TCB, arranges its
// stack via the port, inserts it into the ready list, and — if called
// after Start — invokes the scheduler so a higher-priority new task can
// preempt immediately.
func (k *Kernel) CreateTask(name string, entry TaskFunc, arg any, priority int, stackSize uintptr) (*Task, error) {
	if priority < 0 || priority >= k.Config.MaxPriorities {
		return nil, newErr("CreateTask", ErrInvalidPriority)
	}
	s := k.enterCS()
	id, err := k.createTaskLocked(name, entry, arg, priority, stackSize, true)
	k.exitCS(s)
	if err != nil {
		return nil, err
	}
	if k.started {
		k.schedule()
	}
	return &Task{k: k, id: id}, nil
}

// CreateTaskSelf is CreateTask for entry points that need their own
// *Task handle (to call Delay/ChangePrio/TLS accessors on themselves)
// rather than an arbitrary caller-supplied arg. Only safe to call
// before Start(), or from a task at least as high priority as every
// task it might create — afterwards, CreateTask's own "schedule
// immediately if higher priority" step could in principle switch into
// the new task before its self-reference closure variable is set.
func (k *Kernel) CreateTaskSelf(name string, entry func(self *Task), priority int, stackSize uintptr) (*Task, error) {
	var self *Task
	wrapped := func(any) { entry(self) }
	t, err := k.CreateTask(name, wrapped, nil, priority, stackSize)
	if err != nil {
		return nil, err
	}
	self = t
	return t, nil
}

// createTaskLocked does the actual work; callers hold the critical
// section. initStack is false only for the kernel's own idle/timer
// tasks created during Init, before the port is necessarily wired for
// stack init in the simplest test harnesses.
func (k *Kernel) createTaskLocked(name string, entry TaskFunc, arg any, priority int, stackSize uintptr, initStack bool) (TaskID, error) {
	if len(k.freeTask) == 0 {
		return noTask, newErr("createTaskLocked", ErrInvalidTaskState)
	}
	id := k.freeTask[len(k.freeTask)-1]
	k.freeTask = k.freeTask[:len(k.freeTask)-1]

	t := &k.tasks[id]
	*t = TCB{}
	t.inUse = true
	t.Name = name
	t.entry = entry
	t.arg = arg
	t.stackSize = stackSize
	t.BasePriority = priority
	t.CurrentPriority = priority
	t.State = StateReady
	t.PendObject = nil
	t.readyNext, t.readyPrev = noTask, noTask
	t.pendNext, t.pendPrev = noTask, noTask
	t.tickNext, t.tickPrev = noTask, noTask
	t.quantum = k.Config.RoundRobinDefaultQuantum
	t.quantumRemain = t.quantum

	if initStack && k.port != nil {
		handle, err := k.port.TaskStackInit(id, entry, arg, 0, 0, stackSize, TaskOptNone)
		if err != nil {
			t.inUse = false
			k.freeTask = append(k.freeTask, id)
			return noTask, err
		}
		t.portHandle = handle
	}

	k.readyInsertTail(id)
	k.log.Debug("task created", "task", name, "priority", priority)
	return id, nil
}

// Delete implements C7's Delete: fails from an ISR or against the idle
// task; otherwise removes the task from every list it's on, releases
// any mutexes it owns, and marks it Deleted. Deleting the running task
// invokes the scheduler and never returns to the caller.
func (t *Task) Delete() error {
	k := t.k
	s := k.enterCS()
	if k.Config.ISRCheckEnable && k.intNesting > 0 {
		k.exitCS(s)
		return newErr("Delete", ErrCalledFromISR)
	}
	if t.id == k.idleTaskID {
		k.exitCS(s)
		return newErr("Delete", ErrInvalidTaskState)
	}

	tcb := &k.tasks[t.id]
	if tcb.State == StateReady {
		k.readyRemove(t.id)
	}
	if tcb.State.hasDelay() {
		k.tickRemove(t.id)
	}
	if tcb.State.hasPend() && tcb.PendObject != nil {
		k.removePend(tcb.PendObject.header(), t.id)
	}

	k.releaseOwnedMutexes(t.id)

	selfDelete := t.id == k.running
	tcb.State = StateDeleted
	tcb.inUse = false
	name := tcb.Name
	k.freeTask = append(k.freeTask, t.id)
	k.exitCS(s)

	k.log.Debug("task deleted", "task", name)

	if selfDelete {
		k.schedule()
		select {} // never returns; the port never resumes a deleted task
	}
	k.schedule()
	return nil
}

// Suspend implements C7's nested suspend: adds the Suspended component
// to the task's state (composable with Delayed/Pending); a Ready task
// is removed from the ready list, a Delayed/Pending+Timeout task stays
// on the tick list while suspended.
func (t *Task) Suspend() error {
	k := t.k
	if !k.Config.TaskSuspendEnable {
		return newErr("Suspend", ErrInvalidOption)
	}
	s := k.enterCS()
	defer k.exitCS(s)

	tcb := &k.tasks[t.id]
	tcb.SuspendNestingCtr++
	if tcb.State.hasSuspend() {
		return nil
	}
	if tcb.State == StateReady {
		k.readyRemove(t.id)
	}
	tcb.State = tcb.State.withSuspend()

	if t.id == k.running {
		k.exitCS(s)
		k.schedule()
		s = k.enterCS()
	}
	return nil
}

// Resume decrements the suspend nesting counter; the Suspended
// component is removed only once it reaches zero.
func (t *Task) Resume() error {
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)

	tcb := &k.tasks[t.id]
	if tcb.SuspendNestingCtr == 0 {
		return newErr("Resume", ErrInvalidTaskState)
	}
	tcb.SuspendNestingCtr--
	if tcb.SuspendNestingCtr > 0 {
		return nil
	}
	if !tcb.State.hasSuspend() {
		return nil
	}
	tcb.State = tcb.State.withoutSuspend()
	if tcb.State == StateReady {
		k.readyInsertTail(t.id)
	}
	return nil
}

// ChangePrio implements C7's ChangePrio: relinks the task in whichever
// ready or pend list it's currently in at the new priority. If the task
// owns mutexes, its base priority changes but the effective
// (CurrentPriority) must stay the max (numerically min) of the new base
// and the highest waiter across all owned mutexes (spec.md invariant 4).
func (t *Task) ChangePrio(newPriority int) error {
	k := t.k
	if newPriority < 0 || newPriority >= k.Config.MaxPriorities {
		return newErr("ChangePrio", ErrInvalidPriority)
	}
	s := k.enterCS()
	defer k.exitCS(s)
	k.changePrioLocked(t.id, newPriority)
	return nil
}

func (k *Kernel) changePrioLocked(id TaskID, newBase int) {
	tcb := &k.tasks[id]
	tcb.BasePriority = newBase

	effective := k.effectivePriority(id)
	k.relinkPriority(id, effective)
}

// effectivePriority computes spec.md invariant 4: base priority, or
// lower (numerically smaller) if boosted by priority inheritance from a
// higher-priority waiter on a mutex this task owns.
func (k *Kernel) effectivePriority(id TaskID) int {
	tcb := &k.tasks[id]
	eff := tcb.BasePriority
	for m := tcb.ownedMutexHead; m != nil; m = m.ownerNext {
		if m.pendHead != noTask {
			waiterPrio := k.tasks[m.pendHead].CurrentPriority
			if waiterPrio < eff {
				eff = waiterPrio
			}
		}
	}
	return eff
}

// relinkPriority moves id to reflect a new effective priority,
// re-threading whichever list (ready or pend) it's currently a member
// of.
func (k *Kernel) relinkPriority(id TaskID, newPrio int) {
	tcb := &k.tasks[id]
	if tcb.CurrentPriority == newPrio {
		return
	}
	switch {
	case tcb.State == StateReady:
		k.readyRemove(id)
		tcb.CurrentPriority = newPrio
		k.readyInsertTail(id)
	case tcb.State.hasPend() && tcb.PendObject != nil:
		h := tcb.PendObject.header()
		k.removePend(h, id)
		tcb.CurrentPriority = newPrio
		k.insertPend(h, id)
	default:
		tcb.CurrentPriority = newPrio
	}
}

// StkChk reports a coarse stack-usage estimate. Since this
// implementation runs task bodies as goroutines rather than managing
// raw stacks, the "stack" here is the caller-declared budget from
// CreateTask; real overflow detection is the port's responsibility on
// targets with an addressable stack.
func (t *Task) StkChk() (free, used uintptr) {
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)
	tcb := &k.tasks[t.id]
	return tcb.stackSize, 0
}

// TimeQuantaSet overrides this task's round-robin quantum; 0 resets it
// to the configured default.
func (t *Task) TimeQuantaSet(ticks int) {
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)
	tcb := &k.tasks[t.id]
	if ticks <= 0 {
		ticks = k.Config.RoundRobinDefaultQuantum
	}
	tcb.quantum = ticks
	tcb.quantumRemain = ticks
}

func (t *Task) SetReg(slot int, v uint32) error {
	if slot < 0 || slot >= maxTaskRegs {
		return newErr("SetReg", ErrInvalidOption)
	}
	k := t.k
	s := k.enterCS()
	k.tasks[t.id].regs[slot] = v
	k.exitCS(s)
	return nil
}

func (t *Task) GetReg(slot int) (uint32, error) {
	if slot < 0 || slot >= maxTaskRegs {
		return 0, newErr("GetReg", ErrInvalidOption)
	}
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.tasks[t.id].regs[slot], nil
}

func (t *Task) SetTLS(slot int, v any) error {
	if slot < 0 || slot >= maxTLSSlots {
		return newErr("SetTLS", ErrInvalidOption)
	}
	k := t.k
	s := k.enterCS()
	k.tasks[t.id].tls[slot] = v
	k.exitCS(s)
	return nil
}

func (t *Task) GetTLS(slot int) (any, error) {
	if slot < 0 || slot >= maxTLSSlots {
		return nil, newErr("GetTLS", ErrInvalidOption)
	}
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.tasks[t.id].tls[slot], nil
}

func (t *Task) State() TaskState {
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.tasks[t.id].State
}

func (t *Task) Priority() int {
	k := t.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.tasks[t.id].CurrentPriority
}

// idleTaskEntry is the body of the kernel's own idle task, created in
// Init. It simply yields forever at the lowest priority; a real port
// may replace the busy-loop with a low-power wait.
func idleTaskEntry(arg any) {
	k := arg.(*Kernel)
	for {
		k.RoundRobinYield()
	}
}
