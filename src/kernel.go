package kernel

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Version is the kernel core's semantic version, returned by Version().
const Version = "0.1.0"

// Config holds every build-time knob spec.md §6 names. Unlike the
// source material these are ordinary struct fields rather than
// preprocessor defines, but the effects are the same: they size the
// ready list, gate optional features, and size the caller-supplied
// idle/stat/timer task stacks.
type Config struct {
	MaxPriorities int
	MaxTasks      int

	TickRateHz  int
	DynamicTick bool

	RoundRobinEnable         bool
	RoundRobinDefaultQuantum int

	ArgCheckEnable     bool
	ObjTypeCheckEnable bool
	ISRCheckEnable     bool

	FlagsEnable          bool
	MutexEnable          bool
	QueueEnable          bool
	SemaphoreEnable      bool
	TimerEnable          bool
	MemPartitionsEnable  bool
	TaskSuspendEnable    bool
	TaskQueueEnable      bool
	TaskRegsEnable       bool
	TLSSlots             int

	IdleTaskStackSize  int
	StatTaskStackSize  int
	TimerTaskStackSize int
	ISRStackSize       int

	// TimerTickRate is how many system ticks elapse between the timer
	// task's own wakeups, i.e. the granularity of every Timer's dly/
	// period arguments (spec.md §4.10).
	TimerTickRate int

	MessagePoolSize int

	StackRedZoneEnable      bool
	StackOverflowCheckEnable bool

	IdleTaskPriority  int
	StatTaskPriority  int
	TimerTaskPriority int

	// TraceTimeLayout is a strftime layout used to render timestamps in
	// debug/trace log lines; empty uses traceTimeFormat.
	TraceTimeLayout string

	Logger *log.Logger
}

// DefaultConfig returns a Config with conservative, commonly-used
// defaults: 64 priority levels, 1000 Hz periodic tick, round robin off,
// all optional features on.
func DefaultConfig() Config {
	return Config{
		MaxPriorities:            64,
		MaxTasks:                 64,
		TickRateHz:               1000,
		DynamicTick:              false,
		RoundRobinEnable:         false,
		RoundRobinDefaultQuantum: 10,
		ArgCheckEnable:           true,
		ObjTypeCheckEnable:       true,
		ISRCheckEnable:           true,
		FlagsEnable:              true,
		MutexEnable:              true,
		QueueEnable:              true,
		SemaphoreEnable:          true,
		TimerEnable:              true,
		MemPartitionsEnable:      true,
		TaskSuspendEnable:        true,
		TaskQueueEnable:          true,
		TaskRegsEnable:           true,
		TLSSlots:                 maxTLSSlots,
		IdleTaskStackSize:        4096,
		StatTaskStackSize:        4096,
		TimerTaskStackSize:       4096,
		ISRStackSize:             4096,
		TimerTickRate:            10,
		MessagePoolSize:          128,
		IdleTaskPriority:         63,
		StatTaskPriority:         62,
		TimerTaskPriority:        1,
	}
}

func (c Config) validate() error {
	if c.RoundRobinEnable && c.DynamicTick {
		// spec.md §9 Open Question: the source forbids combining
		// round-robin with dynamic tick; this spec maintains the
		// exclusion rather than trying to make them interact.
		return newErr("Config.validate", ErrInvalidOption)
	}
	if c.MaxPriorities <= 0 || c.MaxTasks <= 0 {
		return newErr("Config.validate", ErrInvalidPriority)
	}
	return nil
}

// Kernel is the single kernel struct holding every piece of global
// mutable state named in spec.md §3: current/highest-ready task,
// scheduler-lock/interrupt nesting, running/initialized flags, tick
// counter, the ready/tick lists, the message-descriptor pool, and the
// timer subsystem's own mutex/condvar/delta-list. Every mutation
// happens with the critical section held (enterCS/exitCS), mirroring
// spec.md §9's "statically allocated cell with interior mutability
// gated by the interrupt-disable critical section".
type Kernel struct {
	Config Config
	port   Port
	log    *log.Logger

	tasks    []TCB
	freeTask []TaskID

	ready readyList
	tick  tickList

	running     TaskID
	initialized bool
	started     bool

	schedLockNesting int
	intNesting       int

	tickCounter int64

	idleTaskID  TaskID
	statTaskID  TaskID
	timerTaskID TaskID

	timerSub timerSubsystem

	msgPool msgPool

	registry objRegistry

	timefmt *timeFormatter
}

// New allocates a Kernel with the given configuration. It does not yet
// create the idle/stat/timer tasks or touch the port — that's Init's
// job, mirroring spec.md §4.11's separation between "construct" and
// "init()".
func New(cfg Config, port Port) (*Kernel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.New(nopWriter{})
	}
	k := &Kernel{
		Config: cfg,
		port:   port,
		log:    lg,
		tasks:  make([]TCB, cfg.MaxTasks),
		ready:  newReadyList(cfg.MaxPriorities),
		tick:   newTickList(),
		running: noTask,
		idleTaskID: noTask,
		statTaskID: noTask,
		timerTaskID: noTask,
	}
	k.freeTask = make([]TaskID, cfg.MaxTasks)
	for i := range k.freeTask {
		k.freeTask[i] = TaskID(cfg.MaxTasks - 1 - i)
	}
	k.msgPool = newMsgPool(cfg.MessagePoolSize)
	k.registry = newObjRegistry()

	tf, err := newTimeFormatter(cfg.TraceTimeLayout)
	if err != nil {
		return nil, newErr("New", ErrInvalidOption)
	}
	k.timefmt = tf

	return k, nil
}

// Init mirrors C11's init(): zero (already done by New), create the
// message pool (already done by New), create the idle task, and — via
// timerSub.init — the timer subsystem's own mutex/condvar, then (if
// enabled) the timer task itself. No stat task is created: CPU-usage
// sampling is out of scope (spec.md §1), so statTaskID stays noTask.
func (k *Kernel) Init() error {
	if k.initialized {
		return newErr("Init", ErrObjectAlreadyCreated)
	}

	k.timerSub.init(k)

	idleID, err := k.createTaskLocked("idle", idleTaskEntry, k,
		k.Config.IdleTaskPriority, k.Config.IdleTaskStackSize, false)
	if err != nil {
		return err
	}
	k.idleTaskID = idleID

	if k.Config.TimerEnable {
		timerID, err := k.createTaskLocked("timer", k.timerSub.taskEntry, nil,
			k.Config.TimerTaskPriority, k.Config.TimerTaskStackSize, false)
		if err != nil {
			return err
		}
		k.timerTaskID = timerID
	}

	k.initialized = true
	k.log.Debug("kernel initialized", "max_priorities", k.Config.MaxPriorities, "tick_hz", k.Config.TickRateHz)
	return nil
}

// Start mirrors C11's start(): after at least one user task exists,
// jump into the highest-ready task via the port and never return.
func (k *Kernel) Start() error {
	if !k.initialized {
		return newErr("Start", ErrKernelNotRunning)
	}
	if k.started {
		return newErr("Start", ErrIllegalCreateAtRuntime)
	}
	next := k.findHighestReady()
	if next == noTask {
		return newErr("Start", ErrInvalidTaskState)
	}
	k.started = true
	k.running = next
	k.readyRemove(next)
	k.log.Info("kernel starting", "first_task", k.tasks[next].Name)
	k.port.StartHighestReady(next)
	return nil // never actually reached
}

// Running reports whether Start has been called. Per spec.md's testable
// property 7: false before start, true forever after.
func (k *Kernel) Running() bool { return k.started }

func (k *Kernel) enterCS() IRQState {
	if k.port == nil {
		return 0
	}
	return k.port.IRQDisable()
}

func (k *Kernel) exitCS(s IRQState) {
	if k.port == nil {
		return
	}
	k.port.IRQRestore(s)
}

// IntEnter/IntExit bracket ISR execution (C11). IntExit runs the
// scheduler at the outermost nesting level if a higher-priority task
// has become ready during the ISR.
func (k *Kernel) IntEnter() {
	s := k.enterCS()
	k.intNesting++
	k.exitCS(s)
}

func (k *Kernel) IntExit() {
	s := k.enterCS()
	if k.intNesting > 0 {
		k.intNesting--
	}
	nested := k.intNesting > 0
	k.exitCS(s)
	if !nested {
		k.schedule()
	}
}

// TimeTick advances the kernel by one tick; call from a periodic tick
// ISR handler configured for a fixed rate (C11).
func (k *Kernel) TimeTick() {
	k.timeTickN(1)
}

// TimeDynTick advances the kernel by n ticks, where n is the actual
// elapsed-tick count read from the port's dynamic tick source (C11).
func (k *Kernel) TimeDynTick(n int64) {
	k.timeTickN(n)
}

func (k *Kernel) timeTickN(n int64) {
	s := k.enterCS()
	k.tickCounter += n
	k.tickAdvance(n)
	k.roundRobinTick()
	k.exitCS(s)
	k.schedule()
}

// Sched invokes the scheduler directly; exposed for ports/ISRs that
// need to force a reschedule outside of IntExit's automatic call.
func (k *Kernel) Sched() {
	k.schedule()
}

// TimeGet/TimeSet expose the raw tick counter (spec.md §6 Time API).
func (k *Kernel) TimeGet() int64 {
	s := k.enterCS()
	defer k.exitCS(s)
	return k.tickCounter
}

func (k *Kernel) TimeSet(ticks int64) {
	s := k.enterCS()
	k.tickCounter = ticks
	k.exitCS(s)
}

// now returns a port timestamp, or 0 if no port is wired (pure
// logic / unit-test configurations).
func (k *Kernel) now() int64 {
	if k.port == nil {
		return 0
	}
	return k.port.TimestampNow()
}

func (k *Kernel) logTaskEvent(id TaskID, msg string) {
	ts := k.timefmt.FormatTimestamp(k.now())
	if id < 0 || int(id) >= len(k.tasks) {
		k.log.Debug(msg, "at", ts)
		return
	}
	k.log.Debug(msg, "task", k.tasks[id].Name, "state", k.tasks[id].State.String(), "at", ts)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func (k *Kernel) String() string {
	return fmt.Sprintf("Kernel{tasks=%d/%d running=%v}", k.Config.MaxTasks-len(k.freeTask), k.Config.MaxTasks, k.started)
}
