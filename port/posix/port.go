// Package posix implements kernel.Port on top of the host OS: every
// task is a goroutine, critical sections are a single mutex, and the
// periodic tick source is a SIGALRM-driven interval timer. It exists so
// the core scheduler can be exercised and demonstrated without any
// real hardware, the same role a "simulator" BSP plays for a bare-metal
// RTOS.
package posix

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	kernel "github.com/doismellburning/corgi/src"
)

// taskHandle is the opaque value TaskStackInit hands back and that
// this port stores itself, keyed by TaskID, for use by
// ContextSwitchFromTo/StartHighestReady.
type taskHandle struct {
	resume chan struct{}
}

// Port is a host-OS-simulator kernel.Port: one goroutine per task,
// baton-passed via per-task channels so that, as on a real single-core
// target, exactly one task goroutine ever runs at a time.
type Port struct {
	log *log.Logger

	csMu    sync.Mutex
	nesting int

	handles []*taskHandle // indexed by TaskID

	start     time.Time
	tickStop  chan struct{}
	tickTimer *time.Timer
	tickRate  time.Duration

	dynTickArmed   time.Time
	dynTickPending int64
}

// New constructs a posix Port sized for up to maxTasks tasks.
func New(maxTasks int, logger *log.Logger) *Port {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Port{
		log:     logger,
		handles: make([]*taskHandle, maxTasks),
		start:   time.Now(),
	}
}

func (p *Port) IRQDisable() kernel.IRQState {
	if p.nesting == 0 {
		p.csMu.Lock()
	}
	p.nesting++
	return kernel.IRQState(p.nesting)
}

func (p *Port) IRQRestore(s kernel.IRQState) {
	p.nesting--
	if p.nesting == 0 {
		p.csMu.Unlock()
	}
}

// TaskStackInit spawns the task's goroutine. The goroutine blocks
// immediately on its own resume channel; it only starts running
// entry(arg) once the scheduler first hands it the baton.
func (p *Port) TaskStackInit(id kernel.TaskID, entry kernel.TaskFunc, arg any, stackBase, stackLimit, stackSize uintptr, opts kernel.TaskOpts) (any, error) {
	h := &taskHandle{resume: make(chan struct{})}
	p.handles[id] = h

	go func() {
		<-h.resume
		entry(arg)
	}()

	return h, nil
}

// ContextSwitchFromTo hands the baton from current's goroutine (the
// caller, which is always the goroutine invoking this method) to
// next's, then blocks until current is handed the baton back.
func (p *Port) ContextSwitchFromTo(current, next kernel.TaskID) {
	p.handles[next].resume <- struct{}{}
	<-p.handles[current].resume
}

// StartHighestReady hands the baton to the first task and parks the
// calling (main) goroutine forever; the kernel never schedules "main"
// as a task, so it never needs the baton back.
func (p *Port) StartHighestReady(next kernel.TaskID) {
	p.handles[next].resume <- struct{}{}
	select {}
}

func (p *Port) TimestampNow() int64 {
	return time.Since(p.start).Nanoseconds()
}

func (p *Port) DynTickGet() int64 {
	if p.dynTickArmed.IsZero() {
		return 0
	}
	return int64(time.Since(p.dynTickArmed) / p.tickRate)
}

func (p *Port) DynTickSet(ticks int64) {
	p.dynTickPending = ticks
	if p.tickTimer == nil {
		return
	}
	if ticks <= 0 {
		p.tickTimer.Stop()
		p.dynTickArmed = time.Time{}
		return
	}
	p.dynTickArmed = time.Now()
	p.tickTimer.Reset(p.tickRate * time.Duration(ticks))
}
