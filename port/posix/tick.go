package posix

import (
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"

	kernel "github.com/doismellburning/corgi/src"
)

// StartPeriodicTick arms a real-time interval timer via setitimer and
// drives k.TimeTick() off SIGALRM at hz ticks/second, the host-OS
// analogue of a bare-metal SysTick/PIT interrupt handler. Call once,
// after k.Init() and before k.Start().
func (p *Port) StartPeriodicTick(k *kernel.Kernel, hz int) error {
	interval := time.Second / time.Duration(hz)

	it := unix.Itimerval{
		Interval: unix.NsecToTimeval(interval.Nanoseconds()),
		Value:    unix.NsecToTimeval(interval.Nanoseconds()),
	}
	if err := unix.Setitimer(unix.ITIMER_REAL, &it, nil); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, unix.SIGALRM)

	p.tickStop = make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				k.TimeTick()
			case <-p.tickStop:
				signal.Stop(sigCh)
				return
			}
		}
	}()
	return nil
}

// StartDynamicTick arms a one-shot time.Timer reprogrammed by
// DynTickSet, the host analogue of a tickless kernel's dynamic
// deadline timer (spec.md §4.2/§4.11's DynamicTick mode).
func (p *Port) StartDynamicTick(k *kernel.Kernel) {
	p.tickRate = time.Millisecond
	p.tickTimer = time.NewTimer(time.Hour)
	p.tickTimer.Stop()

	go func() {
		for range p.tickTimer.C {
			elapsed := p.dynTickPending
			p.dynTickPending = 0
			p.dynTickArmed = time.Time{}
			k.TimeDynTick(elapsed)
		}
	}()
}

// StopTick halts the periodic SIGALRM source started by
// StartPeriodicTick.
func (p *Port) StopTick() {
	if p.tickStop != nil {
		close(p.tickStop)
	}
}
