// Package gpio layers a Linux GPIO chardev heartbeat/interrupt source
// on top of port/posix's scheduling primitives, standing in for a
// bare-metal external-interrupt line (a button, a peripheral IRQ pin)
// wired to a real target's NVIC.
package gpio

import (
	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"

	kernel "github.com/doismellburning/corgi/src"
	"github.com/doismellburning/corgi/port/posix"
)

// Port embeds posix.Port for every scheduling primitive and adds a
// GPIO-chardev-driven external event source on top.
type Port struct {
	*posix.Port

	log  *log.Logger
	chip string
	line *gpiocdev.Line
}

// New constructs a gpio Port over the named chardev (e.g.
// "gpiochip0"), reusing posix.Port for scheduling.
func New(maxTasks int, chip string, logger *log.Logger) *Port {
	return &Port{Port: posix.New(maxTasks, logger), log: logger, chip: chip}
}

// WatchLine requests edge events on offset and calls onEdge (from the
// gpiocdev event-handling goroutine) for each one. onEdge typically
// calls k.IntEnter/IntExit around a PendAbort or Post to deliver the
// event into the kernel, exactly as a real GPIO ISR would.
func (p *Port) WatchLine(offset int, onEdge func(gpiocdev.LineEvent)) error {
	l, err := gpiocdev.RequestLine(p.chip, offset,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(onEdge))
	if err != nil {
		return err
	}
	p.line = l
	return nil
}

// SetLine drives offset high/low, the output-side analogue of
// WatchLine — e.g. a heartbeat LED. The idle task does not call it.
func (p *Port) SetLine(offset int, value int) error {
	l, err := gpiocdev.RequestLine(p.chip, offset, gpiocdev.AsOutput(value))
	if err != nil {
		return err
	}
	return l.Close()
}

func (p *Port) Close() error {
	if p.line != nil {
		return p.line.Close()
	}
	return nil
}

var _ kernel.Port = (*Port)(nil)
