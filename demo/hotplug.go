package demo

import (
	"context"

	"github.com/jochenvg/go-udev"

	kernel "github.com/doismellburning/corgi/src"
)

// HotplugWatcher treats USB device arrival/removal as an asynchronous
// external event, the host-peripheral analogue of a bare-metal target
// noticing a hot-pluggable sensor board show up on a bus: "add" events
// Post a semaphore for a waiting task, "remove" events PendAbort it,
// exactly the pattern spec.md §5 allows one task (here, an external
// event source) to apply to another's wait.
type HotplugWatcher struct {
	k   *kernel.Kernel
	sem *kernel.Semaphore

	cancel context.CancelFunc
}

// WatchUSB subscribes to udev "usb" subsystem events and drives sem
// from them until Stop is called.
func WatchUSB(k *kernel.Kernel, sem *kernel.Semaphore) (*HotplugWatcher, error) {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("usb"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	deviceCh, _, err := mon.DeviceChan(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	w := &HotplugWatcher{k: k, sem: sem, cancel: cancel}

	go func() {
		for dev := range deviceCh {
			switch dev.Action() {
			case "add":
				_ = sem.Post(kernel.Post1)
			case "remove":
				_, _ = sem.PendAbort(kernel.Post1)
			}
		}
	}()

	return w, nil
}

func (w *HotplugWatcher) Stop() {
	w.cancel()
}
