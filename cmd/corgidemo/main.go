// corgidemo wires the kernel core to real host peripherals (an audio
// input stream, USB hotplug events, and optionally a GPIO chardev) to
// demonstrate the async-event-source side of the pend/post core
// without any real target board.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/doismellburning/corgi/demo"
	"github.com/doismellburning/corgi/port/gpio"
	"github.com/doismellburning/corgi/port/posix"
	kernel "github.com/doismellburning/corgi/src"
)

func main() {
	useGPIO := pflag.Bool("gpio", false, "Use the GPIO-chardev port instead of plain POSIX.")
	gpioChip := pflag.String("gpio-chip", "gpiochip0", "GPIO chardev to use with --gpio.")
	sampleRate := pflag.Float64P("sample-rate", "r", 8000, "ADC demo sample rate, Hz.")
	tickHz := pflag.IntP("tick-rate", "t", 1000, "System tick rate, Hz.")
	help := pflag.BoolP("help", "h", false, "Display help text.")
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg := kernel.DefaultConfig()
	cfg.TickRateHz = *tickHz

	var port kernel.Port
	var gp *gpio.Port
	if *useGPIO {
		gp = gpio.New(cfg.MaxTasks, *gpioChip, nil)
		port = gp
	} else {
		port = posix.New(cfg.MaxTasks, nil)
	}

	k, err := kernel.New(cfg, port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: %v\n", err)
		os.Exit(1)
	}
	if err := k.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: %v\n", err)
		os.Exit(1)
	}

	adcQueue, err := k.CreateQueue("adc-samples", 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: %v\n", err)
		os.Exit(1)
	}
	sampler, err := demo.NewADCSampler(k, adcQueue, *sampleRate, 256)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: adc: %v\n", err)
	} else {
		defer sampler.Close()
		_ = sampler.Start()
	}

	hotplugSem, err := k.CreateSemaphore("usb-hotplug", 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: %v\n", err)
		os.Exit(1)
	}
	watcher, err := demo.WatchUSB(k, hotplugSem)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: hotplug: %v\n", err)
	} else {
		defer watcher.Stop()
	}

	if _, err := k.CreateTaskSelf("consumer", func(self *kernel.Task) {
		for {
			if _, _, err := adcQueue.Pend(self, -1); err == nil {
				_ = hotplugSem.Pend(self, 0)
			}
		}
	}, cfg.MaxPriorities/2, 4096); err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: %v\n", err)
		os.Exit(1)
	}

	var pp *posix.Port
	if gp != nil {
		pp = gp.Port
	} else {
		pp = port.(*posix.Port)
	}
	if err := pp.StartPeriodicTick(k, cfg.TickRateHz); err != nil {
		fmt.Fprintf(os.Stderr, "corgidemo: %v\n", err)
		os.Exit(1)
	}

	_ = k.Start()
}
