// corgisim runs the kernel core against a YAML scenario file on the
// POSIX host-simulator port, exercising the scheduler, primitives, and
// tick source without any real target hardware.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/doismellburning/corgi/port/posix"
	kernel "github.com/doismellburning/corgi/src"
)

func main() {
	scenarioPath := pflag.StringP("scenario", "s", "", "YAML scenario file to load.")
	tickHz := pflag.IntP("tick-rate", "r", 1000, "System tick rate, Hz.")
	maxTasks := pflag.IntP("max-tasks", "m", 32, "Maximum number of tasks.")
	maxPrio := pflag.IntP("max-priorities", "p", 32, "Number of priority levels.")
	help := pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: corgisim -s scenario.yaml [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help || *scenarioPath == "" {
		pflag.Usage()
		if *scenarioPath == "" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	sc, err := kernel.LoadScenario(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corgisim: %v\n", err)
		os.Exit(1)
	}

	cfg := kernel.DefaultConfig()
	cfg.TickRateHz = *tickHz
	cfg.MaxTasks = *maxTasks
	cfg.MaxPriorities = *maxPrio
	cfg = kernel.ConfigFromScenario(cfg, sc)

	port := posix.New(cfg.MaxTasks, nil)

	k, err := kernel.New(cfg, port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corgisim: %v\n", err)
		os.Exit(1)
	}
	if err := k.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "corgisim: %v\n", err)
		os.Exit(1)
	}

	if err := sc.Apply(k, demoEntries(k)); err != nil {
		fmt.Fprintf(os.Stderr, "corgisim: %v\n", err)
		os.Exit(1)
	}

	if err := port.StartPeriodicTick(k, cfg.TickRateHz); err != nil {
		fmt.Fprintf(os.Stderr, "corgisim: %v\n", err)
		os.Exit(1)
	}

	_ = k.Start()
}

// demoEntries maps scenario task names to entry points a scenario file
// may reference. A real deployment would register application-specific
// entries here; the simulator ships a couple of illustrative ones.
func demoEntries(k *kernel.Kernel) map[string]func(self *kernel.Task) {
	return map[string]func(self *kernel.Task){
		"heartbeat": func(self *kernel.Task) {
			for {
				_ = self.DelayHMSM(0, 0, 1, 0)
			}
		},
	}
}
