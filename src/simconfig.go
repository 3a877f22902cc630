package kernel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioTask describes one task to create when a scenario file is
// loaded, for the simulator binary (cmd/corgisim) rather than the core
// kernel itself — the core never reads YAML.
type ScenarioTask struct {
	Name      string `yaml:"name"`
	Priority  int    `yaml:"priority"`
	StackSize int    `yaml:"stack_size"`
}

// ScenarioObject describes one waitable object to create.
type ScenarioObject struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // "semaphore", "mutex", "flags", "queue"
	Initial  uint32 `yaml:"initial"`
	Capacity int    `yaml:"capacity"`
}

// Scenario is the top-level shape of a YAML scenario file: a set of
// kernel tuning knobs plus the tasks/objects to create before handing
// control to the scheduler.
type Scenario struct {
	TickRateHz    int              `yaml:"tick_rate_hz"`
	MaxPriorities int              `yaml:"max_priorities"`
	MaxTasks      int              `yaml:"max_tasks"`
	RoundRobin    bool             `yaml:"round_robin"`
	Tasks         []ScenarioTask   `yaml:"tasks"`
	Objects       []ScenarioObject `yaml:"objects"`
}

// LoadScenario reads and parses a YAML scenario file, grounded on the
// teacher's tocalls.yaml loader (deviceid.go) — both read an entire
// config file into a strongly typed struct via yaml.v3 with no partial
// defaults merging.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("simconfig: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("simconfig: %w", err)
	}
	return &sc, nil
}

// ConfigFromScenario overlays a scenario's kernel-level knobs onto a
// base Config, leaving fields the scenario doesn't set (zero value)
// untouched by falling back to base.
func ConfigFromScenario(base Config, sc *Scenario) Config {
	cfg := base
	if sc.TickRateHz > 0 {
		cfg.TickRateHz = sc.TickRateHz
	}
	if sc.MaxPriorities > 0 {
		cfg.MaxPriorities = sc.MaxPriorities
	}
	if sc.MaxTasks > 0 {
		cfg.MaxTasks = sc.MaxTasks
	}
	cfg.RoundRobinEnable = sc.RoundRobin
	return cfg
}

// Apply creates every task and object a Scenario names against an
// initialized Kernel. Task entry points aren't part of the
// YAML — callers pass a lookup function from task name to a
// self-aware entry point (see CreateTaskSelf), and Apply must run
// before Start().
func (sc *Scenario) Apply(k *Kernel, entries map[string]func(self *Task)) error {
	for _, to := range sc.Objects {
		switch to.Kind {
		case "semaphore":
			if _, err := k.CreateSemaphore(to.Name, to.Initial); err != nil {
				return fmt.Errorf("simconfig: object %q: %w", to.Name, err)
			}
		case "mutex":
			if _, err := k.CreateMutex(to.Name); err != nil {
				return fmt.Errorf("simconfig: object %q: %w", to.Name, err)
			}
		case "flags":
			if _, err := k.CreateEventFlagGroup(to.Name, uint64(to.Initial)); err != nil {
				return fmt.Errorf("simconfig: object %q: %w", to.Name, err)
			}
		case "queue":
			if _, err := k.CreateQueue(to.Name, to.Capacity); err != nil {
				return fmt.Errorf("simconfig: object %q: %w", to.Name, err)
			}
		default:
			return fmt.Errorf("simconfig: object %q: unknown kind %q", to.Name, to.Kind)
		}
	}

	for _, tt := range sc.Tasks {
		entry, ok := entries[tt.Name]
		if !ok {
			return fmt.Errorf("simconfig: task %q: no entry point registered", tt.Name)
		}
		if _, err := k.CreateTaskSelf(tt.Name, entry, tt.Priority, uintptr(tt.StackSize)); err != nil {
			return fmt.Errorf("simconfig: task %q: %w", tt.Name, err)
		}
	}
	return nil
}
