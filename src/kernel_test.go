package kernel

import "testing"

// testKernel builds a Kernel with no Port wired: enterCS/exitCS become
// no-ops (see kernel.go), which is enough to exercise every list/state
// transition in the core without a real context switch. started is
// forced true so schedule() and the Pend family don't bail out early.
func testKernel(t *testing.T, cfg Config) *Kernel {
	t.Helper()
	k, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := k.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	k.started = true
	return k
}

// unstartedKernel is like testKernel but leaves started false, so
// CreateTask never triggers schedule(). Use it for tests asserting raw
// ready-list/bitmap state, where the housekeeping tasks (idle/timer)
// churning through the scheduler would otherwise interfere.
func unstartedKernel(t *testing.T, cfg Config) *Kernel {
	t.Helper()
	k, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := k.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return k
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxPriorities = 16
	cfg.MaxTasks = 16
	cfg.IdleTaskPriority = 15
	cfg.StatTaskPriority = 13
	cfg.TimerTaskPriority = 14
	return cfg
}
