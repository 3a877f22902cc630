package kernel

// objRegistry is the supplemented named-object directory (SPEC_FULL.md
// §4): every created semaphore/mutex/flag-group/queue/partition
// registers itself here under its name, letting tooling (the trace
// logger, a debug CLI) look up a waitable object by name instead of
// needing to thread its handle through every layer. uC/OS-III carries
// the equivalent via OSDbg lists per object class; this collapses them
// into one name-keyed map as filed in DESIGN.md.
type objRegistry struct {
	byName map[string]Waitable
}

func newObjRegistry() objRegistry {
	return objRegistry{byName: make(map[string]Waitable)}
}

// add registers obj under its name. An empty name is never registered
// (anonymous objects are common and shouldn't collide with each
// other); a non-empty duplicate name silently replaces the previous
// entry, since by the time add is called the object already exists —
// registry membership is purely diagnostic, never load-bearing for
// correctness.
func (r *objRegistry) add(obj Waitable) {
	name := obj.header().Name
	if name == "" {
		return
	}
	r.byName[name] = obj
}

func (r *objRegistry) remove(name string) {
	if name == "" {
		return
	}
	delete(r.byName, name)
}

func (r *objRegistry) lookup(name string) (Waitable, bool) {
	obj, ok := r.byName[name]
	return obj, ok
}

// Names returns every currently registered object name, for
// introspection/debug tooling.
func (r *objRegistry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}

// Lookup exposes the registry on Kernel for callers that only have a
// name (e.g. a YAML scenario file referencing objects by name).
func (k *Kernel) Lookup(name string) (Waitable, bool) {
	s := k.enterCS()
	defer k.exitCS(s)
	return k.registry.lookup(name)
}
