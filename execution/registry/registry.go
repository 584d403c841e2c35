// Package registry provides a process-wide name-to-executor mapping.
// Executors self-register via Register (typically from an init function);
// Get always returns a fresh instance so metrics and per-request state never
// leak across calls.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/veridoc/pipeline/execution"
)

// Executor is the contract every registered handler implements. Execute must
// never panic for expected failure modes; it should return a failure result
// instead (see execution.Failure). Panics are reserved for programmer errors
// and are trapped by the orchestrator.
type Executor interface {
	// Name returns the registered name this executor answers to.
	Name() string
	// Execute runs ctx and returns a result. Implementations must not retain
	// ctx or any derived state beyond this call.
	Execute(ctx execution.ExecutionContext) execution.ExecutionResult
}

// Constructor builds a fresh Executor instance. Registered constructors must
// be side-effect free beyond allocating the instance.
type Constructor func() Executor

// Registry is a process-wide, read-mostly mapping from executor name to
// constructor. The zero value is not usable; use New.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register binds name to ctor. It fails loudly on a duplicate name or a nil
// constructor so plugin packages that forget to change a name never silently
// shadow one another.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" {
		return fmt.Errorf("registry: executor name must not be empty")
	}
	if ctor == nil {
		return fmt.Errorf("registry: constructor for %q must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; exists {
		return fmt.Errorf("registry: executor %q already registered", name)
	}
	r.ctors[name] = ctor
	return nil
}

// MustRegister panics if Register fails. Intended for package init blocks
// where a duplicate registration is a build-time programmer error.
func (r *Registry) MustRegister(name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// Get returns a fresh instance of the executor registered under name. The
// error message includes the list of currently registered names so
// deployments where a plugin package forgot to import can be diagnosed
// quickly.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	names := r.listLocked()
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: no executor registered under %q (registered: %v)", name, names)
	}
	return ctor(), nil
}

// List returns the sorted set of currently registered executor names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []string {
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every registration. Test support only; never called from
// production paths.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors = make(map[string]Constructor)
}
