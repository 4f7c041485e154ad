// Package dispatch routes circuit operations to the implementation registered
// for a module's kind and backend, and caches results within one call tree.
//
// Implementations register per exact module kind and backend family,
// typically from an init function:
//
//	func init() {
//		dispatch.MustRegister(KindSum, nil, dispatch.Handlers{
//			LogLikelihood: sumLogLikelihood,
//			Sample:        sumSample,
//		})
//	}
//
// Callers then go through the typed entry points (LogLikelihood, Sample, ...)
// with a Context created for that call.
package dispatch

import (
	"slices"
	"sync"

	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

type registryKey struct {
	kind    module.Kind
	backend tensor.BackendKind
}

// Registry maps (kind, backend) pairs to operation handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[registryKey]*Handlers
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[registryKey]*Handlers),
	}
}

// Default is the registry plug-in packages register into.
var Default = NewRegistry()

// Register adds the handlers of kind for the given backend families
// (nil means every backend).
//
// At most one implementation may exist per (kind, operation, backend);
// a second one returns ErrDuplicateRegistration and leaves the registry unchanged.
func (r *Registry) Register(kind module.Kind, backends []tensor.BackendKind, h Handlers) error {
	if kind == "" {
		return errors.New("register: empty module kind")
	}
	if backends == nil {
		backends = tensor.BackendKinds
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range backends {
		existing, ok := r.handlers[registryKey{kind, b}]
		if !ok {
			continue
		}
		for _, op := range Ops {
			if h.has(op) && existing.has(op) {
				return errors.Wrapf(ErrDuplicateRegistration, "%s for %s on %s backend", op, kind, b)
			}
		}
	}
	for _, b := range backends {
		k := registryKey{kind, b}
		if _, ok := r.handlers[k]; !ok {
			r.handlers[k] = &Handlers{}
		}
		r.handlers[k].merge(h)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(kind module.Kind, backends []tensor.BackendKind, h Handlers) {
	if err := r.Register(kind, backends, h); err != nil {
		panic(err)
	}
}

// Supports reports whether op is implemented for kind on backend.
func (r *Registry) Supports(kind module.Kind, op Op, backend tensor.BackendKind) bool {
	h, ok := r.get(kind, backend)
	return ok && h.has(op)
}

// Kinds returns the sorted list of registered module kinds.
func (r *Registry) Kinds() []module.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var kinds []module.Kind
	for k := range r.handlers {
		if !slices.Contains(kinds, k.kind) {
			kinds = append(kinds, k.kind)
		}
	}
	slices.Sort(kinds)
	return kinds
}

func (r *Registry) get(kind module.Kind, backend tensor.BackendKind) (*Handlers, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[registryKey{kind, backend}]
	return h, ok
}

// resolve returns the handlers of m, or ErrNotImplemented if op is missing.
func (r *Registry) resolve(m module.Module, op Op) (*Handlers, error) {
	if m == nil {
		return nil, errors.Errorf("%s: nil module", op)
	}
	backend := m.Backend().Kind()
	h, ok := r.get(m.Kind(), backend)
	if !ok || !h.has(op) {
		return nil, errors.Wrapf(ErrNotImplemented, "%s for %s on %s backend", op, m.Kind(), backend)
	}
	return h, nil
}

// Register adds handlers to the Default registry.
func Register(kind module.Kind, backends []tensor.BackendKind, h Handlers) error {
	return Default.Register(kind, backends, h)
}

// MustRegister adds handlers to the Default registry and panics on error.
func MustRegister(kind module.Kind, backends []tensor.BackendKind, h Handlers) {
	Default.MustRegister(kind, backends, h)
}
