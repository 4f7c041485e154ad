// Package module defines the circuit graph: modules, their outputs and scopes,
// and the translation between a parent's input indices and its children's outputs.
//
// Modules form a DAG. A module exclusively owns the list of its children but
// the same child instance may be referenced by several parents. Topology is
// fixed after construction; structural operations return new modules.
package module

import (
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// Kind is the concrete type tag of a module, used as dispatch key.
// Leaf families use their name ("Gaussian"), its layer form ("GaussianLayer")
// and conditional form ("CondGaussian").
type Kind string

// Module is a node or layer of a probabilistic circuit.
//
// Implementations must be pointer types: module identity (pointer equality)
// keys the per-call caches.
type Module interface {
	// Kind returns the concrete type tag.
	Kind() Kind

	// Children returns the ordered child modules. Callers must not modify the slice.
	Children() []Module

	// NumOut returns the number of outputs.
	NumOut() int

	// ScopesOut returns the scope of every output (length NumOut).
	ScopesOut() []scope.Scope

	// Backend returns the numeric backend the module evaluates on.
	Backend() tensor.Backend

	// DType returns the numeric type of parameters and results.
	DType() tensor.DataType
}

// Base holds the state shared by every module implementation.
// Embed it and implement Kind, NumOut and ScopesOut.
type Base struct {
	children []Module
	backend  tensor.Backend
	dtype    tensor.DataType
}

// NewBase validates that every child uses the same backend family as backend.
func NewBase(backend tensor.Backend, dtype tensor.DataType, children []Module) (Base, error) {
	if backend == nil {
		return Base{}, errors.Wrap(ErrBackendMismatch, "module has no backend")
	}
	if err := CheckBackends(backend, children); err != nil {
		return Base{}, err
	}
	return Base{
		children: append([]Module(nil), children...),
		backend:  backend,
		dtype:    dtype,
	}, nil
}

// Children returns the ordered child modules.
func (b *Base) Children() []Module {
	return b.children
}

// Backend returns the numeric backend.
func (b *Base) Backend() tensor.Backend {
	return b.backend
}

// DType returns the numeric type.
func (b *Base) DType() tensor.DataType {
	return b.dtype
}

// CheckBackends returns ErrBackendMismatch if a child reports a different
// backend family than backend.
func CheckBackends(backend tensor.Backend, children []Module) error {
	for i, c := range children {
		if c == nil {
			return errors.Errorf("child %d is nil", i)
		}
		if c.Backend().Kind() != backend.Kind() {
			return errors.Wrapf(ErrBackendMismatch, "child %d (%s) uses backend %s, parent uses %s",
				i, c.Kind(), c.Backend().Kind(), backend.Kind())
		}
	}
	return nil
}

// Scope returns the joint scope of all outputs of m.
func Scope(m Module) scope.Scope {
	return scope.JoinAll(m.ScopesOut())
}

// NumInputs returns the total number of outputs of children.
func NumInputs(children []Module) int {
	n := 0
	for _, c := range children {
		n += c.NumOut()
	}
	return n
}

// InputScopes returns the scopes of all children outputs, in input order.
func InputScopes(children []Module) []scope.Scope {
	scopes := make([]scope.Scope, 0, NumInputs(children))
	for _, c := range children {
		scopes = append(scopes, c.ScopesOut()...)
	}
	return scopes
}

// InputToOutputIDs maps indices into the concatenated outputs of children to
// (child index, child output index) pairs.
//
// Children outputs form contiguous blocks in child order. An empty inputIDs
// means every input in order. Indices outside [0, NumInputs) return
// ErrIndexOutOfBounds.
//
// Example, children with 2, 3 and 1 outputs:
//
//	childIDs, outputIDs, _ := InputToOutputIDs(children, []int{0, 1, 2, 4, 5})
//	// childIDs  = [0 0 1 1 2]
//	// outputIDs = [0 1 0 2 0]
func InputToOutputIDs(children []Module, inputIDs []int) (childIDs, outputIDs []int, err error) {
	offsets := make([]int, len(children)+1)
	for i, c := range children {
		offsets[i+1] = offsets[i] + c.NumOut()
	}
	total := offsets[len(children)]

	if len(inputIDs) == 0 {
		inputIDs = make([]int, total)
		for i := range inputIDs {
			inputIDs[i] = i
		}
	}

	childIDs = make([]int, len(inputIDs))
	outputIDs = make([]int, len(inputIDs))
	for k, id := range inputIDs {
		if id < 0 || id >= total {
			return nil, nil, errors.Wrapf(ErrIndexOutOfBounds, "input index %d not in [0, %d)", id, total)
		}
		// First child whose cumulative count exceeds id.
		c := 0
		for offsets[c+1] <= id {
			c++
		}
		childIDs[k] = c
		outputIDs[k] = id - offsets[c]
	}
	return childIDs, outputIDs, nil
}

// Walk calls fn for every distinct module reachable from root, parents before
// children. A module shared by several parents is visited once. Walk stops at
// the first error.
func Walk(root Module, fn func(Module) error) error {
	seen := make(map[Module]struct{})
	var visit func(m Module) error
	visit = func(m Module) error {
		if _, ok := seen[m]; ok {
			return nil
		}
		seen[m] = struct{}{}
		if err := fn(m); err != nil {
			return err
		}
		for _, c := range m.Children() {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root)
}

// AllOutputs returns [0, 1, ..., m.NumOut()-1].
func AllOutputs(m Module) []int {
	ids := make([]int, m.NumOut())
	for i := range ids {
		ids[i] = i
	}
	return ids
}
