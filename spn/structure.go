// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package spn

import (
	"github.com/born-ml/spflow/internal/structure"
	"github.com/born-ml/spflow/tensor"
)

// Marginalize returns a copy of m with vars integrated out, or nil when no
// variable of m remains. With prune, products left with one child collapse
// into it.
func Marginalize(m Module, vars []int, prune bool) (Module, error) {
	return structure.Marginalize(m, vars, prune)
}

// ToBackend returns a copy of m evaluating on target.
func ToBackend(m Module, target tensor.Backend) (Module, error) {
	return structure.ToBackend(m, target)
}

// ToLayerBased returns the equivalent circuit built from layers only.
func ToLayerBased(m Module) (Module, error) {
	return structure.ToLayerBased(m)
}

// ToNodeBased returns the equivalent circuit built from nodes only.
// Roots with several outputs return ErrAmbiguousOutput; use ExpandOutputs.
func ToNodeBased(m Module) (Module, error) {
	return structure.ToNodeBased(m)
}

// ExpandOutputs returns one node-based circuit per output of m.
func ExpandOutputs(m Module) ([]Module, error) {
	return structure.ExpandOutputs(m)
}
