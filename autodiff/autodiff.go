// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation using a
// gradient tape. It wraps any backend; circuits built on it can be trained
// with expectation-maximization.
//
// Example:
//
//	import (
//	    "github.com/born-ml/spflow/autodiff"
//	    "github.com/born-ml/spflow/backend/cpu"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    backend.Tape().StartRecording()
//	    y := backend.Mul(x, x) // recorded on the tape
//	    backend.Tape().StopRecording()
//
//	    grads := backend.Backward(y) // grads[x] == 2x
//	}
package autodiff

import (
	"github.com/born-ml/spflow/internal/autodiff"
	"github.com/born-ml/spflow/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable interface for backends that support backpropagation.
type BackwardCapable = autodiff.BackwardCapable
