// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/spflow/internal/backend/cpu"
	"github.com/born-ml/spflow/internal/parallel"
	"github.com/born-ml/spflow/tensor"
)

// Backend represents the CPU array backend.
type Backend = internalcpu.CPUBackend

// ParallelConfig controls how element-wise loops over large tensors are
// split across goroutines; see Backend.SetParallel.
type ParallelConfig = parallel.Config

// DefaultParallelConfig uses every CPU for tensors above a few thousand elements.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/spflow/backend/cpu"
//	    "github.com/born-ml/spflow/spn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    leaf, _ := spn.NewGaussian(backend, 0, 0, 1)
//	}
func New() *Backend {
	return internalcpu.New()
}
