// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the array backend: eager tensor operations in pure Go.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Float32 and Float64 support
//   - NumPy-compatible broadcasting
//   - Numerically stable log-sum-exp reductions
//
// The backend registers itself as "cpu" in the backend registry, so
// SPFLOW_BACKEND=cpu selects it.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// allocates its result and never modifies its inputs.
package cpu
