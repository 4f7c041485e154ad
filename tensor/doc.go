// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense arrays and the backend abstraction that
// circuits evaluate on.
//
// # Overview
//
// Data batches are [N, D] tensors with one row per instance and one column
// per random variable. NaN marks a missing value: inference integrates it
// out and sampling fills it in.
//
// # Basic Usage
//
//	import (
//	    "math"
//
//	    "github.com/born-ml/spflow/backend/cpu"
//	    "github.com/born-ml/spflow/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    data := tensor.MustFromRows([][]float64{
//	        {0.5, 1.6},
//	        {math.NaN(), 0.2}, // x0 missing
//	    })
//	    ll := backend.Log(backend.Exp(data))
//	}
//
// # Data Types
//
// Elements are stored as float64. Float32 tensors round every result to
// single precision; Bool tensors hold 0 or 1.
//
// # Backends
//
// Every module carries a Backend. The array backend (backend/cpu) evaluates
// eagerly; the autodiff backend wraps it and records a gradient tape, which
// expectation-maximization reads its expectations from.
package tensor
