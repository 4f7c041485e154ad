// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/spflow/internal/tensor"

// Backend defines the tensor operations circuits are evaluated with.
//
// Implementations:
//   - backend/cpu: eager array backend in pure Go
//
// Decorator backends for additional functionality:
//   - autodiff: gradient tape over any backend
//
// Example:
//
//	backend := cpu.New()
//	lse := backend.LogSumExpDim(x, 1, true) // [N, K] -> [N, 1]
type Backend = tensor.Backend

// BackendKind is the backend family handlers are registered for.
type BackendKind = tensor.BackendKind

// Backend families.
const (
	ArrayKind    = tensor.ArrayKind
	AutodiffKind = tensor.AutodiffKind
)

// Device identifies where tensor data lives.
type Device = tensor.Device

// CPU is the host device.
const CPU = tensor.CPU
