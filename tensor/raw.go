// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/spflow/internal/tensor"
)

// RawTensor is a dense row-major tensor.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float64, tensor.CPU)
//	raw.Set(1.5, 0, 2)
//	v := raw.At(0, 2) // 1.5
type RawTensor = tensor.RawTensor

// Shape lists the extent of every dimension.
type Shape = tensor.Shape

// DataType is the element type of a tensor.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Bool    = tensor.Bool
)

// NewRaw allocates a zeroed tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice creates a Float64 tensor of the given shape over a copy of data.
func FromSlice(data []float64, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// FromRows creates an [N, D] Float64 data batch. All rows must have the same length.
func FromRows(rows [][]float64) (*RawTensor, error) {
	return tensor.FromRows(rows)
}

// MustFromRows is like FromRows but panics on ragged rows.
func MustFromRows(rows [][]float64) *RawTensor {
	return tensor.MustFromRows(rows)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float64, dtype DataType) *RawTensor {
	return tensor.Full(shape, value, dtype)
}

// Zeros creates a Float64 tensor of zeros.
func Zeros(shape Shape) *RawTensor {
	return tensor.Zeros(shape)
}

// Ones creates a Float64 tensor of ones.
func Ones(shape Shape) *RawTensor {
	return tensor.Ones(shape)
}

// NaNs creates a Float64 tensor of missing values, the starting point of
// unconditional sampling.
func NaNs(shape Shape) *RawTensor {
	return tensor.NaNs(shape)
}
