package tensor

import (
	"fmt"
	"math"
)

// FromSlice creates a Float64 tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float64, CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.data, data)
	return raw, nil
}

// FromRows creates a 2D Float64 tensor from nested rows.
//
// All rows must have the same length. A nil or empty rows slice creates a
// tensor of shape [0, 0].
//
// Example:
//
//	data, _ := tensor.FromRows([][]float64{{0.5, 1.6}, {math.NaN(), 0.1}})
func FromRows(rows [][]float64) (*RawTensor, error) {
	if len(rows) == 0 {
		return NewRaw(Shape{0, 0}, Float64, CPU)
	}
	cols := len(rows[0])
	raw, err := NewRaw(Shape{len(rows), cols}, Float64, CPU)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		copy(raw.data[i*cols:], row)
	}
	return raw, nil
}

// MustFromRows is like FromRows but panics on ragged input.
func MustFromRows(rows [][]float64) *RawTensor {
	raw, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return raw
}

// Full creates a tensor of the given type filled with value.
func Full(shape Shape, value float64, dtype DataType) *RawTensor {
	raw := MustNewRaw(shape, dtype, CPU)
	value = dtype.Round(value)
	for i := range raw.data {
		raw.data[i] = value
	}
	return raw
}

// Zeros creates a Float64 tensor filled with zeros.
func Zeros(shape Shape) *RawTensor {
	return MustNewRaw(shape, Float64, CPU)
}

// Ones creates a Float64 tensor filled with ones.
func Ones(shape Shape) *RawTensor {
	return Full(shape, 1, Float64)
}

// NaNs creates a Float64 tensor where every cell is missing.
func NaNs(shape Shape) *RawTensor {
	return Full(shape, math.NaN(), Float64)
}

// Vector creates a 1D tensor of the given type from values.
func Vector(values []float64, dtype DataType) *RawTensor {
	raw := MustNewRaw(Shape{len(values)}, dtype, CPU)
	for i, v := range values {
		raw.data[i] = dtype.Round(v)
	}
	return raw
}

// Matrix creates a [rows, cols] tensor of the given type from row-major values.
func Matrix(values []float64, rows, cols int, dtype DataType) *RawTensor {
	if len(values) != rows*cols {
		panic(fmt.Sprintf("matrix %dx%d requires %d values, got %d", rows, cols, rows*cols, len(values)))
	}
	raw := MustNewRaw(Shape{rows, cols}, dtype, CPU)
	for i, v := range values {
		raw.data[i] = dtype.Round(v)
	}
	return raw
}
