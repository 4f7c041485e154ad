package tensor

import (
	"fmt"
	"math"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the low-level tensor representation.
//
// Data is stored row-major as float64 regardless of DataType. Unlike module
// parameters, a RawTensor carries no gradient state: gradients are tracked
// by the autodiff backend keyed on the *RawTensor pointer, so tensors must
// not be mutated once they have been used as an operation input.
type RawTensor struct {
	data   []float64
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw creates a new zero filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		data:   make([]float64, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// MustNewRaw is like NewRaw but panics on an invalid shape.
func MustNewRaw(shape Shape, dtype DataType, device Device) *RawTensor {
	r, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return len(r.data)
}

// Data returns the underlying storage.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []float64 {
	return r.data
}

// Float64s returns a copy of the tensor values.
func (r *RawTensor) Float64s() []float64 {
	out := make([]float64, len(r.data))
	copy(out, r.data)
	return out
}

// Rows returns the size of the leading dimension (1 for scalars).
func (r *RawTensor) Rows() int {
	if len(r.shape) == 0 {
		return 1
	}
	return r.shape[0]
}

// Cols returns the size of the second dimension of a 2D tensor.
func (r *RawTensor) Cols() int {
	if len(r.shape) != 2 {
		panic(fmt.Sprintf("tensor has shape %v, not 2D", r.shape))
	}
	return r.shape[1]
}

func (r *RawTensor) offset(indices []int) int {
	if len(indices) != len(r.shape) {
		panic(fmt.Sprintf("got %d indices for %dD tensor", len(indices), len(r.shape)))
	}
	off := 0
	for d, i := range indices {
		if i < 0 || i >= r.shape[d] {
			panic(fmt.Sprintf("index %d out of range for dimension %d of shape %v", i, d, r.shape))
		}
		off += i * r.stride[d]
	}
	return off
}

// At returns the element at the given indices.
func (r *RawTensor) At(indices ...int) float64 {
	return r.data[r.offset(indices)]
}

// Set stores v (rounded to the tensor's precision) at the given indices.
func (r *RawTensor) Set(v float64, indices ...int) {
	r.data[r.offset(indices)] = r.dtype.Round(v)
}

// Row returns a copy of row i of a 2D tensor.
func (r *RawTensor) Row(i int) []float64 {
	cols := r.Cols()
	out := make([]float64, cols)
	copy(out, r.data[i*cols:(i+1)*cols])
	return out
}

// Col returns a copy of column j of a 2D tensor.
func (r *RawTensor) Col(j int) []float64 {
	cols := r.Cols()
	rows := r.shape[0]
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = r.data[i*cols+j]
	}
	return out
}

// HasNaN reports whether any element is NaN.
func (r *RawTensor) HasNaN() bool {
	for _, v := range r.data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the tensor.
//
// Parameter values are copied by value so that the clone and the original
// can be updated independently (marginalization and backend conversion rely
// on this).
func (r *RawTensor) Clone() *RawTensor {
	data := make([]float64, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Cast returns a copy of the tensor converted to dtype.
func (r *RawTensor) Cast(dtype DataType) *RawTensor {
	out := r.Clone()
	out.dtype = dtype
	for i, v := range out.data {
		out.data[i] = dtype.Round(v)
	}
	return out
}

// String implements fmt.Stringer for debugging.
func (r *RawTensor) String() string {
	if len(r.shape) == 2 {
		s := fmt.Sprintf("RawTensor%v[", r.shape)
		for i := 0; i < r.shape[0]; i++ {
			if i > 0 {
				s += " "
			}
			s += fmt.Sprint(r.Row(i))
		}
		return s + "]"
	}
	return fmt.Sprintf("RawTensor%v%v", r.shape, r.data)
}
