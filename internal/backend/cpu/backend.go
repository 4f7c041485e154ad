// Package cpu implements the array backend: eager tensor operations over plain Go slices.
package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/spflow/internal/backends"
	"github.com/born-ml/spflow/internal/parallel"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// CPUBackend implements tensor operations on CPU.
//
// Every operation allocates its result; inputs are never modified, so a
// tensor can safely be shared between cached results of one traversal.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend. Element-wise loops over large tensors are
// split across all CPUs.
func New() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// SetParallel replaces the parallel execution config.
func (cpu *CPUBackend) SetParallel(cfg parallel.Config) {
	cpu.parallel = cfg
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Kind returns tensor.ArrayKind.
func (cpu *CPUBackend) Kind() tensor.BackendKind {
	return tensor.ArrayKind
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, func(x, y float64) float64 { return x / y })
}

// AddScalar adds scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary("addscalar", x, func(v float64) float64 { return v + scalar })
}

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary("mulscalar", x, func(v float64) float64 { return v * scalar })
}

// Exp computes element-wise exponential.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, math.Exp)
}

// Log computes element-wise natural logarithm. Log(0) is -Inf.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("log", x, math.Log)
}

// binary applies f element-wise over the broadcast of a and b.
func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float64) float64) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	dtype := resultType(a.DType(), b.DType())
	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}

	out, aData, bData := result.Data(), a.Data(), b.Data()
	if !needsBroadcast {
		parallel.ForChunks(len(out), func(start, end int) {
			for i := start; i < end; i++ {
				out[i] = dtype.Round(f(aData[i], bData[i]))
			}
		}, cpu.parallel)
		return result
	}

	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(a.Shape(), outShape)
	bStrides := computeBroadcastStridesForShape(b.Shape(), outShape)
	parallel.ForChunks(len(out), func(start, end int) {
		for i := start; i < end; i++ {
			ai := computeFlatIndex(i, outStrides, aStrides)
			bi := computeFlatIndex(i, outStrides, bStrides)
			out[i] = dtype.Round(f(aData[ai], bData[bi]))
		}
	}, cpu.parallel)
	return result
}

// unary applies f to every element of x.
func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, f func(v float64) float64) *tensor.RawTensor {
	dtype := resultType(x.DType(), x.DType())
	result, err := tensor.NewRaw(x.Shape(), dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	out, in := result.Data(), x.Data()
	parallel.ForChunks(len(in), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = dtype.Round(f(in[i]))
		}
	}, cpu.parallel)
	return result
}

// resultType promotes two operand types; booleans take part in arithmetic as Float64.
func resultType(a, b tensor.DataType) tensor.DataType {
	if a == tensor.Float32 && (b == tensor.Float32 || b == tensor.Bool) {
		return tensor.Float32
	}
	if b == tensor.Float32 && a == tensor.Bool {
		return tensor.Float32
	}
	return tensor.Float64
}

func init() {
	backends.Register("cpu", func(config string) (tensor.Backend, error) {
		if config != "" {
			return nil, errors.Errorf("cpu backend takes no configuration, got %q", config)
		}
		return New(), nil
	})
}
