// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation and adds gradient tracking
// through a GradientTape. Circuits built on it keep every intermediate
// log-likelihood on the tape, which is what expectation-maximization reads
// its posterior expectations from.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := backend.Exp(x)
//	grads := backend.Backward(backend.SumDim(y, 0, false))
//	dx := grads[x]
package autodiff

import (
	"github.com/born-ml/spflow/internal/autodiff/ops"
	"github.com/born-ml/spflow/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a GradientTape.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Kind returns tensor.AutodiffKind.
func (b *AutodiffBackend[B]) Kind() tensor.BackendKind {
	return tensor.AutodiffKind
}

// record adds op to the tape when recording.
func (b *AutodiffBackend[B]) record(op ops.Operation) {
	if b.tape.IsRecording() {
		b.tape.Record(op)
	}
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	b.record(ops.NewAddOp(a, c, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(a, c)
	b.record(ops.NewSubOp(a, c, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(a, c)
	b.record(ops.NewMulOp(a, c, result))
	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(a, c)
	b.record(ops.NewDivOp(a, c, result))
	return result
}

// AddScalar adds a constant and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.AddScalar(x, scalar)
	b.record(ops.NewAddScalarOp(x, result))
	return result
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	b.record(ops.NewMulScalarOp(x, result, scalar))
	return result
}

// Exp computes element-wise exponential and records the operation.
func (b *AutodiffBackend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Exp(x)
	b.record(ops.NewExpOp(x, result))
	return result
}

// Log computes element-wise natural logarithm and records the operation.
func (b *AutodiffBackend[B]) Log(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Log(x)
	b.record(ops.NewLogOp(x, result))
	return result
}

// Reshape reshapes a tensor and records the operation.
//
// Reshape must be recorded: the wrapped backend returns a new tensor and
// without the op gradients would stop at the reshaped copy.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.record(ops.NewReshapeOp(t, result))
	return result
}

// Cat concatenates tensors and records the operation.
func (b *AutodiffBackend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Cat(tensors, dim)
	b.record(ops.NewCatOp(append([]*tensor.RawTensor(nil), tensors...), dim, result))
	return result
}

// SumDim sums along dim and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	b.record(ops.NewSumDimOp(x, result, dim, keepDim))
	return result
}

// LogSumExpDim reduces along dim and records the operation.
func (b *AutodiffBackend[B]) LogSumExpDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.LogSumExpDim(x, dim, keepDim)
	b.record(ops.NewLogSumExpOp(x, result, dim, keepDim))
	return result
}

// IndexSelect gathers slices along dim and records the operation.
func (b *AutodiffBackend[B]) IndexSelect(x *tensor.RawTensor, dim int, index []int) *tensor.RawTensor {
	result := b.inner.IndexSelect(x, dim, index)
	b.record(ops.NewIndexSelectOp(x, result, dim, index))
	return result
}

// Where selects between x and y and records the operation.
func (b *AutodiffBackend[B]) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Where(condition, x, y)
	b.record(ops.NewWhereOp(condition, x, y, result))
	return result
}

// MaxDim is not differentiable; it is used for numerical stabilization only.
func (b *AutodiffBackend[B]) MaxDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.inner.MaxDim(x, dim, keepDim)
}

// CumSum is not recorded; it only feeds index computations.
func (b *AutodiffBackend[B]) CumSum(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.CumSum(x, dim)
}

// IsNaN returns a boolean mask; masks carry no gradient.
func (b *AutodiffBackend[B]) IsNaN(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.IsNaN(x)
}
