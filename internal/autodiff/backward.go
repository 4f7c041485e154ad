package autodiff

import (
	"github.com/born-ml/spflow/internal/tensor"
)

// BackwardCapable is an interface for backends that support backward pass.
// AutodiffBackend implements this interface.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
	// Backward computes gradients of output with a ones seed.
	Backward(output *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor
}

// GetTape returns the gradient tape (implements BackwardCapable interface).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes d(sum(output))/dt for every recorded tensor t.
//
// The seed gradient is a ones tensor shaped like output, so for a [N, 1]
// log-likelihood the result holds the gradient of the total batch
// log-likelihood. Gradient arithmetic runs on the wrapped backend and is
// never recorded.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := backend.Mul(x, x) // y = x²
//	grads := backend.Backward(y)
//	grad := grads[x] // 2x
func (b *AutodiffBackend[B]) Backward(output *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	seed := tensor.Full(output.Shape(), 1, output.DType())
	return b.tape.Backward(output, seed, b.inner)
}

// AsBackwardCapable returns backend as a BackwardCapable when it records gradients.
func AsBackwardCapable(backend tensor.Backend) (BackwardCapable, bool) {
	bc, ok := backend.(BackwardCapable)
	return bc, ok
}
