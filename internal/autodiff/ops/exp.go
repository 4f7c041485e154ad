package ops

import "github.com/born-ml/spflow/internal/tensor"

// ExpOp represents element-wise exponential.
//
// Forward:  output = exp(input)
// Backward: ∂L/∂input = ∂L/∂output * output
type ExpOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpOp creates a new exp operation.
func NewExpOp(input, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{input: input, output: output}
}

// Backward computes the gradient with respect to input.
func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

// Inputs returns the input tensors.
func (op *ExpOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *ExpOp) Output() *tensor.RawTensor {
	return op.output
}
