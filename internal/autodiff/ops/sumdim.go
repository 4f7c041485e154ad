package ops

import "github.com/born-ml/spflow/internal/tensor"

// SumDimOp represents a sum reduction along one dimension.
//
// Backward broadcasts the output gradient back over the reduced dimension.
type SumDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		input:   input,
		output:  output,
		dim:     input.Shape().NormalizeDim(dim),
		keepDim: keepDim,
	}
}

// Backward computes grad_input[..., k, ...] = outputGrad[..., 0, ...].
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		grad = backend.Reshape(grad, keepDimShape(op.input.Shape(), op.dim))
	}
	return []*tensor.RawTensor{expandTo(grad, op.input.Shape(), backend)}
}

// Inputs returns the input tensors.
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
