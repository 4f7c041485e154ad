package ops

import "github.com/born-ml/spflow/internal/tensor"

// CatOp represents concatenation of tensors along a dimension.
//
// Backward splits the output gradient into the slices that came from each input.
type CatOp struct {
	inputs []*tensor.RawTensor // Input tensors that were concatenated
	dim    int                 // Dimension along which concatenation happened (normalized)
	output *tensor.RawTensor   // Concatenated output tensor
}

// NewCatOp creates a new CatOp.
func NewCatOp(inputs []*tensor.RawTensor, dim int, output *tensor.RawTensor) *CatOp {
	return &CatOp{
		inputs: inputs,
		dim:    output.Shape().NormalizeDim(dim),
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward selects each input's slice of the output gradient.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0
	for i, in := range op.inputs {
		size := in.Shape()[op.dim]
		index := make([]int, size)
		for k := range index {
			index[k] = offset + k
		}
		grads[i] = backend.IndexSelect(outputGrad, op.dim, index)
		offset += size
	}
	return grads
}
