package ops

import "github.com/born-ml/spflow/internal/tensor"

// IndexSelectOp represents a gather of slices along dim.
//
// Backward scatters (adds) the output gradient back to the selected
// positions; repeated indices accumulate.
type IndexSelectOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	dim    int
	index  []int
}

// NewIndexSelectOp creates a new IndexSelectOp.
func NewIndexSelectOp(input, output *tensor.RawTensor, dim int, index []int) *IndexSelectOp {
	return &IndexSelectOp{
		input:  input,
		output: output,
		dim:    input.Shape().NormalizeDim(dim),
		index:  append([]int(nil), index...),
	}
}

// Backward scatter-adds the gradient.
func (op *IndexSelectOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	result, err := tensor.NewRaw(shape, outputGrad.DType(), outputGrad.Device())
	if err != nil {
		panic(err)
	}

	outer, inner := 1, 1
	for d := 0; d < op.dim; d++ {
		outer *= shape[d]
	}
	for d := op.dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	size := shape[op.dim]
	n := len(op.index)

	g, r := outputGrad.Data(), result.Data()
	for o := 0; o < outer; o++ {
		for k, idx := range op.index {
			for i := 0; i < inner; i++ {
				r[(o*size+idx)*inner+i] += g[(o*n+k)*inner+i]
			}
		}
	}
	return []*tensor.RawTensor{result}
}

// Inputs returns the input tensors.
func (op *IndexSelectOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *IndexSelectOp) Output() *tensor.RawTensor {
	return op.output
}
