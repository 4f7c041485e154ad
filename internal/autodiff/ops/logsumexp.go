package ops

import (
	"math"

	"github.com/born-ml/spflow/internal/tensor"
)

// LogSumExpOp represents output = log(sum(exp(input), dim)).
//
// Backward:
//
//	∂L/∂input[k] = ∂L/∂output * exp(input[k] - output)
//
// i.e. the softmax of the input along dim. Slices whose output is -Inf
// (every input -Inf) receive a zero gradient.
type LogSumExpOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewLogSumExpOp creates a new LogSumExpOp.
func NewLogSumExpOp(input, output *tensor.RawTensor, dim int, keepDim bool) *LogSumExpOp {
	return &LogSumExpOp{
		input:   input,
		output:  output,
		dim:     input.Shape().NormalizeDim(dim),
		keepDim: keepDim,
	}
}

// Backward computes the softmax-weighted gradient.
func (op *LogSumExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	keep := keepDimShape(shape, op.dim)

	out := op.output
	grad := outputGrad
	if !op.keepDim {
		out = backend.Reshape(out, keep)
		grad = backend.Reshape(grad, keep)
	}
	out = expandTo(out, shape, backend)
	grad = expandTo(grad, shape, backend)

	result, err := tensor.NewRaw(shape, outputGrad.DType(), outputGrad.Device())
	if err != nil {
		panic(err)
	}
	in, o, g, r := op.input.Data(), out.Data(), grad.Data(), result.Data()
	for i := range r {
		if math.IsInf(o[i], -1) {
			continue
		}
		r[i] = g[i] * math.Exp(in[i]-o[i])
	}
	return []*tensor.RawTensor{result}
}

// Inputs returns the input tensors.
func (op *LogSumExpOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *LogSumExpOp) Output() *tensor.RawTensor {
	return op.output
}
