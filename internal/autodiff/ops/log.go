package ops

import "github.com/born-ml/spflow/internal/tensor"

// LogOp represents element-wise natural logarithm operation.
//
// Forward:  output = log(input)
// Backward: ∂L/∂input = ∂L/∂output / input
//
// Sum weights are strictly positive, so the division is well defined for
// every parameter path through the circuit.
type LogOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewLogOp creates a new log operation.
func NewLogOp(input, output *tensor.RawTensor) *LogOp {
	return &LogOp{input: input, output: output}
}

// Backward computes the gradient with respect to input.
func (op *LogOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(outputGrad, op.input)}
}

// Inputs returns the input tensors.
func (op *LogOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *LogOp) Output() *tensor.RawTensor {
	return op.output
}
