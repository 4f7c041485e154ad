package ops

import "github.com/born-ml/spflow/internal/tensor"

// WhereOp represents output = condition ? x : y.
//
// The condition receives no gradient; x and y receive the output gradient
// where they were selected.
type WhereOp struct {
	condition *tensor.RawTensor
	inputs    []*tensor.RawTensor // [x, y]
	output    *tensor.RawTensor
}

// NewWhereOp creates a new WhereOp.
func NewWhereOp(condition, x, y, output *tensor.RawTensor) *WhereOp {
	return &WhereOp{
		condition: condition,
		inputs:    []*tensor.RawTensor{x, y},
		output:    output,
	}
}

// Backward routes the gradient to the selected branch.
func (op *WhereOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x, y := op.inputs[0], op.inputs[1]
	zeros, err := tensor.NewRaw(outputGrad.Shape(), outputGrad.DType(), outputGrad.Device())
	if err != nil {
		panic(err)
	}
	gradX := backend.Where(op.condition, outputGrad, zeros)
	gradY := backend.Where(op.condition, zeros, outputGrad)
	return []*tensor.RawTensor{
		reduceBroadcast(gradX, x.Shape(), backend),
		reduceBroadcast(gradY, y.Shape(), backend),
	}
}

// Inputs returns the differentiable inputs [x, y].
func (op *WhereOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor.
func (op *WhereOp) Output() *tensor.RawTensor {
	return op.output
}
