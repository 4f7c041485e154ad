package ops

import (
	"github.com/born-ml/spflow/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}

	// NumPy broadcasting aligns shapes from the right: sum leading dimensions first.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	for i, n := range targetShape {
		if n == 1 && result.Shape()[i] != 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// expandTo broadcasts grad (shaped like a keepDim reduction) back to shape.
func expandTo(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	zeros, err := tensor.NewRaw(shape, grad.DType(), grad.Device())
	if err != nil {
		panic(err)
	}
	return backend.Add(zeros, grad)
}

// keepDimShape returns shape with dim set to 1.
func keepDimShape(shape tensor.Shape, dim int) tensor.Shape {
	out := shape.Clone()
	out[dim] = 1
	return out
}
