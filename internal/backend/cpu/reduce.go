package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/spflow/internal/parallel"
	"github.com/born-ml/spflow/internal/tensor"
)

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
//
// Example:
//
//	y := backend.SumDim(x, -1, true)   // [N, K] -> [N, 1]
//	z := backend.SumDim(x, -1, false)  // [N, K] -> [N]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("sumdim", x, dim, keepDim, func(values []float64) float64 {
		s := 0.0
		for _, v := range values {
			s += v
		}
		return s
	})
}

// MaxDim returns the maximum along the specified dimension.
// An empty reduction yields -Inf.
func (cpu *CPUBackend) MaxDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("maxdim", x, dim, keepDim, maxOf)
}

// LogSumExpDim computes log(sum(exp(x))) along dim in a numerically stable way.
//
// Rows where every entry is -Inf reduce to -Inf (no NaN is produced).
func (cpu *CPUBackend) LogSumExpDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("logsumexpdim", x, dim, keepDim, LogSumExp)
}

// CumSum computes the cumulative sum along dim; the result has the input shape.
func (cpu *CPUBackend) CumSum(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	result, err := tensor.NewRaw(shape, resultType(x.DType(), x.DType()), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cumsum: %v", err))
	}

	outer, size, inner := splitAt(shape, dim)
	in, out := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			acc := 0.0
			for k := 0; k < size; k++ {
				idx := o*size*inner + k*inner + i
				acc += in[idx]
				out[idx] = result.DType().Round(acc)
			}
		}
	}
	return result
}

// reduce collapses dim of x by applying f to every 1D slice along it.
func (cpu *CPUBackend) reduce(op string, x *tensor.RawTensor, dim int, keepDim bool, f func([]float64) float64) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		panic(fmt.Sprintf("%s: cannot reduce a scalar", op))
	}
	dim = shape.NormalizeDim(dim)

	dtype := resultType(x.DType(), x.DType())
	result, err := tensor.NewRaw(reducedShape(shape, dim, keepDim), dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	outer, size, inner := splitAt(shape, dim)
	in, out := x.Data(), result.Data()
	// Each output slot j = o*inner + i reduces one slice.
	parallel.ForChunks(outer*inner, func(start, end int) {
		buf := make([]float64, size)
		for j := start; j < end; j++ {
			o, i := j/inner, j%inner
			for k := 0; k < size; k++ {
				buf[k] = in[o*size*inner+k*inner+i]
			}
			out[j] = dtype.Round(f(buf))
		}
	}, cpu.parallel)
	return result
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m || math.IsNaN(v) {
			m = v
		}
	}
	return m
}

// LogSumExp computes log(sum(exp(values))) in a numerically stable way.
//
// Unlike floats.LogSumExp an all -Inf input yields -Inf instead of NaN,
// which is the log-likelihood of an impossible event.
func LogSumExp(values []float64) float64 {
	m := maxOf(values)
	if math.IsInf(m, -1) || math.IsInf(m, 1) || math.IsNaN(m) {
		return m
	}
	s := 0.0
	for _, v := range values {
		s += math.Exp(v - m)
	}
	return m + math.Log(s)
}
