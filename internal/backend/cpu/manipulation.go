package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/spflow/internal/tensor"
)

// Reshape returns a copy of t with a different shape and the same number of elements.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result, err := tensor.NewRaw(newShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	copy(result.Data(), t.Data())
	return result
}

// Cat concatenates tensors along dim. All other dimensions must match.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors to concatenate")
	}
	first := tensors[0].Shape()
	dim = first.NormalizeDim(dim)

	outShape := first.Clone()
	outShape[dim] = 0
	dtype := tensors[0].DType()
	for i, t := range tensors {
		s := t.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(s), len(first)))
		}
		for d := range s {
			if d != dim && s[d] != first[d] {
				panic(fmt.Sprintf("cat: tensor %d has shape %v, incompatible with %v along dim %d", i, s, first, dim))
			}
		}
		outShape[dim] += s[dim]
		dtype = resultType(dtype, t.DType())
	}

	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	outer, outSize, inner := splitAt(outShape, dim)
	out := result.Data()
	start := 0
	for _, t := range tensors {
		_, size, _ := splitAt(t.Shape(), dim)
		in := t.Data()
		for o := 0; o < outer; o++ {
			for k := 0; k < size; k++ {
				src := in[(o*size+k)*inner : (o*size+k+1)*inner]
				dst := out[(o*outSize+start+k)*inner:]
				for i, v := range src {
					dst[i] = dtype.Round(v)
				}
			}
		}
		start += size
	}
	return result
}

// IsNaN returns a Bool tensor holding 1 where x is NaN and 0 elsewhere.
func (cpu *CPUBackend) IsNaN(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), tensor.Bool, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("isnan: %v", err))
	}
	out := result.Data()
	for i, v := range x.Data() {
		if math.IsNaN(v) {
			out[i] = 1
		}
	}
	return result
}

// Where selects x where condition is non-zero and y elsewhere (with broadcasting).
func (cpu *CPUBackend) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	shape, _, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	outShape, _, err := tensor.BroadcastShapes(condition.Shape(), shape)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	dtype := resultType(x.DType(), y.DType())
	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	outStrides := outShape.ComputeStrides()
	cStrides := computeBroadcastStridesForShape(condition.Shape(), outShape)
	xStrides := computeBroadcastStridesForShape(x.Shape(), outShape)
	yStrides := computeBroadcastStridesForShape(y.Shape(), outShape)
	cData, xData, yData, out := condition.Data(), x.Data(), y.Data(), result.Data()
	for i := range out {
		if cData[computeFlatIndex(i, outStrides, cStrides)] != 0 {
			out[i] = xData[computeFlatIndex(i, outStrides, xStrides)]
		} else {
			out[i] = yData[computeFlatIndex(i, outStrides, yStrides)]
		}
	}
	return result
}

// IndexSelect gathers the slices at positions index along dim.
// Indices may repeat; the result has len(index) entries along dim.
func (cpu *CPUBackend) IndexSelect(x *tensor.RawTensor, dim int, index []int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	outShape := shape.Clone()
	outShape[dim] = len(index)
	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("indexselect: %v", err))
	}

	outer, size, inner := splitAt(shape, dim)
	in, out := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		for k, idx := range index {
			if idx < 0 || idx >= size {
				panic(fmt.Sprintf("indexselect: index %d out of range [0, %d)", idx, size))
			}
			copy(out[(o*len(index)+k)*inner:(o*len(index)+k+1)*inner], in[(o*size+idx)*inner:(o*size+idx+1)*inner])
		}
	}
	return result
}
