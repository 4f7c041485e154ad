package cpu_test

import (
	"math"
	"testing"

	"github.com/born-ml/spflow/internal/backend/cpu"
	"github.com/born-ml/spflow/internal/parallel"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUBackend_Metadata(t *testing.T) {
	backend := cpu.New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.Equal(t, tensor.ArrayKind, backend.Kind())
}

func TestCPUBackend_AddBroadcast(t *testing.T) {
	backend := cpu.New()
	a := tensor.Matrix([]float64{1, 2, 3}, 3, 1, tensor.Float64)
	b := tensor.Matrix([]float64{10, 20}, 1, 2, tensor.Float64)

	got := backend.Add(a, b)
	assert.Equal(t, tensor.Shape{3, 2}, got.Shape())
	assert.Equal(t, []float64{11, 21, 12, 22, 13, 23}, got.Float64s())
}

func TestCPUBackend_DTypePromotion(t *testing.T) {
	backend := cpu.New()
	a := tensor.Vector([]float64{1}, tensor.Float32)
	b := tensor.Vector([]float64{2}, tensor.Float64)
	assert.Equal(t, tensor.Float64, backend.Add(a, b).DType())
	assert.Equal(t, tensor.Float32, backend.Add(a, a).DType())
}

func TestCPUBackend_Reductions(t *testing.T) {
	backend := cpu.New()
	x := tensor.Matrix([]float64{1, 2, 3, 4, 5, 6}, 2, 3, tensor.Float64)

	assert.Equal(t, []float64{6, 15}, backend.SumDim(x, -1, false).Float64s())
	assert.Equal(t, tensor.Shape{1, 3}, backend.SumDim(x, 0, true).Shape())
	assert.Equal(t, []float64{3, 6}, backend.MaxDim(x, 1, false).Float64s())
	assert.Equal(t, []float64{1, 3, 6, 4, 9, 15}, backend.CumSum(x, 1).Float64s())

	lse := backend.LogSumExpDim(x, 1, true)
	assert.Equal(t, tensor.Shape{2, 1}, lse.Shape())
	assert.InDelta(t, math.Log(math.Exp(1)+math.Exp(2)+math.Exp(3)), lse.At(0, 0), 1e-12)
}

func TestLogSumExp_AllNegInf(t *testing.T) {
	assert.True(t, math.IsInf(cpu.LogSumExp([]float64{math.Inf(-1), math.Inf(-1)}), -1))
	assert.True(t, math.IsInf(cpu.LogSumExp(nil), -1))
	assert.InDelta(t, math.Log(2), cpu.LogSumExp([]float64{0, 0}), 1e-12)
}

func TestCPUBackend_Cat(t *testing.T) {
	backend := cpu.New()
	a := tensor.Matrix([]float64{1, 2}, 2, 1, tensor.Float64)
	b := tensor.Matrix([]float64{3, 4, 5, 6}, 2, 2, tensor.Float64)

	got := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
	assert.Equal(t, []float64{1, 3, 4, 2, 5, 6}, got.Float64s())

	assert.Panics(t, func() {
		backend.Cat([]*tensor.RawTensor{a, tensor.Zeros(tensor.Shape{3, 1})}, 1)
	})
}

func TestCPUBackend_IndexSelect(t *testing.T) {
	backend := cpu.New()
	x := tensor.Matrix([]float64{1, 2, 3, 4, 5, 6}, 2, 3, tensor.Float64)

	got := backend.IndexSelect(x, 1, []int{2, 0, 2})
	assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
	assert.Equal(t, []float64{3, 1, 3, 6, 4, 6}, got.Float64s())
	assert.Panics(t, func() { backend.IndexSelect(x, 1, []int{3}) })
}

func TestCPUBackend_WhereIsNaN(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float64{1, math.NaN(), 3}, tensor.Shape{3})
	require.NoError(t, err)

	mask := backend.IsNaN(x)
	assert.Equal(t, tensor.Bool, mask.DType())
	assert.Equal(t, []float64{0, 1, 0}, mask.Float64s())

	got := backend.Where(mask, tensor.Zeros(tensor.Shape{1}), x)
	assert.Equal(t, []float64{1, 0, 3}, got.Float64s())
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := cpu.New()
	x := tensor.Vector([]float64{1, 2, 3, 4}, tensor.Float64)
	y := backend.Reshape(x, tensor.Shape{2, 2})
	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.NotSame(t, x, y)
	assert.Panics(t, func() { backend.Reshape(x, tensor.Shape{3}) })
}

func TestCPUBackend_ParallelMatchesSequential(t *testing.T) {
	rows, cols := 300, 7
	values := make([]float64, rows*cols)
	for i := range values {
		values[i] = math.Sin(float64(i))
	}
	x := tensor.Matrix(values, rows, cols, tensor.Float64)
	bias := tensor.Matrix([]float64{1, 2, 3, 4, 5, 6, 7}, 1, cols, tensor.Float64)

	seq := cpu.New()
	seq.SetParallel(parallel.Config{Enabled: false})
	par := cpu.New()
	par.SetParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8})

	for _, op := range []func(b *cpu.CPUBackend) *tensor.RawTensor{
		func(b *cpu.CPUBackend) *tensor.RawTensor { return b.Add(x, bias) },
		func(b *cpu.CPUBackend) *tensor.RawTensor { return b.Mul(x, x) },
		func(b *cpu.CPUBackend) *tensor.RawTensor { return b.Exp(x) },
		func(b *cpu.CPUBackend) *tensor.RawTensor { return b.LogSumExpDim(x, 1, true) },
		func(b *cpu.CPUBackend) *tensor.RawTensor { return b.SumDim(x, 0, false) },
	} {
		want, got := op(seq), op(par)
		require.Equal(t, want.Shape(), got.Shape())
		assert.Equal(t, want.Float64s(), got.Float64s())
	}
}
