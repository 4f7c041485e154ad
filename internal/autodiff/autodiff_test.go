package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/spflow/internal/autodiff"
	"github.com/born-ml/spflow/internal/backend/cpu"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutodiffBackend_Metadata(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.Equal(t, tensor.AutodiffKind, backend.Kind())
}

func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	x := tensor.Vector([]float64{1, 2}, tensor.Float64)

	backend.Exp(x)
	assert.Equal(t, 0, tape.NumOps(), "ops must not be recorded before StartRecording")

	tape.StartRecording()
	backend.Exp(x)
	backend.MaxDim(x, 0, false)
	assert.Equal(t, 1, tape.NumOps(), "MaxDim is not differentiable")

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

func TestBackward_MulSquare(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Vector([]float64{1, 2, 3}, tensor.Float64)
	y := backend.Mul(x, x)
	grads := backend.Backward(y)

	require.Contains(t, grads, x)
	assert.Equal(t, []float64{2, 4, 6}, grads[x].Float64s())
}

func TestBackward_LogSumExpIsSoftmax(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Matrix([]float64{0, math.Log(3), math.Inf(-1), math.Inf(-1)}, 2, 2, tensor.Float64)
	y := backend.LogSumExpDim(x, 1, true)
	grads := backend.Backward(y)

	g := grads[x].Float64s()
	assert.InDelta(t, 0.25, g[0], 1e-12)
	assert.InDelta(t, 0.75, g[1], 1e-12)
	assert.Equal(t, 0.0, g[2], "impossible rows get no gradient")
	assert.Equal(t, 0.0, g[3])
}

func TestBackward_BroadcastAndReduce(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	a := tensor.Matrix([]float64{1, 2}, 2, 1, tensor.Float64)
	b := tensor.Matrix([]float64{10, 20, 30}, 1, 3, tensor.Float64)
	s := backend.SumDim(backend.Add(a, b), 1, true)
	grads := backend.Backward(s)

	assert.Equal(t, []float64{3, 3}, grads[a].Float64s())
	assert.Equal(t, []float64{2, 2, 2}, grads[b].Float64s())
}

func TestBackward_IndexSelectAndCat(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	a := tensor.Matrix([]float64{1, 2}, 1, 2, tensor.Float64)
	b := tensor.Matrix([]float64{3}, 1, 1, tensor.Float64)
	c := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	sel := backend.IndexSelect(c, 1, []int{2, 2, 0})
	grads := backend.Backward(sel)

	assert.Equal(t, []float64{1, 0}, grads[a].Float64s())
	assert.Equal(t, []float64{2}, grads[b].Float64s())
}

func TestBackward_Where(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float64{1, math.NaN()}, tensor.Shape{2})
	require.NoError(t, err)
	v := tensor.Vector([]float64{4, 5}, tensor.Float64)
	ll := backend.MulScalar(v, 2)
	out := backend.Where(backend.IsNaN(x), tensor.Zeros(tensor.Shape{1}), ll)
	grads := backend.Backward(out)

	assert.Equal(t, []float64{2, 0}, grads[v].Float64s())
}
