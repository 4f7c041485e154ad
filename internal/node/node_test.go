package node_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/spflow/internal/backend/cpu"
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/leaf"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianLogPDF(x, mean, std float64) float64 {
	z := (x - mean) / std
	return -0.5*z*z - math.Log(std) - 0.5*math.Log(2*math.Pi)
}

func gaussian(t *testing.T, v int, mean, std float64) *leaf.Node {
	t.Helper()
	n, err := leaf.NewNode(cpu.New(), leaf.Gaussian{}, v, leaf.Params{"mean": mean, "std": std})
	require.NoError(t, err)
	return n
}

func product(t *testing.T, children ...module.Module) *node.ProductNode {
	t.Helper()
	p, err := node.NewProductNode(children)
	require.NoError(t, err)
	return p
}

// mixture builds 0.3·N(x0;0,1)N(x1;0,1) + 0.7·N(x0;1,1)N(x1;2,1).
func mixture(t *testing.T) *node.SumNode {
	t.Helper()
	s, err := node.NewSumNode([]module.Module{
		product(t, gaussian(t, 0, 0, 1), gaussian(t, 1, 0, 1)),
		product(t, gaussian(t, 0, 1, 1), gaussian(t, 1, 2, 1)),
	}, []float64{0.3, 0.7})
	require.NoError(t, err)
	return s
}

func TestSumNode_ScopeViolation(t *testing.T) {
	_, err := node.NewSumNode([]module.Module{gaussian(t, 0, 0, 1), gaussian(t, 1, 0, 1)}, nil)
	assert.True(t, errors.Is(err, module.ErrScopeViolation))
}

func TestSumNode_InvalidWeights(t *testing.T) {
	children := []module.Module{gaussian(t, 0, 0, 1), gaussian(t, 0, 1, 1)}

	_, err := node.NewSumNode(children, []float64{0.5, 0.6})
	assert.True(t, errors.Is(err, module.ErrInvalidParameter))

	_, err = node.NewSumNode(children, []float64{1})
	assert.True(t, errors.Is(err, module.ErrInvalidParameter))

	_, err = node.NewSumNode(children, []float64{-0.5, 1.5})
	assert.True(t, errors.Is(err, module.ErrInvalidParameter))

	s, err := node.NewSumNode(children, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, s.Weights())
}

func TestProductNode_ScopeViolation(t *testing.T) {
	_, err := node.NewProductNode([]module.Module{gaussian(t, 0, 0, 1), gaussian(t, 0, 1, 1)})
	assert.True(t, errors.Is(err, module.ErrScopeViolation))
}

func TestProductNode_Scope(t *testing.T) {
	p := product(t, gaussian(t, 2, 0, 1), gaussian(t, 0, 0, 1))
	assert.Equal(t, 1, p.NumOut())
	assert.True(t, module.Scope(p).Equal(scope.Of(0, 2)))
}

func TestSumNode_LogLikelihood(t *testing.T) {
	s := mixture(t)
	data := tensor.MustFromRows([][]float64{{0.5, 1.6}})

	ll, err := dispatch.LogLikelihood(dispatch.NewContext(), s, data, true)
	require.NoError(t, err)

	l1 := gaussianLogPDF(0.5, 0, 1) + gaussianLogPDF(1.6, 0, 1)
	l2 := gaussianLogPDF(0.5, 1, 1) + gaussianLogPDF(1.6, 2, 1)
	want := math.Log(0.3*math.Exp(l1) + 0.7*math.Exp(l2))

	assert.Equal(t, tensor.Shape{1, 1}, ll.Shape())
	assert.InDelta(t, want, ll.At(0, 0), 1e-10)
}

func TestSumNode_LogLikelihood_Missing(t *testing.T) {
	s := mixture(t)
	data := tensor.MustFromRows([][]float64{{math.NaN(), math.NaN()}, {0.5, math.NaN()}})

	ll, err := dispatch.LogLikelihood(dispatch.NewContext(), s, data, true)
	require.NoError(t, err)

	assert.InDelta(t, 0, ll.At(0, 0), 1e-12, "fully missing rows integrate to one")
	want := math.Log(0.3*math.Exp(gaussianLogPDF(0.5, 0, 1)) + 0.7*math.Exp(gaussianLogPDF(0.5, 1, 1)))
	assert.InDelta(t, want, ll.At(1, 0), 1e-10)
}

func TestLogLikelihood_Memoized(t *testing.T) {
	shared := gaussian(t, 0, 0, 1)
	s, err := node.NewSumNode([]module.Module{
		product(t, shared, gaussian(t, 1, 0, 1)),
		product(t, shared, gaussian(t, 1, 3, 1)),
	}, nil)
	require.NoError(t, err)

	ctx := dispatch.NewContext()
	_, err = dispatch.LogLikelihood(ctx, s, tensor.MustFromRows([][]float64{{0, 0}}), true)
	require.NoError(t, err)

	// sum, two products, one shared leaf and two distinct leaves.
	assert.Equal(t, 6, ctx.CacheLen())
}

func TestSumNode_Sample(t *testing.T) {
	s, err := node.NewSumNode([]module.Module{
		product(t, gaussian(t, 0, -10, 0.1), gaussian(t, 1, -10, 0.1)),
		product(t, gaussian(t, 0, 10, 0.1), gaussian(t, 1, 10, 0.1)),
	}, []float64{0.5, 0.5})
	require.NoError(t, err)

	rows := make([][]float64, 50)
	for i := range rows {
		rows[i] = []float64{math.NaN(), 10}
	}
	data := tensor.MustFromRows(rows)
	sctx := dispatch.NewSamplingContext(len(rows), rand.NewPCG(1, 2))

	require.NoError(t, dispatch.Sample(dispatch.NewContext(), s, data, sctx))
	for i := range rows {
		assert.InDelta(t, 10, data.At(i, 0), 1, "evidence selects the second component")
		assert.Equal(t, 10.0, data.At(i, 1), "evidence is kept")
	}
}

func TestSumNode_Sample_Prior(t *testing.T) {
	s, err := node.NewSumNode([]module.Module{gaussian(t, 0, -10, 0.1), gaussian(t, 0, 10, 0.1)}, []float64{0.2, 0.8})
	require.NoError(t, err)

	n := 2000
	data := tensor.NaNs(tensor.Shape{n, 1})
	require.NoError(t, dispatch.Sample(dispatch.NewContext(), s, data, dispatch.NewSamplingContext(n, rand.NewPCG(3, 4))))

	high := 0
	for i := 0; i < n; i++ {
		if data.At(i, 0) > 0 {
			high++
		}
	}
	assert.InDelta(t, 0.8, float64(high)/float64(n), 0.05)
}

func TestSample_AmbiguousOutput(t *testing.T) {
	s := mixture(t)
	data := tensor.NaNs(tensor.Shape{1, 2})
	sctx := &dispatch.SamplingContext{
		InstanceIDs: []int{0},
		OutputIDs:   [][]int{{0, 0}},
		Src:         rand.NewPCG(1, 1),
	}
	err := dispatch.Sample(dispatch.NewContext(), s, data, sctx)
	assert.True(t, errors.Is(err, module.ErrAmbiguousOutput))

	sctx.OutputIDs = [][]int{{1}}
	err = dispatch.Sample(dispatch.NewContext(), s, data, sctx)
	assert.True(t, errors.Is(err, module.ErrIndexOutOfBounds))
}

func TestMarginalize(t *testing.T) {
	s := mixture(t)

	t.Run("prune", func(t *testing.T) {
		m, err := dispatch.Marginalize(dispatch.NewContext(), s, []int{1}, true)
		require.NoError(t, err)
		ms, ok := m.(*node.SumNode)
		require.True(t, ok)
		assert.True(t, module.Scope(ms).Equal(scope.Of(0)))
		assert.Equal(t, []float64{0.3, 0.7}, ms.Weights())
		for _, c := range ms.Children() {
			assert.Equal(t, leaf.NodeKind(leaf.Gaussian{}), c.Kind(), "single-child products collapse")
		}
	})

	t.Run("keep structure", func(t *testing.T) {
		m, err := dispatch.Marginalize(dispatch.NewContext(), s, []int{1}, false)
		require.NoError(t, err)
		for _, c := range m.Children() {
			assert.Equal(t, node.KindProduct, c.Kind())
		}
	})

	t.Run("all", func(t *testing.T) {
		m, err := dispatch.Marginalize(dispatch.NewContext(), s, []int{0, 1}, true)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("disjoint", func(t *testing.T) {
		m, err := dispatch.Marginalize(dispatch.NewContext(), s, []int{7}, true)
		require.NoError(t, err)
		data := tensor.MustFromRows([][]float64{{0.5, 1.6}})
		a, err := dispatch.LogLikelihood(dispatch.NewContext(), s, data, true)
		require.NoError(t, err)
		b, err := dispatch.LogLikelihood(dispatch.NewContext(), m, data, true)
		require.NoError(t, err)
		assert.InDelta(t, a.At(0, 0), b.At(0, 0), 1e-12)
	})

	t.Run("equals missing data", func(t *testing.T) {
		m, err := dispatch.Marginalize(dispatch.NewContext(), s, []int{1}, true)
		require.NoError(t, err)
		a, err := dispatch.LogLikelihood(dispatch.NewContext(), s, tensor.MustFromRows([][]float64{{0.5, math.NaN()}}), true)
		require.NoError(t, err)
		b, err := dispatch.LogLikelihood(dispatch.NewContext(), m, tensor.MustFromRows([][]float64{{0.5, 99}}), true)
		require.NoError(t, err)
		assert.InDelta(t, a.At(0, 0), b.At(0, 0), 1e-12)
	})
}

func TestNormalize(t *testing.T) {
	w, ok := node.Normalize([]float64{1, 3})
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, w, 1e-12)

	_, ok = node.Normalize([]float64{0, 0})
	assert.False(t, ok)
}

func TestExpectations(t *testing.T) {
	weights := []float64{0.25, 0.75}
	inputLL := tensor.MustFromRows([][]float64{{math.Log(2), math.Log(2)}})
	ll := tensor.MustFromRows([][]float64{{math.Log(2)}})
	grad := tensor.MustFromRows([][]float64{{1}})

	e := node.Expectations(inputLL, ll, grad, weights, 0)
	assert.InDeltaSlice(t, weights, e, 1e-12)
}
