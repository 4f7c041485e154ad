package layer_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/spflow/internal/backend/cpu"
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/layer"
	"github.com/born-ml/spflow/internal/leaf"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backend = cpu.New()

func gaussian(t *testing.T, v int, mean, std float64) *leaf.Node {
	t.Helper()
	n, err := leaf.NewNode(backend, leaf.Gaussian{}, v, leaf.Params{"mean": mean, "std": std})
	require.NoError(t, err)
	return n
}

// gaussians returns a leaf layer with one Gaussian per mean, all over v.
func gaussians(t *testing.T, v int, means ...float64) *leaf.Layer {
	t.Helper()
	vars := make([]int, len(means))
	params := make([]leaf.Params, len(means))
	for i, m := range means {
		vars[i] = v
		params[i] = leaf.Params{"mean": m, "std": 1}
	}
	l, err := leaf.NewLayer(backend, leaf.Gaussian{}, vars, params)
	require.NoError(t, err)
	return l
}

func logLikelihood(t *testing.T, m module.Module, rows [][]float64) *tensor.RawTensor {
	t.Helper()
	ll, err := dispatch.LogLikelihood(dispatch.NewContext(), m, tensor.MustFromRows(rows), true)
	require.NoError(t, err)
	return ll
}

var rows = [][]float64{{0.5, 1.6, -0.2}, {-1, 0, 2}, {2, math.NaN(), 0.3}}

func TestSumLayer_MatchesNodes(t *testing.T) {
	children := []module.Module{gaussian(t, 0, 0, 1), gaussians(t, 0, 1, 2)}
	weights := [][]float64{{0.2, 0.3, 0.5}, {0.6, 0.1, 0.3}}

	l, err := layer.NewSumLayer(2, children, weights)
	require.NoError(t, err)
	assert.Equal(t, 2, l.NumOut())
	assert.True(t, scope.AllEqual(append(l.ScopesOut(), scope.Of(0))))

	got := logLikelihood(t, l, rows)
	require.Equal(t, tensor.Shape{3, 2}, got.Shape())
	for o, w := range weights {
		s, err := node.NewSumNode(children, w)
		require.NoError(t, err)
		want := logLikelihood(t, s, rows)
		for r := range rows {
			assert.InDelta(t, want.At(r, 0), got.At(r, o), 1e-10)
		}
	}
}

func TestSumLayer_Invalid(t *testing.T) {
	_, err := layer.NewSumLayer(2, []module.Module{gaussian(t, 0, 0, 1), gaussian(t, 1, 0, 1)}, nil)
	assert.True(t, errors.Is(err, module.ErrScopeViolation))

	_, err = layer.NewSumLayer(0, []module.Module{gaussian(t, 0, 0, 1)}, nil)
	assert.True(t, errors.Is(err, module.ErrInvalidParameter))

	_, err = layer.NewSumLayer(2, []module.Module{gaussians(t, 0, 0, 1)}, [][]float64{{0.5, 0.5}})
	assert.True(t, errors.Is(err, module.ErrInvalidParameter))
}

func TestProductLayer(t *testing.T) {
	l, err := layer.NewProductLayer(3, []module.Module{gaussian(t, 0, 0, 1), gaussian(t, 2, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 3, l.NumOut())

	ll := logLikelihood(t, l, rows)
	require.Equal(t, tensor.Shape{3, 3}, ll.Shape())
	want := 0.5*0.5*0.5 + 0.5*1.2*1.2
	want = -want - math.Log(2*math.Pi)
	for o := range 3 {
		assert.InDelta(t, want, ll.At(0, o), 1e-10)
	}

	_, err = layer.NewProductLayer(1, []module.Module{gaussian(t, 0, 0, 1), gaussian(t, 0, 1, 1)})
	assert.True(t, errors.Is(err, module.ErrScopeViolation))
}

func TestPartitionLayer(t *testing.T) {
	a := gaussians(t, 0, 0, 1)
	b := gaussians(t, 1, -1, 0, 1)
	l, err := layer.NewPartitionLayer([][]module.Module{{a}, {b}})
	require.NoError(t, err)
	require.Equal(t, 6, l.NumOut())
	for _, s := range l.ScopesOut() {
		assert.True(t, s.Equal(scope.Of(0, 1)))
	}

	ll := logLikelihood(t, l, rows)
	la := logLikelihood(t, a, rows)
	lb := logLikelihood(t, b, rows)
	for r := range rows {
		for i := range 2 {
			for j := range 3 {
				assert.InDelta(t, la.At(r, i)+lb.At(r, j), ll.At(r, i*3+j), 1e-10)
			}
		}
	}
}

func TestPartitionLayer_ScopeViolation(t *testing.T) {
	_, err := layer.NewPartitionLayer([][]module.Module{{gaussians(t, 0, 0, 1)}, {gaussian(t, 0, 0, 1)}})
	assert.True(t, errors.Is(err, module.ErrScopeViolation))

	_, err = layer.NewPartitionLayer(nil)
	assert.True(t, errors.Is(err, module.ErrInvalidParameter))
}

func TestHadamardLayer(t *testing.T) {
	a := gaussians(t, 0, 0, 1)
	b := gaussians(t, 1, -1, 1)
	c := gaussian(t, 2, 0, 2)
	l, err := layer.NewHadamardLayer([][]module.Module{{a}, {b}, {c}})
	require.NoError(t, err)
	require.Equal(t, 2, l.NumOut())

	ll := logLikelihood(t, l, rows)
	la := logLikelihood(t, a, rows)
	lb := logLikelihood(t, b, rows)
	lc := logLikelihood(t, c, rows)
	for r := range rows {
		for o := range 2 {
			assert.InDelta(t, la.At(r, o)+lb.At(r, o)+lc.At(r, 0), ll.At(r, o), 1e-10)
		}
	}

	_, err = layer.NewHadamardLayer([][]module.Module{{a}, {gaussians(t, 1, 0, 1, 2)}})
	assert.True(t, errors.Is(err, module.ErrScopeViolation))
}

func TestSumLayer_Sample(t *testing.T) {
	// output 0 prefers the component near -10, output 1 the one near 10.
	children := []module.Module{gaussian(t, 0, -10, 0.1), gaussian(t, 0, 10, 0.1)}
	l, err := layer.NewSumLayer(2, children, [][]float64{{1 - 1e-9, 1e-9}, {1e-9, 1 - 1e-9}})
	require.NoError(t, err)

	n := 20
	data := tensor.NaNs(tensor.Shape{n, 1})
	sctx := dispatch.NewSamplingContext(n, rand.NewPCG(5, 6))
	sctx.OutputIDs = make([][]int, n)
	for i := range n {
		sctx.OutputIDs[i] = []int{i % 2}
	}
	require.NoError(t, dispatch.Sample(dispatch.NewContext(), l, data, sctx))
	for i := range n {
		want := -10.0
		if i%2 == 1 {
			want = 10
		}
		assert.InDelta(t, want, data.At(i, 0), 1)
	}

	sctx = dispatch.NewSamplingContext(1, rand.NewPCG(5, 6))
	err = dispatch.Sample(dispatch.NewContext(), l, tensor.NaNs(tensor.Shape{1, 1}), sctx)
	assert.True(t, errors.Is(err, module.ErrAmbiguousOutput))
}

func TestPartitionLayer_Sample(t *testing.T) {
	a := gaussians(t, 0, -10, 10)
	b := gaussians(t, 1, -20, 20)
	l, err := layer.NewPartitionLayer([][]module.Module{{a}, {b}})
	require.NoError(t, err)
	root, err := layer.NewSumLayer(1, []module.Module{l}, [][]float64{{1e-9, 1 - 3e-9, 1e-9, 1e-9}})
	require.NoError(t, err)

	n := 10
	data := tensor.NaNs(tensor.Shape{n, 2})
	require.NoError(t, dispatch.Sample(dispatch.NewContext(), root, data, dispatch.NewSamplingContext(n, rand.NewPCG(7, 8))))
	for i := range n {
		assert.InDelta(t, -10, data.At(i, 0), 5)
		assert.InDelta(t, 20, data.At(i, 1), 5)
	}
}

func TestPartitionLayer_Marginalize(t *testing.T) {
	a := gaussians(t, 0, 0, 1)
	b := gaussians(t, 1, -1, 1)
	l, err := layer.NewPartitionLayer([][]module.Module{{a}, {b}})
	require.NoError(t, err)

	m, err := dispatch.Marginalize(dispatch.NewContext(), l, []int{1}, true)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.NumOut())
	assert.True(t, module.Scope(m).Equal(scope.Of(0)))

	withMissing := logLikelihood(t, l, [][]float64{{0.3, math.NaN()}})
	marginal := logLikelihood(t, m, [][]float64{{0.3, 5}})
	for o := range 2 {
		assert.InDelta(t, withMissing.At(0, o*2), marginal.At(0, o), 1e-10)
	}

	m, err = dispatch.Marginalize(dispatch.NewContext(), l, []int{0, 1}, true)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestToBackend_PreservesLogLikelihood(t *testing.T) {
	a := gaussians(t, 0, 0, 1)
	b := gaussians(t, 1, -1, 1)
	h, err := layer.NewHadamardLayer([][]module.Module{{a}, {b}})
	require.NoError(t, err)
	root, err := layer.NewSumLayer(1, []module.Module{h}, nil)
	require.NoError(t, err)

	other := cpu.New()
	converted, err := dispatch.ToBackend(dispatch.NewContext(), root, other)
	require.NoError(t, err)
	assert.Same(t, other, converted.Backend())

	want := logLikelihood(t, root, rows)
	got := logLikelihood(t, converted, rows)
	assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-12)
}
