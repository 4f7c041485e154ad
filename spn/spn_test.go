package spn_test

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/born-ml/spflow/autodiff"
	"github.com/born-ml/spflow/backend/cpu"
	"github.com/born-ml/spflow/spn"
	"github.com/born-ml/spflow/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianLogPDF(x, mean, std float64) float64 {
	z := (x - mean) / std
	return -0.5*z*z - math.Log(std) - 0.5*math.Log(2*math.Pi)
}

func mixture(t *testing.T, backend tensor.Backend) *spn.SumNode {
	t.Helper()
	leaf := func(v int, mean float64) spn.Module {
		l, err := spn.NewGaussian(backend, v, mean, 1)
		require.NoError(t, err)
		return l
	}
	p1, err := spn.NewProduct(leaf(0, 0), leaf(1, 0))
	require.NoError(t, err)
	p2, err := spn.NewProduct(leaf(0, 1), leaf(1, 2))
	require.NoError(t, err)
	root, err := spn.NewSum([]spn.Module{p1, p2}, []float64{0.3, 0.7})
	require.NoError(t, err)
	return root
}

func TestLogLikelihood_EndToEnd(t *testing.T) {
	root := mixture(t, cpu.New())
	data := tensor.MustFromRows([][]float64{{0.5, 1.6}})

	ll, err := spn.LogLikelihood(root, data, spn.DefaultLogLikelihoodConfig())
	require.NoError(t, err)

	l1 := gaussianLogPDF(0.5, 0, 1) + gaussianLogPDF(1.6, 0, 1)
	l2 := gaussianLogPDF(0.5, 1, 1) + gaussianLogPDF(1.6, 2, 1)
	assert.InDelta(t, math.Log(0.3*math.Exp(l1)+0.7*math.Exp(l2)), ll.At(0, 0), 1e-10)

	lik, err := spn.Likelihood(root, data, spn.DefaultLogLikelihoodConfig())
	require.NoError(t, err)
	assert.InDelta(t, 0.3*math.Exp(l1)+0.7*math.Exp(l2), lik.At(0, 0), 1e-12)

	_, err = spn.LogLikelihood(root, tensor.Zeros(tensor.Shape{2}), spn.DefaultLogLikelihoodConfig())
	assert.True(t, errors.Is(err, spn.ErrInvalidParameter))
}

func TestSample(t *testing.T) {
	root := mixture(t, cpu.New())
	cfg := spn.DefaultSampleConfig()
	cfg.Src = rand.NewPCG(1, 2)

	samples, err := spn.Sample(root, 100, cfg)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{100, 2}, samples.Shape())
	assert.False(t, samples.HasNaN())
}

func TestSampleWithEvidence(t *testing.T) {
	root := mixture(t, cpu.New())
	evidence := tensor.MustFromRows([][]float64{{math.NaN(), 1.5}, {0.25, math.NaN()}})
	cfg := spn.DefaultSampleConfig()
	cfg.Src = rand.NewPCG(3, 4)

	out, err := spn.SampleWithEvidence(root, evidence, cfg)
	require.NoError(t, err)
	assert.False(t, out.HasNaN())
	assert.Equal(t, 1.5, out.At(0, 1))
	assert.Equal(t, 0.25, out.At(1, 0))
	assert.True(t, math.IsNaN(evidence.At(0, 0)), "input batch is not modified")
}

func TestCondLeaf_Args(t *testing.T) {
	backend := cpu.New()
	leaf, err := spn.NewCondLeaf(backend, spn.Gaussian{}, 0, []int{1}, nil)
	require.NoError(t, err)
	data := tensor.MustFromRows([][]float64{{0.5, 3}})

	_, err = spn.LogLikelihood(leaf, data, spn.DefaultLogLikelihoodConfig())
	assert.True(t, errors.Is(err, spn.ErrMissingParameter))

	cfg := spn.DefaultLogLikelihoodConfig()
	cfg.Args = map[spn.Module]spn.Args{leaf: {spn.ArgParams: spn.Params{"mean": 0, "std": 1}}}
	ll, err := spn.LogLikelihood(leaf, data, cfg)
	require.NoError(t, err)
	assert.InDelta(t, gaussianLogPDF(0.5, 0, 1), ll.At(0, 0), 1e-12)

	cfg.Args = map[spn.Module]spn.Args{leaf: {spn.ArgCondFunc: spn.CondFunc(func(d *tensor.RawTensor) (spn.Params, error) {
		return spn.Params{"mean": d.At(0, 1), "std": 1}, nil
	})}}
	ll, err = spn.LogLikelihood(leaf, data, cfg)
	require.NoError(t, err)
	assert.InDelta(t, gaussianLogPDF(0.5, 3, 1), ll.At(0, 0), 1e-12)
}

func TestMarginalize(t *testing.T) {
	root := mixture(t, cpu.New())
	m, err := spn.Marginalize(root, []int{1}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, spn.NumVariables(m))

	ll, err := spn.LogLikelihood(m, tensor.MustFromRows([][]float64{{0.5}}), spn.DefaultLogLikelihoodConfig())
	require.NoError(t, err)
	want := math.Log(0.3*math.Exp(gaussianLogPDF(0.5, 0, 1)) + 0.7*math.Exp(gaussianLogPDF(0.5, 1, 1)))
	assert.InDelta(t, want, ll.At(0, 0), 1e-10)
}

func TestExpectationMaximization(t *testing.T) {
	root := mixture(t, cpu.New())
	cfg := spn.DefaultSampleConfig()
	cfg.Src = rand.NewPCG(5, 6)
	data, err := spn.Sample(root, 500, cfg)
	require.NoError(t, err)

	_, err = spn.ExpectationMaximization(root, data, spn.DefaultEMConfig())
	assert.True(t, errors.Is(err, spn.ErrNotImplemented))

	trainable, err := spn.ToBackend(root, autodiff.New(cpu.New()))
	require.NoError(t, err)
	history, err := spn.ExpectationMaximization(trainable, data, spn.EMConfig{MaxSteps: 10})
	require.NoError(t, err)
	assert.Len(t, history, 10)
	assert.GreaterOrEqual(t, history[9], history[0])
}

func TestNewBackend(t *testing.T) {
	t.Setenv("SPFLOW_BACKEND", "autodiff")
	backend, err := spn.NewBackend()
	require.NoError(t, err)
	assert.Equal(t, tensor.AutodiffKind, backend.Kind())

	t.Setenv("SPFLOW_BACKEND", "")
	backend, err = spn.NewBackend()
	require.NoError(t, err)
	assert.Equal(t, tensor.ArrayKind, backend.Kind())
}

func TestLayerBasedRoundTrip(t *testing.T) {
	root := mixture(t, cpu.New())
	data := tensor.MustFromRows([][]float64{{0.5, 1.6}, {math.NaN(), -1}})

	layered, err := spn.ToLayerBased(root)
	require.NoError(t, err)
	nodes, err := spn.ToNodeBased(layered)
	require.NoError(t, err)

	want, err := spn.LogLikelihood(root, data, spn.DefaultLogLikelihoodConfig())
	require.NoError(t, err)
	for _, m := range []spn.Module{layered, nodes} {
		got, err := spn.LogLikelihood(m, data, spn.DefaultLogLikelihoodConfig())
		require.NoError(t, err)
		assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-12)
	}
}

func TestSaveLoad(t *testing.T) {
	root := mixture(t, cpu.New())
	path := filepath.Join(t.TempDir(), "mixture.spn")
	require.NoError(t, spn.Save(path, root, map[string]string{"source": "test"}))

	loaded, header, err := spn.Load(path, autodiff.New(cpu.New()))
	require.NoError(t, err)
	assert.Equal(t, "test", header.Metadata["source"])

	data := tensor.MustFromRows([][]float64{{0.5, 1.6}, {math.NaN(), -1}})
	want, err := spn.LogLikelihood(root, data, spn.DefaultLogLikelihoodConfig())
	require.NoError(t, err)
	got, err := spn.LogLikelihood(loaded, data, spn.DefaultLogLikelihoodConfig())
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-12)
}
