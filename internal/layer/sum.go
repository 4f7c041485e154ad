// Package layer implements vectorized composite layers. A layer bundles
// several composite nodes over the same children and evaluates them with one
// batch of tensor operations; it is interchangeable with the equivalent
// node-based graph.
package layer

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// Module kinds.
const (
	KindSum       module.Kind = "SumLayer"
	KindProduct   module.Kind = "ProductLayer"
	KindPartition module.Kind = "PartitionLayer"
	KindHadamard  module.Kind = "HadamardLayer"
)

// SumLayer holds n mixtures, each over all outputs of the children.
type SumLayer struct {
	module.Base
	scope   scope.Scope
	weights [][]float64
}

// NewSumLayer creates n mixtures over children. weights has one row of
// NumInputs(children) entries per node; nil selects uniform weights.
func NewSumLayer(n int, children []module.Module, weights [][]float64) (*SumLayer, error) {
	if n < 1 {
		return nil, errors.Wrapf(module.ErrInvalidParameter, "sum layer needs at least one node, got %d", n)
	}
	if len(children) == 0 {
		return nil, errors.Wrap(module.ErrInvalidParameter, "sum layer needs at least one child")
	}
	base, err := module.NewBase(children[0].Backend(), children[0].DType(), children)
	if err != nil {
		return nil, err
	}
	scopes := module.InputScopes(children)
	if !scope.AllEqual(scopes) {
		return nil, errors.Wrapf(module.ErrScopeViolation, "sum layer inputs have different scopes %v", scopes)
	}
	if weights == nil {
		weights = make([][]float64, n)
		for i := range weights {
			weights[i] = node.Uniform(len(scopes))
		}
	}
	if len(weights) != n {
		return nil, errors.Wrapf(module.ErrInvalidParameter, "%d weight rows for %d nodes", len(weights), n)
	}
	l := &SumLayer{Base: base, scope: scopes[0], weights: make([][]float64, n)}
	for i, w := range weights {
		if err := l.SetWeights(i, w); err != nil {
			return nil, errors.WithMessagef(err, "node %d", i)
		}
	}
	return l, nil
}

// Kind returns KindSum.
func (l *SumLayer) Kind() module.Kind { return KindSum }

// NumOut returns the number of mixtures.
func (l *SumLayer) NumOut() int { return len(l.weights) }

// ScopesOut returns the common input scope once per node.
func (l *SumLayer) ScopesOut() []scope.Scope {
	scopes := make([]scope.Scope, len(l.weights))
	for i := range scopes {
		scopes[i] = l.scope
	}
	return scopes
}

// Weights returns a copy of the weights of node i.
func (l *SumLayer) Weights(i int) []float64 {
	return append([]float64(nil), l.weights[i]...)
}

// SetWeights validates and replaces the weights of node i.
func (l *SumLayer) SetWeights(i int, w []float64) error {
	if err := node.CheckWeights(w, module.NumInputs(l.Children())); err != nil {
		return err
	}
	l.weights[i] = append([]float64(nil), w...)
	return nil
}

// logWeights returns log weights shaped [1, n, nIn].
func (l *SumLayer) logWeights() *tensor.RawTensor {
	nIn := len(l.weights[0])
	w := tensor.MustNewRaw(tensor.Shape{1, len(l.weights), nIn}, l.DType(), tensor.CPU)
	for i, row := range l.weights {
		for j, v := range row {
			w.Set(v, 0, i, j)
		}
	}
	return l.Backend().Log(w)
}

func sumLayerLogLikelihood(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	l := m.(*SumLayer)
	inputs, err := dispatch.ChildLogLikelihoods(ctx, l, data, checkSupport)
	if err != nil {
		return nil, err
	}
	b := l.Backend()
	// [N, 1, nIn] + [1, n, nIn] reduced over the inputs.
	expanded := b.Reshape(inputs, tensor.Shape{inputs.Rows(), 1, inputs.Cols()})
	return b.LogSumExpDim(b.Add(expanded, l.logWeights()), 2, false), nil
}

func sumLayerSample(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	l := m.(*SumLayer)
	if err := sctx.Validate(data.Rows()); err != nil {
		return err
	}
	groups, err := sctx.GroupByOutput(l)
	if err != nil {
		return err
	}
	inputs, err := dispatch.ChildLogLikelihoods(ctx, l, data, true)
	if err != nil {
		return err
	}
	for _, g := range groups {
		chosen := node.DrawInputs(inputs, l.weights[g.Output], g.Instances, sctx)
		if err := node.SampleInputs(ctx, l.Children(), data, sctx, g.Instances, chosen); err != nil {
			return err
		}
	}
	return nil
}

func sumLayerEM(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor) error {
	l := m.(*SumLayer)
	if ll, grad, ok := node.Gradient(ctx, l); ok {
		inputs, err := dispatch.ChildLogLikelihoods(ctx, l, data, true)
		if err != nil {
			return err
		}
		for o := range l.weights {
			w, ok := node.Normalize(node.Expectations(inputs, ll, grad, l.weights[o], o))
			if !ok {
				continue
			}
			if err := l.SetWeights(o, w); err != nil {
				return err
			}
		}
	}
	return node.EMChildren(ctx, l, data)
}

func sumLayerMarginalize(ctx *dispatch.Context, m module.Module, vars []int, prune bool) (module.Module, error) {
	l := m.(*SumLayer)
	children, _, err := node.MarginalizeChildren(ctx, l.Children(), vars, prune)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}
	if n := module.NumInputs(children); n != len(l.weights[0]) {
		return nil, errors.Wrapf(module.ErrScopeViolation,
			"marginalizing %v changes the sum layer inputs from %d to %d", vars, len(l.weights[0]), n)
	}
	return NewSumLayer(len(l.weights), children, l.weights)
}

func sumLayerToBackend(ctx *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
	l := m.(*SumLayer)
	children, err := node.ConvertChildren(ctx, l.Children(), target)
	if err != nil {
		return nil, err
	}
	return NewSumLayer(len(l.weights), children, l.weights)
}
