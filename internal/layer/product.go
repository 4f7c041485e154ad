package layer

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// ProductLayer holds n identical products over all outputs of the children.
type ProductLayer struct {
	module.Base
	n     int
	scope scope.Scope
}

// NewProductLayer creates n products over children with disjoint scopes.
func NewProductLayer(n int, children []module.Module) (*ProductLayer, error) {
	if n < 1 {
		return nil, errors.Wrapf(module.ErrInvalidParameter, "product layer needs at least one node, got %d", n)
	}
	if len(children) == 0 {
		return nil, errors.Wrap(module.ErrInvalidParameter, "product layer needs at least one child")
	}
	base, err := module.NewBase(children[0].Backend(), children[0].DType(), children)
	if err != nil {
		return nil, err
	}
	scopes := module.InputScopes(children)
	if !scope.AllPairwiseDisjoint(scopes) {
		return nil, errors.Wrapf(module.ErrScopeViolation, "product layer inputs have overlapping scopes %v", scopes)
	}
	return &ProductLayer{Base: base, n: n, scope: scope.JoinAll(scopes)}, nil
}

// Kind returns KindProduct.
func (l *ProductLayer) Kind() module.Kind { return KindProduct }

// NumOut returns the number of products.
func (l *ProductLayer) NumOut() int { return l.n }

// ScopesOut returns the joint scope once per node.
func (l *ProductLayer) ScopesOut() []scope.Scope {
	scopes := make([]scope.Scope, l.n)
	for i := range scopes {
		scopes[i] = l.scope
	}
	return scopes
}

func productLayerLogLikelihood(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	l := m.(*ProductLayer)
	inputs, err := dispatch.ChildLogLikelihoods(ctx, l, data, checkSupport)
	if err != nil {
		return nil, err
	}
	b := l.Backend()
	sum := b.SumDim(inputs, 1, true)
	if l.n == 1 {
		return sum, nil
	}
	return b.Add(sum, tensor.Full(tensor.Shape{1, l.n}, 0, l.DType())), nil
}

func productLayerSample(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	l := m.(*ProductLayer)
	if err := sctx.Validate(data.Rows()); err != nil {
		return err
	}
	if _, err := sctx.GroupByOutput(l); err != nil {
		return err
	}
	return node.SampleAllChildren(ctx, l.Children(), data, sctx)
}

func productLayerMarginalize(ctx *dispatch.Context, m module.Module, vars []int, prune bool) (module.Module, error) {
	l := m.(*ProductLayer)
	children, _, err := node.MarginalizeChildren(ctx, l.Children(), vars, prune)
	if err != nil {
		return nil, err
	}
	switch {
	case len(children) == 0:
		return nil, nil
	case len(children) == 1 && prune && l.n == 1 && children[0].NumOut() == 1:
		return children[0], nil
	default:
		return NewProductLayer(l.n, children)
	}
}

func productLayerToBackend(ctx *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
	l := m.(*ProductLayer)
	children, err := node.ConvertChildren(ctx, l.Children(), target)
	if err != nil {
		return nil, err
	}
	return NewProductLayer(l.n, children)
}
