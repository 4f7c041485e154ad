package node

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// MarginalizeChildren marginalizes every child and drops the ones that
// vanish. kept holds the original index of every surviving child.
func MarginalizeChildren(ctx *dispatch.Context, children []module.Module, vars []int, prune bool) (survivors []module.Module, kept []int, err error) {
	for i, c := range children {
		mc, err := dispatch.Marginalize(ctx, c, vars, prune)
		if err != nil {
			return nil, nil, err
		}
		if mc != nil {
			survivors = append(survivors, mc)
			kept = append(kept, i)
		}
	}
	return survivors, kept, nil
}

// ConvertChildren converts every child to target.
func ConvertChildren(ctx *dispatch.Context, children []module.Module, target tensor.Backend) ([]module.Module, error) {
	out := make([]module.Module, len(children))
	for i, c := range children {
		cc, err := dispatch.ToBackend(ctx, c, target)
		if err != nil {
			return nil, err
		}
		out[i] = cc
	}
	return out, nil
}

func sumMarginalize(ctx *dispatch.Context, m module.Module, vars []int, prune bool) (module.Module, error) {
	s := m.(*SumNode)
	children, _, err := MarginalizeChildren(ctx, s.Children(), vars, prune)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}
	if n := module.NumInputs(children); n != len(s.weights) {
		return nil, errors.Wrapf(module.ErrScopeViolation,
			"marginalizing %v changes the sum node inputs from %d to %d", vars, len(s.weights), n)
	}
	return NewSumNode(children, s.weights)
}

func productMarginalize(ctx *dispatch.Context, m module.Module, vars []int, prune bool) (module.Module, error) {
	p := m.(*ProductNode)
	children, _, err := MarginalizeChildren(ctx, p.Children(), vars, prune)
	if err != nil {
		return nil, err
	}
	switch {
	case len(children) == 0:
		return nil, nil
	case len(children) == 1 && prune && children[0].NumOut() == 1:
		return children[0], nil
	default:
		return NewProductNode(children)
	}
}

func sumToBackend(ctx *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
	s := m.(*SumNode)
	children, err := ConvertChildren(ctx, s.Children(), target)
	if err != nil {
		return nil, err
	}
	return NewSumNode(children, s.weights)
}

func productToBackend(ctx *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
	children, err := ConvertChildren(ctx, m.Children(), target)
	if err != nil {
		return nil, err
	}
	return NewProductNode(children)
}

func init() {
	dispatch.MustRegister(KindSum, nil, dispatch.Handlers{
		LogLikelihood: sumLogLikelihood,
		Sample:        sumSample,
		EM:            sumEM,
		Marginalize:   sumMarginalize,
		ToBackend:     sumToBackend,
	})
	dispatch.MustRegister(KindProduct, nil, dispatch.Handlers{
		LogLikelihood: productLogLikelihood,
		Sample:        productSample,
		EM:            EMChildren,
		Marginalize:   productMarginalize,
		ToBackend:     productToBackend,
	})
}
