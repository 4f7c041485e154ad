package dispatch

import (
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
)

// LogLikelihood returns the [N, NumOut] log-likelihood of m on data.
// The result is memoized: repeated calls with the same ctx return the same tensor.
func LogLikelihood(ctx *Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	ctx = Ensure(ctx)
	h, err := ctx.registry.resolve(m, OpLogLikelihood)
	if err != nil {
		return nil, err
	}
	return memoize(ctx, OpLogLikelihood, m, func() (*tensor.RawTensor, error) {
		return h.LogLikelihood(ctx, m, data, checkSupport)
	})
}

// Sample fills the missing cells of data selected by sctx.
// A nil sctx selects every row and every output.
func Sample(ctx *Context, m module.Module, data *tensor.RawTensor, sctx *SamplingContext) error {
	ctx = Ensure(ctx)
	if sctx == nil {
		sctx = NewSamplingContext(data.Rows(), nil)
	}
	h, err := ctx.registry.resolve(m, OpSample)
	if err != nil {
		return err
	}
	_, err = memoize(ctx, OpSample, m, func() (struct{}, error) {
		return struct{}{}, h.Sample(ctx, m, data, sctx)
	})
	return err
}

// MaximumLikelihoodEstimation estimates the parameters of m from data.
func MaximumLikelihoodEstimation(ctx *Context, m module.Module, data *tensor.RawTensor, opts MLEOptions) error {
	ctx = Ensure(ctx)
	h, err := ctx.registry.resolve(m, OpMaximumLikelihoodEstimation)
	if err != nil {
		return err
	}
	_, err = memoize(ctx, OpMaximumLikelihoodEstimation, m, func() (struct{}, error) {
		return struct{}{}, h.MLE(ctx, m, data, opts)
	})
	return err
}

// EM runs the maximization step of m once per ctx.
func EM(ctx *Context, m module.Module, data *tensor.RawTensor) error {
	ctx = Ensure(ctx)
	h, err := ctx.registry.resolve(m, OpEM)
	if err != nil {
		return err
	}
	_, err = memoize(ctx, OpEM, m, func() (struct{}, error) {
		return struct{}{}, h.EM(ctx, m, data)
	})
	return err
}

// Marginalize returns m with vars integrated out, or nil when m is
// marginalized completely. Shared modules are rewritten once per ctx.
func Marginalize(ctx *Context, m module.Module, vars []int, prune bool) (module.Module, error) {
	ctx = Ensure(ctx)
	h, err := ctx.registry.resolve(m, OpMarginalize)
	if err != nil {
		return nil, err
	}
	return memoize(ctx, OpMarginalize, m, func() (module.Module, error) {
		return h.Marginalize(ctx, m, vars, prune)
	})
}

// ToBackend returns a copy of m evaluating on target. Shared modules are
// converted once per ctx so the copy keeps the DAG structure.
func ToBackend(ctx *Context, m module.Module, target tensor.Backend) (module.Module, error) {
	ctx = Ensure(ctx)
	h, err := ctx.registry.resolve(m, OpToBackend)
	if err != nil {
		return nil, err
	}
	return memoize(ctx, OpToBackend, m, func() (module.Module, error) {
		return h.ToBackend(ctx, m, target)
	})
}

// ToLayerBased returns the layer-based form of m.
func ToLayerBased(ctx *Context, m module.Module) (module.Module, error) {
	ctx = Ensure(ctx)
	h, err := ctx.registry.resolve(m, OpToLayerBased)
	if err != nil {
		return nil, err
	}
	return memoize(ctx, OpToLayerBased, m, func() (module.Module, error) {
		return h.ToLayerBased(ctx, m)
	})
}

// ExpandOutputs returns one node-based module per output of m.
func ExpandOutputs(ctx *Context, m module.Module) ([]module.Module, error) {
	ctx = Ensure(ctx)
	h, err := ctx.registry.resolve(m, OpExpandOutputs)
	if err != nil {
		return nil, err
	}
	return memoize(ctx, OpExpandOutputs, m, func() ([]module.Module, error) {
		return h.ExpandOutputs(ctx, m)
	})
}

// ChildLogLikelihoods returns the log-likelihoods of the children of m
// concatenated along the output dimension ([N, NumInputs]).
func ChildLogLikelihoods(ctx *Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	ctx = Ensure(ctx)
	children := m.Children()
	lls := make([]*tensor.RawTensor, len(children))
	for i, c := range children {
		ll, err := LogLikelihood(ctx, c, data, checkSupport)
		if err != nil {
			return nil, err
		}
		lls[i] = ll
	}
	if len(lls) == 1 {
		return lls[0], nil
	}
	return m.Backend().Cat(lls, 1), nil
}
