package node

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
)

func sumLogLikelihood(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	s := m.(*SumNode)
	inputs, err := dispatch.ChildLogLikelihoods(ctx, s, data, checkSupport)
	if err != nil {
		return nil, err
	}
	b := s.Backend()
	// log Σ_i w_i·p_i(x) = logsumexp_i(log w_i + log p_i(x))
	return b.LogSumExpDim(b.Add(inputs, s.LogWeights()), 1, true), nil
}

func productLogLikelihood(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	p := m.(*ProductNode)
	inputs, err := dispatch.ChildLogLikelihoods(ctx, p, data, checkSupport)
	if err != nil {
		return nil, err
	}
	return p.Backend().SumDim(inputs, 1, true), nil
}
