package node

import (
	"math"

	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"k8s.io/klog/v2"
)

// Expectations returns, for output o of a mixture with weights, the expected
// number of times every input was selected:
//
//	E_i = Σ_r w_i·exp(inputLL[r, i] - ll[r, o])·grad[r, o]
//
// where grad is the gradient of the total log-likelihood with respect to the
// mixture output. Rows where the mixture is impossible contribute nothing.
func Expectations(inputLL, ll, grad *tensor.RawTensor, weights []float64, o int) []float64 {
	e := make([]float64, len(weights))
	for r := 0; r < ll.Rows(); r++ {
		total, g := ll.At(r, o), grad.At(r, o)
		if math.IsInf(total, -1) || g == 0 {
			continue
		}
		for i, w := range weights {
			e[i] += w * math.Exp(inputLL.At(r, i)-total) * g
		}
	}
	return e
}

// EMChildren runs the maximization step of every child.
func EMChildren(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor) error {
	for _, c := range m.Children() {
		if err := dispatch.EM(ctx, c, data); err != nil {
			return err
		}
	}
	return nil
}

// Gradient returns the cached log-likelihood of m and the gradient of the
// total log-likelihood with respect to it.
func Gradient(ctx *dispatch.Context, m module.Module) (ll, grad *tensor.RawTensor, ok bool) {
	cached, found := ctx.Cached(dispatch.OpLogLikelihood, m)
	if !found {
		return nil, nil, false
	}
	ll, _ = cached.(*tensor.RawTensor)
	grad, ok = ctx.Gradient(ll)
	return ll, grad, ok
}

func sumEM(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor) error {
	s := m.(*SumNode)
	if ll, grad, ok := Gradient(ctx, s); ok {
		inputs, err := dispatch.ChildLogLikelihoods(ctx, s, data, true)
		if err != nil {
			return err
		}
		if w, ok := Normalize(Expectations(inputs, ll, grad, s.weights, 0)); ok {
			if err := s.SetWeights(w); err != nil {
				return err
			}
		} else {
			klog.Warningf("em: sum node over %v has no posterior mass, keeping weights", s.scope)
		}
	}
	return EMChildren(ctx, s, data)
}
