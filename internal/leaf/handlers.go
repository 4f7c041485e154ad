package leaf

import (
	"math"

	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var nodeHandlers = dispatch.Handlers{
	LogLikelihood: nodeLogLikelihood,
	Sample:        nodeSample,
	MLE:           nodeMLE,
	EM:            nodeEM,
	Marginalize:   nodeMarginalize,
	ToBackend: func(_ *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
		n := m.(*Node)
		return NewNode(target, n.family, n.Var(), n.params)
	},
	ToLayerBased: func(_ *dispatch.Context, m module.Module) (module.Module, error) {
		n := m.(*Node)
		return NewLayer(n.Backend(), n.family, []int{n.Var()}, []Params{n.params})
	},
	ExpandOutputs: func(_ *dispatch.Context, m module.Module) ([]module.Module, error) {
		n := m.(*Node)
		c, err := NewNode(n.Backend(), n.family, n.Var(), n.params)
		if err != nil {
			return nil, err
		}
		return []module.Module{c}, nil
	},
}

func nodeLogLikelihood(_ *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	n := m.(*Node)
	v := n.Var()
	if err := checkColumns(data, v); err != nil {
		return nil, err
	}
	out := make([]float64, data.Rows())
	if err := logProbs(n.family, n.params, data.Col(v), checkSupport, out, 1); err != nil {
		return nil, err
	}
	return tensor.Matrix(out, data.Rows(), 1, n.DType()), nil
}

func nodeSample(_ *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	n := m.(*Node)
	return sampleSingle(n, n.family, n.params, data, sctx)
}

func sampleSingle(m module.Module, f Family, p Params, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	v := m.ScopesOut()[0].Query()[0]
	if err := checkColumns(data, v); err != nil {
		return err
	}
	if err := sctx.Validate(data.Rows()); err != nil {
		return err
	}
	for k, inst := range sctx.InstanceIDs {
		for _, o := range sctx.Outputs(k, m) {
			if o != 0 {
				return errors.Wrapf(module.ErrIndexOutOfBounds, "%s: output %d requested from a single-output leaf", m.Kind(), o)
			}
		}
		if math.IsNaN(data.At(inst, v)) {
			data.Set(f.Sample(p, sctx.Src), inst, v)
		}
	}
	return nil
}

func nodeMLE(_ *dispatch.Context, m module.Module, data *tensor.RawTensor, opts dispatch.MLEOptions) error {
	n := m.(*Node)
	if err := checkColumns(data, n.Var()); err != nil {
		return err
	}
	p, err := estimate(n.family, data.Col(n.Var()), opts, n.params)
	if err != nil {
		return err
	}
	return n.SetParams(p)
}

// emWeights returns the gradient of the total log-likelihood with respect
// to the cached log-likelihood of m, or false if m did not contribute.
func emWeights(ctx *dispatch.Context, m module.Module) (*tensor.RawTensor, bool) {
	cached, ok := ctx.Cached(dispatch.OpLogLikelihood, m)
	if !ok {
		return nil, false
	}
	ll, _ := cached.(*tensor.RawTensor)
	return ctx.Gradient(ll)
}

// emEstimate re-estimates one leaf from gradient weights. Families without
// an estimator keep their parameters; degenerate steps are skipped.
func emEstimate(m module.Module, f Family, col, weights []float64, current Params) (Params, bool) {
	p, err := estimate(f, col, dispatch.MLEOptions{Weights: weights, NaNStrategy: dispatch.NaNStrategyIgnore}, current)
	if errors.Is(err, dispatch.ErrNotImplemented) {
		return nil, false
	}
	if err != nil {
		klog.Warningf("em: keeping parameters of %s over %v: %v", m.Kind(), m.ScopesOut()[0], err)
		return nil, false
	}
	return p, true
}

func nodeEM(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor) error {
	n := m.(*Node)
	g, ok := emWeights(ctx, n)
	if !ok {
		return nil
	}
	if p, ok := emEstimate(n, n.family, data.Col(n.Var()), g.Col(0), n.params); ok {
		return n.SetParams(p)
	}
	return nil
}

func nodeMarginalize(_ *dispatch.Context, m module.Module, vars []int, _ bool) (module.Module, error) {
	n := m.(*Node)
	if n.scope.Overlaps(vars) {
		return nil, nil
	}
	return NewNode(n.Backend(), n.family, n.Var(), n.params)
}

var layerHandlers = dispatch.Handlers{
	LogLikelihood: layerLogLikelihood,
	Sample:        layerSample,
	MLE:           layerMLE,
	EM:            layerEM,
	Marginalize:   layerMarginalize,
	ToBackend: func(_ *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
		l := m.(*Layer)
		return NewLayer(target, l.family, l.Vars(), l.params)
	},
	ToLayerBased: func(_ *dispatch.Context, m module.Module) (module.Module, error) {
		l := m.(*Layer)
		return NewLayer(l.Backend(), l.family, l.Vars(), l.params)
	},
	ExpandOutputs: func(_ *dispatch.Context, m module.Module) ([]module.Module, error) {
		l := m.(*Layer)
		nodes := make([]module.Module, l.NumOut())
		for i, v := range l.Vars() {
			n, err := NewNode(l.Backend(), l.family, v, l.params[i])
			if err != nil {
				return nil, err
			}
			nodes[i] = n
		}
		return nodes, nil
	},
}

func layerLogLikelihood(_ *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	l := m.(*Layer)
	vars := l.Vars()
	if err := checkColumns(data, vars...); err != nil {
		return nil, err
	}
	rows, n := data.Rows(), len(vars)
	out := make([]float64, rows*n)
	for i, v := range vars {
		if err := logProbs(l.family, l.params[i], data.Col(v), checkSupport, out[i:], n); err != nil {
			return nil, errors.WithMessagef(err, "node %d", i)
		}
	}
	return tensor.Matrix(out, rows, n, l.DType()), nil
}

func layerSample(_ *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	l := m.(*Layer)
	vars := l.Vars()
	if err := checkColumns(data, vars...); err != nil {
		return err
	}
	if err := sctx.Validate(data.Rows()); err != nil {
		return err
	}
	for k, inst := range sctx.InstanceIDs {
		outputs := sctx.Outputs(k, l)
		used := make(map[int]int, len(outputs))
		for _, o := range outputs {
			if o < 0 || o >= len(vars) {
				return errors.Wrapf(module.ErrIndexOutOfBounds, "%s: output %d not in [0, %d)", l.Kind(), o, len(vars))
			}
			if prev, dup := used[vars[o]]; dup {
				return errors.Wrapf(module.ErrAmbiguousOutput, "%s: outputs %d and %d both model variable %d",
					l.Kind(), prev, o, vars[o])
			}
			used[vars[o]] = o
		}
		for _, o := range outputs {
			if math.IsNaN(data.At(inst, vars[o])) {
				data.Set(l.family.Sample(l.params[o], sctx.Src), inst, vars[o])
			}
		}
	}
	return nil
}

func layerMLE(_ *dispatch.Context, m module.Module, data *tensor.RawTensor, opts dispatch.MLEOptions) error {
	l := m.(*Layer)
	vars := l.Vars()
	if err := checkColumns(data, vars...); err != nil {
		return err
	}
	for i, v := range vars {
		p, err := estimate(l.family, data.Col(v), opts, l.params[i])
		if err != nil {
			return errors.WithMessagef(err, "node %d", i)
		}
		if err := l.SetParams(i, p); err != nil {
			return err
		}
	}
	return nil
}

func layerEM(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor) error {
	l := m.(*Layer)
	g, ok := emWeights(ctx, l)
	if !ok {
		return nil
	}
	for i, v := range l.Vars() {
		if p, ok := emEstimate(l, l.family, data.Col(v), g.Col(i), l.params[i]); ok {
			if err := l.SetParams(i, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func layerMarginalize(_ *dispatch.Context, m module.Module, vars []int, prune bool) (module.Module, error) {
	l := m.(*Layer)
	var keptVars []int
	var keptParams []Params
	for i, v := range l.Vars() {
		if l.scopes[i].Overlaps(vars) {
			continue
		}
		keptVars = append(keptVars, v)
		keptParams = append(keptParams, l.params[i])
	}
	switch {
	case len(keptVars) == 0:
		return nil, nil
	case len(keptVars) == 1 && prune:
		return NewNode(l.Backend(), l.family, keptVars[0], keptParams[0])
	default:
		return NewLayer(l.Backend(), l.family, keptVars, keptParams)
	}
}

var condHandlers = dispatch.Handlers{
	LogLikelihood: condLogLikelihood,
	Sample: func(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
		n := m.(*CondNode)
		if err := checkColumns(data, n.scope.Evidence()...); err != nil {
			return err
		}
		p, err := n.ResolveParams(ctx, data)
		if err != nil {
			return err
		}
		return sampleSingle(n, n.family, p, data, sctx)
	},
	// Conditional leaves hold no parameters to update.
	EM: func(*dispatch.Context, module.Module, *tensor.RawTensor) error { return nil },
	Marginalize: func(_ *dispatch.Context, m module.Module, vars []int, _ bool) (module.Module, error) {
		n := m.(*CondNode)
		if n.scope.Overlaps(vars) {
			return nil, nil
		}
		return n.copyTo(n.Backend())
	},
	ToBackend: func(_ *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
		return m.(*CondNode).copyTo(target)
	},
	ToLayerBased: func(_ *dispatch.Context, m module.Module) (module.Module, error) {
		n := m.(*CondNode)
		return n.copyTo(n.Backend())
	},
	ExpandOutputs: func(_ *dispatch.Context, m module.Module) ([]module.Module, error) {
		n := m.(*CondNode)
		c, err := n.copyTo(n.Backend())
		if err != nil {
			return nil, err
		}
		return []module.Module{c}, nil
	},
}

func condLogLikelihood(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	n := m.(*CondNode)
	v := n.Var()
	if err := checkColumns(data, append([]int{v}, n.scope.Evidence()...)...); err != nil {
		return nil, err
	}
	p, err := n.ResolveParams(ctx, data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, data.Rows())
	if err := logProbs(n.family, p, data.Col(v), checkSupport, out, 1); err != nil {
		return nil, err
	}
	return tensor.Matrix(out, data.Rows(), 1, n.DType()), nil
}

func (n *CondNode) copyTo(backend tensor.Backend) (*CondNode, error) {
	return NewCondNode(backend, n.family, n.Var(), n.scope.Evidence(), n.condF)
}
