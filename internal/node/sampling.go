package node

import (
	"math"
	"slices"

	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// DrawInputs draws one input index per instance from the posterior over the
// inputs, proportional to weights[i]·exp(inputLL[instance, i]). Rows where
// every input is impossible fall back to the prior weights.
func DrawInputs(inputLL *tensor.RawTensor, weights []float64, instances []int, sctx *dispatch.SamplingContext) []int {
	logits := make([]float64, len(weights))
	probs := make([]float64, len(weights))
	chosen := make([]int, len(instances))
	for k, inst := range instances {
		top := math.Inf(-1)
		for i, w := range weights {
			logits[i] = math.Log(w) + inputLL.At(inst, i)
			top = max(top, logits[i])
		}
		if math.IsInf(top, -1) || math.IsNaN(top) {
			copy(probs, weights)
		} else {
			for i, l := range logits {
				probs[i] = math.Exp(l - top)
			}
		}
		chosen[k] = int(distuv.NewCategorical(probs, sctx.Src).Rand())
	}
	return chosen
}

// SampleInputs routes every instance to the child owning its chosen input
// and samples that child's output for it.
func SampleInputs(ctx *dispatch.Context, children []module.Module, data *tensor.RawTensor,
	sctx *dispatch.SamplingContext, instances, inputs []int) error {
	childIDs, outputIDs, err := module.InputToOutputIDs(children, inputs)
	if err != nil {
		return err
	}
	type route struct{ child, output int }
	groups := make(map[route][]int)
	for k, inst := range instances {
		r := route{childIDs[k], outputIDs[k]}
		groups[r] = append(groups[r], inst)
	}
	routes := make([]route, 0, len(groups))
	for r := range groups {
		routes = append(routes, r)
	}
	slices.SortFunc(routes, func(a, b route) int {
		if a.child != b.child {
			return a.child - b.child
		}
		return a.output - b.output
	})
	for _, r := range routes {
		insts := groups[r]
		sub := sctx.Sub(insts, dispatch.Repeat([]int{r.output}, len(insts)))
		if err := dispatch.Sample(ctx, children[r.child], data, sub); err != nil {
			return err
		}
	}
	return nil
}

func sumSample(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	s := m.(*SumNode)
	if err := sctx.Validate(data.Rows()); err != nil {
		return err
	}
	if _, err := sctx.GroupByOutput(s); err != nil {
		return err
	}
	inputs, err := dispatch.ChildLogLikelihoods(ctx, s, data, true)
	if err != nil {
		return err
	}
	chosen := DrawInputs(inputs, s.weights, sctx.InstanceIDs, sctx)
	return SampleInputs(ctx, s.Children(), data, sctx, sctx.InstanceIDs, chosen)
}

// SampleAllChildren samples every output of every child for the instances.
func SampleAllChildren(ctx *dispatch.Context, children []module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	for _, c := range children {
		if err := dispatch.Sample(ctx, c, data, sctx.Sub(sctx.InstanceIDs, nil)); err != nil {
			return err
		}
	}
	return nil
}

func productSample(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	p := m.(*ProductNode)
	if err := sctx.Validate(data.Rows()); err != nil {
		return err
	}
	if _, err := sctx.GroupByOutput(p); err != nil {
		return err
	}
	return SampleAllChildren(ctx, p.Children(), data, sctx)
}
