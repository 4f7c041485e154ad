package structure

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/layer"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
)

func layerBasedChildren(ctx *dispatch.Context, children []module.Module) ([]module.Module, error) {
	out := make([]module.Module, len(children))
	for i, c := range children {
		lc, err := dispatch.ToLayerBased(ctx, c)
		if err != nil {
			return nil, err
		}
		out[i] = lc
	}
	return out, nil
}

func sumNodeToLayer(ctx *dispatch.Context, m module.Module) (module.Module, error) {
	s := m.(*node.SumNode)
	children, err := layerBasedChildren(ctx, s.Children())
	if err != nil {
		return nil, err
	}
	return layer.NewSumLayer(1, children, [][]float64{s.Weights()})
}

func productNodeToLayer(ctx *dispatch.Context, m module.Module) (module.Module, error) {
	children, err := layerBasedChildren(ctx, m.Children())
	if err != nil {
		return nil, err
	}
	return layer.NewProductLayer(1, children)
}

func sumLayerToLayer(ctx *dispatch.Context, m module.Module) (module.Module, error) {
	l := m.(*layer.SumLayer)
	children, err := layerBasedChildren(ctx, l.Children())
	if err != nil {
		return nil, err
	}
	weights := make([][]float64, l.NumOut())
	for i := range weights {
		weights[i] = l.Weights(i)
	}
	return layer.NewSumLayer(l.NumOut(), children, weights)
}

func productLayerToLayer(ctx *dispatch.Context, m module.Module) (module.Module, error) {
	children, err := layerBasedChildren(ctx, m.Children())
	if err != nil {
		return nil, err
	}
	return layer.NewProductLayer(m.NumOut(), children)
}

type partitioned interface {
	module.Module
	Partitions() [][]module.Module
	Inputs(o int) []int
}

func layerBasedPartitions(ctx *dispatch.Context, m module.Module) ([][]module.Module, error) {
	parts := m.(partitioned).Partitions()
	out := make([][]module.Module, len(parts))
	for p, modules := range parts {
		converted, err := layerBasedChildren(ctx, modules)
		if err != nil {
			return nil, err
		}
		out[p] = converted
	}
	return out, nil
}

func partitionToLayer(ctx *dispatch.Context, m module.Module) (module.Module, error) {
	parts, err := layerBasedPartitions(ctx, m)
	if err != nil {
		return nil, err
	}
	return layer.NewPartitionLayer(parts)
}

func hadamardToLayer(ctx *dispatch.Context, m module.Module) (module.Module, error) {
	parts, err := layerBasedPartitions(ctx, m)
	if err != nil {
		return nil, err
	}
	return layer.NewHadamardLayer(parts)
}

// expandInputs returns one node-based module per input of a composite.
func expandInputs(ctx *dispatch.Context, children []module.Module) ([]module.Module, error) {
	var inputs []module.Module
	for _, c := range children {
		outs, err := dispatch.ExpandOutputs(ctx, c)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, outs...)
	}
	return inputs, nil
}

func expandSumNode(ctx *dispatch.Context, m module.Module) ([]module.Module, error) {
	s := m.(*node.SumNode)
	inputs, err := expandInputs(ctx, s.Children())
	if err != nil {
		return nil, err
	}
	out, err := node.NewSumNode(inputs, s.Weights())
	if err != nil {
		return nil, err
	}
	return []module.Module{out}, nil
}

func expandProductNode(ctx *dispatch.Context, m module.Module) ([]module.Module, error) {
	inputs, err := expandInputs(ctx, m.Children())
	if err != nil {
		return nil, err
	}
	out, err := node.NewProductNode(inputs)
	if err != nil {
		return nil, err
	}
	return []module.Module{out}, nil
}

func expandSumLayer(ctx *dispatch.Context, m module.Module) ([]module.Module, error) {
	l := m.(*layer.SumLayer)
	inputs, err := expandInputs(ctx, l.Children())
	if err != nil {
		return nil, err
	}
	outs := make([]module.Module, l.NumOut())
	for i := range outs {
		s, err := node.NewSumNode(inputs, l.Weights(i))
		if err != nil {
			return nil, err
		}
		outs[i] = s
	}
	return outs, nil
}

// expandProductLayer returns the same product node for every output, since
// all outputs of a product layer are identical.
func expandProductLayer(ctx *dispatch.Context, m module.Module) ([]module.Module, error) {
	inputs, err := expandInputs(ctx, m.Children())
	if err != nil {
		return nil, err
	}
	p, err := node.NewProductNode(inputs)
	if err != nil {
		return nil, err
	}
	outs := make([]module.Module, m.NumOut())
	for i := range outs {
		outs[i] = p
	}
	return outs, nil
}

func expandCombination(ctx *dispatch.Context, m module.Module) ([]module.Module, error) {
	l := m.(partitioned)
	inputs, err := expandInputs(ctx, l.Children())
	if err != nil {
		return nil, err
	}
	outs := make([]module.Module, l.NumOut())
	for o := range outs {
		ids := l.Inputs(o)
		factors := make([]module.Module, len(ids))
		for p, id := range ids {
			factors[p] = inputs[id]
		}
		prod, err := node.NewProductNode(factors)
		if err != nil {
			return nil, err
		}
		outs[o] = prod
	}
	return outs, nil
}

func init() {
	for kind, h := range map[module.Kind]dispatch.Handlers{
		node.KindSum:        {ToLayerBased: sumNodeToLayer, ExpandOutputs: expandSumNode},
		node.KindProduct:    {ToLayerBased: productNodeToLayer, ExpandOutputs: expandProductNode},
		layer.KindSum:       {ToLayerBased: sumLayerToLayer, ExpandOutputs: expandSumLayer},
		layer.KindProduct:   {ToLayerBased: productLayerToLayer, ExpandOutputs: expandProductLayer},
		layer.KindPartition: {ToLayerBased: partitionToLayer, ExpandOutputs: expandCombination},
		layer.KindHadamard:  {ToLayerBased: hadamardToLayer, ExpandOutputs: expandCombination},
	} {
		dispatch.MustRegister(kind, nil, h)
	}
}
