package layer

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// combination is the shared state of layers whose outputs are products of
// one input taken from every partition.
type combination struct {
	module.Base
	partitions [][]module.Module
	sizes      []int // inputs per partition
	offsets    []int // first global input index of every partition
	nOut       int
	scopes     []scope.Scope
	pick       func(output, partition int) int // local input of partition for output
}

func newCombination(partitions [][]module.Module, nOut int, pick func(c *combination, output, partition int) int) (*combination, error) {
	if len(partitions) == 0 {
		return nil, errors.Wrap(module.ErrInvalidParameter, "layer needs at least one partition")
	}
	var children []module.Module
	c := &combination{
		sizes:   make([]int, len(partitions)),
		offsets: make([]int, len(partitions)),
		nOut:    nOut,
	}
	for p, modules := range partitions {
		if len(modules) == 0 {
			return nil, errors.Wrapf(module.ErrInvalidParameter, "partition %d is empty", p)
		}
		c.offsets[p] = module.NumInputs(children)
		c.sizes[p] = module.NumInputs(modules)
		children = append(children, modules...)
	}
	base, err := module.NewBase(children[0].Backend(), children[0].DType(), children)
	if err != nil {
		return nil, err
	}
	c.Base = base
	c.partitions = make([][]module.Module, len(partitions))
	for p, modules := range partitions {
		c.partitions[p] = append([]module.Module(nil), modules...)
	}
	c.pick = func(o, p int) int { return pick(c, o, p) }

	inputScopes := module.InputScopes(children)
	c.scopes = make([]scope.Scope, nOut)
	for o := range nOut {
		combo := make([]scope.Scope, len(partitions))
		for p, idx := range c.Inputs(o) {
			combo[p] = inputScopes[idx]
		}
		if !scope.AllPairwiseDisjoint(combo) {
			return nil, errors.Wrapf(module.ErrScopeViolation, "output %d combines overlapping scopes %v", o, combo)
		}
		c.scopes[o] = scope.JoinAll(combo)
	}
	return c, nil
}

// NumOut returns the number of combinations.
func (c *combination) NumOut() int { return c.nOut }

// ScopesOut returns the joint scope of every combination.
func (c *combination) ScopesOut() []scope.Scope { return c.scopes }

// Partitions returns the child partitions.
func (c *combination) Partitions() [][]module.Module { return c.partitions }

// Inputs returns the input index taken from every partition for output o.
func (c *combination) Inputs(o int) []int {
	ids := make([]int, len(c.sizes))
	for p := range c.sizes {
		ids[p] = c.offsets[p] + c.pick(o, p)
	}
	return ids
}

// PartitionLayer outputs the products of every combination of one input
// per partition, the last partition varying fastest.
type PartitionLayer struct {
	*combination
}

// NewPartitionLayer creates a layer over the cartesian product of partitions.
// Every combination must have disjoint scopes.
func NewPartitionLayer(partitions [][]module.Module) (*PartitionLayer, error) {
	nOut := 1
	for _, modules := range partitions {
		nOut *= module.NumInputs(modules)
	}
	c, err := newCombination(partitions, nOut, func(c *combination, o, p int) int {
		stride := 1
		for q := p + 1; q < len(c.sizes); q++ {
			stride *= c.sizes[q]
		}
		return (o / stride) % c.sizes[p]
	})
	if err != nil {
		return nil, err
	}
	return &PartitionLayer{c}, nil
}

// Kind returns KindPartition.
func (l *PartitionLayer) Kind() module.Kind { return KindPartition }

// HadamardLayer outputs the element-wise products of its partitions: output
// i combines input i of every partition. Partitions have n or 1 inputs; a
// single input is broadcast.
type HadamardLayer struct {
	*combination
}

// NewHadamardLayer creates an element-wise product layer over partitions.
func NewHadamardLayer(partitions [][]module.Module) (*HadamardLayer, error) {
	nOut := 1
	for _, modules := range partitions {
		nOut = max(nOut, module.NumInputs(modules))
	}
	for p, modules := range partitions {
		if n := module.NumInputs(modules); n != nOut && n != 1 {
			return nil, errors.Wrapf(module.ErrScopeViolation,
				"hadamard partition %d has %d inputs, expected %d or 1", p, n, nOut)
		}
	}
	c, err := newCombination(partitions, nOut, func(c *combination, o, p int) int {
		if c.sizes[p] == 1 {
			return 0
		}
		return o
	})
	if err != nil {
		return nil, err
	}
	return &HadamardLayer{c}, nil
}

// Kind returns KindHadamard.
func (l *HadamardLayer) Kind() module.Kind { return KindHadamard }

// combiner is implemented by PartitionLayer and HadamardLayer.
type combiner interface {
	module.Module
	combo() *combination
}

func (c *combination) combo() *combination { return c }

func combinationLogLikelihood(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error) {
	c := m.(combiner).combo()
	inputs, err := dispatch.ChildLogLikelihoods(ctx, m, data, checkSupport)
	if err != nil {
		return nil, err
	}
	b := m.Backend()
	var ll *tensor.RawTensor
	for p := range c.sizes {
		index := make([]int, c.nOut)
		for o := range index {
			index[o] = c.offsets[p] + c.pick(o, p)
		}
		selected := b.IndexSelect(inputs, 1, index)
		if ll == nil {
			ll = selected
		} else {
			ll = b.Add(ll, selected)
		}
	}
	return ll, nil
}

func combinationSample(ctx *dispatch.Context, m module.Module, data *tensor.RawTensor, sctx *dispatch.SamplingContext) error {
	c := m.(combiner).combo()
	if err := sctx.Validate(data.Rows()); err != nil {
		return err
	}
	groups, err := sctx.GroupByOutput(m)
	if err != nil {
		return err
	}
	for _, g := range groups {
		for _, input := range c.Inputs(g.Output) {
			chosen := make([]int, len(g.Instances))
			for k := range chosen {
				chosen[k] = input
			}
			if err := node.SampleInputs(ctx, m.Children(), data, sctx, g.Instances, chosen); err != nil {
				return err
			}
		}
	}
	return nil
}

// marginalizePartitions marginalizes every partition and drops the ones
// that vanish completely.
func marginalizePartitions(ctx *dispatch.Context, c *combination, vars []int, prune bool) ([][]module.Module, error) {
	var out [][]module.Module
	for _, modules := range c.partitions {
		survivors, _, err := node.MarginalizeChildren(ctx, modules, vars, prune)
		if err != nil {
			return nil, err
		}
		if len(survivors) > 0 {
			out = append(out, survivors)
		}
	}
	return out, nil
}

func combinationMarginalize(newLayer func([][]module.Module) (module.Module, error)) dispatch.MarginalizeFunc {
	return func(ctx *dispatch.Context, m module.Module, vars []int, prune bool) (module.Module, error) {
		partitions, err := marginalizePartitions(ctx, m.(combiner).combo(), vars, prune)
		if err != nil {
			return nil, err
		}
		switch {
		case len(partitions) == 0:
			return nil, nil
		case len(partitions) == 1 && len(partitions[0]) == 1 && prune && partitions[0][0].NumOut() == 1:
			return partitions[0][0], nil
		default:
			return newLayer(partitions)
		}
	}
}

func combinationToBackend(newLayer func([][]module.Module) (module.Module, error)) dispatch.ConvertFunc {
	return func(ctx *dispatch.Context, m module.Module, target tensor.Backend) (module.Module, error) {
		c := m.(combiner).combo()
		partitions := make([][]module.Module, len(c.partitions))
		for p, modules := range c.partitions {
			converted, err := node.ConvertChildren(ctx, modules, target)
			if err != nil {
				return nil, err
			}
			partitions[p] = converted
		}
		return newLayer(partitions)
	}
}

func newPartition(partitions [][]module.Module) (module.Module, error) {
	return NewPartitionLayer(partitions)
}

func newHadamard(partitions [][]module.Module) (module.Module, error) {
	return NewHadamardLayer(partitions)
}
