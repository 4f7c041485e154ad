package dispatch

import (
	"math/rand/v2"
	"slices"

	"github.com/born-ml/spflow/internal/module"
	"github.com/pkg/errors"
)

// SamplingContext names the rows and outputs one sampling call fills.
//
// OutputIDs is parallel to InstanceIDs; an empty entry means every output of
// the module being sampled. A nil OutputIDs means every output for every row.
type SamplingContext struct {
	InstanceIDs []int
	OutputIDs   [][]int
	Src         rand.Source
}

// NewSamplingContext returns a context selecting all n rows and all outputs.
// A nil src is replaced by a randomly seeded PCG source.
func NewSamplingContext(n int, src rand.Source) *SamplingContext {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &SamplingContext{InstanceIDs: ids, Src: src}
}

// Validate checks that every instance id is a row of a batch of rows rows.
func (s *SamplingContext) Validate(rows int) error {
	if s.OutputIDs != nil && len(s.OutputIDs) != len(s.InstanceIDs) {
		return errors.Wrapf(module.ErrIndexOutOfBounds, "%d output lists for %d instances",
			len(s.OutputIDs), len(s.InstanceIDs))
	}
	for _, id := range s.InstanceIDs {
		if id < 0 || id >= rows {
			return errors.Wrapf(module.ErrIndexOutOfBounds, "instance id %d not in [0, %d)", id, rows)
		}
	}
	return nil
}

// Rand returns a generator drawing from the context source.
func (s *SamplingContext) Rand() *rand.Rand {
	return rand.New(s.Src)
}

// Outputs returns the outputs requested for the k-th instance of m.
func (s *SamplingContext) Outputs(k int, m module.Module) []int {
	if s.OutputIDs == nil || len(s.OutputIDs[k]) == 0 {
		return module.AllOutputs(m)
	}
	return s.OutputIDs[k]
}

// Sub returns a context over a subset of instances sharing the random source.
func (s *SamplingContext) Sub(instanceIDs []int, outputIDs [][]int) *SamplingContext {
	return &SamplingContext{InstanceIDs: instanceIDs, OutputIDs: outputIDs, Src: s.Src}
}

// OutputGroup is a set of instances that requested the same single output.
type OutputGroup struct {
	Output    int
	Instances []int
}

// GroupByOutput groups the instances by their requested output of m.
//
// Every instance must request exactly one output (a module with one output
// needs no explicit request); more returns ErrAmbiguousOutput. Groups are
// ordered by output id.
func (s *SamplingContext) GroupByOutput(m module.Module) ([]OutputGroup, error) {
	byOutput := make(map[int][]int)
	for k, inst := range s.InstanceIDs {
		outs := s.Outputs(k, m)
		if len(outs) != 1 {
			return nil, errors.Wrapf(module.ErrAmbiguousOutput,
				"%s: instance %d requests %d outputs, only one can be sampled", m.Kind(), inst, len(outs))
		}
		if outs[0] < 0 || outs[0] >= m.NumOut() {
			return nil, errors.Wrapf(module.ErrIndexOutOfBounds, "%s: output %d not in [0, %d)", m.Kind(), outs[0], m.NumOut())
		}
		byOutput[outs[0]] = append(byOutput[outs[0]], inst)
	}

	outputs := make([]int, 0, len(byOutput))
	for o := range byOutput {
		outputs = append(outputs, o)
	}
	slices.Sort(outputs)
	groups := make([]OutputGroup, len(outputs))
	for i, o := range outputs {
		groups[i] = OutputGroup{Output: o, Instances: byOutput[o]}
	}
	return groups, nil
}

// Repeat returns n copies of outputs, one per instance.
func Repeat(outputs []int, n int) [][]int {
	out := make([][]int, n)
	for i := range out {
		out[i] = outputs
	}
	return out
}
