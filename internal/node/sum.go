// Package node implements the composite nodes of a circuit: weighted sums
// (mixtures over children with identical scope) and products
// (factorizations over children with disjoint scopes).
//
// Both have a single output. Their inputs are the concatenated outputs of
// their children.
package node

import (
	"math"

	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Module kinds.
const (
	KindSum     module.Kind = "SumNode"
	KindProduct module.Kind = "ProductNode"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.
const WeightTolerance = 1e-6

// SumNode is a mixture over the outputs of its children, which must all
// have the same scope.
type SumNode struct {
	module.Base
	scope   scope.Scope
	weights []float64
}

// NewSumNode creates a sum over all outputs of children.
// A nil weights slice selects uniform weights.
func NewSumNode(children []module.Module, weights []float64) (*SumNode, error) {
	if len(children) == 0 {
		return nil, errors.Wrap(module.ErrInvalidParameter, "sum node needs at least one child")
	}
	base, err := module.NewBase(children[0].Backend(), children[0].DType(), children)
	if err != nil {
		return nil, err
	}
	scopes := module.InputScopes(children)
	if !scope.AllEqual(scopes) {
		return nil, errors.Wrapf(module.ErrScopeViolation, "sum node inputs have different scopes %v", scopes)
	}
	if weights == nil {
		weights = Uniform(len(scopes))
	}
	s := &SumNode{Base: base, scope: scopes[0]}
	if err := s.SetWeights(weights); err != nil {
		return nil, err
	}
	return s, nil
}

// Kind returns KindSum.
func (s *SumNode) Kind() module.Kind { return KindSum }

// NumOut returns 1.
func (s *SumNode) NumOut() int { return 1 }

// ScopesOut returns the common scope of the inputs.
func (s *SumNode) ScopesOut() []scope.Scope { return []scope.Scope{s.scope} }

// Weights returns a copy of the mixture weights.
func (s *SumNode) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}

// SetWeights validates and replaces the mixture weights.
func (s *SumNode) SetWeights(weights []float64) error {
	if err := CheckWeights(weights, module.NumInputs(s.Children())); err != nil {
		return err
	}
	s.weights = append([]float64(nil), weights...)
	return nil
}

// LogWeights returns log(weights) as a [1, n] tensor of the module type.
func (s *SumNode) LogWeights() *tensor.RawTensor {
	return logWeights(s.weights, s.DType())
}

// CheckWeights verifies that weights has n positive entries summing to 1.
func CheckWeights(weights []float64, n int) error {
	if len(weights) != n {
		return errors.Wrapf(module.ErrInvalidParameter, "%d weights for %d inputs", len(weights), n)
	}
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 1) {
			return errors.Wrapf(module.ErrInvalidParameter, "weight %d is %v, must be positive", i, w)
		}
	}
	if sum := floats.Sum(weights); math.Abs(sum-1) > WeightTolerance {
		return errors.Wrapf(module.ErrInvalidParameter, "weights sum to %v, must sum to 1", sum)
	}
	return nil
}

// Uniform returns n equal weights.
func Uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// Normalize scales non-negative expectations to weights summing to 1,
// bounding every weight away from zero. It returns false if all are zero.
func Normalize(expectations []float64) ([]float64, bool) {
	total := floats.Sum(expectations)
	if !(total > 0) || math.IsInf(total, 1) {
		return nil, false
	}
	w := make([]float64, len(expectations))
	for i, e := range expectations {
		w[i] = max(e, 1e-12*total)
	}
	floats.Scale(1/floats.Sum(w), w)
	return w, true
}

func logWeights(weights []float64, dtype tensor.DataType) *tensor.RawTensor {
	logs := make([]float64, len(weights))
	for i, w := range weights {
		logs[i] = math.Log(w)
	}
	return tensor.Matrix(logs, 1, len(logs), dtype)
}
