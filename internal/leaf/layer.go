package leaf

import (
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// Layer bundles n leaves of one family, each over one variable.
// Several nodes may model the same variable.
type Layer struct {
	module.Base
	family Family
	scopes []scope.Scope
	params []Params
}

// NewLayer creates a layer with one node per entry of vars.
func NewLayer(backend tensor.Backend, family Family, vars []int, params []Params) (*Layer, error) {
	if len(vars) == 0 {
		return nil, errors.Wrap(module.ErrInvalidParameter, "leaf layer needs at least one node")
	}
	if len(params) != len(vars) {
		return nil, errors.Wrapf(module.ErrInvalidParameter, "%d parameter sets for %d nodes", len(params), len(vars))
	}
	base, err := module.NewBase(backend, tensor.Float64, nil)
	if err != nil {
		return nil, err
	}
	l := &Layer{Base: base, family: family, scopes: make([]scope.Scope, len(vars)), params: make([]Params, len(vars))}
	for i, v := range vars {
		s, err := scope.New([]int{v})
		if err != nil {
			return nil, errors.Wrap(module.ErrScopeViolation, err.Error())
		}
		if err := checkParams(family, params[i]); err != nil {
			return nil, errors.WithMessagef(err, "node %d", i)
		}
		l.scopes[i] = s
		l.params[i] = params[i].Clone()
	}
	return l, nil
}

// Kind returns the family name with a "Layer" suffix.
func (l *Layer) Kind() module.Kind { return LayerKind(l.family) }

// NumOut returns the number of nodes.
func (l *Layer) NumOut() int { return len(l.scopes) }

// ScopesOut returns one single-variable scope per node.
func (l *Layer) ScopesOut() []scope.Scope { return l.scopes }

// Family returns the distribution family.
func (l *Layer) Family() Family { return l.family }

// Vars returns the variable id of every node.
func (l *Layer) Vars() []int {
	vars := make([]int, len(l.scopes))
	for i, s := range l.scopes {
		vars[i] = s.Query()[0]
	}
	return vars
}

// Params returns a copy of the parameters of node i.
func (l *Layer) Params(i int) Params { return l.params[i].Clone() }

// SetParams validates and replaces the parameters of node i.
func (l *Layer) SetParams(i int, p Params) error {
	if err := checkParams(l.family, p); err != nil {
		return err
	}
	l.params[i] = p.Clone()
	return nil
}
