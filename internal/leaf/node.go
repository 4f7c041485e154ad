package leaf

import (
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// Node is a leaf distribution over one variable.
type Node struct {
	module.Base
	family Family
	scope  scope.Scope
	params Params
}

// NewNode creates a leaf of family over variable v.
func NewNode(backend tensor.Backend, family Family, v int, params Params) (*Node, error) {
	s, err := scope.New([]int{v})
	if err != nil {
		return nil, errors.Wrap(module.ErrScopeViolation, err.Error())
	}
	if err := checkParams(family, params); err != nil {
		return nil, err
	}
	base, err := module.NewBase(backend, tensor.Float64, nil)
	if err != nil {
		return nil, err
	}
	return &Node{Base: base, family: family, scope: s, params: params.Clone()}, nil
}

// Kind returns the family name.
func (n *Node) Kind() module.Kind { return NodeKind(n.family) }

// NumOut returns 1.
func (n *Node) NumOut() int { return 1 }

// ScopesOut returns the single-variable scope.
func (n *Node) ScopesOut() []scope.Scope { return []scope.Scope{n.scope} }

// Family returns the distribution family.
func (n *Node) Family() Family { return n.family }

// Var returns the modelled variable id.
func (n *Node) Var() int { return n.scope.Query()[0] }

// Params returns a copy of the parameters.
func (n *Node) Params() Params { return n.params.Clone() }

// SetParams validates and replaces the parameters.
func (n *Node) SetParams(p Params) error {
	if err := checkParams(n.family, p); err != nil {
		return err
	}
	n.params = p.Clone()
	return nil
}
