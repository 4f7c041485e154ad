package node

import (
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/pkg/errors"
)

// ProductNode is a factorization over the outputs of its children, whose
// scopes must be pairwise disjoint.
type ProductNode struct {
	module.Base
	scope scope.Scope
}

// NewProductNode creates a product over all outputs of children.
func NewProductNode(children []module.Module) (*ProductNode, error) {
	if len(children) == 0 {
		return nil, errors.Wrap(module.ErrInvalidParameter, "product node needs at least one child")
	}
	base, err := module.NewBase(children[0].Backend(), children[0].DType(), children)
	if err != nil {
		return nil, err
	}
	scopes := module.InputScopes(children)
	if !scope.AllPairwiseDisjoint(scopes) {
		return nil, errors.Wrapf(module.ErrScopeViolation, "product node inputs have overlapping scopes %v", scopes)
	}
	return &ProductNode{Base: base, scope: scope.JoinAll(scopes)}, nil
}

// Kind returns KindProduct.
func (p *ProductNode) Kind() module.Kind { return KindProduct }

// NumOut returns 1.
func (p *ProductNode) NumOut() int { return 1 }

// ScopesOut returns the joint scope of the inputs.
func (p *ProductNode) ScopesOut() []scope.Scope { return []scope.Scope{p.scope} }
