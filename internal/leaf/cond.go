package leaf

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// CondFunc derives the parameters of a conditional leaf from the batch,
// typically from its evidence columns.
type CondFunc func(data *tensor.RawTensor) (Params, error)

// CondNode is a leaf over one variable conditioned on evidence variables.
//
// It holds no parameters of its own. Every evaluation retrieves them, in
// priority order, from the "params" argument of the dispatch context, the
// "cond_f" argument of the dispatch context, or the node's own CondFunc.
type CondNode struct {
	module.Base
	family Family
	scope  scope.Scope
	condF  CondFunc
}

// NewCondNode creates a conditional leaf of family over v given evidence.
// condF may be nil when parameters are always supplied through the context.
func NewCondNode(backend tensor.Backend, family Family, v int, evidence []int, condF CondFunc) (*CondNode, error) {
	if len(evidence) == 0 {
		return nil, errors.Wrap(module.ErrScopeViolation, "conditional leaf needs evidence variables")
	}
	s, err := scope.New([]int{v}, evidence...)
	if err != nil {
		return nil, errors.Wrap(module.ErrScopeViolation, err.Error())
	}
	base, err := module.NewBase(backend, tensor.Float64, nil)
	if err != nil {
		return nil, err
	}
	return &CondNode{Base: base, family: family, scope: s, condF: condF}, nil
}

// Kind returns the family name with a "Cond" prefix.
func (n *CondNode) Kind() module.Kind { return CondKind(n.family) }

// NumOut returns 1.
func (n *CondNode) NumOut() int { return 1 }

// ScopesOut returns the conditional scope.
func (n *CondNode) ScopesOut() []scope.Scope { return []scope.Scope{n.scope} }

// Family returns the distribution family.
func (n *CondNode) Family() Family { return n.family }

// Var returns the modelled variable id.
func (n *CondNode) Var() int { return n.scope.Query()[0] }

// CondFunc returns the node's own parameter function.
func (n *CondNode) CondFunc() CondFunc { return n.condF }

// SetCondFunc replaces the node's own parameter function.
func (n *CondNode) SetCondFunc(f CondFunc) { n.condF = f }

// ResolveParams returns the parameters for data from the highest priority source.
func (n *CondNode) ResolveParams(ctx *dispatch.Context, data *tensor.RawTensor) (Params, error) {
	p, err := n.resolve(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := checkParams(n.family, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (n *CondNode) resolve(ctx *dispatch.Context, data *tensor.RawTensor) (Params, error) {
	if v, ok := ctx.Arg(n, dispatch.ArgParams); ok {
		switch p := v.(type) {
		case Params:
			return p, nil
		case map[string]float64:
			return Params(p), nil
		default:
			return nil, errors.Wrapf(module.ErrInvalidParameter, "%s: %q argument has type %T", n.Kind(), dispatch.ArgParams, v)
		}
	}
	if v, ok := ctx.Arg(n, dispatch.ArgCondFunc); ok {
		switch f := v.(type) {
		case CondFunc:
			return f(data)
		case func(*tensor.RawTensor) (Params, error):
			return f(data)
		default:
			return nil, errors.Wrapf(module.ErrInvalidParameter, "%s: %q argument has type %T", n.Kind(), dispatch.ArgCondFunc, v)
		}
	}
	if n.condF != nil {
		return n.condF(data)
	}
	return nil, errors.Wrapf(module.ErrMissingParameter, "%s over %v: no params, cond_f or own parameter function", n.Kind(), n.scope)
}
