// Package structure rewrites whole circuits: marginalization, backend
// conversion and canonicalization between the node-based and layer-based
// representations.
//
// Every rewrite runs in a single dispatch context, so a module shared by
// several parents is rewritten once and the result stays shared.
package structure

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Marginalize returns a copy of m with vars integrated out, or nil if every
// variable of m is marginalized. With prune, products left with a single
// child are replaced by that child.
func Marginalize(m module.Module, vars []int, prune bool) (module.Module, error) {
	for _, v := range vars {
		if v < 0 {
			return nil, errors.Wrapf(scope.ErrInvalidScope, "marginalize: negative variable %d", v)
		}
	}
	out, err := dispatch.Marginalize(dispatch.NewContext(), m, vars, prune)
	if err != nil {
		return nil, errors.WithMessagef(err, "marginalize %v", vars)
	}
	if out == nil {
		klog.V(1).Infof("marginalize: %s over %v eliminated completely", m.Kind(), module.Scope(m))
	}
	return out, nil
}

// ToBackend returns a copy of m whose every module evaluates on target.
func ToBackend(m module.Module, target tensor.Backend) (module.Module, error) {
	out, err := dispatch.ToBackend(dispatch.NewContext(), m, target)
	if err != nil {
		return nil, errors.WithMessagef(err, "convert to %s", target.Name())
	}
	return out, nil
}

// ToLayerBased returns the layer-based form of m: every sum and product node
// becomes a single-node layer and every leaf node a single-output leaf layer.
// Modules that already are layers are copied.
func ToLayerBased(m module.Module) (module.Module, error) {
	return dispatch.ToLayerBased(dispatch.NewContext(), m)
}

// ExpandOutputs returns one node-based module per output of m.
func ExpandOutputs(m module.Module) ([]module.Module, error) {
	return dispatch.ExpandOutputs(dispatch.NewContext(), m)
}

// ToNodeBased returns the node-based form of m, which must have a single output.
func ToNodeBased(m module.Module) (module.Module, error) {
	if m.NumOut() != 1 {
		return nil, errors.Wrapf(module.ErrAmbiguousOutput,
			"node-based form of %s needs a single output, has %d", m.Kind(), m.NumOut())
	}
	outs, err := ExpandOutputs(m)
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}
