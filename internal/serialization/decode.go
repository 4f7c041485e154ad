package serialization

import (
	"github.com/born-ml/spflow/internal/layer"
	"github.com/born-ml/spflow/internal/leaf"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// decoder rebuilds modules in id order; children always precede parents.
type decoder struct {
	backend tensor.Backend
	tensors map[string]*tensor.RawTensor
	modules []module.Module
}

func (d *decoder) rows(name string) ([][]float64, error) {
	t, ok := d.tensors[name]
	if !ok {
		return nil, errors.Errorf("tensor %q not found", name)
	}
	if len(t.Shape()) != 2 {
		return nil, errors.Errorf("tensor %q has shape %v, want 2D", name, t.Shape())
	}
	rows := make([][]float64, t.Rows())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows, nil
}

func (d *decoder) children(ids []int) []module.Module {
	out := make([]module.Module, len(ids))
	for i, id := range ids {
		out[i] = d.modules[id]
	}
	return out
}

func (d *decoder) partitions(ids [][]int) [][]module.Module {
	out := make([][]module.Module, len(ids))
	for p, part := range ids {
		out[p] = d.children(part)
	}
	return out
}

func (d *decoder) params(meta ModuleMeta) (leaf.Family, []leaf.Params, error) {
	f, ok := leaf.LookupFamily(meta.Family)
	if !ok {
		return nil, nil, errors.Errorf("unknown leaf family %q", meta.Family)
	}
	if meta.Type == TypeCondLeaf {
		return f, nil, nil
	}
	rows, err := d.rows(meta.Params)
	if err != nil {
		return nil, nil, err
	}
	names := f.ParamNames()
	if len(rows) != len(meta.Vars) {
		return nil, nil, errors.Errorf("%d parameter rows for %d variables", len(rows), len(meta.Vars))
	}
	params := make([]leaf.Params, len(rows))
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, nil, errors.Errorf("%d parameters, %s has %d", len(r), f.Name(), len(names))
		}
		params[i] = make(leaf.Params, len(names))
		for j, n := range names {
			params[i][n] = r[j]
		}
	}
	return f, params, nil
}

func (d *decoder) decode(meta ModuleMeta) (module.Module, error) {
	switch meta.Type {
	case TypeLeaf, TypeLeafLayer, TypeCondLeaf:
		f, params, err := d.params(meta)
		if err != nil {
			return nil, err
		}
		switch meta.Type {
		case TypeLeaf:
			return leaf.NewNode(d.backend, f, meta.Vars[0], params[0])
		case TypeLeafLayer:
			return leaf.NewLayer(d.backend, f, meta.Vars, params)
		default:
			return leaf.NewCondNode(d.backend, f, meta.Vars[0], meta.Evidence, nil)
		}
	case TypeSum:
		w, err := d.rows(meta.Weights)
		if err != nil {
			return nil, err
		}
		if len(w) != 1 {
			return nil, errors.Errorf("sum node with %d weight rows", len(w))
		}
		return node.NewSumNode(d.children(meta.Children), w[0])
	case TypeProduct:
		return node.NewProductNode(d.children(meta.Children))
	case TypeSumLayer:
		w, err := d.rows(meta.Weights)
		if err != nil {
			return nil, err
		}
		return layer.NewSumLayer(meta.NumNodes, d.children(meta.Children), w)
	case TypeProductLayer:
		return layer.NewProductLayer(meta.NumNodes, d.children(meta.Children))
	case TypePartitionLayer:
		return layer.NewPartitionLayer(d.partitions(meta.Partitions))
	case TypeHadamardLayer:
		return layer.NewHadamardLayer(d.partitions(meta.Partitions))
	}
	return nil, errors.Wrapf(ErrUnknownModule, "type %q", meta.Type)
}

// decodeGraph rebuilds the module graph described by h on backend.
func decodeGraph(h *Header, tensors map[string]*tensor.RawTensor, backend tensor.Backend) (module.Module, error) {
	d := &decoder{backend: backend, tensors: tensors, modules: make([]module.Module, 0, len(h.Modules))}
	for _, meta := range h.Modules {
		m, err := d.decode(meta)
		if err != nil {
			return nil, errors.WithMessagef(err, "module %d (%s)", meta.ID, meta.Kind)
		}
		d.modules = append(d.modules, m)
	}
	return d.modules[h.Root], nil
}
