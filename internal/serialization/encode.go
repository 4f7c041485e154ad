package serialization

import (
	"fmt"

	"github.com/born-ml/spflow/internal/layer"
	"github.com/born-ml/spflow/internal/leaf"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/pkg/errors"
)

// tensorData is a named parameter tensor awaiting layout.
type tensorData struct {
	name   string
	shape  []int
	values []float64
}

// encoder assigns ids children first and collects parameter tensors.
type encoder struct {
	ids     map[module.Module]int
	modules []ModuleMeta
	tensors []tensorData
	hasCond bool
}

func newEncoder() *encoder {
	return &encoder{ids: make(map[module.Module]int)}
}

func (e *encoder) addTensor(id int, suffix string, rows [][]float64) string {
	name := fmt.Sprintf("modules.%d.%s", id, suffix)
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	values := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		values = append(values, r...)
	}
	e.tensors = append(e.tensors, tensorData{name: name, shape: []int{len(rows), cols}, values: values})
	return name
}

func (e *encoder) encodeAll(modules []module.Module) ([]int, error) {
	ids := make([]int, len(modules))
	for i, m := range modules {
		id, err := e.encode(m)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func paramRows(f leaf.Family, params ...leaf.Params) [][]float64 {
	names := f.ParamNames()
	rows := make([][]float64, len(params))
	for i, p := range params {
		rows[i] = make([]float64, len(names))
		for j, n := range names {
			rows[i][j] = p[n]
		}
	}
	return rows
}

// encode stores m after its children and returns its id.
func (e *encoder) encode(m module.Module) (int, error) {
	if id, ok := e.ids[m]; ok {
		return id, nil
	}
	meta := ModuleMeta{Kind: string(m.Kind())}

	var err error
	switch v := m.(type) {
	case *leaf.Node, *leaf.Layer, *leaf.CondNode:
	case *node.SumNode, *node.ProductNode, *layer.SumLayer, *layer.ProductLayer:
		meta.Children, err = e.encodeAll(m.Children())
	case *layer.PartitionLayer:
		meta.Partitions, err = e.encodePartitions(v.Partitions())
	case *layer.HadamardLayer:
		meta.Partitions, err = e.encodePartitions(v.Partitions())
	default:
		return 0, errors.Wrapf(ErrUnknownModule, "%s (%T)", m.Kind(), m)
	}
	if err != nil {
		return 0, err
	}

	id := len(e.modules)
	meta.ID = id
	switch v := m.(type) {
	case *leaf.Node:
		meta.Type, meta.Family, meta.Vars = TypeLeaf, v.Family().Name(), []int{v.Var()}
		meta.Params = e.addTensor(id, "params", paramRows(v.Family(), v.Params()))
	case *leaf.Layer:
		params := make([]leaf.Params, v.NumOut())
		for i := range params {
			params[i] = v.Params(i)
		}
		meta.Type, meta.Family, meta.Vars = TypeLeafLayer, v.Family().Name(), v.Vars()
		meta.Params = e.addTensor(id, "params", paramRows(v.Family(), params...))
	case *leaf.CondNode:
		meta.Type, meta.Family, meta.Vars = TypeCondLeaf, v.Family().Name(), []int{v.Var()}
		meta.Evidence = v.ScopesOut()[0].Evidence()
		e.hasCond = true
	case *node.SumNode:
		meta.Type = TypeSum
		meta.Weights = e.addTensor(id, "weights", [][]float64{v.Weights()})
	case *node.ProductNode:
		meta.Type = TypeProduct
	case *layer.SumLayer:
		weights := make([][]float64, v.NumOut())
		for i := range weights {
			weights[i] = v.Weights(i)
		}
		meta.Type, meta.NumNodes = TypeSumLayer, v.NumOut()
		meta.Weights = e.addTensor(id, "weights", weights)
	case *layer.ProductLayer:
		meta.Type, meta.NumNodes = TypeProductLayer, v.NumOut()
	case *layer.PartitionLayer:
		meta.Type = TypePartitionLayer
	case *layer.HadamardLayer:
		meta.Type = TypeHadamardLayer
	}
	e.modules = append(e.modules, meta)
	e.ids[m] = id
	return id, nil
}

func (e *encoder) encodePartitions(partitions [][]module.Module) ([][]int, error) {
	out := make([][]int, len(partitions))
	for p, modules := range partitions {
		ids, err := e.encodeAll(modules)
		if err != nil {
			return nil, err
		}
		out[p] = ids
	}
	return out, nil
}
