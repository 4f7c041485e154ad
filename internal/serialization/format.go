package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "SPFL"
	FormatVersion   = 1
	HeaderAlignment = 64 // Tensor data starts on a 64-byte boundary.
	FixedHeaderSize = 64
	ChecksumSize    = 32
	ChecksumOffset  = 0x20
	bytesPerElement = 8
	spflowVersion   = "0.1.0"
)

// Flags of the .spn format.
const (
	FlagHasMetadata uint32 = 1 << 0 // custom metadata included
	FlagHasCond     uint32 = 1 << 1 // conditional leaves need parameter functions on load
)

// Module types stored in ModuleMeta.Type.
const (
	TypeLeaf           = "leaf"
	TypeLeafLayer      = "leaf_layer"
	TypeCondLeaf       = "cond_leaf"
	TypeSum            = "sum"
	TypeProduct        = "product"
	TypeSumLayer       = "sum_layer"
	TypeProductLayer   = "product_layer"
	TypePartitionLayer = "partition_layer"
	TypeHadamardLayer  = "hadamard_layer"
)

// Header represents the JSON header of a .spn file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	SPFlowVersion string            `json:"spflow_version"`
	CreatedAt     time.Time         `json:"created_at"`
	Root          int               `json:"root"`
	Modules       []ModuleMeta      `json:"modules"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata"`
}

// ModuleMeta describes one module of the stored graph.
type ModuleMeta struct {
	ID         int     `json:"id"`
	Type       string  `json:"type"`
	Kind       string  `json:"kind"`
	Family     string  `json:"family,omitempty"`
	Vars       []int   `json:"vars,omitempty"`
	Evidence   []int   `json:"evidence,omitempty"`
	NumNodes   int     `json:"num_nodes,omitempty"`
	Children   []int   `json:"children,omitempty"`
	Partitions [][]int `json:"partitions,omitempty"`
	Params     string  `json:"params,omitempty"`  // tensor [len(Vars), len(ParamNames)]
	Weights    string  `json:"weights,omitempty"` // tensor [NumNodes, inputs]
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`
}
