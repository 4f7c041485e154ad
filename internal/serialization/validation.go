package serialization

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/born-ml/spflow/internal/leaf"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxModuleCount   = 1_000_000
	MaxTensorNameLen = 4096
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict checks tensor layout, names and the module graph.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks tensor layout and the module graph.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateTensorOffsets checks for overlapping tensor regions and out-of-bounds access.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Module:  -1,
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b TensorMeta) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	})

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if t.Size > dataSize-t.Offset {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}
		elements, fits := int64(1), true
		for _, d := range t.Shape {
			if d < 0 || (d > 0 && elements > math.MaxInt64/bytesPerElement/int64(d)) {
				fits = false
				break
			}
			elements *= int64(d)
		}
		if !fits || elements*bytesPerElement != t.Size {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v does not match %d bytes", t.Shape, t.Size),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like tensor names.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Type: "invalid_name", Module: -1, Details: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Type:    "invalid_name",
			Tensor:  name[:32] + "...",
			Details: fmt.Sprintf("length %d exceeds %d", len(name), MaxTensorNameLen),
		}
	case strings.ContainsAny(name, "/\\\x00"), strings.Contains(name, ".."):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains path characters"}
	}
	return nil
}

// ValidateModules checks the module graph: ids are positional, every
// reference points to an earlier module and every tensor reference exists.
func ValidateModules(h *Header) error {
	if len(h.Modules) == 0 {
		return &ValidationError{Type: "empty_circuit", Module: -1, Details: "no modules"}
	}
	if len(h.Modules) > MaxModuleCount {
		return &ValidationError{
			Type:    "too_many_modules",
			Module:  -1,
			Details: fmt.Sprintf("got %d, max %d", len(h.Modules), MaxModuleCount),
		}
	}
	if h.Root < 0 || h.Root >= len(h.Modules) {
		return &ValidationError{Type: "invalid_root", Module: h.Root, Details: "root is not a stored module"}
	}

	names := make(map[string]bool, len(h.Tensors))
	for _, t := range h.Tensors {
		names[t.Name] = true
	}
	ref := func(id int, children []int) error {
		for _, c := range children {
			if c < 0 || c >= id {
				return &ValidationError{
					Type:    "dangling_child",
					Module:  id,
					Details: fmt.Sprintf("child %d is not an earlier module", c),
				}
			}
		}
		return nil
	}
	tensorRef := func(id int, name string) error {
		if !names[name] {
			return &ValidationError{Type: "missing_tensor", Tensor: name, Module: id, Details: "tensor not stored"}
		}
		return nil
	}

	for i, m := range h.Modules {
		if m.ID != i {
			return &ValidationError{Type: "invalid_id", Module: i, Details: fmt.Sprintf("stored id %d", m.ID)}
		}
		if err := ref(i, m.Children); err != nil {
			return err
		}
		for _, p := range m.Partitions {
			if err := ref(i, p); err != nil {
				return err
			}
		}
		switch m.Type {
		case TypeLeaf, TypeLeafLayer, TypeCondLeaf:
			if _, ok := leaf.LookupFamily(m.Family); !ok {
				return &ValidationError{Type: "unknown_family", Module: i, Details: m.Family}
			}
			if len(m.Vars) == 0 || (m.Type != TypeLeafLayer && len(m.Vars) != 1) {
				return &ValidationError{Type: "invalid_vars", Module: i, Details: fmt.Sprintf("vars %v", m.Vars)}
			}
			if m.Type != TypeCondLeaf {
				if err := tensorRef(i, m.Params); err != nil {
					return err
				}
			}
		case TypeSum, TypeSumLayer:
			if err := tensorRef(i, m.Weights); err != nil {
				return err
			}
		case TypeProduct, TypeProductLayer, TypePartitionLayer, TypeHadamardLayer:
		default:
			return &ValidationError{Type: "unknown_type", Module: i, Details: m.Type}
		}
	}
	return nil
}

// ValidateHeader performs validation according to level.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if err := ValidateTensorOffsets(h.Tensors, dataSize); err != nil {
		return err
	}
	if level == ValidationStrict {
		for _, t := range h.Tensors {
			if err := ValidateTensorName(t.Name); err != nil {
				return err
			}
		}
	}
	return ValidateModules(h)
}
