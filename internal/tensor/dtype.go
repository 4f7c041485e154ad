// Package tensor provides the minimal tensor abstraction used by spflow circuits.
package tensor

import "math"

// DataType represents runtime type information for tensors.
//
// Storage is always float64; Float32 tensors round every stored value to
// float32 precision so results match a single precision backend.
type DataType int

// Supported data types for tensors.
const (
	Float64 DataType = iota
	Float32
	Bool
)

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Round maps v to the precision of the data type.
func (dt DataType) Round(v float64) float64 {
	switch dt {
	case Float32:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v
		}
		return float64(float32(v))
	case Bool:
		if v != 0 && !math.IsNaN(v) {
			return 1
		}
		return 0
	default:
		return v
	}
}
