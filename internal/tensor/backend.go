package tensor

// BackendKind tags the numeric backend family a module was built for.
// Dispatch resolves operation implementations on it.
type BackendKind int

// Known backend families.
const (
	// ArrayKind backends evaluate eagerly on plain arrays.
	ArrayKind BackendKind = iota
	// AutodiffKind backends additionally record a gradient tape.
	AutodiffKind
)

// String returns a human-readable backend family name.
func (k BackendKind) String() string {
	switch k {
	case ArrayKind:
		return "array"
	case AutodiffKind:
		return "autodiff"
	default:
		return "unknown"
	}
}

// BackendKinds lists every backend family.
var BackendKinds = []BackendKind{ArrayKind, AutodiffKind}

// Backend defines the minimal set of tensor operations circuits are built on.
//
// Implementations:
//   - cpu: array backend over plain Go slices
//   - autodiff: decorator recording a gradient tape (wraps any backend)
//
// Binary operations broadcast NumPy style. Dimensions may be negative
// (counted from the end). Backends panic on shape misuse; that is a
// programming error, not an input error.
type Backend interface {
	// Element-wise binary operations
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor

	// Shape operations
	Reshape(x *RawTensor, newShape Shape) *RawTensor
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Reduction operations
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MaxDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	LogSumExpDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	CumSum(x *RawTensor, dim int) *RawTensor

	// Masking and indexing
	IsNaN(x *RawTensor) *RawTensor                             // bool tensor, 1 where x is NaN
	Where(condition, x, y *RawTensor) *RawTensor               // x where condition != 0, else y
	IndexSelect(x *RawTensor, dim int, index []int) *RawTensor // select slices along dim

	// Metadata
	Name() string
	Device() Device
	Kind() BackendKind
}
