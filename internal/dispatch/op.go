package dispatch

import (
	"fmt"

	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
)

// Op identifies a dispatched operation.
type Op int

// Dispatched operations.
const (
	OpLogLikelihood Op = iota
	OpSample
	OpMaximumLikelihoodEstimation
	OpEM
	OpMarginalize
	OpToBackend
	OpToLayerBased
	OpExpandOutputs
)

var opNames = [...]string{
	OpLogLikelihood:               "log_likelihood",
	OpSample:                      "sample",
	OpMaximumLikelihoodEstimation: "maximum_likelihood_estimation",
	OpEM:                          "em",
	OpMarginalize:                 "marginalize",
	OpToBackend:                   "to_backend",
	OpToLayerBased:                "to_layer_based",
	OpExpandOutputs:               "expand_outputs",
}

// String returns the operation name.
func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opNames[op]
}

// Memoized reports whether results of op are cached per module in a Context.
// Sampling and MLE mutate their inputs and always run.
func (op Op) Memoized() bool {
	return op != OpSample && op != OpMaximumLikelihoodEstimation
}

// Ops lists every operation.
var Ops = []Op{
	OpLogLikelihood, OpSample, OpMaximumLikelihoodEstimation, OpEM,
	OpMarginalize, OpToBackend, OpToLayerBased, OpExpandOutputs,
}

// NaNStrategy selects how parameter estimation treats missing values.
type NaNStrategy int

const (
	// NaNStrategyNone rejects data holding NaN in the estimated column.
	NaNStrategyNone NaNStrategy = iota
	// NaNStrategyIgnore drops rows whose value is NaN.
	NaNStrategyIgnore
)

// MLEOptions carries the arguments of maximum-likelihood estimation.
type MLEOptions struct {
	// Weights per data row; nil means uniform. Weights are normalized to sum to the row count.
	Weights []float64
	// BiasCorrection selects unbiased estimators where the family has one.
	BiasCorrection bool
	// NaNStrategy selects how missing values are handled.
	NaNStrategy NaNStrategy
}

// Handler signatures, one per operation.
type (
	// LogLikelihoodFunc returns the [N, NumOut] log-likelihood of data.
	LogLikelihoodFunc func(ctx *Context, m module.Module, data *tensor.RawTensor, checkSupport bool) (*tensor.RawTensor, error)

	// SampleFunc fills the missing cells of data named by sctx.
	SampleFunc func(ctx *Context, m module.Module, data *tensor.RawTensor, sctx *SamplingContext) error

	// MLEFunc estimates the module parameters from data in place.
	MLEFunc func(ctx *Context, m module.Module, data *tensor.RawTensor, opts MLEOptions) error

	// EMFunc performs the maximization step for the module using the
	// gradients stored in ctx.
	EMFunc func(ctx *Context, m module.Module, data *tensor.RawTensor) error

	// MarginalizeFunc returns m without the variables in vars, or nil when
	// nothing remains.
	MarginalizeFunc func(ctx *Context, m module.Module, vars []int, prune bool) (module.Module, error)

	// ConvertFunc returns a copy of m evaluating on target.
	ConvertFunc func(ctx *Context, m module.Module, target tensor.Backend) (module.Module, error)

	// ToLayerBasedFunc returns the layer form of m.
	ToLayerBasedFunc func(ctx *Context, m module.Module) (module.Module, error)

	// ExpandFunc returns one single-output node per output of m.
	ExpandFunc func(ctx *Context, m module.Module) ([]module.Module, error)
)

// Handlers collects the implementations of one module kind.
// Nil fields are not registered.
type Handlers struct {
	LogLikelihood LogLikelihoodFunc
	Sample        SampleFunc
	MLE           MLEFunc
	EM            EMFunc
	Marginalize   MarginalizeFunc
	ToBackend     ConvertFunc
	ToLayerBased  ToLayerBasedFunc
	ExpandOutputs ExpandFunc
}

// has reports whether the handler for op is set.
func (h *Handlers) has(op Op) bool {
	switch op {
	case OpLogLikelihood:
		return h.LogLikelihood != nil
	case OpSample:
		return h.Sample != nil
	case OpMaximumLikelihoodEstimation:
		return h.MLE != nil
	case OpEM:
		return h.EM != nil
	case OpMarginalize:
		return h.Marginalize != nil
	case OpToBackend:
		return h.ToBackend != nil
	case OpToLayerBased:
		return h.ToLayerBased != nil
	case OpExpandOutputs:
		return h.ExpandOutputs != nil
	}
	return false
}

// merge copies the handlers set in other into h.
func (h *Handlers) merge(other Handlers) {
	if other.LogLikelihood != nil {
		h.LogLikelihood = other.LogLikelihood
	}
	if other.Sample != nil {
		h.Sample = other.Sample
	}
	if other.MLE != nil {
		h.MLE = other.MLE
	}
	if other.EM != nil {
		h.EM = other.EM
	}
	if other.Marginalize != nil {
		h.Marginalize = other.Marginalize
	}
	if other.ToBackend != nil {
		h.ToBackend = other.ToBackend
	}
	if other.ToLayerBased != nil {
		h.ToLayerBased = other.ToLayerBased
	}
	if other.ExpandOutputs != nil {
		h.ExpandOutputs = other.ExpandOutputs
	}
}
