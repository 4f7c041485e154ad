// Package learning fits circuit parameters to data: closed-form maximum
// likelihood for leaves and expectation-maximization for whole circuits.
package learning

import (
	"math"

	"github.com/born-ml/spflow/internal/autodiff"
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"
)

// MLEConfig holds maximum-likelihood estimation options.
type MLEConfig struct {
	// Weights per data row; nil weights every row equally.
	Weights []float64
	// BiasCorrection selects unbiased estimators where a family has one.
	BiasCorrection bool
	// NaNStrategy selects how missing values are treated.
	NaNStrategy dispatch.NaNStrategy
}

// DefaultMLEConfig returns the default MLE configuration: uniform weights,
// no bias correction and rejection of missing values.
func DefaultMLEConfig() MLEConfig {
	return MLEConfig{NaNStrategy: dispatch.NaNStrategyNone}
}

// MaximumLikelihoodEstimation sets the parameters of the leaf module m to
// their maximum-likelihood estimates on data. Composite modules return
// dispatch.ErrNotImplemented.
func MaximumLikelihoodEstimation(m module.Module, data *tensor.RawTensor, cfg MLEConfig) error {
	if cfg.Weights != nil && len(cfg.Weights) != data.Rows() {
		return errors.Wrapf(module.ErrInvalidParameter, "mle: %d weights for %d rows", len(cfg.Weights), data.Rows())
	}
	err := dispatch.MaximumLikelihoodEstimation(dispatch.NewContext(), m, data, dispatch.MLEOptions{
		Weights:        cfg.Weights,
		BiasCorrection: cfg.BiasCorrection,
		NaNStrategy:    cfg.NaNStrategy,
	})
	return errors.WithMessagef(err, "mle of %s", m.Kind())
}

// EMConfig holds expectation-maximization options.
type EMConfig struct {
	// MaxSteps bounds the number of EM iterations.
	MaxSteps int
	// Tolerance stops early once the mean log-likelihood improves by less.
	// Zero runs all MaxSteps.
	Tolerance float64
}

// DefaultEMConfig returns the default EM configuration.
func DefaultEMConfig() EMConfig {
	return EMConfig{
		MaxSteps:  100,
		Tolerance: 1e-6,
	}
}

// ExpectationMaximization fits every parameter of m to data and returns the
// mean log-likelihood before each step.
//
// Every module of m must use the same autodiff backend: the expectations are
// read from gradients of the total log-likelihood. Other backends return
// dispatch.ErrNotImplemented.
func ExpectationMaximization(m module.Module, data *tensor.RawTensor, cfg EMConfig) ([]float64, error) {
	if cfg.MaxSteps < 1 {
		return nil, errors.Wrapf(module.ErrInvalidParameter, "em: max steps %d", cfg.MaxSteps)
	}
	backend, ok := autodiff.AsBackwardCapable(m.Backend())
	if !ok {
		return nil, errors.Wrapf(dispatch.ErrNotImplemented, "em on %s backend, convert the circuit to autodiff first",
			m.Backend().Name())
	}
	err := module.Walk(m, func(c module.Module) error {
		if c.Backend() != m.Backend() {
			return errors.Wrapf(module.ErrBackendMismatch, "em: %s uses %s, root uses %s",
				c.Kind(), c.Backend().Name(), m.Backend().Name())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tape := backend.GetTape()
	defer tape.Clear()

	history := make([]float64, 0, cfg.MaxSteps)
	for step := range cfg.MaxSteps {
		mean, err := emStep(m, data, backend)
		if err != nil {
			return history, errors.WithMessagef(err, "em step %d", step)
		}
		history = append(history, mean)
		klog.V(1).Infof("em: step %d mean log-likelihood %.6f", step, mean)

		if step > 0 && cfg.Tolerance > 0 && math.Abs(mean-history[step-1]) < cfg.Tolerance {
			klog.V(1).Infof("em: converged after %d steps", step+1)
			break
		}
	}
	return history, nil
}

// emStep runs one E and M step and returns the mean log-likelihood before
// the update.
func emStep(m module.Module, data *tensor.RawTensor, backend autodiff.BackwardCapable) (float64, error) {
	tape := backend.GetTape()
	tape.Clear()
	ctx := dispatch.NewContext()

	tape.StartRecording()
	ll, err := dispatch.LogLikelihood(ctx, m, data, true)
	tape.StopRecording()
	if err != nil {
		return 0, err
	}
	ctx.SetGradients(backend.Backward(ll))

	mean := floats.Sum(ll.Data()) / float64(ll.NumElements())
	if err := dispatch.EM(ctx, m, data); err != nil {
		return mean, err
	}
	return mean, nil
}
