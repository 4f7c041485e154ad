// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package spn

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/learning"
	"github.com/born-ml/spflow/tensor"
)

// NaN strategies of maximum-likelihood estimation.
const (
	NaNStrategyNone   = dispatch.NaNStrategyNone
	NaNStrategyIgnore = dispatch.NaNStrategyIgnore
)

// MLEConfig holds maximum-likelihood estimation options.
type MLEConfig = learning.MLEConfig

// DefaultMLEConfig returns the default MLE configuration.
func DefaultMLEConfig() MLEConfig {
	return learning.DefaultMLEConfig()
}

// MaximumLikelihoodEstimation fits the parameters of leaf m to data.
func MaximumLikelihoodEstimation(m Module, data *tensor.RawTensor, cfg MLEConfig) error {
	return learning.MaximumLikelihoodEstimation(m, data, cfg)
}

// EMConfig holds expectation-maximization options.
type EMConfig = learning.EMConfig

// DefaultEMConfig returns the default EM configuration.
func DefaultEMConfig() EMConfig {
	return learning.DefaultEMConfig()
}

// ExpectationMaximization fits all parameters of m, which must run on an
// autodiff backend, and returns the mean log-likelihood before each step.
func ExpectationMaximization(m Module, data *tensor.RawTensor, cfg EMConfig) ([]float64, error) {
	return learning.ExpectationMaximization(m, data, cfg)
}
