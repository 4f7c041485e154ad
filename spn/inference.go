// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package spn

import (
	"math/rand/v2"

	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/tensor"
	"github.com/pkg/errors"
)

// LogLikelihoodConfig holds inference options.
type LogLikelihoodConfig struct {
	// CheckSupport rejects observed values outside a leaf's support with
	// ErrSupportViolation. When false they have log-likelihood -Inf.
	CheckSupport bool
	// Args are per-module overrides, such as conditional leaf parameters.
	Args map[Module]Args
}

// DefaultLogLikelihoodConfig returns the default inference configuration.
func DefaultLogLikelihoodConfig() LogLikelihoodConfig {
	return LogLikelihoodConfig{CheckSupport: true}
}

func newContext(args map[Module]Args) *dispatch.Context {
	ctx := dispatch.NewContext()
	for m, a := range args {
		for name, v := range a {
			ctx.SetArg(m, name, v)
		}
	}
	return ctx
}

func checkData(data *tensor.RawTensor) error {
	if data == nil || len(data.Shape()) != 2 {
		return errors.Wrap(ErrInvalidParameter, "data must be an [N, D] tensor")
	}
	return nil
}

// LogLikelihood returns the [N, NumOut] log-likelihood of every row of data
// under m. NaN cells are marginalized.
func LogLikelihood(m Module, data *tensor.RawTensor, cfg LogLikelihoodConfig) (*tensor.RawTensor, error) {
	if err := checkData(data); err != nil {
		return nil, err
	}
	return dispatch.LogLikelihood(newContext(cfg.Args), m, data, cfg.CheckSupport)
}

// Likelihood returns exp(LogLikelihood).
func Likelihood(m Module, data *tensor.RawTensor, cfg LogLikelihoodConfig) (*tensor.RawTensor, error) {
	ll, err := LogLikelihood(m, data, cfg)
	if err != nil {
		return nil, err
	}
	return m.Backend().Exp(ll), nil
}

// SampleConfig holds sampling options.
type SampleConfig struct {
	// Src is the random source; nil draws a random seed.
	Src rand.Source
	// OutputIDs selects the root output sampled per row; nil samples the
	// only output of single-output roots.
	OutputIDs [][]int
	// Args are per-module overrides, such as conditional leaf parameters.
	Args map[Module]Args
}

// DefaultSampleConfig returns the default sampling configuration.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{}
}

// Sample draws n instances from m.
func Sample(m Module, n int, cfg SampleConfig) (*tensor.RawTensor, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "sample count %d", n)
	}
	return SampleWithEvidence(m, tensor.NaNs(tensor.Shape{n, NumVariables(m)}), cfg)
}

// SampleWithEvidence returns a copy of data with every NaN cell in the
// scope of m drawn from m conditioned on the observed cells of its row.
func SampleWithEvidence(m Module, data *tensor.RawTensor, cfg SampleConfig) (*tensor.RawTensor, error) {
	if err := checkData(data); err != nil {
		return nil, err
	}
	out := data.Clone()
	sctx := dispatch.NewSamplingContext(out.Rows(), cfg.Src)
	sctx.OutputIDs = cfg.OutputIDs
	if err := dispatch.Sample(newContext(cfg.Args), m, out, sctx); err != nil {
		return nil, err
	}
	return out, nil
}
