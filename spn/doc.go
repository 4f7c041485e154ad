// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package spn builds and runs sum-product networks: probabilistic circuits of
// weighted sums, products and leaf distributions that answer likelihood,
// marginal and conditional queries exactly.
//
// # Overview
//
// A circuit is a DAG of modules. Leaves model single random variables,
// sum nodes mix children over the same variables and product nodes
// factorize over disjoint variables. Layers bundle many nodes of one kind
// and are interchangeable with the equivalent node-based graph.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/spflow/backend/cpu"
//	    "github.com/born-ml/spflow/spn"
//	    "github.com/born-ml/spflow/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x0a, _ := spn.NewGaussian(backend, 0, 0, 1)
//	    x1a, _ := spn.NewGaussian(backend, 1, 0, 1)
//	    x0b, _ := spn.NewGaussian(backend, 0, 1, 1)
//	    x1b, _ := spn.NewGaussian(backend, 1, 2, 1)
//	    p1, _ := spn.NewProduct(x0a, x1a)
//	    p2, _ := spn.NewProduct(x0b, x1b)
//	    root, _ := spn.NewSum([]spn.Module{p1, p2}, []float64{0.3, 0.7})
//
//	    data := tensor.MustFromRows([][]float64{{0.5, 1.6}})
//	    ll, _ := spn.LogLikelihood(root, data, spn.DefaultLogLikelihoodConfig())
//	}
//
// # Missing Data
//
// NaN cells are marginalized by inference and filled by sampling, so
// conditional sampling is SampleWithEvidence on a batch holding the
// evidence and NaN for the query variables.
//
// # Learning
//
// Leaves are fitted in closed form with MaximumLikelihoodEstimation. Whole
// circuits are trained with ExpectationMaximization on the autodiff backend:
//
//	circuit, _ := spn.ToBackend(root, autodiff.New(cpu.New()))
//	history, _ := spn.ExpectationMaximization(circuit, data, spn.DefaultEMConfig())
//
// # Persistence
//
// Save and Load store circuits in the .spn format. Shared sub-circuits are
// written once and reconnected on load, onto any backend.
package spn
