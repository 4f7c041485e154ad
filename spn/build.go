// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package spn

import (
	"github.com/born-ml/spflow/internal/layer"
	"github.com/born-ml/spflow/internal/leaf"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/tensor"
)

// Composite module types.
type (
	SumNode        = node.SumNode
	ProductNode    = node.ProductNode
	SumLayer       = layer.SumLayer
	ProductLayer   = layer.ProductLayer
	PartitionLayer = layer.PartitionLayer
	HadamardLayer  = layer.HadamardLayer
)

// Leaf module types.
type (
	Leaf      = leaf.Node
	LeafLayer = leaf.Layer
	CondLeaf  = leaf.CondNode
	Family    = leaf.Family
	Params    = leaf.Params
	CondFunc  = leaf.CondFunc
)

// Leaf distribution families.
type (
	Gaussian    = leaf.Gaussian
	LogNormal   = leaf.LogNormal
	Exponential = leaf.Exponential
	Gamma       = leaf.Gamma
	Poisson     = leaf.Poisson
	Bernoulli   = leaf.Bernoulli
	Binomial    = leaf.Binomial
	Uniform     = leaf.Uniform
)

// RegisterFamily makes a custom leaf family available as node, layer and
// conditional leaf.
func RegisterFamily(f Family) error {
	return leaf.RegisterFamily(f)
}

// LookupFamily returns the registered family called name.
func LookupFamily(name string) (Family, bool) {
	return leaf.LookupFamily(name)
}

// Families returns the sorted names of all registered families.
func Families() []string {
	return leaf.Families()
}

// NewLeaf creates a leaf of family over variable v.
func NewLeaf(backend tensor.Backend, family Family, v int, params Params) (*Leaf, error) {
	return leaf.NewNode(backend, family, v, params)
}

// NewLeafLayer creates one leaf of family per entry of vars.
func NewLeafLayer(backend tensor.Backend, family Family, vars []int, params []Params) (*LeafLayer, error) {
	return leaf.NewLayer(backend, family, vars, params)
}

// NewCondLeaf creates a leaf over v whose parameters are computed from the
// evidence columns by condF.
func NewCondLeaf(backend tensor.Backend, family Family, v int, evidence []int, condF CondFunc) (*CondLeaf, error) {
	return leaf.NewCondNode(backend, family, v, evidence, condF)
}

// NewGaussian creates a Gaussian leaf over v.
func NewGaussian(backend tensor.Backend, v int, mean, std float64) (*Leaf, error) {
	return NewLeaf(backend, Gaussian{}, v, Params{"mean": mean, "std": std})
}

// NewLogNormal creates a log-normal leaf over v.
func NewLogNormal(backend tensor.Backend, v int, mean, std float64) (*Leaf, error) {
	return NewLeaf(backend, LogNormal{}, v, Params{"mean": mean, "std": std})
}

// NewExponential creates an exponential leaf over v.
func NewExponential(backend tensor.Backend, v int, rate float64) (*Leaf, error) {
	return NewLeaf(backend, Exponential{}, v, Params{"rate": rate})
}

// NewGamma creates a gamma leaf over v with shape alpha and rate beta.
func NewGamma(backend tensor.Backend, v int, alpha, beta float64) (*Leaf, error) {
	return NewLeaf(backend, Gamma{}, v, Params{"alpha": alpha, "beta": beta})
}

// NewPoisson creates a Poisson leaf over v.
func NewPoisson(backend tensor.Backend, v int, lambda float64) (*Leaf, error) {
	return NewLeaf(backend, Poisson{}, v, Params{"lambda": lambda})
}

// NewBernoulli creates a Bernoulli leaf over v.
func NewBernoulli(backend tensor.Backend, v int, p float64) (*Leaf, error) {
	return NewLeaf(backend, Bernoulli{}, v, Params{"p": p})
}

// NewBinomial creates a binomial leaf over v with n trials.
func NewBinomial(backend tensor.Backend, v int, n int, p float64) (*Leaf, error) {
	return NewLeaf(backend, Binomial{}, v, Params{"n": float64(n), "p": p})
}

// NewUniform creates a uniform leaf over v on [start, end].
func NewUniform(backend tensor.Backend, v int, start, end float64) (*Leaf, error) {
	return NewLeaf(backend, Uniform{}, v, Params{"start": start, "end": end})
}

// NewSum creates a mixture over all outputs of children. Nil weights are uniform.
func NewSum(children []Module, weights []float64) (*SumNode, error) {
	return node.NewSumNode(children, weights)
}

// NewProduct creates a factorization over children with disjoint scopes.
func NewProduct(children ...Module) (*ProductNode, error) {
	return node.NewProductNode(children)
}

// NewSumLayer creates n mixtures over children, one weight row per mixture.
func NewSumLayer(n int, children []Module, weights [][]float64) (*SumLayer, error) {
	return layer.NewSumLayer(n, children, weights)
}

// NewProductLayer creates n identical products over children.
func NewProductLayer(n int, children ...Module) (*ProductLayer, error) {
	return layer.NewProductLayer(n, children)
}

// NewPartitionLayer creates a layer over every combination of one output per partition.
func NewPartitionLayer(partitions ...[]Module) (*PartitionLayer, error) {
	return layer.NewPartitionLayer(partitions)
}

// NewHadamardLayer creates a layer combining output i of every partition.
func NewHadamardLayer(partitions ...[]Module) (*HadamardLayer, error) {
	return layer.NewHadamardLayer(partitions)
}
