// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package spn

import (
	_ "github.com/born-ml/spflow/internal/autodiff"    // registers "autodiff"
	_ "github.com/born-ml/spflow/internal/backend/cpu" // registers "cpu"
	"github.com/born-ml/spflow/internal/backends"
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/scope"
	"github.com/born-ml/spflow/tensor"
)

// Module is a node of a circuit with one or more outputs.
type Module = module.Module

// Kind names the implementation operations are dispatched to.
type Kind = module.Kind

// Scope is the set of query variables (and conditioning evidence) of an output.
type Scope = scope.Scope

// NewScope creates a scope over query conditioned on evidence.
func NewScope(query []int, evidence ...int) (Scope, error) {
	return scope.New(query, evidence...)
}

// Args holds per-module operation arguments.
type Args = dispatch.Args

// Argument names understood by conditional leaves.
const (
	ArgParams   = dispatch.ArgParams
	ArgCondFunc = dispatch.ArgCondFunc
)

// SamplingContext selects the rows and outputs a sampling call fills.
type SamplingContext = dispatch.SamplingContext

// Errors returned by circuit operations; test with errors.Is.
var (
	ErrInvalidScope          = scope.ErrInvalidScope
	ErrScopeViolation        = module.ErrScopeViolation
	ErrSupportViolation      = module.ErrSupportViolation
	ErrIndexOutOfBounds      = module.ErrIndexOutOfBounds
	ErrAmbiguousOutput       = module.ErrAmbiguousOutput
	ErrMissingParameter      = module.ErrMissingParameter
	ErrBackendMismatch       = module.ErrBackendMismatch
	ErrInvalidParameter      = module.ErrInvalidParameter
	ErrNotImplemented        = dispatch.ErrNotImplemented
	ErrDuplicateRegistration = dispatch.ErrDuplicateRegistration
)

// NewBackend creates the backend named by the SPFLOW_BACKEND environment
// variable, "cpu" if unset. Accepted values are "cpu" and "autodiff[:<inner>]".
func NewBackend() (tensor.Backend, error) {
	return backends.New()
}

// Walk calls fn once for every distinct module reachable from root.
func Walk(root Module, fn func(Module) error) error {
	return module.Walk(root, fn)
}

// NumVariables returns one more than the largest variable id m models.
func NumVariables(m Module) int {
	n := 0
	for _, s := range m.ScopesOut() {
		for _, v := range s.Query() {
			n = max(n, v+1)
		}
		for _, v := range s.Evidence() {
			n = max(n, v+1)
		}
	}
	return n
}
