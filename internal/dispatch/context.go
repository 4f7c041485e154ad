package dispatch

import (
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
)

// Args holds operation keyword overrides for one module.
type Args map[string]any

// Well-known argument names.
const (
	// ArgParams overrides the parameters of a conditional leaf (map[string]float64).
	ArgParams = "params"
	// ArgCondFunc supplies a parameter function for a conditional leaf
	// (func(data *tensor.RawTensor) (map[string]float64, error)).
	ArgCondFunc = "cond_f"
)

type cacheKey struct {
	op Op
	m  module.Module
}

// Context is the per-call state of one dispatched call tree.
//
// It caches memoized results per (operation, module) so a module shared by
// several parents is evaluated once, and carries argument overrides keyed by
// module. A Context must not outlive the parameter state it was used with:
// create a new one per top-level call. It is not safe for concurrent use.
type Context struct {
	registry *Registry
	cache    map[cacheKey]any
	args     map[module.Module]Args
	grads    map[*tensor.RawTensor]*tensor.RawTensor
}

// NewContext creates a context resolving against the Default registry.
func NewContext() *Context {
	return NewContextWithRegistry(Default)
}

// NewContextWithRegistry creates a context resolving against r.
func NewContextWithRegistry(r *Registry) *Context {
	return &Context{
		registry: r,
		cache:    make(map[cacheKey]any),
		args:     make(map[module.Module]Args),
	}
}

// Ensure returns ctx, or a new context when ctx is nil.
func Ensure(ctx *Context) *Context {
	if ctx == nil {
		return NewContext()
	}
	return ctx
}

// Registry returns the registry the context resolves against.
func (c *Context) Registry() *Registry {
	return c.registry
}

// SetArg sets the override name for m.
func (c *Context) SetArg(m module.Module, name string, value any) {
	if c.args[m] == nil {
		c.args[m] = make(Args)
	}
	c.args[m][name] = value
}

// Arg returns the override name for m.
func (c *Context) Arg(m module.Module, name string) (any, bool) {
	v, ok := c.args[m][name]
	return v, ok
}

// Cached returns the cached result of op for m.
func (c *Context) Cached(op Op, m module.Module) (any, bool) {
	v, ok := c.cache[cacheKey{op, m}]
	return v, ok
}

// CacheLen returns the number of cached results.
func (c *Context) CacheLen() int {
	return len(c.cache)
}

// ClearCache drops every cached result. Argument overrides are kept.
func (c *Context) ClearCache() {
	clear(c.cache)
}

// SetGradients stores the gradient table of a backward pass.
func (c *Context) SetGradients(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	c.grads = grads
}

// Gradient returns the stored gradient of t.
func (c *Context) Gradient(t *tensor.RawTensor) (*tensor.RawTensor, bool) {
	g, ok := c.grads[t]
	return g, ok
}

// memoize returns the cached result of op for m or computes and stores it.
// Operations that are not Memoized always compute. Failed computations are
// not cached.
func memoize[T any](c *Context, op Op, m module.Module, compute func() (T, error)) (T, error) {
	if !op.Memoized() {
		return compute()
	}
	key := cacheKey{op, m}
	if v, ok := c.cache[key]; ok {
		result, _ := v.(T)
		return result, nil
	}
	result, err := compute()
	if err != nil {
		return result, err
	}
	c.cache[key] = result
	return result, nil
}
