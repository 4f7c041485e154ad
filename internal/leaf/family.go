// Package leaf provides the parametric leaf distributions of a circuit.
//
// A Family supplies the distribution math for one variable. Registering a
// family makes three module kinds available to dispatch: the single-variable
// Node ("Gaussian"), its vectorized Layer ("GaussianLayer") and the
// conditional CondNode ("CondGaussian") whose parameters are supplied per call.
//
// Missing observations are NaN cells: their log-likelihood is 0 and sampling
// fills them. Observed cells are never overwritten.
package leaf

import (
	"maps"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/born-ml/spflow/internal/module"
	"github.com/pkg/errors"
)

// Params holds named distribution parameters, e.g. {"mean": 0, "std": 1}.
type Params map[string]float64

// Clone returns a copy of p.
func (p Params) Clone() Params {
	return maps.Clone(p)
}

// Family is the distribution math of one leaf type.
type Family interface {
	// Name is the node kind, e.g. "Gaussian".
	Name() string

	// ParamNames lists the parameters the family requires.
	ParamNames() []string

	// Validate checks parameter ranges.
	Validate(p Params) error

	// InSupport reports whether the observation x can occur under p.
	InSupport(p Params, x float64) bool

	// LogProb returns the log density (or mass) of x.
	LogProb(p Params, x float64) float64

	// Sample draws one value.
	Sample(p Params, src rand.Source) float64

	// Estimate returns maximum-likelihood parameters for observations x with
	// weights w (same length, summing to len(x)). Parameters that are not
	// estimated, like the number of trials of a binomial, are read from current.
	Estimate(x, w []float64, current Params, biasCorrection bool) (Params, error)
}

var (
	familiesMu sync.RWMutex
	families   = make(map[string]Family)
)

// LookupFamily returns the registered family called name.
func LookupFamily(name string) (Family, bool) {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	f, ok := families[name]
	return f, ok
}

// Families returns the sorted names of the registered families.
func Families() []string {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	return slices.Sorted(maps.Keys(families))
}

// NodeKind returns the module kind of a single-variable leaf of f.
func NodeKind(f Family) module.Kind {
	return module.Kind(f.Name())
}

// LayerKind returns the module kind of a leaf layer of f.
func LayerKind(f Family) module.Kind {
	return module.Kind(f.Name() + "Layer")
}

// CondKind returns the module kind of a conditional leaf of f.
func CondKind(f Family) module.Kind {
	return module.Kind("Cond" + f.Name())
}

// checkParams verifies that p holds every parameter of f and is valid.
func checkParams(f Family, p Params) error {
	for _, name := range f.ParamNames() {
		if _, ok := p[name]; !ok {
			return errors.Wrapf(module.ErrInvalidParameter, "%s: missing parameter %q", f.Name(), name)
		}
	}
	return f.Validate(p)
}
