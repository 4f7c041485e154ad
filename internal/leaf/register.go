package leaf

import (
	"slices"

	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/pkg/errors"
)

// RegisterFamily makes f available and registers its node, layer and
// conditional kinds with the default dispatch registry for every backend.
// Nothing is registered when any of the three kinds is already taken.
func RegisterFamily(f Family) error {
	familiesMu.Lock()
	defer familiesMu.Unlock()
	if _, dup := families[f.Name()]; dup {
		return errors.Wrapf(dispatch.ErrDuplicateRegistration, "leaf family %q", f.Name())
	}
	registered := dispatch.Default.Kinds()
	kinds := []module.Kind{NodeKind(f), LayerKind(f), CondKind(f)}
	for _, k := range kinds {
		if slices.Contains(registered, k) {
			return errors.Wrapf(dispatch.ErrDuplicateRegistration, "leaf family %q: kind %q already registered", f.Name(), k)
		}
	}

	for i, h := range []dispatch.Handlers{nodeHandlers, layerHandlers, condHandlers} {
		if err := dispatch.Register(kinds[i], nil, h); err != nil {
			return errors.WithMessagef(err, "leaf family %q", f.Name())
		}
	}
	families[f.Name()] = f
	return nil
}

// MustRegisterFamily is like RegisterFamily but panics on error.
func MustRegisterFamily(f Family) {
	if err := RegisterFamily(f); err != nil {
		panic(err)
	}
}

func init() {
	for _, f := range []Family{
		Gaussian{}, LogNormal{}, Exponential{}, Gamma{},
		Poisson{}, Bernoulli{}, Binomial{}, Uniform{},
	} {
		MustRegisterFamily(f)
	}
}
