// Package backends selects numeric backends by name.
//
// Backend implementations register a constructor under a name from an init
// function. A configuration string has the form "<name>" or
// "<name>:<config>"; the part after the colon is handed to the constructor,
// so decorating backends can name the backend they wrap:
//
//	"cpu"           array backend
//	"autodiff:cpu"  gradient recording decorator around the array backend
//
// New reads the configuration from the SPFLOW_BACKEND environment variable,
// falling back to DefaultConfig.
package backends

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// EnvVar is the environment variable consulted by New.
const EnvVar = "SPFLOW_BACKEND"

// DefaultConfig is used by New when SPFLOW_BACKEND is not set.
var DefaultConfig = "cpu"

// Constructor builds a backend from the configuration following its name.
type Constructor func(config string) (tensor.Backend, error)

var (
	mu           sync.RWMutex
	constructors = make(map[string]Constructor)
)

// Register makes a backend constructor available under name.
// Registering the same name twice replaces the previous constructor.
func Register(name string, constructor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	if _, found := constructors[name]; found {
		klog.Warningf("backends: constructor %q registered twice, replacing", name)
	}
	constructors[name] = constructor
}

// List returns the sorted names of every registered backend.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New returns the backend configured by SPFLOW_BACKEND or DefaultConfig.
func New() (tensor.Backend, error) {
	if config, found := os.LookupEnv(EnvVar); found && config != "" {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// NewWithConfig returns the backend described by config ("<name>[:<config>]").
func NewWithConfig(config string) (tensor.Backend, error) {
	name, rest, _ := strings.Cut(config, ":")
	mu.RLock()
	constructor, found := constructors[name]
	mu.RUnlock()
	if !found {
		return nil, errors.Errorf("unknown backend %q in configuration %q (registered: %s)",
			name, config, strings.Join(List(), ", "))
	}
	backend, err := constructor(rest)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create backend %q", name)
	}
	klog.V(1).Infof("backends: created %s from %q", backend.Name(), config)
	return backend, nil
}

// MustNew is like NewWithConfig but panics on error.
func MustNew(config string) tensor.Backend {
	backend, err := NewWithConfig(config)
	if err != nil {
		panic(err)
	}
	return backend
}
