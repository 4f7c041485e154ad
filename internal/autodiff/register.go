package autodiff

import (
	"github.com/born-ml/spflow/internal/backends"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
)

// init registers "autodiff[:<inner>]"; the inner backend defaults to "cpu".
func init() {
	backends.Register("autodiff", func(config string) (tensor.Backend, error) {
		if config == "" {
			config = "cpu"
		}
		inner, err := backends.NewWithConfig(config)
		if err != nil {
			return nil, errors.WithMessage(err, "autodiff: inner backend")
		}
		return New(inner), nil
	})
}
