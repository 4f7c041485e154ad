package leaf

import (
	"math"

	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// checkColumns verifies that data is a [N, D] batch holding every column in vars.
func checkColumns(data *tensor.RawTensor, vars ...int) error {
	if len(data.Shape()) != 2 {
		return errors.Wrapf(module.ErrInvalidParameter, "data must be 2-dimensional, got shape %v", data.Shape())
	}
	for _, v := range vars {
		if v >= data.Cols() {
			return errors.Wrapf(module.ErrIndexOutOfBounds, "variable %d not in data with %d columns", v, data.Cols())
		}
	}
	return nil
}

// logProbs returns the log density of every cell of col; missing cells get 0.
func logProbs(f Family, p Params, col []float64, checkSupport bool, out []float64, stride int) error {
	for i, x := range col {
		if math.IsNaN(x) {
			out[i*stride] = 0
			continue
		}
		if !f.InSupport(p, x) {
			if checkSupport {
				return errors.Wrapf(module.ErrSupportViolation, "%s: value %v in row %d outside the support", f.Name(), x, i)
			}
			out[i*stride] = math.Inf(-1)
			continue
		}
		out[i*stride] = f.LogProb(p, x)
	}
	return nil
}

// estimate prepares observations and weights of col and runs the family estimator.
func estimate(f Family, col []float64, opts dispatch.MLEOptions, current Params) (Params, error) {
	weights := opts.Weights
	if weights == nil {
		weights = make([]float64, len(col))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(col) {
		return nil, errors.Wrapf(module.ErrInvalidParameter, "%d weights for %d rows", len(weights), len(col))
	}

	x := make([]float64, 0, len(col))
	w := make([]float64, 0, len(col))
	for i, v := range col {
		if math.IsNaN(v) {
			if opts.NaNStrategy == dispatch.NaNStrategyNone {
				return nil, errors.Wrapf(module.ErrInvalidParameter, "%s: missing value in row %d (NaN strategy none)", f.Name(), i)
			}
			continue
		}
		if weights[i] < 0 || math.IsNaN(weights[i]) {
			return nil, errors.Wrapf(module.ErrInvalidParameter, "weight %v in row %d", weights[i], i)
		}
		if !f.InSupport(current, v) {
			return nil, errors.Wrapf(module.ErrSupportViolation, "%s: value %v in row %d outside the support", f.Name(), v, i)
		}
		x = append(x, v)
		w = append(w, weights[i])
	}

	total := floats.Sum(w)
	if len(x) == 0 || total <= 0 {
		return nil, errors.Wrapf(module.ErrInvalidParameter, "%s: no observations with positive weight", f.Name())
	}
	floats.Scale(float64(len(x))/total, w)

	p, err := f.Estimate(x, w, current, opts.BiasCorrection)
	if err != nil {
		return nil, err
	}
	if err := checkParams(f, p); err != nil {
		return nil, errors.WithMessage(err, "estimated parameters")
	}
	return p, nil
}
