package leaf

import (
	"math"
	"math/rand/v2"

	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/module"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minScale bounds estimated scale and rate parameters away from zero.
const minScale = 1e-8

func finite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}

func isInteger(x float64) bool {
	return finite(x) && x == math.Trunc(x)
}

func invalid(family, format string, args ...any) error {
	return errors.Wrapf(module.ErrInvalidParameter, family+": "+format, args...)
}

// weightedMean returns Σ w·x / Σ w.
func weightedMean(x, w []float64) float64 {
	return stat.Mean(x, w)
}

// Gaussian is the normal distribution with parameters "mean" and "std".
type Gaussian struct{}

// Name implements Family.
func (Gaussian) Name() string { return "Gaussian" }

// ParamNames implements Family.
func (Gaussian) ParamNames() []string { return []string{"mean", "std"} }

// Validate implements Family.
func (Gaussian) Validate(p Params) error { return validateLocationScale("Gaussian", p) }

// validateLocationScale checks a finite "mean" and a positive "std".
func validateLocationScale(family string, p Params) error {
	if !finite(p["mean"]) {
		return invalid(family, "mean must be finite, got %v", p["mean"])
	}
	if !finite(p["std"]) || p["std"] <= 0 {
		return invalid(family, "std must be positive, got %v", p["std"])
	}
	return nil
}

// InSupport implements Family.
func (Gaussian) InSupport(_ Params, x float64) bool { return finite(x) }

// LogProb implements Family.
func (Gaussian) LogProb(p Params, x float64) float64 {
	return distuv.Normal{Mu: p["mean"], Sigma: p["std"]}.LogProb(x)
}

// Sample implements Family.
func (Gaussian) Sample(p Params, src rand.Source) float64 {
	return distuv.Normal{Mu: p["mean"], Sigma: p["std"], Src: src}.Rand()
}

// Estimate implements Family.
func (Gaussian) Estimate(x, w []float64, _ Params, biasCorrection bool) (Params, error) {
	mean, variance := meanVariance(x, w, biasCorrection)
	return Params{"mean": mean, "std": clampScale(math.Sqrt(variance))}, nil
}

// LogNormal is the distribution of exp(X) for a Gaussian X with "mean" and "std".
type LogNormal struct{}

// Name implements Family.
func (LogNormal) Name() string { return "LogNormal" }

// ParamNames implements Family.
func (LogNormal) ParamNames() []string { return []string{"mean", "std"} }

// Validate implements Family.
func (LogNormal) Validate(p Params) error { return validateLocationScale("LogNormal", p) }

// InSupport implements Family.
func (LogNormal) InSupport(_ Params, x float64) bool { return finite(x) && x > 0 }

// LogProb implements Family.
func (LogNormal) LogProb(p Params, x float64) float64 {
	return distuv.LogNormal{Mu: p["mean"], Sigma: p["std"]}.LogProb(x)
}

// Sample implements Family.
func (LogNormal) Sample(p Params, src rand.Source) float64 {
	return distuv.LogNormal{Mu: p["mean"], Sigma: p["std"], Src: src}.Rand()
}

// Estimate implements Family.
func (LogNormal) Estimate(x, w []float64, _ Params, biasCorrection bool) (Params, error) {
	logs := make([]float64, len(x))
	for i, v := range x {
		logs[i] = math.Log(v)
	}
	mean, variance := meanVariance(logs, w, biasCorrection)
	return Params{"mean": mean, "std": clampScale(math.Sqrt(variance))}, nil
}

// Exponential has the single parameter "rate".
type Exponential struct{}

// Name implements Family.
func (Exponential) Name() string { return "Exponential" }

// ParamNames implements Family.
func (Exponential) ParamNames() []string { return []string{"rate"} }

// Validate implements Family.
func (Exponential) Validate(p Params) error {
	if !finite(p["rate"]) || p["rate"] <= 0 {
		return invalid("Exponential", "rate must be positive, got %v", p["rate"])
	}
	return nil
}

// InSupport implements Family.
func (Exponential) InSupport(_ Params, x float64) bool { return finite(x) && x >= 0 }

// LogProb implements Family.
func (Exponential) LogProb(p Params, x float64) float64 {
	return distuv.Exponential{Rate: p["rate"]}.LogProb(x)
}

// Sample implements Family.
func (Exponential) Sample(p Params, src rand.Source) float64 {
	return distuv.Exponential{Rate: p["rate"], Src: src}.Rand()
}

// Estimate implements Family.
func (Exponential) Estimate(x, w []float64, _ Params, biasCorrection bool) (Params, error) {
	n := floats.Sum(w)
	total := floats.Dot(x, w)
	if total <= 0 {
		return nil, invalid("Exponential", "cannot estimate rate from all-zero data")
	}
	if biasCorrection {
		n--
	}
	return Params{"rate": clampScale(n / total)}, nil
}

// Gamma has shape "alpha" and rate "beta".
type Gamma struct{}

// Name implements Family.
func (Gamma) Name() string { return "Gamma" }

// ParamNames implements Family.
func (Gamma) ParamNames() []string { return []string{"alpha", "beta"} }

// Validate implements Family.
func (Gamma) Validate(p Params) error {
	if !finite(p["alpha"]) || p["alpha"] <= 0 {
		return invalid("Gamma", "alpha must be positive, got %v", p["alpha"])
	}
	if !finite(p["beta"]) || p["beta"] <= 0 {
		return invalid("Gamma", "beta must be positive, got %v", p["beta"])
	}
	return nil
}

// InSupport implements Family.
func (Gamma) InSupport(_ Params, x float64) bool { return finite(x) && x > 0 }

// LogProb implements Family.
func (Gamma) LogProb(p Params, x float64) float64 {
	return distuv.Gamma{Alpha: p["alpha"], Beta: p["beta"]}.LogProb(x)
}

// Sample implements Family.
func (Gamma) Sample(p Params, src rand.Source) float64 {
	return distuv.Gamma{Alpha: p["alpha"], Beta: p["beta"], Src: src}.Rand()
}

// Estimate implements Family.
//
// The shape starts from the closed-form approximation
// (3 - s + sqrt((s-3)² + 24s)) / 12s with s = log(mean) - mean(log x) and is
// refined by generalized Newton steps.
func (Gamma) Estimate(x, w []float64, _ Params, _ bool) (Params, error) {
	logs := make([]float64, len(x))
	for i, v := range x {
		logs[i] = math.Log(v)
	}
	mean := weightedMean(x, w)
	meanLog := weightedMean(logs, w)
	s := math.Log(mean) - meanLog
	if !(s > 0) {
		return nil, invalid("Gamma", "cannot estimate shape from constant data")
	}

	alpha := (3 - s + math.Sqrt((s-3)*(s-3)+24*s)) / (12 * s)
	for range 20 {
		next := 1 / (1/alpha + (meanLog-math.Log(mean)+math.Log(alpha)-mathext.Digamma(alpha))/
			(alpha*alpha*(1/alpha-trigamma(alpha))))
		if math.Abs(next-alpha) < 1e-10*alpha {
			alpha = next
			break
		}
		alpha = next
	}
	return Params{"alpha": alpha, "beta": alpha / mean}, nil
}

// Poisson has the single parameter "lambda".
type Poisson struct{}

// Name implements Family.
func (Poisson) Name() string { return "Poisson" }

// ParamNames implements Family.
func (Poisson) ParamNames() []string { return []string{"lambda"} }

// Validate implements Family.
func (Poisson) Validate(p Params) error {
	if !finite(p["lambda"]) || p["lambda"] <= 0 {
		return invalid("Poisson", "lambda must be positive, got %v", p["lambda"])
	}
	return nil
}

// InSupport implements Family.
func (Poisson) InSupport(_ Params, x float64) bool { return isInteger(x) && x >= 0 }

// LogProb implements Family.
func (Poisson) LogProb(p Params, x float64) float64 {
	return distuv.Poisson{Lambda: p["lambda"]}.LogProb(x)
}

// Sample implements Family.
func (Poisson) Sample(p Params, src rand.Source) float64 {
	return distuv.Poisson{Lambda: p["lambda"], Src: src}.Rand()
}

// Estimate implements Family.
func (Poisson) Estimate(x, w []float64, _ Params, _ bool) (Params, error) {
	return Params{"lambda": clampScale(weightedMean(x, w))}, nil
}

// Bernoulli has the success probability "p".
type Bernoulli struct{}

// Name implements Family.
func (Bernoulli) Name() string { return "Bernoulli" }

// ParamNames implements Family.
func (Bernoulli) ParamNames() []string { return []string{"p"} }

// Validate implements Family.
func (Bernoulli) Validate(p Params) error {
	if !(p["p"] >= 0 && p["p"] <= 1) {
		return invalid("Bernoulli", "p must be in [0, 1], got %v", p["p"])
	}
	return nil
}

// InSupport implements Family.
func (Bernoulli) InSupport(_ Params, x float64) bool { return x == 0 || x == 1 }

// LogProb implements Family.
func (Bernoulli) LogProb(p Params, x float64) float64 {
	return distuv.Bernoulli{P: p["p"]}.LogProb(x)
}

// Sample implements Family.
func (Bernoulli) Sample(p Params, src rand.Source) float64 {
	return distuv.Bernoulli{P: p["p"], Src: src}.Rand()
}

// Estimate implements Family.
func (Bernoulli) Estimate(x, w []float64, _ Params, _ bool) (Params, error) {
	return Params{"p": weightedMean(x, w)}, nil
}

// Binomial has a fixed number of trials "n" and success probability "p".
// Estimation keeps n and fits p.
type Binomial struct{}

// Name implements Family.
func (Binomial) Name() string { return "Binomial" }

// ParamNames implements Family.
func (Binomial) ParamNames() []string { return []string{"n", "p"} }

// Validate implements Family.
func (Binomial) Validate(p Params) error {
	if !isInteger(p["n"]) || p["n"] < 1 {
		return invalid("Binomial", "n must be a positive integer, got %v", p["n"])
	}
	return Bernoulli{}.Validate(p)
}

// InSupport implements Family.
func (Binomial) InSupport(p Params, x float64) bool { return isInteger(x) && x >= 0 && x <= p["n"] }

// LogProb implements Family.
func (Binomial) LogProb(p Params, x float64) float64 {
	return distuv.Binomial{N: p["n"], P: p["p"]}.LogProb(x)
}

// Sample implements Family.
func (Binomial) Sample(p Params, src rand.Source) float64 {
	return distuv.Binomial{N: p["n"], P: p["p"], Src: src}.Rand()
}

// Estimate implements Family.
func (Binomial) Estimate(x, w []float64, current Params, _ bool) (Params, error) {
	n := current["n"]
	if n < 1 {
		return nil, invalid("Binomial", "number of trials unknown")
	}
	return Params{"n": n, "p": weightedMean(x, w) / n}, nil
}

// Uniform is the continuous uniform distribution on ["start", "end"].
// Values outside the interval are in support with zero density.
type Uniform struct{}

// Name implements Family.
func (Uniform) Name() string { return "Uniform" }

// ParamNames implements Family.
func (Uniform) ParamNames() []string { return []string{"start", "end"} }

// Validate implements Family.
func (Uniform) Validate(p Params) error {
	if !finite(p["start"]) || !finite(p["end"]) || p["start"] >= p["end"] {
		return invalid("Uniform", "need finite start < end, got [%v, %v]", p["start"], p["end"])
	}
	return nil
}

// InSupport implements Family.
func (Uniform) InSupport(_ Params, x float64) bool { return finite(x) }

// LogProb implements Family.
func (Uniform) LogProb(p Params, x float64) float64 {
	return distuv.Uniform{Min: p["start"], Max: p["end"]}.LogProb(x)
}

// Sample implements Family.
func (Uniform) Sample(p Params, src rand.Source) float64 {
	return distuv.Uniform{Min: p["start"], Max: p["end"], Src: src}.Rand()
}

// Estimate is not defined for the uniform distribution.
func (Uniform) Estimate([]float64, []float64, Params, bool) (Params, error) {
	return nil, errors.Wrap(dispatch.ErrNotImplemented, "Uniform: maximum-likelihood estimation")
}

// meanVariance returns the weighted mean and variance of x, population or
// unbiased. Degenerate inputs yield variance 0.
func meanVariance(x, w []float64, unbiased bool) (mean, variance float64) {
	if unbiased {
		mean, variance = stat.MeanVariance(x, w)
	} else {
		mean, variance = stat.PopMeanVariance(x, w)
	}
	if math.IsNaN(variance) || variance < 0 {
		variance = 0
	}
	return mean, variance
}

func clampScale(v float64) float64 {
	if math.IsNaN(v) || v < minScale {
		return minScale
	}
	return v
}

// trigamma returns ψ'(x) for x > 0 using the recurrence ψ'(x) = ψ'(x+1) + 1/x²
// and the asymptotic expansion for large x.
func trigamma(x float64) float64 {
	acc := 0.0
	for x < 6 {
		acc += 1 / (x * x)
		x++
	}
	x2 := 1 / (x * x)
	return acc + 1/x + x2/2 + (1/x)*x2*(1.0/6-x2*(1.0/30-x2*(1.0/42-x2/30)))
}
