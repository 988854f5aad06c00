// Concrete estimators of posterior functionals: the evidence, means and
// credible intervals of the sampled parameters, and a couple of run
// diagnostics.  All of them consume the parallel (logw, logl, r, theta)
// columns of a weighted run.

package estimators

import (
	"fmt"
	"math"
	"sort"

	"nsanalyze/analyze"
)

// LogZ estimates the log evidence.
type LogZ struct{}

func (LogZ) Name() string { return "logz" }

func (LogZ) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return analyze.LogSumExp(logw)
}

// Z estimates the evidence itself.  This underflows to zero for strongly
// peaked likelihoods; prefer LogZ unless the evidence is known to be O(1).
type Z struct{}

func (Z) Name() string { return "z" }

func (Z) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return math.Exp(analyze.LogSumExp(logw))
}

// CountSamples reports the number of samples in the run.
type CountSamples struct{}

func (CountSamples) Name() string { return "nsamples" }

func (CountSamples) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return float64(len(logw))
}

// ParamMean estimates the posterior mean of one parameter coordinate.
// Param is zero-based.
type ParamMean struct {
	Param int
}

func (e ParamMean) Name() string { return fmt.Sprintf("theta%d-mean", e.Param+1) }

func (e ParamMean) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return weightedMean(logw, func(i int) float64 { return theta[i][e.Param] })
}

// ParamSquaredMean estimates the posterior second moment of one parameter
// coordinate.
type ParamSquaredMean struct {
	Param int
}

func (e ParamSquaredMean) Name() string { return fmt.Sprintf("theta%d-sq-mean", e.Param+1) }

func (e ParamSquaredMean) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return weightedMean(logw, func(i int) float64 {
		v := theta[i][e.Param]
		return v * v
	})
}

// ParamCred estimates a one-tailed credible level of one parameter
// coordinate, eg Q=0.84 for the upper 1-sigma bound.
type ParamCred struct {
	Param int
	Q     float64
}

func (e ParamCred) Name() string { return fmt.Sprintf("theta%d-cred-%v", e.Param+1, e.Q) }

func (e ParamCred) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return weightedQuantile(e.Q, logw, func(i int) float64 { return theta[i][e.Param] })
}

// RMean estimates the posterior mean of the radial coordinate.
type RMean struct{}

func (RMean) Name() string { return "r-mean" }

func (RMean) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return weightedMean(logw, func(i int) float64 { return r[i] })
}

// RCred estimates a one-tailed credible level of the radial coordinate.
type RCred struct {
	Q float64
}

func (e RCred) Name() string { return fmt.Sprintf("r-cred-%v", e.Q) }

func (e RCred) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return weightedQuantile(e.Q, logw, func(i int) float64 { return r[i] })
}

// relWeights normalizes the log weights to relative linear weights, dividing
// out the maximum so that the largest weight is exactly 1.
func relWeights(logw []float64) []float64 {
	max := math.Inf(-1)
	for _, w := range logw {
		if w > max {
			max = w
		}
	}
	ws := make([]float64, len(logw))
	for i, w := range logw {
		ws[i] = math.Exp(w - max)
	}
	return ws
}

func weightedMean(logw []float64, value func(i int) float64) float64 {
	ws := relWeights(logw)
	num, den := 0.0, 0.0
	for i, w := range ws {
		num += w * value(i)
		den += w
	}
	return num / den
}

// weightedQuantile computes the weighted quantile q of the given values by
// linear interpolation of the inverse of the weighted empirical CDF, with the
// CDF positions placed at (cumsum(w) - w/2) / sum(w).
func weightedQuantile(q float64, logw []float64, value func(i int) float64) float64 {
	ws := relWeights(logw)
	type wv struct{ w, v float64 }
	pairs := make([]wv, len(ws))
	for i, w := range ws {
		pairs[i] = wv{w, value(i)}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })
	total := 0.0
	for _, p := range pairs {
		total += p.w
	}
	cdf := make([]float64, len(pairs))
	vs := make([]float64, len(pairs))
	acc := 0.0
	for i, p := range pairs {
		cdf[i] = (acc + p.w/2) / total
		acc += p.w
		vs[i] = p.v
	}
	return analyze.Interp(q, cdf, vs)
}
