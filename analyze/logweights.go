// Prior volume shrinkage and importance weights.

package analyze

import (
	"fmt"
	"math"
	"math/rand/v2"

	"nsanalyze/run"
)

// LogX computes the expected log prior volume at each dead point given the
// live counts: the volume shrinks by a factor with expected log -1/nlive at
// each step.
func LogX(nlive []float64) []float64 {
	logx := make([]float64, len(nlive))
	acc := 0.0
	for i, c := range nlive {
		acc -= 1 / c
		logx[i] = acc
	}
	return logx
}

// SimulateLogX draws one realization of the log prior volumes: each shrinkage
// factor is Beta(nlive, 1) distributed, so its log is log(U)/nlive for
// uniform U.  We use log(1-U) so the draw lies in (0, 1] and the log is
// finite.
func SimulateLogX(nlive []float64, rng *rand.Rand) []float64 {
	logx := make([]float64, len(nlive))
	acc := 0.0
	for i, c := range nlive {
		acc += math.Log(1-rng.Float64()) / c
		logx[i] = acc
	}
	return logx
}

// LogW computes the log importance weight of each dead point from its log
// prior volume and log likelihood, using the trapezium rule.  The first
// point's weight picks up the extra slab between X=1 and the first volume,
// and the last point's volume element is approximated by the one before it.
// At least two samples are required for the trapezium rule to be defined.
func LogW(logx, logl []float64) ([]float64, error) {
	n := len(logx)
	if n != len(logl) {
		return nil, fmt.Errorf("%w: logx and logl lengths differ (%d vs %d)",
			run.BadRunShapeErr, n, len(logl))
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples, got %d", run.BadRunShapeErr, n)
	}
	// xs[0] = log X = 0 at the start of the run, then the dead point volumes.
	xs := make([]float64, n+1)
	copy(xs[1:], logx)
	logw := make([]float64, n)
	for i := 0; i+2 <= n; i++ {
		logw[i] = LogSubtract(xs[i], xs[i+2]) - math.Ln2
	}
	logw[0] = LogSumExp([]float64{logw[0], math.Log(0.5) + LogSubtract(xs[0], xs[1])})
	logw[n-1] = logw[n-2]
	for i := range logw {
		logw[i] += logl[i]
	}
	return logw, nil
}
