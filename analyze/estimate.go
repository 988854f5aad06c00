// Driving the analysis pipeline: merge, reconstruct live counts, compute
// weights, and evaluate estimators.

package analyze

import (
	"errors"
	"math/rand/v2"

	"nsanalyze/run"
)

var EmptyRunErr = errors.New("run contains no samples")

// An Estimator maps the weighted samples of a run to a scalar quantity of
// interest.  The slices are parallel over samples; theta may be nil when the
// run carries no parameter columns.
type Estimator interface {
	Name() string
	Estimate(logw, logl, r []float64, theta [][]float64) float64
}

// Weights merges the run's threads and computes the log importance weight of
// each sample.  With a nil rng the prior volumes are the deterministic
// expected values; with an rng one stochastic realization is drawn.
func Weights(r *run.Run, rng *rand.Rand) (*run.Table, []float64, error) {
	if err := r.Check(); err != nil {
		return nil, nil, err
	}
	table := MergeThreads(r.Threads)
	if table == nil || table.Len() == 0 {
		return nil, nil, EmptyRunErr
	}
	nlive, err := LiveCounts(r, table.LogL)
	if err != nil {
		return nil, nil, err
	}
	var logx []float64
	if rng != nil {
		logx = SimulateLogX(nlive, rng)
	} else {
		logx = LogX(nlive)
	}
	table.LogX = logx
	logw, err := LogW(logx, table.LogL)
	if err != nil {
		return nil, nil, err
	}
	return table, logw, nil
}

// NCalls returns the total number of samples across all non-absent threads,
// a cheap diagnostic that does not require merging.
func NCalls(r *run.Run) int {
	n := 0
	for _, th := range r.Threads {
		if !th.Absent() {
			n += th.Table.Len()
		}
	}
	return n
}

// RunEstimators evaluates each estimator on the run using the expected prior
// volumes.
func RunEstimators(r *run.Run, es []Estimator) ([]float64, error) {
	table, logw, err := Weights(r, nil)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(es))
	for i, e := range es {
		values[i] = e.Estimate(logw, table.LogL, table.R, table.Theta)
	}
	return values, nil
}
