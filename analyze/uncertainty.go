// Sampling-error estimation: simulated prior volumes, thread bootstrapping,
// and bootstrap credible intervals on the estimators themselves.

package analyze

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"nsanalyze/run"
)

var TooFewSimulationsErr = errors.New("too few simulations for the requested credible level")

// ErrorOpts controls the uncertainty estimators.  A Seed together with the
// iteration number fully determines each realization, so results are
// reproducible for a given (Seed, NSimulate) regardless of Workers.
type ErrorOpts struct {
	NSimulate int    // number of realizations, at least 1
	Workers   int    // parallelism, at least 1
	Seed      uint64 // base seed for the per-iteration generators
	NinitSep  bool   // resample initial and dynamically added threads separately
}

func (o *ErrorOpts) check() error {
	if o.NSimulate < 1 {
		return fmt.Errorf("NSimulate must be at least 1, got %d", o.NSimulate)
	}
	if o.Workers < 1 {
		return fmt.Errorf("Workers must be at least 1, got %d", o.Workers)
	}
	return nil
}

// SimulatedErrors estimates the standard deviation of each estimator due to
// the unknown prior volumes: it draws NSimulate stochastic volume
// realizations for the fixed set of samples and evaluates the estimators on
// each.  Returns the per-estimator sample standard deviations and the full
// NSimulate x len(es) value matrix.
func SimulatedErrors(r *run.Run, es []Estimator, opts ErrorOpts) ([]float64, [][]float64, error) {
	return errorLoop(es, opts, func(iter int, rng *rand.Rand) ([]float64, error) {
		table, logw, err := Weights(r, rng)
		if err != nil {
			return nil, err
		}
		values := make([]float64, len(es))
		for j, e := range es {
			values[j] = e.Estimate(logw, table.LogL, table.R, table.Theta)
		}
		return values, nil
	})
}

// BootstrapErrors estimates the standard deviation of each estimator by
// resampling whole threads with replacement and evaluating the estimators on
// each resampled run with expected prior volumes.
func BootstrapErrors(r *run.Run, es []Estimator, opts ErrorOpts) ([]float64, [][]float64, error) {
	return errorLoop(es, opts, func(iter int, rng *rand.Rand) ([]float64, error) {
		return RunEstimators(BootstrapResample(r, rng, opts.NinitSep), es)
	})
}

// errorLoop runs `one` for NSimulate iterations across Workers goroutines and
// reduces the value matrix to per-estimator standard deviations.
func errorLoop(
	es []Estimator,
	opts ErrorOpts,
	one func(iter int, rng *rand.Rand) ([]float64, error),
) ([]float64, [][]float64, error) {
	if err := opts.check(); err != nil {
		return nil, nil, err
	}
	values := make([][]float64, opts.NSimulate)
	errs := make([]error, opts.NSimulate)
	iters := make(chan int, opts.NSimulate)
	for i := 0; i < opts.NSimulate; i++ {
		iters <- i
	}
	close(iters)
	// MT: values and errs are indexed by iteration, each slot written by
	// exactly one worker, so no locking is needed.
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iter := range iters {
				rng := rand.New(rand.NewPCG(opts.Seed, uint64(iter)))
				values[iter], errs[iter] = one(iter, rng)
			}
		}()
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}
	stds := make([]float64, len(es))
	col := make([]float64, opts.NSimulate)
	for j := range es {
		for i := range values {
			col[i] = values[i][j]
		}
		stds[j] = sampleStd(col)
	}
	return stds, values, nil
}

// BootstrapResample draws a new run whose threads are sampled with
// replacement from r's threads, with the corresponding bounds carried along.
// When the run is dynamic and ninitSep is set, the first InitNlive threads
// (the initial exploratory batch) and the remaining dynamically added threads
// are resampled as separate strata.  The stored live counts, if any, are
// deliberately not copied: they describe the original thread set and must be
// reconstructed from the resampled bounds.
func BootstrapResample(r *run.Run, rng *rand.Rand, ninitSep bool) *run.Run {
	n := len(r.Threads)
	indices := make([]int, n)
	ninit := r.Settings.InitNlive
	if r.Settings.Kind == run.KindDynamic && ninitSep && ninit > 0 && ninit < n {
		for i := 0; i < ninit; i++ {
			indices[i] = rng.IntN(ninit)
		}
		for i := ninit; i < n; i++ {
			indices[i] = ninit + rng.IntN(n-ninit)
		}
	} else {
		for i := range indices {
			indices[i] = rng.IntN(n)
		}
	}
	rs := &run.Run{
		Threads:  make([]run.Thread, n),
		Settings: r.Settings,
	}
	if r.Bounds != nil {
		rs.Bounds = make([]run.Bounds, n)
	}
	for i, k := range indices {
		rs.Threads[i] = r.Threads[k]
		if r.Bounds != nil {
			rs.Bounds[i] = r.Bounds[k]
		}
	}
	return rs
}

// BootstrapCI computes a two-sided credible interval for an estimator from
// its observed value and a set of bootstrap replicate values, using the basic
// bootstrap formula 2*observed - quantile(replicates, 1-cred).  Both tails of
// the replicate distribution must be resolved by at least one replicate.
func BootstrapCI(observed float64, replicates []float64, cred float64) (float64, error) {
	n := len(replicates)
	if math.Min(cred, 1-cred)*float64(n) <= 1 {
		return 0, fmt.Errorf("%w: cred=%g with %d replicates", TooFewSimulationsErr, cred, n)
	}
	sorted := make([]float64, n)
	copy(sorted, replicates)
	sort.Float64s(sorted)
	cdf := make([]float64, n)
	for i := range cdf {
		cdf[i] = (float64(i) + 0.5) / float64(n)
	}
	return 2*observed - Interp(1-cred, cdf, sorted), nil
}

// Interp linearly interpolates y(x) through the points (xs[i], ys[i]), with
// xs strictly increasing.  Outside the range of xs the nearest endpoint value
// is returned.
func Interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		return ys[i]
	}
	t := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + t*(ys[i]-ys[i-1])
}

func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		// The Bessel-corrected deviation is undefined for a single observation.
		return math.NaN()
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
