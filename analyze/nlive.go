// Reconstruction of the per-sample live point counts of a run.
//
// For a dynamic run the threads carry birth/death likelihood bounds and the
// count at each dead point is the number of threads that were sampling the
// region above that point's likelihood.  For a fixed run the count is constant
// except for the final ramp-down when the live points are killed off one by
// one without replacement.

package analyze

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"nsanalyze/run"
)

var BadLiveCountErr = errors.New("nonpositive live point count")

// LiveCounts returns the number of live points at each dead point of `r`, in
// the order of the merged run (logl ascending).  `logl` must be the merged,
// sorted likelihood column.  Every returned count is strictly positive; a
// zero or negative count means the thread bounds are inconsistent with the
// samples and is reported as an error wrapping BadLiveCountErr.
func LiveCounts(r *run.Run, logl []float64) ([]float64, error) {
	if r.Nlive != nil {
		nlive := slices.Clone(r.Nlive)
		if err := checkLiveCounts(nlive, logl); err != nil {
			return nil, err
		}
		return nlive, nil
	}
	n := len(logl)
	nlive := make([]float64, n)
	switch r.Settings.Kind {
	case run.KindFixed:
		c := float64(r.Settings.FixedNlive)
		for i := range nlive {
			nlive[i] = c
		}
		// Termination ramp: the last nlive-1 points die without replacement.
		for i := 1; i < r.Settings.FixedNlive && i <= n; i++ {
			nlive[n-i] = float64(i)
		}
	case run.KindDynamic:
		for _, b := range r.Bounds {
			switch {
			case math.IsNaN(b.Min) && math.IsNaN(b.Max):
				return nil, run.BadBoundsErr
			case math.IsNaN(b.Min):
				// Thread started from the whole prior and ran up to Max.
				for i := 0; i < n && logl[i] <= b.Max; i++ {
					nlive[i] += b.Multiplicity
				}
			case math.IsNaN(b.Max):
				// Thread started above Min and ran to its natural end.
				for i := n - 1; i >= 0 && logl[i] > b.Min; i-- {
					nlive[i] += b.Multiplicity
				}
			default:
				for i := 0; i < n; i++ {
					if logl[i] > b.Min && logl[i] <= b.Max {
						nlive[i] += b.Multiplicity
					}
				}
			}
		}
	default:
		return nil, run.BadRunShapeErr
	}
	if err := checkLiveCounts(nlive, logl); err != nil {
		return nil, err
	}
	return nlive, nil
}

func checkLiveCounts(nlive, logl []float64) error {
	for i, c := range nlive {
		if c <= 0 {
			return fmt.Errorf("%w at sample %d (logl=%g)", BadLiveCountErr, i, logl[i])
		}
	}
	return nil
}
