// Value types for nested-sampling run data.
//
// A Run is the full dataset for one simulated nested-sampling execution: a set of threads, each an
// ordered table of samples, plus the snapshot of the generator settings that produced it.  For
// dynamic runs there is additionally one logl-bounds record per thread, describing the likelihood
// interval over which the thread was live.  All of it is read-only input to the analysis code;
// derived data (merged tables, live counts, weights) are computed fresh by the analyze package and
// never written back.

package run

import (
	"errors"
	"fmt"
	"math"
)

// MT: Constant after initialization; immutable
var (
	BadBoundsErr   = errors.New("Thread bounds open at both ends")
	BadRunShapeErr = errors.New("Malformed run")
)

// A Table holds sample rows in column order: logl, r, logx, theta.  Columns are parallel; Theta
// rows may be empty but Theta itself has one entry per sample.  Rows are sorted ascending by LogL
// within a thread.

type Table struct {
	LogL  []float64
	R     []float64
	LogX  []float64
	Theta [][]float64
}

func (t *Table) Len() int {
	return len(t.LogL)
}

// Check verifies that every present column is parallel with the likelihood column.  An absent
// column is nil; a column that is present for some rows only cannot be represented and is
// malformed input.

func (t *Table) Check() error {
	n := t.Len()
	if t.R != nil && len(t.R) != n {
		return fmt.Errorf("%w: r column has %d entries for %d samples", BadRunShapeErr, len(t.R), n)
	}
	if t.LogX != nil && len(t.LogX) != n {
		return fmt.Errorf("%w: logx column has %d entries for %d samples", BadRunShapeErr, len(t.LogX), n)
	}
	if t.Theta != nil && len(t.Theta) != n {
		return fmt.Errorf("%w: theta column has %d entries for %d samples", BadRunShapeErr, len(t.Theta), n)
	}
	return nil
}

// A Thread is one constituent path of points in a run.  A dynamic run can contain threads that
// never held a live point; these are Absent and carry no table.  Absent threads are skipped when
// merging, never coerced to empty rows.

type Thread struct {
	Table *Table
}

func (t Thread) Absent() bool {
	return t.Table == nil
}

// Bounds is the likelihood interval over which a thread contributes live points.  A NaN bound
// means the interval is unbounded on that side; at most one side may be NaN.  Multiplicity is the
// number of live points the thread contributes while active.

type Bounds struct {
	Min          float64
	Max          float64
	Multiplicity float64
}

func (b Bounds) Check() error {
	if math.IsNaN(b.Min) && math.IsNaN(b.Max) {
		return BadBoundsErr
	}
	return nil
}

// RunKind tags how the live-count sequence of a run is to be interpreted.

type RunKind int

const (
	// Fixed live-point count, ramping down to 1 over the final samples.
	KindFixed RunKind = iota

	// Dynamically allocated threads described by per-thread bounds records.
	KindDynamic
)

func (k RunKind) String() string {
	if k == KindFixed {
		return "fixed"
	}
	return "dynamic"
}

// Settings is the snapshot of the generating process carried on a run.  It is used only to
// interpret the run (kind dispatch, ramp-down length, stratified resampling split), never in the
// analysis math itself.

type Settings struct {
	Kind        RunKind
	DynamicGoal float64 // goal in [0,1], meaningful only for dynamic runs
	FixedNlive  int     // live-point count for fixed runs
	InitNlive   int     // initial live-point count (the first InitNlive thread slots)
}

type Run struct {
	Threads  []Thread
	Bounds   []Bounds  // parallel with Threads for dynamic runs, else nil
	Nlive    []float64 // optional precomputed live counts for the merged samples
	Settings Settings
}

// Check verifies the structural invariants of a run: every thread table has parallel columns;
// dynamic runs carry one bounds record per thread and no bounds record is open at both ends;
// fixed runs carry a positive live-point count.

func (r *Run) Check() error {
	for i, th := range r.Threads {
		if th.Absent() {
			continue
		}
		if err := th.Table.Check(); err != nil {
			return fmt.Errorf("%w (thread %d)", err, i)
		}
	}
	switch r.Settings.Kind {
	case KindDynamic:
		if len(r.Bounds) != len(r.Threads) {
			return fmt.Errorf("%w: %d threads but %d bounds records",
				BadRunShapeErr, len(r.Threads), len(r.Bounds))
		}
		for i, b := range r.Bounds {
			if err := b.Check(); err != nil {
				return fmt.Errorf("%w (thread %d)", err, i)
			}
		}
	case KindFixed:
		if r.Nlive == nil && r.Settings.FixedNlive < 1 {
			return fmt.Errorf("%w: fixed run with live-point count %d",
				BadRunShapeErr, r.Settings.FixedNlive)
		}
	}
	return nil
}
